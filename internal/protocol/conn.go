package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	DefaultInitialBufferSize = 1024
	DefaultMaxFrameSize      = 4096 * 1024

	maxEmptyReads = 100
)

// Conn turns a byte stream into CRLF-terminated frames and writes replies.
//
// Bytes are accumulated in a single buffer. buf[start:end] is the unconsumed
// region and no CRLF begins in buf[start:scanned], so bytes are never
// re-scanned once inspected.
type Conn struct {
	r io.Reader
	w *bufio.Writer

	buf     []byte
	start   int
	end     int
	scanned int
	readErr error

	maxFrameSize int
}

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithInitialBufferSize sets the starting size of the read buffer.
func WithInitialBufferSize(n int) ConnOption {
	return func(c *Conn) {
		if n >= 2 {
			c.buf = make([]byte, n)
		}
	}
}

// WithMaxFrameSize caps how far the read buffer may grow while waiting for a
// terminator.
func WithMaxFrameSize(n int) ConnOption {
	return func(c *Conn) {
		if n > 0 {
			c.maxFrameSize = n
		}
	}
}

// NewConn wraps rw.
func NewConn(rw io.ReadWriter, opts ...ConnOption) *Conn {
	c := &Conn{
		r:            rw,
		w:            bufio.NewWriter(rw),
		maxFrameSize: DefaultMaxFrameSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.buf == nil {
		c.buf = make([]byte, DefaultInitialBufferSize)
	}
	return c
}

// ReadFrame reads the next frame and hands it, terminator included, to
// consume. The slice aliases the connection buffer and is only valid for the
// duration of the call.
//
// ErrConnectionReset, ErrFrameTooLarge and wrapped read errors are fatal.
func ReadFrame[T any](c *Conn, consume func(frame []byte) T) (T, error) {
	frame, err := c.nextFrame()
	if err != nil {
		var zero T
		return zero, err
	}
	return consume(frame), nil
}

func (c *Conn) nextFrame() ([]byte, error) {
	emptyReads := 0
	for {
		from := c.scanned
		if from < c.start {
			from = c.start
		}

		if i := bytes.Index(c.buf[from:c.end], crlf); i >= 0 {
			frameEnd := from + i + len(crlf)
			frame := c.buf[c.start:frameEnd]
			c.start = frameEnd
			c.scanned = frameEnd
			if c.start == c.end {
				// Fully drained: the next read starts at the front. frame
				// stays intact until that read.
				c.start, c.end, c.scanned = 0, 0, 0
			}
			return frame, nil
		}

		// The last byte may be a '\r' whose '\n' has not arrived yet.
		c.scanned = c.end - 1
		if c.scanned < c.start {
			c.scanned = c.start
		}

		if c.readErr != nil {
			return nil, c.fatal(c.readErr)
		}

		if err := c.ensureSpace(); err != nil {
			return nil, err
		}

		n, err := c.r.Read(c.buf[c.end:])
		c.end += n
		if err != nil {
			// Frames already delivered with err are still served first.
			c.readErr = err
			continue
		}
		if n == 0 {
			emptyReads++
			if emptyReads >= maxEmptyReads {
				return nil, c.fatal(io.ErrNoProgress)
			}
		}
	}
}

// ensureSpace makes room after end by compacting consumed bytes away or, when
// the whole buffer is one unterminated frame, by growing it up to the cap.
func (c *Conn) ensureSpace() error {
	if c.end < len(c.buf) {
		return nil
	}

	if c.start > 0 {
		n := copy(c.buf, c.buf[c.start:c.end])
		c.scanned -= c.start
		c.start, c.end = 0, n
		return nil
	}

	if len(c.buf) >= c.maxFrameSize {
		return fmt.Errorf("%w: no terminator within %d bytes", ErrFrameTooLarge, len(c.buf))
	}

	size := len(c.buf) * 2
	if size > c.maxFrameSize {
		size = c.maxFrameSize
	}
	grown := make([]byte, size)
	copy(grown, c.buf[:c.end])
	c.buf = grown
	return nil
}

func (c *Conn) fatal(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrConnectionReset
	}
	return fmt.Errorf("read frame: %w", err)
}

// Buffered returns the number of received bytes not yet handed out as frames.
func (c *Conn) Buffered() int {
	return c.end - c.start
}

// WriteFrame writes p followed by CRLF and flushes.
func (c *Conn) WriteFrame(p []byte) error {
	if err := c.BufferFrame(p); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// BufferFrame writes p followed by CRLF without flushing. The bytes reach the
// peer with the next WriteFrame.
func (c *Conn) BufferFrame(p []byte) error {
	if _, err := c.w.Write(p); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if _, err := c.w.Write(crlf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
