package server

import (
	"bytes"
	"context"
	"errors"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"goflare.io/cinder/internal/metrics"
	"goflare.io/cinder/internal/protocol"
)

// state is where a connection is in its request cycle.
type state int

const (
	stateAwaitCommand state = iota
	stateAwaitValue
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateAwaitCommand:
		return "await_command"
	case stateAwaitValue:
		return "await_value"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// parsed carries a command line's parse result out of ReadFrame. Parse errors
// are answered on the wire; only read errors end the connection.
type parsed struct {
	cmd protocol.Command
	err error
}

func parseLine(line []byte) parsed {
	cmd, err := protocol.ParseCommand(line)
	return parsed{cmd: cmd, err: err}
}

// handler serves one connection, one command at a time.
type handler struct {
	conn    *protocol.Conn
	store   Store
	sink    metrics.Sink
	tracer  trace.Tracer
	clock   clock.Clock
	logger  *zap.Logger
	version []byte

	state state

	// Set while in stateAwaitValue.
	pending     protocol.Set
	pendingAt   time.Time
	pendingSpan trace.Span

	header []byte
}

// serve runs the state machine until the connection fails.
func (h *handler) serve(ctx context.Context) {
	for h.state != stateClosed {
		var err error
		switch h.state {
		case stateAwaitCommand:
			err = h.awaitCommand(ctx)
		case stateAwaitValue:
			err = h.awaitValue()
		}
		if err != nil {
			h.close(err)
		}
	}
}

func (h *handler) awaitCommand(ctx context.Context) error {
	p, err := protocol.ReadFrame(h.conn, parseLine)
	if err != nil {
		return err
	}
	if p.err != nil {
		h.logger.Debug("Rejected command line", zap.Error(p.err))
		return h.conn.WriteFrame(protocol.ReplyError)
	}

	name := p.cmd.Name()
	start := h.clock.Now()
	_, span := h.tracer.Start(ctx, "memcached."+name, trace.WithSpanKind(trace.SpanKindServer))

	switch cmd := p.cmd.(type) {
	case protocol.Set:
		span.SetAttributes(
			attribute.String("key", string(cmd.Key)),
			attribute.Int64("bytes", int64(cmd.Length)),
			attribute.Bool("noreply", cmd.NoReply),
		)
		h.pending = cmd
		h.pendingAt = start
		h.pendingSpan = span
		h.state = stateAwaitValue
		return nil
	case protocol.Get:
		span.SetAttributes(attribute.String("key", string(cmd.Key)))
		err = h.get(cmd, span)
	case protocol.Version:
		err = h.conn.WriteFrame(h.version)
	}

	h.finish(name, start, span, err)
	return err
}

func (h *handler) get(cmd protocol.Get, span trace.Span) error {
	v, ok := h.store.Get(cmd.Key)
	span.SetAttributes(attribute.Bool("hit", ok))
	if ok {
		h.header = protocol.AppendValueHeader(h.header[:0], cmd.Key, v.Flag, len(v.Value))
		if err := h.conn.BufferFrame(h.header); err != nil {
			return err
		}
		if err := h.conn.BufferFrame(v.Value); err != nil {
			return err
		}
	}
	return h.conn.WriteFrame(protocol.ReplyEnd)
}

func (h *handler) awaitValue() error {
	set := h.pending
	want := int64(set.Length) + 2

	stored, err := protocol.ReadFrame(h.conn, func(frame []byte) bool {
		if int64(len(frame)) != want {
			return false
		}
		value := bytes.Clone(frame[:len(frame)-2])
		h.store.InsertWithTTL(set.Key, value, set.TTL, set.Flag)
		return true
	})

	if err == nil {
		switch {
		case !stored:
			h.logger.Debug("Rejected data block",
				zap.ByteString("key", set.Key),
				zap.Uint32("expected", set.Length),
			)
			err = h.conn.WriteFrame(protocol.ReplyBadDataChunk)
		case !set.NoReply:
			err = h.conn.WriteFrame(protocol.ReplyStored)
		}
	}

	h.finish(set.Name(), h.pendingAt, h.pendingSpan, err)
	h.pending = protocol.Set{}
	h.pendingSpan = nil
	if err != nil {
		return err
	}
	h.state = stateAwaitCommand
	return nil
}

func (h *handler) finish(name string, start time.Time, span trace.Span, err error) {
	h.sink.ObserveCommand(name, h.clock.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (h *handler) close(err error) {
	from := h.state
	h.state = stateClosed

	fields := []zap.Field{zap.Stringer("state", from), zap.Error(err)}
	switch {
	case errors.Is(err, protocol.ErrConnectionReset), errors.Is(err, net.ErrClosed):
		h.logger.Debug("Connection closed", fields...)
	case errors.Is(err, protocol.ErrFrameTooLarge):
		h.logger.Warn("Dropping connection with oversized frame", fields...)
	default:
		h.logger.Warn("Connection failed", fields...)
	}
}
