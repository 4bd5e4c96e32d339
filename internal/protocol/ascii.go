package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

var crlf = []byte("\r\n")

const maxNumberDigits = 10

// ParseCommand parses exactly one CRLF-terminated command line:
//
//	set <key> <flags> <ttl> <bytes> [noreply]\r\n
//	get <key>\r\n
//	version\r\n
//
// Keywords are case-insensitive and fields are separated by single spaces.
// The returned command does not alias line.
func ParseCommand(line []byte) (Command, error) {
	if len(line) == 0 {
		return nil, ErrEmptyLine
	}
	if !bytes.HasSuffix(line, crlf) {
		return nil, ErrUnterminatedLine
	}

	body := line[:len(line)-len(crlf)]
	keyword, args, hasArgs := bytes.Cut(body, []byte{' '})

	switch {
	case bytes.EqualFold(keyword, []byte("set")):
		if !hasArgs {
			return nil, fmt.Errorf("%w: set requires <key> <flags> <ttl> <bytes>", ErrMalformedCommand)
		}
		return parseSet(args)
	case bytes.EqualFold(keyword, []byte("get")):
		if !hasArgs {
			return nil, fmt.Errorf("%w: get requires <key>", ErrMalformedCommand)
		}
		return parseGet(args)
	case bytes.EqualFold(keyword, []byte("version")):
		if hasArgs {
			return nil, fmt.Errorf("%w: version takes no arguments", ErrMalformedCommand)
		}
		return Version{}, nil
	case len(keyword) == 0:
		return nil, ErrEmptyLine
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, keyword)
	}
}

func parseGet(args []byte) (Command, error) {
	s := scanner{buf: args}
	key := s.key()
	if key == nil || !s.done() {
		return nil, fmt.Errorf("%w: get requires exactly one key", ErrMalformedCommand)
	}
	return Get{Key: bytes.Clone(key)}, nil
}

func parseSet(args []byte) (Command, error) {
	s := scanner{buf: args}

	key := s.key()
	if key == nil {
		return nil, fmt.Errorf("%w: set: invalid key", ErrMalformedCommand)
	}

	var fields [3]uint32
	for i, name := range [...]string{"flags", "ttl", "bytes"} {
		if !s.space() {
			return nil, fmt.Errorf("%w: set: missing %s", ErrMalformedCommand, name)
		}
		n, err := s.uint32()
		if err != nil {
			return nil, fmt.Errorf("%w: set: %s: %v", ErrMalformedCommand, name, err)
		}
		fields[i] = n
	}

	cmd := Set{
		Key:    bytes.Clone(key),
		Flag:   fields[0],
		TTL:    fields[1],
		Length: fields[2],
	}

	// A single trailing space is tolerated, with or without noreply after it.
	s.space()
	if s.done() {
		return cmd, nil
	}
	if bytes.EqualFold(s.rest(), []byte("noreply")) {
		cmd.NoReply = true
		return cmd, nil
	}
	return nil, fmt.Errorf("%w: set: unexpected trailing %q", ErrMalformedCommand, s.rest())
}

// scanner walks the argument part of a command line.
type scanner struct {
	buf []byte
	pos int
}

func (s *scanner) done() bool { return s.pos == len(s.buf) }

func (s *scanner) rest() []byte { return s.buf[s.pos:] }

func (s *scanner) space() bool {
	if s.pos < len(s.buf) && s.buf[s.pos] == ' ' {
		s.pos++
		return true
	}
	return false
}

// key consumes one or more printable non-space ASCII bytes; nil if none.
func (s *scanner) key() []byte {
	start := s.pos
	for s.pos < len(s.buf) && isKeyChar(s.buf[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		return nil
	}
	return s.buf[start:s.pos]
}

func (s *scanner) uint32() (uint32, error) {
	start := s.pos
	for s.pos < len(s.buf) && isDigit(s.buf[s.pos]) {
		s.pos++
	}

	digits := s.buf[start:s.pos]
	switch {
	case len(digits) == 0:
		return 0, errors.New("expected a number")
	case len(digits) > maxNumberDigits:
		return 0, fmt.Errorf("number %q too long", digits)
	}

	n, err := strconv.ParseUint(string(digits), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("number %q out of range", digits)
	}
	return uint32(n), nil
}

func isKeyChar(c byte) bool {
	return c > ' ' && c < 0x7f
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
