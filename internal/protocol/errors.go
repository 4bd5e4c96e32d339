package protocol

import "errors"

// Connection-fatal errors. Once a Conn returns one of these it must not be
// used again.
var (
	ErrConnectionReset = errors.New("connection reset by peer")
	ErrFrameTooLarge   = errors.New("frame exceeds maximum size")
)

// Parse errors. These are recoverable: the line is answered with ERROR and
// the connection stays open.
var (
	ErrEmptyLine        = errors.New("empty command line")
	ErrUnterminatedLine = errors.New("command line is not CRLF terminated")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMalformedCommand = errors.New("malformed command")
)
