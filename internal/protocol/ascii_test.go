package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Command
	}{
		{"get", "get foo\r\n", Get{Key: []byte("foo")}},
		{"get upper case", "GET foo\r\n", Get{Key: []byte("foo")}},
		{"get punctuation key", "get user:42/profile\r\n", Get{Key: []byte("user:42/profile")}},
		{"version", "version\r\n", Version{}},
		{"version mixed case", "VeRsIoN\r\n", Version{}},
		{"set", "set foo 5 60 3\r\n", Set{Key: []byte("foo"), Flag: 5, TTL: 60, Length: 3}},
		{"set zero fields", "set k 0 0 0\r\n", Set{Key: []byte("k")}},
		{"set max uint32", "set k 4294967295 4294967295 4294967295\r\n",
			Set{Key: []byte("k"), Flag: 4294967295, TTL: 4294967295, Length: 4294967295}},
		{"set noreply", "set foo 1 2 3 noreply\r\n", Set{Key: []byte("foo"), Flag: 1, TTL: 2, Length: 3, NoReply: true}},
		{"set NOREPLY", "SET foo 1 2 3 NOREPLY\r\n", Set{Key: []byte("foo"), Flag: 1, TTL: 2, Length: 3, NoReply: true}},
		{"set trailing space", "set foo 1 2 3 \r\n", Set{Key: []byte("foo"), Flag: 1, TTL: 2, Length: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"empty", "", ErrEmptyLine},
		{"bare terminator", "\r\n", ErrEmptyLine},
		{"no terminator", "get foo", ErrUnterminatedLine},
		{"bare newline", "get foo\n", ErrUnterminatedLine},
		{"unknown", "delete foo\r\n", ErrUnknownCommand},
		{"leading space", " get foo\r\n", ErrEmptyLine},
		{"get without key", "get\r\n", ErrMalformedCommand},
		{"get double space", "get  foo\r\n", ErrMalformedCommand},
		{"get two keys", "get foo bar\r\n", ErrMalformedCommand},
		{"version with argument", "version now\r\n", ErrMalformedCommand},
		{"set without args", "set\r\n", ErrMalformedCommand},
		{"set missing bytes", "set foo 0 0\r\n", ErrMalformedCommand},
		{"set negative flag", "set foo -1 0 3\r\n", ErrMalformedCommand},
		{"set non numeric ttl", "set foo 0 soon 3\r\n", ErrMalformedCommand},
		{"set overflow", "set foo 4294967296 0 3\r\n", ErrMalformedCommand},
		{"set too many digits", "set foo 0 0 00000000001\r\n", ErrMalformedCommand},
		{"set junk after length", "set foo 0 0 3 please\r\n", ErrMalformedCommand},
		{"set junk after noreply", "set foo 0 0 3 noreply x\r\n", ErrMalformedCommand},
		{"set tab separator", "set foo\t0 0 3\r\n", ErrMalformedCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand([]byte(tt.line))
			assert.Nil(t, cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseCommand_KeyDoesNotAliasLine(t *testing.T) {
	line := []byte("set shared 0 0 1\r\n")
	cmd, err := ParseCommand(line)
	require.NoError(t, err)

	copy(line, "XXXXXXXXXX")
	assert.Equal(t, []byte("shared"), cmd.(Set).Key)
}

func TestCommandNames(t *testing.T) {
	assert.Equal(t, "set", Set{}.Name())
	assert.Equal(t, "get", Get{}.Name())
	assert.Equal(t, "version", Version{}.Name())
}

func TestReplies(t *testing.T) {
	assert.Equal(t, "VALUE foo 7 3", string(AppendValueHeader(nil, []byte("foo"), 7, 3)))
	assert.Equal(t, "VERSION 0.1.0", string(VersionReply("0.1.0")))
}
