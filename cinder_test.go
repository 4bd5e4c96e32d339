package cinder

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNew_InvalidOption(t *testing.T) {
	_, err := New(context.Background(), WithShardCount(0))
	assert.ErrorIs(t, err, ErrShardCountZero)

	_, err = New(context.Background(), WithVersion(""))
	assert.ErrorIs(t, err, ErrEmptyVersion)
}

func TestCinder_SetGet(t *testing.T) {
	mock := clock.NewMock()
	c, err := New(context.Background(),
		WithLogger(zaptest.NewLogger(t)),
		WithClock(mock),
		WithAdminAddr(""),
		WithSweepInterval(0),
		WithDefaultExpiration(time.Minute),
	)
	require.NoError(t, err)
	defer c.Close()

	c.Set([]byte("forever"), []byte("a"), 1, 0)
	c.Set([]byte("short"), []byte("b"), 2, 500*time.Millisecond)
	c.Set([]byte("default"), []byte("c"), 3, -1)

	mock.Add(time.Second)
	_, _, ok := c.Get([]byte("short"))
	assert.True(t, ok, "sub-second ttl rounds up to one second")

	mock.Add(time.Second)
	_, _, ok = c.Get([]byte("short"))
	assert.False(t, ok)

	value, flag, ok := c.Get([]byte("forever"))
	require.True(t, ok)
	assert.Equal(t, []byte("a"), value)
	assert.Equal(t, uint32(1), flag)

	mock.Add(time.Minute)
	_, _, ok = c.Get([]byte("default"))
	assert.False(t, ok)

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(3), c.Stats().Sets)
}

func TestCinder_Serve(t *testing.T) {
	c, err := New(context.Background(),
		WithLogger(zaptest.NewLogger(t)),
		WithAdminAddr(""),
		WithSweepInterval(time.Hour),
		WithVersion("test"),
	)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	r := bufio.NewReader(conn)

	_, err = fmt.Fprint(conn, "version\r\nset k 4 0 2\r\nhi\r\n")
	require.NoError(t, err)

	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "VERSION test\r\n", line)
	line, err = r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "STORED\r\n", line)

	value, flag, ok := c.Get([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, []byte("hi"), value)
	assert.Equal(t, uint32(4), flag)
	assert.Equal(t, ln.Addr().String(), c.Addr().String())

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	require.NoError(t, c.Close())
}

func TestCinder_CloseEndsServe(t *testing.T) {
	c, err := New(context.Background(),
		WithLogger(zaptest.NewLogger(t)),
		WithAdminAddr(""),
		WithSweepInterval(0),
	)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() { errc <- c.Serve(context.Background(), ln) }()

	require.Eventually(t, func() bool { return c.Addr() != nil }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}
