package arp

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// fakeConn answers requests with canned reply frames. responders maps a
// requested target to the senders whose replies get queued, which lets a
// reply for one target arrive while another request is pending.
type fakeConn struct {
	t          testing.TB
	frames     chan []byte
	closed     chan struct{}
	closeOnce  sync.Once
	mu         sync.Mutex
	deadline   time.Time
	responders map[string][]string
	macs       map[string]net.HardwareAddr
	writes     atomic.Int32
}

func newFakeConn(t testing.TB, responders map[string][]string, macs map[string]net.HardwareAddr) *fakeConn {
	return &fakeConn{
		t:          t,
		frames:     make(chan []byte, 64),
		closed:     make(chan struct{}),
		responders: responders,
		macs:       macs,
	}
}

func (c *fakeConn) ReadFrom(b []byte) (int, net.Addr, error) {
	c.mu.Lock()
	wait := time.Until(c.deadline)
	c.mu.Unlock()
	if wait <= 0 {
		return 0, nil, timeoutError{}
	}

	select {
	case frame := <-c.frames:
		return copy(b, frame), nil, nil
	case <-time.After(wait):
		return 0, nil, timeoutError{}
	case <-c.closed:
		return 0, nil, io.EOF
	}
}

func (c *fakeConn) WriteTo(b []byte, _ net.Addr) (int, error) {
	c.writes.Add(1)
	target := net.IP(b[38:42]).String()

	// noise the resolver has to skip
	noise := make([]byte, 60)
	noise[12], noise[13] = 0x08, 0x00
	c.frames <- noise

	for _, sender := range c.responders[target] {
		c.frames <- encodeReply(c.t, c.macs[sender], net.ParseIP(sender))
	}
	return len(b), nil
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.deadline = t
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func TestResolverDemultiplexesReplies(t *testing.T) {
	macs := map[string]net.HardwareAddr{
		"192.0.2.1":  {0x00, 0x00, 0x5e, 0x00, 0x00, 0x01},
		"192.0.2.2":  {0x00, 0x00, 0x5e, 0x00, 0x00, 0x02},
		"192.0.2.3":  {0x00, 0x00, 0x5e, 0x00, 0x00, 0x03},
		"192.0.2.99": {0x00, 0x00, 0x5e, 0x00, 0x00, 0x99},
	}
	responders := map[string][]string{
		// .1 answers along with .2 before .2 was asked, plus a host outside the target set
		"192.0.2.1": {"192.0.2.2", "192.0.2.99", "192.0.2.1"},
		"192.0.2.3": {"192.0.2.3"},
	}
	conn := newFakeConn(t, responders, macs)
	defer conn.Close()

	targets := []net.IP{
		net.ParseIP("192.0.2.1"),
		net.ParseIP("192.0.2.2"),
		net.ParseIP("192.0.2.3"),
		net.ParseIP("192.0.2.4"),
	}

	resolver := NewResolver(conn, nil, localMAC, localIP, Options{Concurrency: 1, Timeout: 300 * time.Millisecond})
	start := time.Now()
	got, err := resolver.Resolve(context.Background(), targets)
	require.NoError(t, err)

	require.Len(t, got, 3)
	require.Equal(t, macs["192.0.2.1"].String(), got["192.0.2.1"].String())
	require.Equal(t, macs["192.0.2.2"].String(), got["192.0.2.2"].String())
	require.Equal(t, macs["192.0.2.3"].String(), got["192.0.2.3"].String())
	require.NotContains(t, got, "192.0.2.4")
	require.NotContains(t, got, "192.0.2.99")

	// .2 resolved from an earlier reply, so it never went on the wire
	require.Equal(t, int32(3), conn.writes.Load())
	// only the silent host waits out its timeout
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestResolverSilentTargets(t *testing.T) {
	conn := newFakeConn(t, nil, nil)
	defer conn.Close()

	targets := []net.IP{net.ParseIP("192.0.2.5"), net.ParseIP("192.0.2.6"), net.ParseIP("2001:db8::1")}
	resolver := NewResolver(conn, nil, localMAC, localIP, Options{Timeout: 100 * time.Millisecond})
	got, err := resolver.Resolve(context.Background(), targets)
	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, int32(2), conn.writes.Load())
}

func TestResolverInvalidSource(t *testing.T) {
	conn := newFakeConn(t, nil, nil)
	defer conn.Close()

	resolver := NewResolver(conn, nil, net.HardwareAddr{0x01}, localIP, DefaultOptions())
	_, err := resolver.Resolve(context.Background(), []net.IP{net.ParseIP("192.0.2.1")})
	require.Error(t, err)
	require.Equal(t, int32(0), conn.writes.Load())
}
