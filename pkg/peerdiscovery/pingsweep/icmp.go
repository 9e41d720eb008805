package pingsweep

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	mapsutil "github.com/projectdiscovery/utils/maps"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// ErrTimeout is returned when no echo reply arrived in time
var ErrTimeout = errors.New("echo request timed out")

var echoPayload = []byte("orb-discovery")

// pendingPing tracks a sent ping waiting for reply
type pendingPing struct {
	ip      net.IP
	replied chan time.Time
}

// ICMPPinger shares one ICMP socket between all concurrent pings and matches
// replies to requests by sequence number.
type ICMPPinger struct {
	conn       *icmp.PacketConn
	privileged bool
	id         int
	seq        atomic.Uint32
	pending    *mapsutil.SyncLockMap[int, *pendingPing]
	closed     chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

// NewICMPPinger opens a raw ICMP socket, falling back to an unprivileged
// datagram socket when raw sockets are not permitted.
func NewICMPPinger() (*ICMPPinger, error) {
	privileged := true
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		privileged = false
		var udpErr error
		conn, udpErr = icmp.ListenPacket("udp4", "0.0.0.0")
		if udpErr != nil {
			return nil, fmt.Errorf("failed to create ICMP connection: %w", errors.Join(err, udpErr))
		}
	}

	p := &ICMPPinger{
		conn:       conn,
		privileged: privileged,
		id:         os.Getpid() & 0xffff,
		pending:    mapsutil.NewSyncLockMap[int, *pendingPing](),
		closed:     make(chan struct{}),
	}
	p.wg.Add(1)
	go p.receiveReplies()
	return p, nil
}

// Ping sends one echo request to ip and waits for the matching reply
func (p *ICMPPinger) Ping(ctx context.Context, ip net.IP, timeout time.Duration) (time.Duration, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0, fmt.Errorf("%s is not an IPv4 address", ip)
	}

	seq := int(p.seq.Add(1) & 0xffff)
	pending := &pendingPing{ip: ip4, replied: make(chan time.Time, 1)}
	_ = p.pending.Set(seq, pending)
	defer p.pending.Delete(seq)

	msg := &icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  seq,
			Data: echoPayload,
		},
	}
	msgBytes, err := msg.Marshal(nil)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal ICMP message: %w", err)
	}

	var dst net.Addr = &net.IPAddr{IP: ip4}
	if !p.privileged {
		dst = &net.UDPAddr{IP: ip4}
	}

	start := time.Now()
	if _, err := p.conn.WriteTo(msgBytes, dst); err != nil {
		return 0, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case at := <-pending.replied:
		return at.Sub(start), nil
	case <-timer.C:
		return 0, ErrTimeout
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-p.closed:
		return 0, net.ErrClosed
	}
}

// Close stops the receiver and closes the socket
func (p *ICMPPinger) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closed)
		err = p.conn.Close()
		p.wg.Wait()
	})
	return err
}

// receiveReplies receives and matches ICMP echo replies
func (p *ICMPPinger) receiveReplies() {
	defer p.wg.Done()

	protocol := ipv4.ICMPTypeEchoReply.Protocol()
	reply := make([]byte, 1500)

	for {
		select {
		case <-p.closed:
			return
		default:
		}

		if err := p.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond)); err != nil {
			return
		}

		n, peer, err := p.conn.ReadFrom(reply)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// Timeout or transient error, continue
			continue
		}
		at := time.Now()

		rm, err := icmp.ParseMessage(protocol, reply[:n])
		if err != nil || rm.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		echo, ok := rm.Body.(*icmp.Echo)
		if !ok {
			continue
		}
		// Datagram sockets get their ID rewritten by the kernel
		if p.privileged && echo.ID != p.id {
			continue
		}

		pending, exists := p.pending.Get(echo.Seq)
		if !exists || !peerIP(peer).Equal(pending.ip) {
			continue
		}

		select {
		case pending.replied <- at:
		default:
		}
	}
}

func peerIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.IPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	default:
		return nil
	}
}
