package arp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	mapsutil "github.com/projectdiscovery/utils/maps"
	syncutil "github.com/projectdiscovery/utils/sync"
)

const (
	// DefaultConcurrency is the number of in-flight requests per resolution pass
	DefaultConcurrency = 10
	// DefaultTimeout bounds how long a target may stay silent after its request
	DefaultTimeout = 2 * time.Second

	pollInterval = 250 * time.Millisecond
	maxFrameSize = 1514
)

// FrameConn is a link-layer socket carrying raw Ethernet frames
type FrameConn interface {
	ReadFrom(b []byte) (int, net.Addr, error)
	WriteTo(b []byte, addr net.Addr) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// Options controls a resolution pass
type Options struct {
	Concurrency int
	Timeout     time.Duration
}

// DefaultOptions returns the default resolver options
func DefaultOptions() Options {
	return Options{Concurrency: DefaultConcurrency, Timeout: DefaultTimeout}
}

// Resolver sends ARP requests on a shared frame socket and demultiplexes the
// replies by sender address against every pending target.
type Resolver struct {
	conn      FrameConn
	broadcast net.Addr
	srcMAC    net.HardwareAddr
	srcIP     net.IP
	opts      Options
}

// NewResolver creates a resolver writing requests to broadcast on conn.
// The resolver does not close conn.
func NewResolver(conn FrameConn, broadcast net.Addr, srcMAC net.HardwareAddr, srcIP net.IP, opts Options) *Resolver {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Resolver{
		conn:      conn,
		broadcast: broadcast,
		srcMAC:    srcMAC,
		srcIP:     srcIP,
		opts:      opts,
	}
}

// Resolve opens a raw socket on the named interface and resolves the hardware
// address of each target. Hosts that never reply are absent from the result.
func Resolve(ctx context.Context, iface string, srcIP net.IP, targets []net.IP, opts Options) (map[string]net.HardwareAddr, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("could not find interface %s: %w", iface, err)
	}
	if len(ifi.HardwareAddr) != 6 {
		return nil, fmt.Errorf("interface %s has no ethernet hardware address", iface)
	}

	conn, broadcast, err := listen(ifi)
	if err != nil {
		return nil, fmt.Errorf("could not open raw socket on %s: %w", iface, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	return NewResolver(conn, broadcast, ifi.HardwareAddr, srcIP, opts).Resolve(ctx, targets)
}

// Resolve sends one request per target and waits up to the configured timeout
// for each reply.
func (r *Resolver) Resolve(ctx context.Context, targets []net.IP) (map[string]net.HardwareAddr, error) {
	if r.srcIP.To4() == nil {
		return nil, fmt.Errorf("invalid source IPv4 address %q", r.srcIP)
	}
	// Validate the encoder inputs once rather than per worker
	if _, err := EncodeRequest(r.srcMAC, r.srcIP, r.srcIP); err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		if ip4 := target.To4(); ip4 != nil {
			wanted[ip4.String()] = struct{}{}
		}
	}

	pending := mapsutil.NewSyncLockMap[string, chan struct{}]()
	// MACs in text form
	results := mapsutil.NewSyncLockMap[string, string]()

	stop := make(chan struct{})
	receiverDone := make(chan struct{})
	go func() {
		defer close(receiverDone)
		r.receiveReplies(stop, wanted, pending, results)
	}()

	awg, err := syncutil.New(syncutil.WithSize(r.opts.Concurrency))
	if err != nil {
		close(stop)
		<-receiverDone
		return nil, fmt.Errorf("failed to create adaptive waitgroup: %w", err)
	}

	for _, target := range targets {
		select {
		case <-ctx.Done():
			goto done
		default:
		}

		ip4 := target.To4()
		if ip4 == nil {
			continue
		}

		awg.Add()
		go func(ip net.IP) {
			defer awg.Done()
			r.request(ctx, ip, pending, results)
		}(ip4)
	}

done:
	awg.Wait()
	close(stop)
	<-receiverDone

	resolved := make(map[string]net.HardwareAddr)
	_ = results.Iterate(func(ip string, text string) error {
		if mac, err := net.ParseMAC(text); err == nil {
			resolved[ip] = mac
		}
		return nil
	})
	return resolved, nil
}

// request sends a single ARP request and blocks until the receiver signals a
// reply for ip or the timeout expires.
func (r *Resolver) request(ctx context.Context, ip net.IP, pending *mapsutil.SyncLockMap[string, chan struct{}], results *mapsutil.SyncLockMap[string, string]) {
	key := ip.String()

	replied := make(chan struct{}, 1)
	_ = pending.Set(key, replied)
	defer pending.Delete(key)

	// A reply may already have arrived for an earlier request. The receiver
	// records results before looking up pending, so one of the two sees the other.
	if _, ok := results.Get(key); ok {
		return
	}

	frame, err := EncodeRequest(r.srcMAC, r.srcIP, ip)
	if err != nil {
		return
	}
	if _, err := r.conn.WriteTo(frame, r.broadcast); err != nil {
		return
	}

	timer := time.NewTimer(r.opts.Timeout)
	defer timer.Stop()

	select {
	case <-replied:
	case <-timer.C:
	case <-ctx.Done():
	}
}

// receiveReplies reads frames until stop is closed, recording every reply
// whose sender is one of the wanted targets and waking its pending request.
func (r *Resolver) receiveReplies(stop <-chan struct{}, wanted map[string]struct{}, pending *mapsutil.SyncLockMap[string, chan struct{}], results *mapsutil.SyncLockMap[string, string]) {
	buf := make([]byte, maxFrameSize)

	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := r.conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			return
		}

		n, _, err := r.conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return
		}

		// Unrelated frames on the socket are skipped
		ip, mac, ok := DecodeReply(buf[:n])
		if !ok {
			continue
		}
		key := ip.String()
		if _, ok := wanted[key]; !ok {
			continue
		}
		if _, seen := results.Get(key); !seen {
			_ = results.Set(key, mac.String())
		}

		if replied, ok := pending.Get(key); ok {
			select {
			case replied <- struct{}{}:
			default:
			}
		}
	}
}
