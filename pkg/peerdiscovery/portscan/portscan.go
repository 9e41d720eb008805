// Package portscan classifies a fixed catalog of TCP and UDP services as open
// or closed on a host.
//
// The classification is best effort. A UDP probe that gets no answer within
// the timeout is reported open, since silence cannot tell an open port from a
// filtered one; only an explicit rejection marks a UDP port closed.
package portscan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	mapsutil "github.com/projectdiscovery/utils/maps"
	syncutil "github.com/projectdiscovery/utils/sync"
)

// DefaultTimeout bounds each connect and each UDP read
const DefaultTimeout = time.Second

// DialFunc opens a connection, matching net.Dialer.DialContext
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Prober probes every catalog port of a host in parallel
type Prober struct {
	Dial    DialFunc
	Timeout time.Duration
	Ports   []Port
}

// New returns a prober using the system dialer and the default catalog
func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{}
	return &Prober{Dial: dialer.DialContext, Timeout: timeout, Ports: Catalog}
}

// Scan probes all ports of ip concurrently and returns open/closed keyed by
// service name.
func (p *Prober) Scan(ctx context.Context, ip string) (map[string]bool, error) {
	ports := p.Ports
	if len(ports) == 0 {
		ports = Catalog
	}

	awg, err := syncutil.New(syncutil.WithSize(len(ports)))
	if err != nil {
		return nil, fmt.Errorf("failed to create adaptive waitgroup: %w", err)
	}

	states := mapsutil.NewSyncLockMap[string, bool]()
	for _, port := range ports {
		awg.Add()
		go func(port Port) {
			defer awg.Done()

			var open bool
			switch port.Protocol {
			case "udp":
				open = IsUDPPortOpen(ctx, p.Dial, ip, port.Number, p.Timeout)
			default:
				open = IsTCPPortOpen(ctx, p.Dial, ip, port.Number, p.Timeout)
			}
			_ = states.Set(port.Name, open)
		}(port)
	}
	awg.Wait()

	result := make(map[string]bool, len(ports))
	_ = states.Iterate(func(name string, open bool) error {
		result[name] = open
		return nil
	})
	return result, nil
}

// IsTCPPortOpen reports whether a TCP connection to ip:port completes within timeout
func IsTCPPortOpen(ctx context.Context, dial DialFunc, ip string, port int, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dial(ctx, "tcp", Port{Number: port}.Address(ip))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// IsUDPPortOpen sends an empty datagram to ip:port and waits for an answer.
// An answer or a timeout is reported open; a rejection or any other socket
// error is reported closed.
func IsUDPPortOpen(ctx context.Context, dial DialFunc, ip string, port int, timeout time.Duration) bool {
	conn, err := dial(ctx, "udp", Port{Number: port}.Address(ip))
	if err != nil {
		return false
	}
	defer func() {
		_ = conn.Close()
	}()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return false
	}
	if _, err := conn.Write(nil); err != nil {
		return isTimeout(err)
	}

	buf := make([]byte, 1024)
	if _, err := conn.Read(buf); err != nil {
		// open or filtered
		return isTimeout(err)
	}
	return true
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
