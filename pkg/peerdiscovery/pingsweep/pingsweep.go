package pingsweep

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/netboxlabs/orb-discovery/pkg/peerdiscovery/common"
	"github.com/netboxlabs/orb-discovery/pkg/peerdiscovery/prescan"
	mapsutil "github.com/projectdiscovery/utils/maps"
	syncutil "github.com/projectdiscovery/utils/sync"
)

const (
	// DefaultConcurrency is the width of the ping worker pool
	DefaultConcurrency = 200
	// DefaultTimeout is how long a single echo request waits for its reply
	DefaultTimeout = time.Second
)

// Peer represents a host that answered an echo request
type Peer struct {
	IP  net.IP
	RTT time.Duration // Round-trip time for the ping
}

// Pinger sends a single echo request and waits up to timeout for the reply
type Pinger interface {
	Ping(ctx context.Context, ip net.IP, timeout time.Duration) (time.Duration, error)
}

// Options controls a sweep
type Options struct {
	Concurrency int
	Timeout     time.Duration
}

// DefaultOptions returns the default sweep options
func DefaultOptions() Options {
	return Options{Concurrency: DefaultConcurrency, Timeout: DefaultTimeout}
}

// Sweeper pings every host of a subnet concurrently
type Sweeper struct {
	pinger Pinger
	opts   Options
}

// New creates a sweeper sending echo requests through pinger
func New(pinger Pinger, opts Options) *Sweeper {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Sweeper{pinger: pinger, opts: opts}
}

// Sweep pings every host address of network and returns the hosts that
// answered, sorted by address.
func (s *Sweeper) Sweep(ctx context.Context, network *net.IPNet) ([]Peer, error) {
	hosts, err := common.HostAddresses(network)
	if err != nil {
		return nil, fmt.Errorf("failed to expand network %s: %w", network, err)
	}
	return s.SweepHosts(ctx, prescan.Order(hosts, network))
}

// SweepHosts pings the given addresses in order and returns the hosts that
// answered, sorted by address. A ping that errors or times out excludes the host.
func (s *Sweeper) SweepHosts(ctx context.Context, hosts []net.IP) ([]Peer, error) {
	peers := mapsutil.NewSyncLockMap[string, *Peer]()

	awg, err := syncutil.New(syncutil.WithSize(s.opts.Concurrency))
	if err != nil {
		return nil, fmt.Errorf("failed to create adaptive waitgroup: %w", err)
	}

	for _, host := range hosts {
		select {
		case <-ctx.Done():
			goto done
		default:
		}

		awg.Add()
		go func(ip net.IP) {
			defer awg.Done()

			rtt, err := s.pinger.Ping(ctx, ip, s.opts.Timeout)
			if err != nil {
				return
			}
			_ = peers.Set(ip.String(), &Peer{IP: ip, RTT: rtt})
		}(host)
	}

done:
	awg.Wait()

	result := make([]Peer, 0)
	_ = peers.Iterate(func(key string, peer *Peer) error {
		result = append(result, *peer)
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		return bytes.Compare(result[i].IP.To16(), result[j].IP.To16()) < 0
	})
	return result, nil
}
