package common

import (
	"errors"
	"fmt"
	"net"
	"strings"

	psnet "github.com/shirou/gopsutil/v3/net"
)

var (
	// ErrNoInterface is returned when no usable interface could be found
	ErrNoInterface = errors.New("no network interface found")
	// ErrNoIPv4 is returned when the interface has no IPv4 address assigned
	ErrNoIPv4 = errors.New("no IPv4 address assigned to interface")
)

// InterfaceInfo is a read-only snapshot of an interface's link and IPv4 addressing
type InterfaceInfo struct {
	Name         string
	HardwareAddr net.HardwareAddr
	IP           net.IP
	Network      *net.IPNet
}

// Introspector reads local interface traffic counters and addressing.
// The zero value reads live state through gopsutil.
type Introspector struct {
	// Counters returns per-interface traffic counters
	Counters func() ([]psnet.IOCountersStat, error)
	// Interfaces returns the interface list with assigned addresses
	Interfaces func() ([]psnet.InterfaceStat, error)
}

// NewIntrospector returns an introspector reading the host's live network state
func NewIntrospector() *Introspector {
	return &Introspector{}
}

func (i *Introspector) counters() ([]psnet.IOCountersStat, error) {
	if i.Counters != nil {
		return i.Counters()
	}
	return psnet.IOCounters(true)
}

func (i *Introspector) interfaces() ([]psnet.InterfaceStat, error) {
	if i.Interfaces != nil {
		return i.Interfaces()
	}
	return psnet.Interfaces()
}

// MostActiveInterface returns the interface with the highest sum of sent and
// received bytes. Ties keep the first interface seen.
func (i *Introspector) MostActiveInterface() (string, error) {
	stats, err := i.counters()
	if err != nil {
		return "", fmt.Errorf("could not read interface counters: %w", err)
	}

	var (
		best  string
		total uint64
		found bool
	)
	for _, stat := range stats {
		// Skip the loopback, it always carries local traffic
		if stat.Name == "lo" || strings.HasPrefix(stat.Name, "lo0") {
			continue
		}
		sum := stat.BytesSent + stat.BytesRecv
		if !found || sum > total {
			best, total, found = stat.Name, sum, true
		}
	}
	if !found {
		return "", ErrNoInterface
	}
	return best, nil
}

// Lookup returns the hardware address and first IPv4 address of the named
// interface together with its containing network.
func (i *Introspector) Lookup(name string) (*InterfaceInfo, error) {
	list, err := i.interfaces()
	if err != nil {
		return nil, fmt.Errorf("could not list interfaces: %w", err)
	}

	for _, iface := range list {
		if iface.Name != name {
			continue
		}
		info := &InterfaceInfo{Name: iface.Name}
		if iface.HardwareAddr != "" {
			if mac, err := net.ParseMAC(iface.HardwareAddr); err == nil {
				info.HardwareAddr = mac
			}
		}
		for _, addr := range iface.Addrs {
			ip, network, err := net.ParseCIDR(addr.Addr)
			if err != nil || ip.To4() == nil {
				continue
			}
			network.IP = network.IP.To4()
			info.IP = ip.To4()
			info.Network = network
			return info, nil
		}
		return nil, fmt.Errorf("%s: %w", name, ErrNoIPv4)
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNoInterface)
}

// Subnet returns the IPv4 network the named interface is attached to
func (i *Introspector) Subnet(name string) (*net.IPNet, error) {
	info, err := i.Lookup(name)
	if err != nil {
		return nil, err
	}
	return info.Network, nil
}

// SourceAddress returns the interface's own IPv4 address
func (i *Introspector) SourceAddress(name string) (net.IP, error) {
	info, err := i.Lookup(name)
	if err != nil {
		return nil, err
	}
	return info.IP, nil
}
