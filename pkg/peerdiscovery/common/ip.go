package common

import (
	"fmt"
	"net"

	"github.com/projectdiscovery/mapcidr"
)

// IsNetworkOrBroadcast checks if an IPv4 address is the network or broadcast
// address of the given network.
func IsNetworkOrBroadcast(ip net.IP, network *net.IPNet) bool {
	if network == nil {
		return false
	}

	// Check if IP equals network address
	if ip.Equal(network.IP) {
		return true
	}

	ip4 := ip.To4()
	base := network.IP.To4()
	if ip4 == nil || base == nil || len(network.Mask) != net.IPv4len {
		return false
	}
	broadcast := make(net.IP, net.IPv4len)
	copy(broadcast, base)
	for i := range broadcast {
		broadcast[i] |= ^network.Mask[i]
	}
	return ip4.Equal(broadcast)
}

// ParseIPv4Network parses an IPv4 CIDR and returns the containing network
// with host bits zeroed.
func ParseIPv4Network(cidr string) (*net.IPNet, error) {
	ip, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}
	if ip.To4() == nil {
		return nil, fmt.Errorf("%s is not an IPv4 network", cidr)
	}
	network.IP = network.IP.To4()
	return network, nil
}

// HostAddresses returns the host addresses of an IPv4 network in ascending order.
// Network and broadcast addresses are excluded, except for /31 and /32 networks
// where every address in the range is a usable host.
func HostAddresses(network *net.IPNet) ([]net.IP, error) {
	if network == nil {
		return nil, fmt.Errorf("nil network")
	}
	ones, bits := network.Mask.Size()
	if bits != 32 {
		return nil, fmt.Errorf("%s is not an IPv4 network", network)
	}

	addrs, err := mapcidr.IPAddresses(network.String())
	if err != nil {
		return nil, err
	}

	hosts := make([]net.IP, 0, len(addrs))
	for _, addr := range addrs {
		ip := net.ParseIP(addr).To4()
		if ip == nil {
			continue
		}
		// /31 point-to-point links and /32 single hosts have no reserved addresses
		if ones < 31 && IsNetworkOrBroadcast(ip, network) {
			continue
		}
		hosts = append(hosts, ip)
	}
	return hosts, nil
}
