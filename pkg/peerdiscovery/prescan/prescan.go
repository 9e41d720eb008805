package prescan

import (
	"bytes"
	"net"
	"sort"
)

// Order returns a copy of hosts sorted by priority (high to low), then by
// address for a stable dispatch order. The input slice is not modified.
func Order(hosts []net.IP, network *net.IPNet) []net.IP {
	type scored struct {
		ip       net.IP
		priority int
	}

	list := make([]scored, 0, len(hosts))
	for _, ip := range hosts {
		list = append(list, scored{ip: ip, priority: Score(ip, network)})
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority > list[j].priority
		}
		return compareIP(list[i].ip, list[j].ip) < 0
	})

	ordered := make([]net.IP, 0, len(list))
	for _, s := range list {
		ordered = append(ordered, s.ip)
	}
	return ordered
}

// compareIP compares two IPs. IPv4 always comes before IPv6.
func compareIP(ip1, ip2 net.IP) int {
	ip1v4, ip2v4 := ip1.To4(), ip2.To4()
	switch {
	case ip1v4 != nil && ip2v4 == nil:
		return -1
	case ip1v4 == nil && ip2v4 != nil:
		return 1
	case ip1v4 != nil:
		return bytes.Compare(ip1v4, ip2v4)
	default:
		return bytes.Compare(ip1.To16(), ip2.To16())
	}
}
