package prescan

import (
	"encoding/binary"
	"net"

	"github.com/netboxlabs/orb-discovery/pkg/peerdiscovery/common"
)

// Priority tiers based on real-world network patterns
const (
	PriorityGateway        = 100
	PriorityInfrastructure = 90
	PriorityEarlyDHCP      = 80
	PriorityDHCPPeak       = 70
	PriorityDHCPPool       = 50
	PriorityLongTail       = 20
	PriorityExcluded       = 0
)

type octetRange struct {
	start, end int
	priority   int
}

// octetRanges are checked in order, the first match wins
var octetRanges = []octetRange{
	{1, 1, PriorityGateway},
	{254, 254, PriorityGateway},
	{2, 5, PriorityInfrastructure},
	{250, 253, PriorityInfrastructure},
	{6, 10, PriorityEarlyDHCP},
	{50, 50, PriorityDHCPPeak},
	{100, 100, PriorityDHCPPeak},
	{150, 150, PriorityDHCPPeak},
	{51, 99, PriorityDHCPPool},
	{101, 149, PriorityDHCPPool},
	{151, 200, PriorityDHCPPool},
	{11, 49, PriorityLongTail},
	{201, 249, PriorityLongTail},
	{0, 0, PriorityExcluded},
	{255, 255, PriorityExcluded},
}

// Score returns the priority (0-100) of an IPv4 host in the given network.
// Higher scores are more likely to be online.
func Score(ip net.IP, network *net.IPNet) int {
	ip4 := ip.To4()
	if ip4 == nil || network == nil {
		return PriorityLongTail
	}
	ones, bits := network.Mask.Size()
	if bits != 32 {
		return PriorityLongTail
	}
	if ones < 31 && common.IsNetworkOrBroadcast(ip4, network) {
		return PriorityExcluded
	}
	if ones > 24 {
		return scoreByOffset(ip4, network.IP, ones)
	}
	return scoreByOctet(int(ip4[3]))
}

func scoreByOctet(octet int) int {
	for _, r := range octetRanges {
		if octet >= r.start && octet <= r.end {
			return r.priority
		}
	}
	return PriorityLongTail
}

// scoreByOffset ranks hosts of networks smaller than a /24, where last octet
// conventions do not hold.
func scoreByOffset(ip, network net.IP, ones int) int {
	size := uint32(1) << uint(32-ones)
	offset := binary.BigEndian.Uint32(ip) - binary.BigEndian.Uint32(network.To4())

	switch {
	case size <= 2:
		return PriorityGateway
	case offset == 1 || offset == size-2:
		return PriorityGateway
	case offset <= 5 || offset >= size-6:
		return PriorityInfrastructure
	default:
		return PriorityEarlyDHCP
	}
}
