package common

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHostAddresses(t *testing.T) {
	tests := []struct {
		name string
		cidr string
		want []string
	}{
		{"slash 30", "192.0.2.0/30", []string{"192.0.2.1", "192.0.2.2"}},
		{"slash 29", "10.0.0.0/29", []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5", "10.0.0.6"}},
		{"slash 31", "198.51.100.0/31", []string{"198.51.100.0", "198.51.100.1"}},
		{"slash 32", "203.0.113.7/32", []string{"203.0.113.7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			network, err := ParseIPv4Network(tt.cidr)
			require.NoError(t, err)

			hosts, err := HostAddresses(network)
			require.NoError(t, err)

			got := make([]string, 0, len(hosts))
			for _, h := range hosts {
				got = append(got, h.String())
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseIPv4NetworkZeroesHostBits(t *testing.T) {
	network, err := ParseIPv4Network("192.168.1.77/24")
	require.NoError(t, err)
	require.Equal(t, "192.168.1.0/24", network.String())

	_, err = ParseIPv4Network("2001:db8::/64")
	require.Error(t, err)
}

func TestIsNetworkOrBroadcast(t *testing.T) {
	_, network, _ := net.ParseCIDR("192.168.1.0/24")

	tests := []struct {
		ip   string
		want bool
	}{
		{"192.168.1.0", true},
		{"192.168.1.255", true},
		{"192.168.1.1", false},
		{"192.168.1.254", false},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			require.Equal(t, tt.want, IsNetworkOrBroadcast(net.ParseIP(tt.ip), network))
		})
	}
	require.False(t, IsNetworkOrBroadcast(net.ParseIP("192.168.1.0"), nil))
}
