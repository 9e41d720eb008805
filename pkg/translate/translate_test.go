package translate

import (
	"math"
	"testing"

	"github.com/netboxlabs/orb-discovery/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestDiscovery(t *testing.T) {
	result := &types.DiscoveryResult{
		Site:   "lab",
		Prefix: "10.0.0.0/29",
		ActiveIPs: []types.ActiveIP{
			{IP: "10.0.0.1", MAC: "00:00:0c:12:34:56", Vendor: "Cisco Systems, Inc", Ports: map[string]bool{"SSH": true, "FTP": false, "RDP": false}},
			{IP: "10.0.0.3"},
		},
	}

	entities := Discovery(result)
	require.Len(t, entities, 3)
	require.Equal(t, &Prefix{Prefix: "10.0.0.0/29", Site: "lab"}, entities[0].Prefix)

	first := entities[1].IPAddress
	require.Equal(t, "10.0.0.1", first.Address)
	require.Equal(t, "MAC Vendor: Cisco Systems, Inc", first.Description)
	require.Equal(t, "FTP: unreachable\n\nSSH: OPEN\n\nRDP: unreachable\n\n", first.Comments)

	second := entities[2].IPAddress
	require.Equal(t, "10.0.0.3", second.Address)
	require.Empty(t, second.Description)
	require.Empty(t, second.Comments)
}

func TestPortCommentsExtraServices(t *testing.T) {
	got := portComments(map[string]bool{"Zebra": true, "HTTP": true, "Alpha": false})
	require.Equal(t, "HTTP: OPEN\n\nAlpha: unreachable\n\nZebra: OPEN\n\n", got)
}

func TestDeviceInfo(t *testing.T) {
	result := &types.DeviceResult{
		Driver: "junos",
		Site:   "dc1",
		Device: types.Facts{
			Hostname:      "mx1",
			Vendor:        "Juniper",
			Model:         "MX960",
			SerialNumber:  "JN1234",
			InterfaceList: []string{"ge-0/0/0", "xe-0/0/0"},
		},
		Interfaces: map[string]types.Interface{
			"ge-0/0/0": {IsEnabled: true, IsUp: true, Description: "uplink", MACAddress: "00:05:85:AA:BB:CC", Speed: 1000, MTU: 1514},
			"xe-0/0/0": {IsEnabled: false, Speed: 100000000, MTU: math.MaxInt32 + 1},
			"lo0":      {IsEnabled: true},
		},
		InterfacesIP: map[string]types.InterfaceIP{
			"ge-0/0/0.0": {IPv4: map[string]int{"10.0.0.1": 24}, IPv6: map[string]int{"2001:db8::1": 64}},
			"ge-0/0/00":  {IPv4: map[string]int{"10.9.9.9": 32}},
			"lo0.0":      {IPv4: map[string]int{"127.0.0.1": 8}},
		},
	}

	entities := DeviceInfo(result)
	require.Len(t, entities, 7)

	device := entities[0].Device
	require.Equal(t, "mx1", device.Name)
	require.Equal(t, &DeviceType{Model: "MX960", Manufacturer: "Juniper"}, device.DeviceType)
	require.Equal(t, &Platform{Name: "junos", Manufacturer: "Juniper"}, device.Platform)
	require.Equal(t, "JN1234", device.Serial)
	require.Equal(t, "active", device.Status)
	require.Equal(t, "dc1", device.Site)

	ge := entities[1].Interface
	require.Equal(t, "ge-0/0/0", ge.Name)
	require.Same(t, device, ge.Device)
	require.Equal(t, int32(1000000), *ge.Speed)
	require.Equal(t, int32(1514), *ge.MTU)

	require.Equal(t, &Prefix{Prefix: "10.0.0.0/24", Site: "dc1"}, entities[2].Prefix)
	require.Equal(t, "10.0.0.1/24", entities[3].IPAddress.Address)
	require.Same(t, ge, entities[3].IPAddress.Interface)
	require.Equal(t, &Prefix{Prefix: "2001:db8::/64", Site: "dc1"}, entities[4].Prefix)
	require.Equal(t, "2001:db8::1/64", entities[5].IPAddress.Address)

	// overflowing speed and mtu are dropped
	xe := entities[6].Interface
	require.Equal(t, "xe-0/0/0", xe.Name)
	require.Nil(t, xe.Speed)
	require.Nil(t, xe.MTU)
}

func TestDeviceInfoEmpty(t *testing.T) {
	require.Empty(t, DeviceInfo(&types.DeviceResult{Driver: "ios"}))
}
