// Package translate shapes discovery results into ingestion entities.
package translate

import (
	"fmt"
	"math"
	"net"
	"sort"
	"strings"

	"github.com/netboxlabs/orb-discovery/pkg/peerdiscovery/portscan"
	"github.com/netboxlabs/orb-discovery/pkg/types"
)

// Discovery translates a network discovery result into a Prefix entity
// followed by one IPAddress entity per active host.
func Discovery(result *types.DiscoveryResult) []Entity {
	entities := make([]Entity, 0, len(result.ActiveIPs)+1)
	entities = append(entities, Entity{Prefix: &Prefix{Prefix: result.Prefix, Site: result.Site}})

	for _, active := range result.ActiveIPs {
		ip := &IPAddress{Address: active.IP}
		if active.Vendor != "" {
			ip.Description = "MAC Vendor: " + active.Vendor
		}
		ip.Comments = portComments(active.Ports)
		entities = append(entities, Entity{IPAddress: ip})
	}
	return entities
}

// portComments lists each probed service in catalog order, followed by any
// services outside the catalog in name order
func portComments(ports map[string]bool) string {
	if len(ports) == 0 {
		return ""
	}

	names := make([]string, 0, len(ports))
	known := make(map[string]struct{}, len(portscan.Catalog))
	for _, p := range portscan.Catalog {
		known[p.Name] = struct{}{}
		if _, ok := ports[p.Name]; ok {
			names = append(names, p.Name)
		}
	}
	var extra []string
	for name := range ports {
		if _, ok := known[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	names = append(names, extra...)

	var sb strings.Builder
	for _, name := range names {
		if ports[name] {
			fmt.Fprintf(&sb, "%s: OPEN\n\n", name)
		} else {
			fmt.Fprintf(&sb, "%s: unreachable\n\n", name)
		}
	}
	return sb.String()
}

// DeviceInfo translates a device session result into a Device entity, one
// Interface entity per listed interface and the Prefix and IPAddress entities
// of each interface address.
func DeviceInfo(result *types.DeviceResult) []Entity {
	facts := result.Device
	if facts.Hostname == "" && facts.SerialNumber == "" {
		return nil
	}

	device := &Device{
		Name:       facts.Hostname,
		DeviceType: &DeviceType{Model: facts.Model, Manufacturer: facts.Vendor},
		Platform:   &Platform{Name: result.Driver, Manufacturer: facts.Vendor},
		Serial:     facts.SerialNumber,
		Status:     "active",
		Site:       result.Site,
	}
	entities := []Entity{{Device: device}}

	listed := make(map[string]struct{}, len(facts.InterfaceList))
	for _, name := range facts.InterfaceList {
		listed[name] = struct{}{}
	}

	names := make([]string, 0, len(result.Interfaces))
	for name := range result.Interfaces {
		if _, ok := listed[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		iface := translateInterface(device, name, result.Interfaces[name])
		entities = append(entities, Entity{Interface: iface})
		entities = append(entities, interfaceIPs(iface, result.InterfacesIP)...)
	}
	return entities
}

func translateInterface(device *Device, name string, info types.Interface) *Interface {
	iface := &Interface{
		Device:      device,
		Name:        name,
		Enabled:     info.IsEnabled,
		MACAddress:  info.MACAddress,
		Description: info.Description,
	}
	// Mbps to Kbps
	if speed, ok := toInt32(int64(info.Speed) * 1000); ok {
		iface.Speed = &speed
	}
	if mtu, ok := toInt32(int64(info.MTU)); ok {
		iface.MTU = &mtu
	}
	return iface
}

// interfaceIPs matches address entries for the interface itself and for its
// logical units (name.unit)
func interfaceIPs(iface *Interface, addrs map[string]types.InterfaceIP) []Entity {
	names := make([]string, 0, len(addrs))
	for name := range addrs {
		if name == iface.Name || strings.HasPrefix(name, iface.Name+".") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var entities []Entity
	for _, name := range names {
		info := addrs[name]
		entities = append(entities, addressEntities(iface, info.IPv4)...)
		entities = append(entities, addressEntities(iface, info.IPv6)...)
	}
	return entities
}

func addressEntities(iface *Interface, addrs map[string]int) []Entity {
	ips := make([]string, 0, len(addrs))
	for ip := range addrs {
		ips = append(ips, ip)
	}
	sort.Strings(ips)

	var entities []Entity
	for _, ip := range ips {
		address := fmt.Sprintf("%s/%d", ip, addrs[ip])
		_, network, err := net.ParseCIDR(address)
		if err != nil {
			continue
		}
		entities = append(entities,
			Entity{Prefix: &Prefix{Prefix: network.String(), Site: iface.Device.Site}},
			Entity{IPAddress: &IPAddress{Address: address, Interface: iface}},
		)
	}
	return entities
}

func toInt32(v int64) (int32, bool) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	return int32(v), true
}
