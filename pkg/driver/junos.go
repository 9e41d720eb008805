package driver

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/netboxlabs/orb-discovery/pkg/types"
	"github.com/tidwall/gjson"
)

// JunOS returns the Juniper Junos driver
func JunOS() *CLIDriver {
	return newCLIDriver(dialect{
		name:   "junos",
		vendor: "Juniper",
		factsCommands: []string{
			"show version | display json",
			"show chassis hardware | display json",
			"show interfaces terse | display json",
		},
		parseFacts:          parseJunOSFacts,
		interfacesCommand:   "show interfaces | display json",
		parseInterfaces:     parseJunOSInterfaces,
		interfacesIPCommand: "show interfaces | display json",
		parseInterfacesIP:   parseJunOSInterfacesIP,
	})
}

// junosData reads the text of a Junos JSON leaf, which is always wrapped as
// [{"data": ...}]
func junosData(r gjson.Result, key string) string {
	return strings.TrimSpace(r.Get(key + ".0.data").String())
}

func parseJunOSFacts(out []string) (*types.Facts, error) {
	if len(out) < 3 {
		return nil, errors.New("missing command output")
	}
	version, err := parseJSON(out[0])
	if err != nil {
		return nil, err
	}
	software := version.Get("software-information.0")
	if !software.Exists() {
		// dual routing engine systems nest the result per engine
		software = version.Get("multi-routing-engine-results.0.multi-routing-engine-item.0.software-information.0")
	}
	if !software.Exists() {
		return nil, errors.New("not a Juniper Junos device")
	}
	hardware, err := parseJSON(out[1])
	if err != nil {
		return nil, err
	}
	terse, err := parseJSON(out[2])
	if err != nil {
		return nil, err
	}

	hostname := junosData(software, "host-name")
	facts := &types.Facts{
		Hostname:     hostname,
		FQDN:         hostname,
		Vendor:       "Juniper",
		Model:        strings.ToUpper(junosData(software, "product-model")),
		SerialNumber: junosData(hardware.Get("chassis-inventory.0.chassis.0"), "serial-number"),
		OSVersion:    junosData(software, "junos-version"),
	}
	for _, iface := range rows(terse.Get("interface-information.0.physical-interface")) {
		if name := junosData(iface, "name"); name != "" {
			facts.InterfaceList = append(facts.InterfaceList, name)
		}
	}
	return facts, nil
}

func parseJunOSInterfaces(out string) (map[string]types.Interface, error) {
	doc, err := parseJSON(out)
	if err != nil {
		return nil, err
	}

	interfaces := make(map[string]types.Interface)
	for _, iface := range rows(doc.Get("interface-information.0.physical-interface")) {
		name := junosData(iface, "name")
		if name == "" {
			continue
		}
		mtu, _ := strconv.Atoi(junosData(iface, "mtu"))
		interfaces[name] = types.Interface{
			IsEnabled:   junosData(iface, "admin-status") == "up",
			IsUp:        junosData(iface, "oper-status") == "up",
			Description: junosData(iface, "description"),
			MACAddress:  normalizeMAC(junosData(iface, "current-physical-address")),
			Speed:       junosSpeed(junosData(iface, "speed")),
			MTU:         mtu,
		}
	}
	return interfaces, nil
}

func parseJunOSInterfacesIP(out string) (map[string]types.InterfaceIP, error) {
	doc, err := parseJSON(out)
	if err != nil {
		return nil, err
	}

	addrs := make(map[string]types.InterfaceIP)
	for _, iface := range rows(doc.Get("interface-information.0.physical-interface")) {
		for _, logical := range rows(iface.Get("logical-interface")) {
			name := junosData(logical, "name")
			for _, family := range rows(logical.Get("address-family")) {
				v6 := false
				switch junosData(family, "address-family-name") {
				case "inet":
				case "inet6":
					v6 = true
				default:
					continue
				}
				for _, ifa := range rows(family.Get("interface-address")) {
					local := junosData(ifa, "ifa-local")
					if local == "" {
						continue
					}
					// ifa-local may carry its own prefix length on point-to-point links
					if ip, network, err := net.ParseCIDR(local); err == nil {
						ones, _ := network.Mask.Size()
						addIP(addrs, name, ip.String(), ones, v6)
						continue
					}
					prefixLen := 32
					if v6 {
						prefixLen = 128
					}
					if _, network, err := net.ParseCIDR(junosData(ifa, "ifa-destination")); err == nil {
						prefixLen, _ = network.Mask.Size()
					}
					addIP(addrs, name, local, prefixLen, v6)
				}
			}
		}
	}
	return addrs, nil
}

// junosSpeed converts speeds such as "1000mbps" or "10Gbps" to Mbps
func junosSpeed(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "gbps"):
		multiplier, s = 1000, strings.TrimSuffix(s, "gbps")
	case strings.HasSuffix(s, "mbps"):
		s = strings.TrimSuffix(s, "mbps")
	case strings.HasSuffix(s, "kbps"):
		multiplier, s = 0.001, strings.TrimSuffix(s, "kbps")
	default:
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v * multiplier
}
