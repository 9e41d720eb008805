package driver

import (
	"errors"

	"github.com/netboxlabs/orb-discovery/pkg/types"
	"github.com/tidwall/gjson"
)

// EOS returns the Arista EOS driver
func EOS() *CLIDriver {
	return newCLIDriver(dialect{
		name:                "eos",
		vendor:              "Arista",
		factsCommands:       []string{"show version | json", "show hostname | json", "show interfaces | json"},
		parseFacts:          parseEOSFacts,
		interfacesCommand:   "show interfaces | json",
		parseInterfaces:     parseEOSInterfaces,
		interfacesIPCommand: "show ip interface | json",
		parseInterfacesIP:   parseEOSInterfacesIP,
	})
}

func parseEOSFacts(out []string) (*types.Facts, error) {
	if len(out) < 3 {
		return nil, errors.New("missing command output")
	}
	version, err := parseJSON(out[0])
	if err != nil {
		return nil, err
	}
	if !version.Get("modelName").Exists() {
		return nil, errors.New("not an Arista EOS device")
	}
	hostname, err := parseJSON(out[1])
	if err != nil {
		return nil, err
	}
	interfaces, err := parseJSON(out[2])
	if err != nil {
		return nil, err
	}

	facts := &types.Facts{
		Hostname:     hostname.Get("hostname").String(),
		FQDN:         hostname.Get("fqdn").String(),
		Vendor:       "Arista",
		Model:        version.Get("modelName").String(),
		SerialNumber: version.Get("serialNumber").String(),
		OSVersion:    version.Get("version").String(),
		Uptime:       version.Get("uptime").Float(),
	}
	interfaces.Get("interfaces").ForEach(func(name, _ gjson.Result) bool {
		facts.InterfaceList = append(facts.InterfaceList, name.String())
		return true
	})
	return facts, nil
}

func parseEOSInterfaces(out string) (map[string]types.Interface, error) {
	doc, err := parseJSON(out)
	if err != nil {
		return nil, err
	}

	interfaces := make(map[string]types.Interface)
	doc.Get("interfaces").ForEach(func(name, v gjson.Result) bool {
		interfaces[name.String()] = types.Interface{
			IsEnabled:   v.Get("interfaceStatus").String() != "disabled",
			IsUp:        v.Get("lineProtocolStatus").String() == "up",
			Description: v.Get("description").String(),
			MACAddress:  normalizeMAC(v.Get("physicalAddress").String()),
			Speed:       v.Get("bandwidth").Float() / 1e6,
			MTU:         resultInt(v.Get("mtu")),
		}
		return true
	})
	return interfaces, nil
}

func parseEOSInterfacesIP(out string) (map[string]types.InterfaceIP, error) {
	doc, err := parseJSON(out)
	if err != nil {
		return nil, err
	}

	addrs := make(map[string]types.InterfaceIP)
	doc.Get("interfaces").ForEach(func(name, v gjson.Result) bool {
		for _, ia := range rows(v.Get("interfaceAddress")) {
			primary := ia.Get("primaryIp")
			if address := primary.Get("address").String(); address != "" && address != "0.0.0.0" {
				addIP(addrs, name.String(), address, resultInt(primary.Get("maskLen")), false)
			}
			for _, secondary := range rows(ia.Get("secondaryIpsOrderedList")) {
				addIP(addrs, name.String(), secondary.Get("address").String(), resultInt(secondary.Get("maskLen")), false)
			}
		}
		return true
	})
	return addrs, nil
}
