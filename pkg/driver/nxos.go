package driver

import (
	"errors"

	"github.com/netboxlabs/orb-discovery/pkg/types"
)

// NXOS returns the Cisco NX-OS driver
func NXOS() *CLIDriver {
	return newCLIDriver(dialect{
		name:                "nxos",
		vendor:              "Cisco",
		factsCommands:       []string{"show version | json", "show interface | json"},
		parseFacts:          parseNXOSFacts,
		interfacesCommand:   "show interface | json",
		parseInterfaces:     parseNXOSInterfaces,
		interfacesIPCommand: "show ip interface | json",
		parseInterfacesIP:   parseNXOSInterfacesIP,
	})
}

func parseNXOSFacts(out []string) (*types.Facts, error) {
	if len(out) < 2 {
		return nil, errors.New("missing command output")
	}
	version, err := parseJSON(out[0])
	if err != nil {
		return nil, err
	}
	if !version.Get("host_name").Exists() {
		return nil, errors.New("not a Cisco NX-OS device")
	}
	interfaces, err := parseJSON(out[1])
	if err != nil {
		return nil, err
	}

	osVersion := version.Get("nxos_ver_str").String()
	if osVersion == "" {
		osVersion = version.Get("kickstart_ver_str").String()
	}
	uptime := version.Get("kern_uptm_days").Int()*86400 +
		version.Get("kern_uptm_hrs").Int()*3600 +
		version.Get("kern_uptm_mins").Int()*60 +
		version.Get("kern_uptm_secs").Int()
	facts := &types.Facts{
		Hostname:     version.Get("host_name").String(),
		FQDN:         version.Get("host_name").String(),
		Vendor:       "Cisco",
		Model:        version.Get("chassis_id").String(),
		SerialNumber: version.Get("proc_board_id").String(),
		OSVersion:    osVersion,
		Uptime:       float64(uptime),
	}
	for _, row := range rows(interfaces.Get("TABLE_interface.ROW_interface")) {
		facts.InterfaceList = append(facts.InterfaceList, row.Get("interface").String())
	}
	return facts, nil
}

func parseNXOSInterfaces(out string) (map[string]types.Interface, error) {
	doc, err := parseJSON(out)
	if err != nil {
		return nil, err
	}

	interfaces := make(map[string]types.Interface)
	for _, row := range rows(doc.Get("TABLE_interface.ROW_interface")) {
		name := row.Get("interface").String()
		if name == "" {
			continue
		}
		adminState := row.Get("admin_state").String()
		if adminState == "" {
			adminState = row.Get("svi_admin_state").String()
		}
		mac := row.Get("eth_hw_addr").String()
		if mac == "" {
			mac = row.Get("svi_mac").String()
		}
		mtu := row.Get("eth_mtu")
		if !mtu.Exists() {
			mtu = row.Get("svi_mtu")
		}
		bw := row.Get("eth_bw")
		if !bw.Exists() {
			bw = row.Get("svi_bw")
		}
		interfaces[name] = types.Interface{
			IsEnabled:   adminState == "up",
			IsUp:        row.Get("state").String() == "up" || row.Get("svi_line_proto").String() == "up",
			Description: row.Get("desc").String(),
			MACAddress:  normalizeMAC(mac),
			Speed:       float64(resultInt(bw)) / 1000,
			MTU:         resultInt(mtu),
		}
	}
	return interfaces, nil
}

func parseNXOSInterfacesIP(out string) (map[string]types.InterfaceIP, error) {
	doc, err := parseJSON(out)
	if err != nil {
		return nil, err
	}

	addrs := make(map[string]types.InterfaceIP)
	for _, row := range rows(doc.Get("TABLE_intf.ROW_intf")) {
		name := row.Get("intf-name").String()
		address := row.Get("prefix").String()
		if name == "" || address == "" {
			continue
		}
		addIP(addrs, name, address, resultInt(row.Get("masklen")), false)
	}
	return addrs, nil
}
