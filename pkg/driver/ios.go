package driver

import (
	"bufio"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/netboxlabs/orb-discovery/pkg/types"
)

var (
	iosVersionRe   = regexp.MustCompile(`Version ([^,\s]+)`)
	iosHostnameRe  = regexp.MustCompile(`(?m)^(\S+)\s+uptime is`)
	iosModelRe     = regexp.MustCompile(`(?mi)^cisco (\S+) .*(?:processor|bytes of memory)`)
	iosSerialRe    = regexp.MustCompile(`(?m)^Processor board ID (\S+)`)
	iosIfHeaderRe  = regexp.MustCompile(`^(\S+) is (administratively down|up|down)[^,]*, line protocol is (up|down)`)
	iosIfAddressRe = regexp.MustCompile(`address is ([0-9a-fA-F]{4}\.[0-9a-fA-F]{4}\.[0-9a-fA-F]{4})`)
	iosIfDescRe    = regexp.MustCompile(`^\s+Description: (.*)$`)
	iosIfMtuRe     = regexp.MustCompile(`MTU (\d+) bytes, BW (\d+) Kbit`)
	iosInetRe      = regexp.MustCompile(`(?:Internet address is|Secondary address) (\d+\.\d+\.\d+\.\d+)/(\d+)`)
	iosIPHeaderRe  = regexp.MustCompile(`^(\S+) is `)
)

// IOS returns the Cisco IOS / IOS-XE driver
func IOS() *CLIDriver {
	return newCLIDriver(dialect{
		name:                "ios",
		vendor:              "Cisco",
		factsCommands:       []string{"show version", "show ip interface brief"},
		parseFacts:          parseIOSFacts,
		interfacesCommand:   "show interfaces",
		parseInterfaces:     parseIOSInterfaces,
		interfacesIPCommand: "show ip interface",
		parseInterfacesIP:   parseIOSInterfacesIP,
	})
}

func parseIOSFacts(out []string) (*types.Facts, error) {
	if len(out) < 2 {
		return nil, errors.New("missing command output")
	}
	version := out[0]
	if !strings.Contains(version, "Cisco") {
		return nil, errors.New("not a Cisco IOS device")
	}

	facts := &types.Facts{Vendor: "Cisco", SerialNumber: "Unknown"}
	if m := iosVersionRe.FindStringSubmatch(version); m != nil {
		facts.OSVersion = m[1]
	}
	if m := iosHostnameRe.FindStringSubmatch(version); m != nil {
		facts.Hostname = m[1]
		facts.FQDN = m[1]
	}
	if m := iosModelRe.FindStringSubmatch(version); m != nil {
		facts.Model = m[1]
	}
	if m := iosSerialRe.FindStringSubmatch(version); m != nil {
		facts.SerialNumber = m[1]
	}

	scanner := bufio.NewScanner(strings.NewReader(out[1]))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] == "Interface" {
			continue
		}
		facts.InterfaceList = append(facts.InterfaceList, fields[0])
	}
	return facts, nil
}

func parseIOSInterfaces(out string) (map[string]types.Interface, error) {
	interfaces := make(map[string]types.Interface)

	var (
		name    string
		current types.Interface
	)
	flush := func() {
		if name != "" {
			interfaces[name] = current
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if m := iosIfHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			name = m[1]
			current = types.Interface{
				IsEnabled: m[2] != "administratively down",
				IsUp:      m[3] == "up",
			}
			continue
		}
		if name == "" {
			continue
		}
		if m := iosIfAddressRe.FindStringSubmatch(line); m != nil {
			if mac, err := net.ParseMAC(m[1]); err == nil {
				current.MACAddress = strings.ToUpper(mac.String())
			}
		}
		if m := iosIfDescRe.FindStringSubmatch(line); m != nil {
			current.Description = strings.TrimSpace(m[1])
		}
		if m := iosIfMtuRe.FindStringSubmatch(line); m != nil {
			current.MTU, _ = strconv.Atoi(m[1])
			if kbit, err := strconv.ParseFloat(m[2], 64); err == nil {
				current.Speed = kbit / 1000
			}
		}
	}
	flush()
	return interfaces, scanner.Err()
}

func parseIOSInterfacesIP(out string) (map[string]types.InterfaceIP, error) {
	addrs := make(map[string]types.InterfaceIP)

	var name string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if m := iosIPHeaderRe.FindStringSubmatch(line); m != nil {
			name = m[1]
			continue
		}
		if name == "" {
			continue
		}
		if m := iosInetRe.FindStringSubmatch(line); m != nil {
			prefixLen, _ := strconv.Atoi(m[2])
			addIP(addrs, name, m[1], prefixLen, false)
		}
	}
	return addrs, scanner.Err()
}
