package portscan

import "strconv"

// Port is a well-known service probed on every live host
type Port struct {
	Name     string
	Number   int
	Protocol string
}

// Address returns the host:port dial address for ip
func (p Port) Address(ip string) string {
	return ip + ":" + strconv.Itoa(p.Number)
}

// Catalog is the fixed set of probed services. Names are reported downstream
// as-is and must not change.
var Catalog = []Port{
	{Name: "FTP", Number: 21, Protocol: "tcp"},
	{Name: "SSH", Number: 22, Protocol: "tcp"},
	{Name: "Telnet", Number: 23, Protocol: "tcp"},
	{Name: "DNS", Number: 53, Protocol: "udp"},
	{Name: "HTTP", Number: 80, Protocol: "tcp"},
	{Name: "SNMP", Number: 161, Protocol: "udp"},
	{Name: "SNMP Trap", Number: 162, Protocol: "udp"},
	{Name: "HTTPS", Number: 443, Protocol: "tcp"},
	{Name: "RDP", Number: 3389, Protocol: "tcp"},
}
