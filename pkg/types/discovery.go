package types

// ActiveIP is a live host found by a network discovery pass.
// MAC, Vendor and Ports are only populated when the policy enables them.
type ActiveIP struct {
	IP     string          `json:"ip"`
	MAC    string          `json:"mac,omitempty"`
	Vendor string          `json:"vendor,omitempty"`
	Ports  map[string]bool `json:"ports,omitempty"`
}

// DiscoveryResult is the normalized output of one network discovery pass
type DiscoveryResult struct {
	Site      string     `json:"site,omitempty"`
	Prefix    string     `json:"prefix"`
	ActiveIPs []ActiveIP `json:"active_ips"`
}

// DeviceResult is the output of one device driver session
type DeviceResult struct {
	Driver       string                 `json:"driver"`
	Site         string                 `json:"site,omitempty"`
	Device       Facts                  `json:"device"`
	Interfaces   map[string]Interface   `json:"interface"`
	InterfacesIP map[string]InterfaceIP `json:"interface_ip"`
}

// Facts holds the identity of a managed device
type Facts struct {
	Hostname      string   `json:"hostname"`
	FQDN          string   `json:"fqdn,omitempty"`
	Vendor        string   `json:"vendor"`
	Model         string   `json:"model"`
	SerialNumber  string   `json:"serial_number"`
	OSVersion     string   `json:"os_version"`
	Uptime        float64  `json:"uptime,omitempty"`
	InterfaceList []string `json:"interface_list"`
}

// Interface describes a device interface. Speed is in Mbps.
type Interface struct {
	IsEnabled   bool    `json:"is_enabled"`
	IsUp        bool    `json:"is_up"`
	Description string  `json:"description"`
	MACAddress  string  `json:"mac_address"`
	Speed       float64 `json:"speed"`
	MTU         int     `json:"mtu"`
}

// InterfaceIP maps addresses assigned to an interface to their prefix length
type InterfaceIP struct {
	IPv4 map[string]int `json:"ipv4,omitempty"`
	IPv6 map[string]int `json:"ipv6,omitempty"`
}
