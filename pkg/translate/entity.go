package translate

// Entity is one ingestion record. Exactly one field is set.
type Entity struct {
	Prefix    *Prefix    `json:"prefix,omitempty"`
	IPAddress *IPAddress `json:"ip_address,omitempty"`
	Device    *Device    `json:"device,omitempty"`
	Interface *Interface `json:"interface,omitempty"`
}

// Prefix is an IP network
type Prefix struct {
	Prefix string `json:"prefix"`
	Site   string `json:"site,omitempty"`
}

// IPAddress is a host address, optionally bound to an interface
type IPAddress struct {
	Address     string     `json:"address"`
	Description string     `json:"description,omitempty"`
	Comments    string     `json:"comments,omitempty"`
	Interface   *Interface `json:"interface,omitempty"`
}

// DeviceType is a hardware model
type DeviceType struct {
	Model        string `json:"model,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
}

// Platform is the software platform managing a device
type Platform struct {
	Name         string `json:"name,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
}

// Device is a managed network device
type Device struct {
	Name       string      `json:"name"`
	DeviceType *DeviceType `json:"device_type,omitempty"`
	Platform   *Platform   `json:"platform,omitempty"`
	Serial     string      `json:"serial,omitempty"`
	Status     string      `json:"status,omitempty"`
	Site       string      `json:"site,omitempty"`
}

// Interface is a device interface. Speed is in Kbps.
type Interface struct {
	Device      *Device `json:"device,omitempty"`
	Name        string  `json:"name"`
	Enabled     bool    `json:"enabled"`
	MACAddress  string  `json:"mac_address,omitempty"`
	Description string  `json:"description,omitempty"`
	Speed       *int32  `json:"speed,omitempty"`
	MTU         *int32  `json:"mtu,omitempty"`
}
