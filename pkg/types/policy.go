package types

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Policy is one named unit of discovery configuration. Interface and Network
// are filled in by discovery when left empty.
type Policy struct {
	Name      string       `yaml:"-"`
	Config    PolicyConfig `yaml:"config"`
	Interface string       `yaml:"interface,omitempty"`
	Network   string       `yaml:"network,omitempty"`
	Data      []Device     `yaml:"data,omitempty"`
}

// PolicyConfig holds the per-policy feature toggles
type PolicyConfig struct {
	Netbox    Netbox   `yaml:"netbox"`
	MACLookup bool     `yaml:"mac_lookup"`
	PortScan  bool     `yaml:"port_scan"`
	Drivers   []string `yaml:"drivers,omitempty"`
}

// Netbox carries the inventory labels applied to ingested entities
type Netbox struct {
	Site string `yaml:"site"`
}

// IsDevicePolicy reports whether the policy lists devices instead of a network scope
func (p *Policy) IsDevicePolicy() bool {
	return len(p.Data) > 0
}

// Device is a managed device reached through a driver session.
// Timeout is in seconds.
type Device struct {
	Hostname     string         `yaml:"hostname"`
	Username     string         `yaml:"username"`
	Password     string         `yaml:"password"`
	Driver       string         `yaml:"driver,omitempty"`
	Timeout      int            `yaml:"timeout,omitempty"`
	OptionalArgs map[string]any `yaml:"optional_args,omitempty"`
}

// Policies keeps policies in document order
type Policies []Policy

// UnmarshalYAML decodes a mapping of policy name to policy
func (p *Policies) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: policies must be a mapping", node.Line)
	}
	policies := make(Policies, 0, len(node.Content)/2)
	seen := make(map[string]struct{}, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		if _, ok := seen[name]; ok {
			return fmt.Errorf("line %d: duplicate policy %q", node.Content[i].Line, name)
		}
		seen[name] = struct{}{}

		var policy Policy
		if err := node.Content[i+1].Decode(&policy); err != nil {
			return fmt.Errorf("policy %s: %w", name, err)
		}
		policy.Name = name
		policies = append(policies, policy)
	}
	*p = policies
	return nil
}
