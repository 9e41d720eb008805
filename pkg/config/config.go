// Package config loads the discovery configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/netboxlabs/orb-discovery/pkg/driver"
	"github.com/netboxlabs/orb-discovery/pkg/peerdiscovery/common"
	"github.com/netboxlabs/orb-discovery/pkg/types"
	errorutil "github.com/projectdiscovery/utils/errors"
	fileutil "github.com/projectdiscovery/utils/file"
	"gopkg.in/yaml.v3"
)

// Config is the root of the configuration document
type Config struct {
	Diode Diode `yaml:"diode"`
}

// Diode groups the ingestion target and the policies feeding it
type Diode struct {
	Config   Client         `yaml:"config"`
	Policies types.Policies `yaml:"policies"`
}

// Client configures the ingestion client
type Client struct {
	Target    string `yaml:"target"`
	APIKey    string `yaml:"api_key"`
	TLSVerify *bool  `yaml:"tls_verify,omitempty"`
}

// VerifyTLS reports whether server certificates are checked. Defaults to true.
func (c Client) VerifyTLS() bool {
	return c.TLSVerify == nil || *c.TLSVerify
}

var envRef = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// Load reads, resolves and validates the configuration at path
func Load(path string) (*Config, error) {
	if !fileutil.FileExists(path) {
		return nil, fmt.Errorf("configuration file %s does not exist", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorutil.NewWithErr(err).Msgf("could not read configuration file %s", path)
	}
	return Parse(data, os.LookupEnv)
}

// Parse decodes a configuration document. Scalars of the form ${VAR} are
// replaced by the value lookup returns, or left as written when VAR is unset.
func Parse(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	var root yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	resolveEnv(&root, lookup)

	cfg := &Config{}
	if err := root.Decode(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func resolveEnv(node *yaml.Node, lookup func(string) (string, bool)) {
	if node.Kind == yaml.ScalarNode {
		m := envRef.FindStringSubmatch(node.Value)
		if m == nil {
			return
		}
		if v, ok := lookup(m[1]); ok {
			node.Value = v
		}
		return
	}
	for _, child := range node.Content {
		resolveEnv(child, lookup)
	}
}

// Validate checks the configuration for missing or malformed values
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Diode.Config.Target) == "" {
		errs = append(errs, errors.New("diode.config.target is required"))
	}
	if len(c.Diode.Policies) == 0 {
		errs = append(errs, errors.New("at least one policy is required"))
	}
	for _, p := range c.Diode.Policies {
		if p.IsDevicePolicy() {
			for i, d := range p.Data {
				if strings.TrimSpace(d.Hostname) == "" {
					errs = append(errs, fmt.Errorf("policy %s: device %d: hostname is required", p.Name, i))
				}
				if d.Timeout < 0 {
					errs = append(errs, fmt.Errorf("policy %s: device %d: timeout must not be negative", p.Name, i))
				}
			}
			continue
		}
		if p.Network != "" {
			if _, err := common.ParseIPv4Network(p.Network); err != nil {
				errs = append(errs, fmt.Errorf("policy %s: %w", p.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	for i := range c.Diode.Policies {
		p := &c.Diode.Policies[i]
		for j := range p.Data {
			if p.Data[j].Timeout == 0 {
				p.Data[j].Timeout = int(driver.DefaultTimeout.Seconds())
			}
		}
	}
}
