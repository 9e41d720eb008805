package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `
diode:
  config:
    target: ${TARGET}
    api_key: ${API_KEY}
    tls_verify: false
  policies:
    office:
      config:
        netbox:
          site: hq
        mac_lookup: true
        port_scan: true
      interface: eth0
      network: 192.0.2.0/24
    core:
      config:
        netbox:
          site: dc1
        drivers: [eos, ios]
      data:
        - hostname: 192.0.2.10
          username: admin
          password: ${DEVICE_PASSWORD}
        - hostname: 192.0.2.11
          username: admin
          password: secret
          driver: junos
          timeout: 5
          optional_args:
            port: 830
    lan: {}
`

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample), env(map[string]string{
		"TARGET":  "https://diode.example:8081",
		"API_KEY": "k3y",
	}))
	require.NoError(t, err)

	require.Equal(t, "https://diode.example:8081", cfg.Diode.Config.Target)
	require.Equal(t, "k3y", cfg.Diode.Config.APIKey)
	require.False(t, cfg.Diode.Config.VerifyTLS())

	policies := cfg.Diode.Policies
	require.Len(t, policies, 3)
	require.Equal(t, []string{"office", "core", "lan"}, []string{policies[0].Name, policies[1].Name, policies[2].Name})

	office := policies[0]
	require.False(t, office.IsDevicePolicy())
	require.Equal(t, "hq", office.Config.Netbox.Site)
	require.True(t, office.Config.MACLookup)
	require.True(t, office.Config.PortScan)
	require.Equal(t, "eth0", office.Interface)
	require.Equal(t, "192.0.2.0/24", office.Network)

	core := policies[1]
	require.True(t, core.IsDevicePolicy())
	require.Equal(t, []string{"eos", "ios"}, core.Config.Drivers)
	require.Len(t, core.Data, 2)
	// unset variables stay literal
	require.Equal(t, "${DEVICE_PASSWORD}", core.Data[0].Password)
	require.Equal(t, 60, core.Data[0].Timeout)
	require.Equal(t, "junos", core.Data[1].Driver)
	require.Equal(t, 5, core.Data[1].Timeout)
	require.Equal(t, 830, core.Data[1].OptionalArgs["port"])

	lan := policies[2]
	require.Empty(t, lan.Interface)
	require.Empty(t, lan.Network)
	require.False(t, lan.Config.MACLookup)
}

func TestVerifyTLSDefault(t *testing.T) {
	require.True(t, Client{}.VerifyTLS())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing target",
			doc:  "diode:\n  policies:\n    a: {}\n",
			want: "diode.config.target is required",
		},
		{
			name: "no policies",
			doc:  "diode:\n  config: {target: http://x}\n",
			want: "at least one policy is required",
		},
		{
			name: "ipv6 network",
			doc:  "diode:\n  config: {target: http://x}\n  policies:\n    a: {network: '2001:db8::/64'}\n",
			want: "policy a: 2001:db8::/64 is not an IPv4 network",
		},
		{
			name: "bad network",
			doc:  "diode:\n  config: {target: http://x}\n  policies:\n    a: {network: nope}\n",
			want: "policy a: invalid CIDR address: nope",
		},
		{
			name: "device without hostname",
			doc:  "diode:\n  config: {target: http://x}\n  policies:\n    a:\n      data:\n        - {username: u}\n",
			want: "policy a: device 0: hostname is required",
		},
		{
			name: "duplicate policy",
			doc:  "diode:\n  config: {target: http://x}\n  policies:\n    a: {}\n    a: {}\n",
			want: "duplicate policy \"a\"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), env(nil))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "does not exist")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("diode:\n  config: {target: http://x}\n  policies:\n    a: {}\n"), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://x", cfg.Diode.Config.Target)
}
