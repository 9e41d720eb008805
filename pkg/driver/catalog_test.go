package driver

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogOrder(t *testing.T) {
	c := NewCatalog(IOS(), EOS(), JunOS(), NXOS())
	require.Equal(t, []string{"ios", "eos", "junos", "nxos"}, c.Names())
	require.Error(t, c.Register(IOS()))

	_, ok := c.Get("junos")
	require.True(t, ok)
	_, ok = c.Get("vyos")
	require.False(t, ok)

	// callers cannot mutate the catalog order
	names := c.Names()
	names[0] = "changed"
	require.Equal(t, "ios", c.Names()[0])
}

func TestExecDriverNames(t *testing.T) {
	require.Equal(t, "fake_driver", ExecDriverName("orb-discovery-driver-fake-driver"))
	require.Equal(t, "vyos", ExecDriverName("/usr/local/bin/orb-discovery-driver-vyos"))
	require.Equal(t, "orb-discovery-driver-fake-driver", ExecFileName("fake_driver"))
}

func writeExecutable(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestDiscoverExecDrivers(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("exec drivers are shell scripts in this test")
	}
	first := t.TempDir()
	second := t.TempDir()

	writeExecutable(t, first, "orb-discovery-driver-vyos", "#!/bin/sh\n")
	writeExecutable(t, second, "orb-discovery-driver-vyos", "#!/bin/sh\n")
	writeExecutable(t, second, "orb-discovery-driver-fake-driver", "#!/bin/sh\n")
	require.NoError(t, os.WriteFile(filepath.Join(second, "orb-discovery-driver-noexec"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(second, "unrelated"), []byte("x"), 0o755))

	drivers := DiscoverExecDrivers(first + string(os.PathListSeparator) + second + string(os.PathListSeparator) + filepath.Join(first, "missing"))
	require.Len(t, drivers, 2)
	require.Equal(t, "vyos", drivers[0].Name())
	require.Equal(t, filepath.Join(first, "orb-discovery-driver-vyos"), drivers[0].(*ExecDriver).Path())
	require.Equal(t, "fake_driver", drivers[1].Name())
}

func TestExecDriverSession(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("exec drivers are shell scripts in this test")
	}
	script := `#!/bin/sh
read -r request
case "$1" in
facts)
  echo '{"hostname":"vy1","vendor":"VyOS","model":"vm","serial_number":"VY123","os_version":"1.4","interface_list":["eth0"]}'
  ;;
interfaces)
  echo '{"eth0":{"is_enabled":true,"is_up":true,"description":"lan","mac_address":"52:54:00:00:00:01","speed":1000,"mtu":1500}}'
  ;;
interfaces_ip)
  echo '{"eth0":{"ipv4":{"10.0.0.2":24}}}'
  ;;
*)
  echo "unknown getter" >&2
  exit 2
  ;;
esac
`
	path := writeExecutable(t, t.TempDir(), "orb-discovery-driver-vyos", script)
	drv := NewExecDriver("vyos", path)

	trial := Try(context.Background(), drv, testTarget)
	require.Equal(t, Accepted, trial.Outcome, "%v", trial.Err)

	session, err := drv.Open(context.Background(), testTarget)
	require.NoError(t, err)
	defer session.Close()

	facts, interfaces, addrs, err := Collect(context.Background(), session)
	require.NoError(t, err)
	require.Equal(t, "VY123", facts.SerialNumber)
	require.Equal(t, []string{"eth0"}, facts.InterfaceList)
	require.Equal(t, 1500, interfaces["eth0"].MTU)
	require.Equal(t, 24, addrs["eth0"].IPv4["10.0.0.2"])
}

func TestExecDriverFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("exec drivers are shell scripts in this test")
	}
	path := writeExecutable(t, t.TempDir(), "orb-discovery-driver-broken", "#!/bin/sh\necho not-json\n")
	trial := Try(context.Background(), NewExecDriver("broken", path), testTarget)
	require.Equal(t, Failed, trial.Outcome)
	require.Error(t, trial.Err)
}
