package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	fileutil "github.com/projectdiscovery/utils/file"
)

// ExecPrefix is the file name prefix of installable exec drivers
const ExecPrefix = "orb-discovery-driver-"

// Catalog is an ordered set of drivers. Order determines trial precedence.
type Catalog struct {
	mu      sync.RWMutex
	order   []string
	drivers map[string]Driver
}

// NewCatalog creates a catalog holding drivers in the given order
func NewCatalog(drivers ...Driver) *Catalog {
	c := &Catalog{drivers: make(map[string]Driver)}
	for _, d := range drivers {
		_ = c.Register(d)
	}
	return c
}

// DefaultCatalog returns the built-in drivers followed by any exec drivers
// found on PATH.
func DefaultCatalog() *Catalog {
	c := NewCatalog(IOS(), EOS(), JunOS(), NXOS())
	for _, d := range DiscoverExecDrivers(os.Getenv("PATH")) {
		_ = c.Register(d)
	}
	return c
}

// Register appends a driver. Names must be unique.
func (c *Catalog) Register(d Driver) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := d.Name()
	if _, ok := c.drivers[name]; ok {
		return fmt.Errorf("driver %s already registered", name)
	}
	c.drivers[name] = d
	c.order = append(c.order, name)
	return nil
}

// Get returns the named driver
func (c *Catalog) Get(name string) (Driver, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.drivers[name]
	return d, ok
}

// Names returns driver names in trial order
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// DiscoverExecDrivers scans the directories of a PATH list for executables
// named orb-discovery-driver-<name>. Dashes in the file name map to
// underscores in the driver name. The first match of a name wins.
func DiscoverExecDrivers(pathList string) []Driver {
	seen := make(map[string]struct{})
	var drivers []Driver

	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" || !fileutil.FolderExists(dir) {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		var found []string
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), ExecPrefix) {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.Mode()&0o111 == 0 {
				continue
			}
			found = append(found, entry.Name())
		}
		sort.Strings(found)

		for _, file := range found {
			name := ExecDriverName(file)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			drivers = append(drivers, NewExecDriver(name, filepath.Join(dir, file)))
		}
	}
	return drivers
}

// ExecDriverName maps an executable file name to its driver name
func ExecDriverName(file string) string {
	name := strings.TrimPrefix(filepath.Base(file), ExecPrefix)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.ReplaceAll(name, "-", "_")
}

// ExecFileName maps a driver name to the executable that provides it
func ExecFileName(driver string) string {
	return ExecPrefix + strings.ReplaceAll(driver, "_", "-")
}
