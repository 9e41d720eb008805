// Package driver opens management sessions to network devices and collects
// their facts, interfaces and interface addresses.
//
// Drivers are kept in an ordered Catalog. When a device does not name its
// driver, the Discoverer tries each one in catalog order and accepts the first
// that can positively identify the device.
package driver

import (
	"context"
	"errors"
	"time"

	"github.com/netboxlabs/orb-discovery/pkg/types"
	"github.com/projectdiscovery/gologger"
)

// DefaultTimeout is the management session timeout when none is configured
const DefaultTimeout = 60 * time.Second

var (
	// ErrNoDriver is returned when no driver could identify the device
	ErrNoDriver = errors.New("not able to discover device driver")
	// ErrUnsupportedDriver is returned when a requested driver is not installed
	ErrUnsupportedDriver = errors.New("driver not installed")
)

// Target is a managed device and the credentials used to reach it
type Target struct {
	Hostname     string
	Username     string
	Password     string
	Timeout      time.Duration
	OptionalArgs map[string]any
	// Logger receives driver diagnostics. Nil means gologger.DefaultLogger.
	Logger *gologger.Logger
}

func (t Target) timeout() time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return DefaultTimeout
}

func (t Target) logger() *gologger.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return gologger.DefaultLogger
}

// Driver is a vendor adapter able to open management sessions
type Driver interface {
	Name() string
	Open(ctx context.Context, target Target) (Session, error)
}

// Session is an open management session. Close must always be called.
type Session interface {
	Facts(ctx context.Context) (*types.Facts, error)
	Interfaces(ctx context.Context) (map[string]types.Interface, error)
	InterfacesIP(ctx context.Context) (map[string]types.InterfaceIP, error)
	Close() error
}

// Collect gathers facts, interfaces and interface addresses from an open session
func Collect(ctx context.Context, session Session) (*types.Facts, map[string]types.Interface, map[string]types.InterfaceIP, error) {
	facts, err := session.Facts(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	interfaces, err := session.Interfaces(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	addrs, err := session.InterfacesIP(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return facts, interfaces, addrs, nil
}
