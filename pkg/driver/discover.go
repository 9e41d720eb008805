package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/netboxlabs/orb-discovery/pkg/types"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/projectdiscovery/gologger/writer"
)

// Outcome is the result of trying one driver against a device
type Outcome int

const (
	// Accepted means the driver identified the device
	Accepted Outcome = iota
	// Rejected means the driver connected but could not identify the device
	Rejected
	// Failed means the session could not be opened or queried
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "failed"
	}
}

// Trial records one driver attempt
type Trial struct {
	Driver  string
	Outcome Outcome
	Facts   *types.Facts
	Err     error
}

// UnsupportedDriverError is returned when a device names a driver missing
// from the catalog
type UnsupportedDriverError struct {
	Hostname  string
	Driver    string
	Installed []string
}

func (e *UnsupportedDriverError) Error() string {
	return fmt.Sprintf("Hostname %s: specified driver '%s' was not found in the current installed drivers list: [%s].\n"+
		"HINT: If '%s' is a community driver, install an executable named '%s' on PATH:\n\n\tinstall -m 0755 <driver> /usr/local/bin/%s\n",
		e.Hostname, e.Driver, strings.Join(e.Installed, " "), e.Driver, ExecFileName(e.Driver), ExecFileName(e.Driver))
}

// Unwrap makes the error match ErrUnsupportedDriver
func (e *UnsupportedDriverError) Unwrap() error {
	return ErrUnsupportedDriver
}

// Discoverer picks the driver able to manage a device
type Discoverer struct {
	catalog *Catalog
	logger  *gologger.Logger
	trial   *gologger.Logger
}

// NewDiscoverer creates a discoverer over catalog logging to logger. Drivers
// under trial log to a separate logger that only emits fatal messages, so
// expected failures stay quiet without touching logger.
func NewDiscoverer(catalog *Catalog, logger *gologger.Logger) *Discoverer {
	if logger == nil {
		logger = gologger.DefaultLogger
	}
	return &Discoverer{catalog: catalog, logger: logger, trial: quietLogger()}
}

func quietLogger() *gologger.Logger {
	l := &gologger.Logger{}
	l.SetMaxLevel(levels.LevelFatal)
	l.SetFormatter(formatter.NewCLI(true))
	l.SetWriter(writer.NewCLI())
	return l
}

// Select returns the driver for target. A named driver must be installed,
// otherwise the call fails before any session is opened. An empty name runs
// discovery over order, or the catalog order when order is empty.
func (d *Discoverer) Select(ctx context.Context, target Target, name string, order []string) (Driver, error) {
	if name != "" {
		drv, ok := d.catalog.Get(name)
		if !ok {
			return nil, &UnsupportedDriverError{Hostname: target.Hostname, Driver: name, Installed: d.catalog.Names()}
		}
		return drv, nil
	}

	d.logger.Info().Msgf("Hostname %s: Driver not informed, discovering it", target.Hostname)
	found, err := d.Discover(ctx, target, order)
	if err != nil {
		return nil, err
	}
	drv, _ := d.catalog.Get(found)
	return drv, nil
}

// Discover tries each driver in order and returns the name of the first one
// that reports a real serial number. It returns ErrNoDriver when none does.
func (d *Discoverer) Discover(ctx context.Context, target Target, order []string) (string, error) {
	if len(order) == 0 {
		order = d.catalog.Names()
	}

	target.Logger = d.trial
	for _, name := range order {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		drv, ok := d.catalog.Get(name)
		if !ok {
			d.logger.Warning().Msgf("Hostname %s: driver '%s' is not installed, skipping", target.Hostname, name)
			continue
		}

		trial := Try(ctx, drv, target)
		switch trial.Outcome {
		case Accepted:
			d.logger.Info().Msgf("Hostname %s: driver '%s' identified serial number %s", target.Hostname, name, trial.Facts.SerialNumber)
			return name, nil
		case Rejected:
			d.logger.Debug().Msgf("Hostname %s: driver '%s' could not identify the device", target.Hostname, name)
		default:
			d.logger.Debug().Msgf("Hostname %s: driver '%s' failed: %s", target.Hostname, name, trial.Err)
		}
	}
	return "", fmt.Errorf("Hostname %s: %w", target.Hostname, ErrNoDriver)
}

// Try opens a session with drv, reads the device facts and closes the session.
// The trial is accepted only when the serial number is set and is not the
// "unknown" placeholder.
func Try(ctx context.Context, drv Driver, target Target) Trial {
	trial := Trial{Driver: drv.Name()}

	session, err := drv.Open(ctx, target)
	if err != nil {
		trial.Outcome, trial.Err = Failed, err
		return trial
	}
	defer func() {
		_ = session.Close()
	}()

	facts, err := session.Facts(ctx)
	if err != nil {
		trial.Outcome, trial.Err = Failed, err
		return trial
	}
	trial.Facts = facts

	if facts == nil || !knownSerial(facts.SerialNumber) {
		trial.Outcome = Rejected
		return trial
	}
	trial.Outcome = Accepted
	return trial
}

func knownSerial(serial string) bool {
	serial = strings.TrimSpace(serial)
	return serial != "" && !strings.EqualFold(serial, "unknown")
}
