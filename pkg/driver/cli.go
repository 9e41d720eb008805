package driver

import (
	"context"
	"fmt"

	"github.com/netboxlabs/orb-discovery/pkg/types"
)

// dialect describes how a vendor CLI exposes device state
type dialect struct {
	name   string
	vendor string

	factsCommands []string
	parseFacts    func(out []string) (*types.Facts, error)

	interfacesCommand string
	parseInterfaces   func(out string) (map[string]types.Interface, error)

	interfacesIPCommand string
	parseInterfacesIP   func(out string) (map[string]types.InterfaceIP, error)
}

// CLIDriver manages devices by running show commands over a CLI transport
type CLIDriver struct {
	dialect dialect
	dial    dialFunc
}

func newCLIDriver(d dialect) *CLIDriver {
	return &CLIDriver{dialect: d, dial: dialSSH}
}

// Name returns the driver name
func (d *CLIDriver) Name() string {
	return d.dialect.name
}

// Open connects to the target
func (d *CLIDriver) Open(ctx context.Context, target Target) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, target.timeout())
	defer cancel()

	target.logger().Debug().Msgf("Hostname %s: opening %s session", target.Hostname, d.dialect.name)
	runner, err := d.dial(ctx, target)
	if err != nil {
		return nil, err
	}
	return &cliSession{runner: runner, dialect: d.dialect, target: target}, nil
}

type cliSession struct {
	runner  commandRunner
	dialect dialect
	target  Target
}

func (s *cliSession) run(ctx context.Context, cmd string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.target.timeout())
	defer cancel()

	s.target.logger().Debug().Msgf("Hostname %s: running '%s'", s.target.Hostname, cmd)
	return s.runner.Run(ctx, cmd)
}

func (s *cliSession) Facts(ctx context.Context) (*types.Facts, error) {
	outputs := make([]string, 0, len(s.dialect.factsCommands))
	for _, cmd := range s.dialect.factsCommands {
		out, err := s.run(ctx, cmd)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, out)
	}

	facts, err := s.dialect.parseFacts(outputs)
	if err != nil {
		return nil, fmt.Errorf("%s: could not parse facts: %w", s.dialect.name, err)
	}
	if facts.Vendor == "" {
		facts.Vendor = s.dialect.vendor
	}
	return facts, nil
}

func (s *cliSession) Interfaces(ctx context.Context) (map[string]types.Interface, error) {
	out, err := s.run(ctx, s.dialect.interfacesCommand)
	if err != nil {
		return nil, err
	}
	interfaces, err := s.dialect.parseInterfaces(out)
	if err != nil {
		return nil, fmt.Errorf("%s: could not parse interfaces: %w", s.dialect.name, err)
	}
	return interfaces, nil
}

func (s *cliSession) InterfacesIP(ctx context.Context) (map[string]types.InterfaceIP, error) {
	out, err := s.run(ctx, s.dialect.interfacesIPCommand)
	if err != nil {
		return nil, err
	}
	addrs, err := s.dialect.parseInterfacesIP(out)
	if err != nil {
		return nil, fmt.Errorf("%s: could not parse interface addresses: %w", s.dialect.name, err)
	}
	return addrs, nil
}

func (s *cliSession) Close() error {
	return s.runner.Close()
}

// addIP records addr/prefixLen on an interface entry
func addIP(m map[string]types.InterfaceIP, name, addr string, prefixLen int, v6 bool) {
	entry := m[name]
	if v6 {
		if entry.IPv6 == nil {
			entry.IPv6 = make(map[string]int)
		}
		entry.IPv6[addr] = prefixLen
	} else {
		if entry.IPv4 == nil {
			entry.IPv4 = make(map[string]int)
		}
		entry.IPv4[addr] = prefixLen
	}
	m[name] = entry
}
