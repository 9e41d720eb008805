package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/netboxlabs/orb-discovery/pkg/types"
)

// ExecDriver delegates to an external executable. The executable is invoked
// as `<path> <getter>` with getter one of facts, interfaces or interfaces_ip,
// receives the target as JSON on stdin and prints the result as JSON.
type ExecDriver struct {
	name string
	path string
}

// NewExecDriver creates a driver backed by the executable at path
func NewExecDriver(name, path string) *ExecDriver {
	return &ExecDriver{name: name, path: path}
}

// Name returns the driver name
func (d *ExecDriver) Name() string {
	return d.name
}

// Path returns the executable path
func (d *ExecDriver) Path() string {
	return d.path
}

// Open prepares a session. Each getter runs the executable once.
func (d *ExecDriver) Open(_ context.Context, target Target) (Session, error) {
	request, err := json.Marshal(execRequest{
		Hostname:     target.Hostname,
		Username:     target.Username,
		Password:     target.Password,
		Timeout:      int(target.timeout().Seconds()),
		OptionalArgs: target.OptionalArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("could not encode request: %w", err)
	}
	return &execSession{driver: d, target: target, request: request}, nil
}

type execRequest struct {
	Hostname     string         `json:"hostname"`
	Username     string         `json:"username"`
	Password     string         `json:"password"`
	Timeout      int            `json:"timeout"`
	OptionalArgs map[string]any `json:"optional_args,omitempty"`
}

type execSession struct {
	driver  *ExecDriver
	target  Target
	request []byte
}

func (s *execSession) call(ctx context.Context, getter string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, s.target.timeout())
	defer cancel()

	s.target.logger().Debug().Msgf("Hostname %s: running %s %s", s.target.Hostname, s.driver.path, getter)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.driver.path, getter)
	cmd.Stdin = bytes.NewReader(s.request)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s failed: %w: %s", s.driver.name, getter, err, strings.TrimSpace(stderr.String()))
	}
	if err := json.Unmarshal(stdout.Bytes(), v); err != nil {
		return fmt.Errorf("%s %s returned invalid output: %w", s.driver.name, getter, err)
	}
	return nil
}

func (s *execSession) Facts(ctx context.Context) (*types.Facts, error) {
	var facts types.Facts
	if err := s.call(ctx, "facts", &facts); err != nil {
		return nil, err
	}
	return &facts, nil
}

func (s *execSession) Interfaces(ctx context.Context) (map[string]types.Interface, error) {
	interfaces := make(map[string]types.Interface)
	if err := s.call(ctx, "interfaces", &interfaces); err != nil {
		return nil, err
	}
	return interfaces, nil
}

func (s *execSession) InterfacesIP(ctx context.Context) (map[string]types.InterfaceIP, error) {
	addrs := make(map[string]types.InterfaceIP)
	if err := s.call(ctx, "interfaces_ip", &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}

func (s *execSession) Close() error {
	return nil
}
