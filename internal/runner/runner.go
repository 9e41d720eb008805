package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/netboxlabs/orb-discovery/pkg/client"
	"github.com/netboxlabs/orb-discovery/pkg/config"
	"github.com/netboxlabs/orb-discovery/pkg/driver"
	"github.com/netboxlabs/orb-discovery/pkg/peerdiscovery/arp"
	"github.com/netboxlabs/orb-discovery/pkg/peerdiscovery/common"
	"github.com/netboxlabs/orb-discovery/pkg/peerdiscovery/pingsweep"
	"github.com/netboxlabs/orb-discovery/pkg/peerdiscovery/portscan"
	"github.com/netboxlabs/orb-discovery/pkg/translate"
	"github.com/netboxlabs/orb-discovery/pkg/types"
	"github.com/netboxlabs/orb-discovery/pkg/vendor"
	"github.com/projectdiscovery/gologger"
	errorutil "github.com/projectdiscovery/utils/errors"
	syncutil "github.com/projectdiscovery/utils/sync"
)

var errMissingConfig = errors.New("no configuration file provided, use -config")

// Introspector infers the interface and subnet of a policy
type Introspector interface {
	MostActiveInterface() (string, error)
	Subnet(name string) (*net.IPNet, error)
	SourceAddress(name string) (net.IP, error)
}

// Sweeper finds the live hosts of a subnet
type Sweeper interface {
	Sweep(ctx context.Context, network *net.IPNet) ([]pingsweep.Peer, error)
}

// ResolveFunc maps target addresses to hardware addresses on an interface
type ResolveFunc func(ctx context.Context, iface string, srcIP net.IP, targets []net.IP) (map[string]net.HardwareAddr, error)

// VendorLookup names the manufacturer of a hardware address
type VendorLookup interface {
	Lookup(mac net.HardwareAddr) string
}

// PortScanner probes the service catalog of a host
type PortScanner interface {
	Scan(ctx context.Context, ip string) (map[string]bool, error)
}

// Ingester receives the translated entities of a policy
type Ingester interface {
	Ingest(ctx context.Context, name string, entities []translate.Entity) error
}

// Dependencies are the collaborators of a discovery run
type Dependencies struct {
	Introspector Introspector
	Sweeper      Sweeper
	Resolve      ResolveFunc
	Vendors      VendorLookup
	Prober       PortScanner
	Discoverer   *driver.Discoverer
	Ingester     Ingester
	Logger       *gologger.Logger
}

// Runner contains the internal logic of the program
type Runner struct {
	options *Options
	config  *config.Config
	deps    Dependencies
	closers []func() error
}

// NewRunner loads the configuration and builds the live collaborators
func NewRunner(options *Options) (*Runner, error) {
	cfg, err := config.Load(options.ConfigFile)
	if err != nil {
		return nil, err
	}

	r := &Runner{options: options, config: cfg}
	deps := Dependencies{
		Introspector: common.NewIntrospector(),
		Prober:       portscan.New(portscan.DefaultTimeout),
		Discoverer:   driver.NewDiscoverer(driver.DefaultCatalog(), gologger.DefaultLogger),
		Logger:       gologger.DefaultLogger,
		Resolve: func(ctx context.Context, iface string, srcIP net.IP, targets []net.IP) (map[string]net.HardwareAddr, error) {
			return arp.Resolve(ctx, iface, srcIP, targets, arp.DefaultOptions())
		},
	}

	vendors := vendor.New()
	if options.OUIFile != "" {
		n, err := vendors.LoadFile(options.OUIFile)
		if err != nil {
			return nil, errorutil.NewWithErr(err).Msgf("could not load vendor database %s", options.OUIFile)
		}
		gologger.Verbose().Msgf("Loaded %d vendor prefixes from %s", n, options.OUIFile)
	}
	deps.Vendors = vendors

	if hasNetworkPolicy(cfg.Diode.Policies) {
		pinger, err := pingsweep.NewICMPPinger()
		if err != nil {
			return nil, fmt.Errorf("could not open ICMP socket: %w", err)
		}
		r.closers = append(r.closers, pinger.Close)
		deps.Sweeper = pingsweep.New(pinger, pingsweep.DefaultOptions())
	}

	if options.DryRun {
		deps.Ingester = &dryRunIngester{logger: gologger.DefaultLogger}
	} else {
		c := client.New(client.Options{TLSVerify: cfg.Diode.Config.VerifyTLS(), Logger: gologger.DefaultLogger})
		if err := c.Init(cfg.Diode.Config.Target, cfg.Diode.Config.APIKey); err != nil {
			return nil, err
		}
		deps.Ingester = c
	}

	r.deps = deps
	return r, nil
}

// New creates a runner over an already loaded configuration
func New(options *Options, cfg *config.Config, deps Dependencies) *Runner {
	if deps.Logger == nil {
		deps.Logger = gologger.DefaultLogger
	}
	return &Runner{options: options, config: cfg, deps: deps}
}

func hasNetworkPolicy(policies types.Policies) bool {
	for _, p := range policies {
		if !p.IsDevicePolicy() {
			return true
		}
	}
	return false
}

// Run processes every policy once. Policy failures are logged and do not
// stop the remaining policies.
func (r *Runner) Run(ctx context.Context) error {
	if r.deps.Ingester == nil {
		return client.ErrClientNotInitialized
	}

	awg, err := syncutil.New(syncutil.WithSize(max(r.options.PolicyParallelism, 1)))
	if err != nil {
		return fmt.Errorf("failed to create adaptive waitgroup: %w", err)
	}

	for i := range r.config.Diode.Policies {
		if ctx.Err() != nil {
			break
		}
		policy := &r.config.Diode.Policies[i]

		awg.Add()
		go func(policy *types.Policy) {
			defer awg.Done()

			if err := r.RunPolicy(ctx, policy); err != nil {
				r.deps.Logger.Error().Msgf("Error while processing policy %s: %s", policy.Name, err)
			}
		}(policy)
	}
	awg.Wait()
	return ctx.Err()
}

// RunPolicy runs one policy end to end
func (r *Runner) RunPolicy(ctx context.Context, policy *types.Policy) error {
	start := time.Now()
	defer func() {
		r.deps.Logger.Verbose().Msgf("Policy %s: finished in %s", policy.Name, time.Since(start).Round(time.Millisecond))
	}()

	if policy.IsDevicePolicy() {
		return r.runDevicePolicy(ctx, policy)
	}

	result, err := r.DiscoverNetwork(ctx, policy)
	if err != nil {
		return err
	}
	return r.deps.Ingester.Ingest(ctx, policy.Name, translate.Discovery(result))
}

// Close releases the sockets held by the runner
func (r *Runner) Close() error {
	var errs []error
	for _, closeFn := range r.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}

type dryRunIngester struct {
	logger *gologger.Logger
}

func (d *dryRunIngester) Ingest(_ context.Context, name string, entities []translate.Entity) error {
	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return err
	}
	d.logger.Info().Msgf("Policy %s: %d entities (dry run)", name, len(entities))
	d.logger.Print().Msgf("%s", data)
	return nil
}
