package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/netboxlabs/orb-discovery/pkg/driver"
	"github.com/netboxlabs/orb-discovery/pkg/translate"
	"github.com/netboxlabs/orb-discovery/pkg/types"
	syncutil "github.com/projectdiscovery/utils/sync"
)

func (r *Runner) runDevicePolicy(ctx context.Context, policy *types.Policy) error {
	if r.deps.Discoverer == nil {
		return fmt.Errorf("no driver discoverer configured")
	}

	awg, err := syncutil.New(syncutil.WithSize(max(r.options.Workers, 1)))
	if err != nil {
		return fmt.Errorf("failed to create adaptive waitgroup: %w", err)
	}

	for _, device := range policy.Data {
		if ctx.Err() != nil {
			break
		}

		awg.Add()
		go func(device types.Device) {
			defer awg.Done()

			if err := r.DiscoverDevice(ctx, policy, device); err != nil {
				r.deps.Logger.Error().Msgf("Hostname %s: %s", device.Hostname, err)
			}
		}(device)
	}
	awg.Wait()
	return ctx.Err()
}

// DiscoverDevice selects the driver of one device, collects its facts and
// ingests the translated entities under the policy name.
func (r *Runner) DiscoverDevice(ctx context.Context, policy *types.Policy, device types.Device) error {
	target := driver.Target{
		Hostname:     device.Hostname,
		Username:     device.Username,
		Password:     device.Password,
		Timeout:      time.Duration(device.Timeout) * time.Second,
		OptionalArgs: device.OptionalArgs,
		Logger:       r.deps.Logger,
	}

	drv, err := r.deps.Discoverer.Select(ctx, target, device.Driver, policy.Config.Drivers)
	if err != nil {
		return err
	}
	r.deps.Logger.Info().Msgf("Hostname %s: Get driver '%s'", device.Hostname, drv.Name())

	session, err := drv.Open(ctx, target)
	if err != nil {
		return fmt.Errorf("could not open %s session: %w", drv.Name(), err)
	}
	defer func() {
		_ = session.Close()
	}()

	r.deps.Logger.Info().Msgf("Hostname %s: Getting information", device.Hostname)
	facts, interfaces, addrs, err := driver.Collect(ctx, session)
	if err != nil {
		return fmt.Errorf("could not collect device information: %w", err)
	}
	if facts == nil {
		return fmt.Errorf("driver %s returned no facts", drv.Name())
	}

	result := &types.DeviceResult{
		Driver:       drv.Name(),
		Site:         policy.Config.Netbox.Site,
		Device:       *facts,
		Interfaces:   interfaces,
		InterfacesIP: addrs,
	}
	return r.deps.Ingester.Ingest(ctx, policy.Name, translate.DeviceInfo(result))
}
