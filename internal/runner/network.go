package runner

import (
	"context"
	"fmt"
	"net"

	"github.com/netboxlabs/orb-discovery/pkg/peerdiscovery/common"
	"github.com/netboxlabs/orb-discovery/pkg/types"
)

// DiscoverNetwork runs the sweep of a network policy, filling the policy's
// interface and network first when they are not configured. Failing to infer
// either aborts the pass.
func (r *Runner) DiscoverNetwork(ctx context.Context, policy *types.Policy) (*types.DiscoveryResult, error) {
	log := r.deps.Logger

	if policy.Interface == "" {
		log.Info().Msgf("Policy %s: Interface not informed, discovering the most used", policy.Name)
		iface, err := r.deps.Introspector.MostActiveInterface()
		if err != nil {
			log.Error().Msgf("Policy %s: Not able to discover interface", policy.Name)
			return nil, err
		}
		policy.Interface = iface
	}

	var network *net.IPNet
	if policy.Network == "" {
		log.Info().Msgf("Policy %s: IP range not informed, discovering it based on the provided interface", policy.Name)
		subnet, err := r.deps.Introspector.Subnet(policy.Interface)
		if err != nil {
			log.Error().Msgf("Policy %s: Not able to discover IPv4 range", policy.Name)
			return nil, err
		}
		network = subnet
		policy.Network = subnet.String()
	} else {
		parsed, err := common.ParseIPv4Network(policy.Network)
		if err != nil {
			return nil, err
		}
		network = parsed
	}

	log.Info().Msgf("Policy %s: Getting Active IP Addresses on interface '%s' in range '%s'", policy.Name, policy.Interface, policy.Network)
	if r.deps.Sweeper == nil {
		return nil, fmt.Errorf("no host sweeper configured")
	}
	peers, err := r.deps.Sweeper.Sweep(ctx, network)
	if err != nil {
		return nil, err
	}
	log.Info().Msgf("Policy %s: %d active hosts found", policy.Name, len(peers))

	result := &types.DiscoveryResult{
		Site:      policy.Config.Netbox.Site,
		Prefix:    policy.Network,
		ActiveIPs: make([]types.ActiveIP, 0, len(peers)),
	}
	targets := make([]net.IP, 0, len(peers))
	for _, peer := range peers {
		result.ActiveIPs = append(result.ActiveIPs, types.ActiveIP{IP: peer.IP.String()})
		targets = append(targets, peer.IP)
	}

	if policy.Config.MACLookup && len(targets) > 0 {
		r.lookupMACs(ctx, policy, targets, result)
	}
	if policy.Config.PortScan {
		r.scanPorts(ctx, policy, result)
	}
	return result, nil
}

func (r *Runner) lookupMACs(ctx context.Context, policy *types.Policy, targets []net.IP, result *types.DiscoveryResult) {
	log := r.deps.Logger
	log.Info().Msgf("Policy %s: Looking up MAC addresses", policy.Name)

	srcIP, err := r.deps.Introspector.SourceAddress(policy.Interface)
	if err != nil {
		log.Warning().Msgf("Policy %s: MAC lookup skipped: %s", policy.Name, err)
		return
	}
	macs, err := r.deps.Resolve(ctx, policy.Interface, srcIP, targets)
	if err != nil {
		log.Warning().Msgf("Policy %s: MAC lookup failed: %s", policy.Name, err)
		return
	}

	for i := range result.ActiveIPs {
		active := &result.ActiveIPs[i]
		mac, ok := macs[active.IP]
		if !ok {
			continue
		}
		active.MAC = mac.String()
		if r.deps.Vendors != nil {
			active.Vendor = r.deps.Vendors.Lookup(mac)
		}
	}
}

func (r *Runner) scanPorts(ctx context.Context, policy *types.Policy, result *types.DiscoveryResult) {
	log := r.deps.Logger
	log.Info().Msgf("Policy %s: Scanning ports", policy.Name)

	for i := range result.ActiveIPs {
		if ctx.Err() != nil {
			return
		}
		active := &result.ActiveIPs[i]
		ports, err := r.deps.Prober.Scan(ctx, active.IP)
		if err != nil {
			log.Warning().Msgf("Policy %s: port scan of %s failed: %s", policy.Name, active.IP, err)
			continue
		}
		active.Ports = ports
	}
}
