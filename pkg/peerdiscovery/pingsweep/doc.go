// Package pingsweep discovers live hosts on an IPv4 subnet with ICMP echo.
//
// Discovery is performed by:
//   - Expanding the subnet to its host addresses (network/broadcast excluded)
//   - Ordering them so likely gateways are pinged first
//   - Sending one echo request per host through a bounded worker pool (200 workers)
//   - Collecting the hosts that answered within the timeout (1s)
//
// There are no retries: a host that blocks ICMP is a false negative.
//
// Example usage:
//
//	pinger, err := pingsweep.NewICMPPinger()
//	defer pinger.Close()
//	peers, err := pingsweep.New(pinger, pingsweep.DefaultOptions()).Sweep(ctx, network)
//
// Privilege Requirements:
//   - Raw ICMP sockets require root or CAP_NET_RAW
//   - On Linux the pinger falls back to unprivileged datagram ICMP sockets
//     when net.ipv4.ping_group_range allows it
package pingsweep
