// Package prescan orders the host addresses of a subnet by how likely they are
// to be online, so the sweep dispatches gateways and early DHCP allocations first.
//
// Priority tiers (0-100), by last octet for /24 and larger networks:
//   - 100: .1, .254 (routers/gateways)
//   - 90:  .2-.5, .250-.253 (reserved infrastructure)
//   - 80:  .6-.10 (early DHCP)
//   - 70:  .50, .100, .150 (DHCP peaks)
//   - 50:  .51-.99, .101-.149, .151-.200 (main DHCP pool)
//   - 20:  .11-.49, .201-.249 (long-tail)
//   - 0:   network/broadcast
//
// Networks smaller than a /24 are scored by offset from the network address:
// the first and last host are gateways, the next few are infrastructure.
//
// Example:
//
//	hosts, _ := common.HostAddresses(network)
//	ordered := prescan.Order(hosts, network)
package prescan
