// Package arp resolves IPv4 addresses to hardware addresses by sending ARP
// requests on a raw link-layer socket and correlating the replies.
//
// The local ARP cache is never consulted: every target gets a wire request.
// Frames are encoded and decoded with gopacket layers; on Linux the socket is
// an AF_PACKET socket bound to the interface.
//
// Example:
//
//	macs, err := arp.Resolve(ctx, "eth0", srcIP, targets, arp.DefaultOptions())
package arp
