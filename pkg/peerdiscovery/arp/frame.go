package arp

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	ethernetHeaderLen = 14
	arpPayloadLen     = 28
	// FrameLen is the meaningful length of an IPv4-over-Ethernet ARP frame.
	// Encoded frames are padded to the Ethernet minimum of 60 bytes.
	FrameLen = ethernetHeaderLen + arpPayloadLen
)

// EncodeRequest builds a broadcast ARP request asking who has targetIP, sent
// from srcMAC/srcIP. Invalid addresses are rejected.
func EncodeRequest(srcMAC net.HardwareAddr, srcIP, targetIP net.IP) ([]byte, error) {
	if len(srcMAC) != 6 {
		return nil, fmt.Errorf("invalid source hardware address %q", srcMAC)
	}
	src4 := srcIP.To4()
	if src4 == nil {
		return nil, fmt.Errorf("invalid source IPv4 address %q", srcIP)
	}
	dst4 := targetIP.To4()
	if dst4 == nil {
		return nil, fmt.Errorf("invalid target IPv4 address %q", targetIP)
	}

	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       layers.EthernetBroadcast,
		EthernetType: layers.EthernetTypeARP,
	}
	req := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   srcMAC,
		SourceProtAddress: src4,
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    dst4,
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, req); err != nil {
		return nil, fmt.Errorf("could not serialize arp request: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeReply extracts the sender address pair from an ARP reply frame.
// Frames that are truncated, not ARP, not IPv4-over-Ethernet or not a reply
// are reported with ok=false. The returned slices do not alias b.
func DecodeReply(b []byte) (ip net.IP, mac net.HardwareAddr, ok bool) {
	if len(b) < FrameLen {
		return nil, nil, false
	}
	// Cheap ethertype check before handing the frame to the decoder
	if layers.EthernetType(binary.BigEndian.Uint16(b[12:14])) != layers.EthernetTypeARP {
		return nil, nil, false
	}
	// The decoder slices by the declared address sizes without bounds checks
	if b[18] != 6 || b[19] != 4 {
		return nil, nil, false
	}

	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(b, gopacket.NilDecodeFeedback); err != nil {
		return nil, nil, false
	}
	var reply layers.ARP
	if err := reply.DecodeFromBytes(eth.Payload, gopacket.NilDecodeFeedback); err != nil {
		return nil, nil, false
	}
	if reply.AddrType != layers.LinkTypeEthernet || reply.Protocol != layers.EthernetTypeIPv4 {
		return nil, nil, false
	}
	if reply.Operation != layers.ARPReply {
		return nil, nil, false
	}

	ip = make(net.IP, net.IPv4len)
	copy(ip, reply.SourceProtAddress)
	mac = make(net.HardwareAddr, 6)
	copy(mac, reply.SourceHwAddress)
	return ip, mac, true
}
