//go:build linux

package arp

import (
	"net"

	"github.com/google/gopacket/layers"
	"github.com/mdlayher/packet"
	"golang.org/x/sys/unix"
)

// listen opens an AF_PACKET socket on ifi that receives only ARP frames
func listen(ifi *net.Interface) (FrameConn, net.Addr, error) {
	conn, err := packet.Listen(ifi, packet.Raw, unix.ETH_P_ARP, nil)
	if err != nil {
		return nil, nil, err
	}
	return conn, &packet.Addr{HardwareAddr: layers.EthernetBroadcast}, nil
}
