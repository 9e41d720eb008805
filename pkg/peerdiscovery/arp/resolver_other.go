//go:build !linux

package arp

import (
	"errors"
	"net"
)

// ErrUnsupportedPlatform is returned where raw link-layer sockets are unavailable
var ErrUnsupportedPlatform = errors.New("raw arp resolution is only supported on linux")

func listen(_ *net.Interface) (FrameConn, net.Addr, error) {
	return nil, nil, ErrUnsupportedPlatform
}
