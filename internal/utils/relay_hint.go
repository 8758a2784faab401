package utils

import (
	"net"
	"strings"
)

// tunnelNames are interface name fragments of VPNs and tunnels, behind which
// direct media paths rarely work.
var tunnelNames = []string{"tun", "tap", "wg", "ppp", "warp"}

// cgnat is the carrier-grade NAT range also used by WARP and Tailscale.
var cgnat = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// ShouldForceRelay reports whether this machine looks like it sits behind a
// VPN or CGNAT, in which case media should go through TURN.
func ShouldForceRelay() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			addrs = nil
		}
		if behindTunnel(iface.Name, addrs) {
			return true
		}
	}
	return false
}

func behindTunnel(name string, addrs []net.Addr) bool {
	name = strings.ToLower(name)
	for _, frag := range tunnelNames {
		if strings.Contains(name, frag) {
			return true
		}
	}
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip != nil && cgnat.Contains(ip) {
			return true
		}
	}
	return false
}
