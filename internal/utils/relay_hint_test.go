package utils

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBehindTunnel(t *testing.T) {
	lan := &net.IPNet{IP: net.ParseIP("192.168.1.20"), Mask: net.CIDRMask(24, 32)}
	warp := &net.IPNet{IP: net.ParseIP("100.96.0.3"), Mask: net.CIDRMask(32, 32)}

	require.False(t, behindTunnel("eth0", []net.Addr{lan}))
	require.True(t, behindTunnel("wg0", nil))
	require.True(t, behindTunnel("CloudflareWARP", nil))
	require.True(t, behindTunnel("en0", []net.Addr{lan, warp}))
	require.True(t, behindTunnel("eth1", []net.Addr{&net.IPAddr{IP: net.ParseIP("100.64.0.1")}}))
	require.False(t, behindTunnel("eth1", []net.Addr{&net.IPAddr{IP: net.ParseIP("100.128.0.1")}}))
}
