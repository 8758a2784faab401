package config

import (
	"testing"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)
	require.Equal(t, DefaultDomain, cfg.Domain)
	require.Equal(t, "https://"+DefaultDomain, cfg.APIBaseURL)
	require.Equal(t, "wss://"+DefaultDomain+"/ws/signal", cfg.SignalingURL)
	require.Equal(t, DefaultMaxDuration, cfg.MaxDuration)
	require.Equal(t, DefaultReconnectAttempts, cfg.ReconnectAttempts)
	require.Equal(t, "json", cfg.Codec)
	require.Nil(t, cfg.GetTURNServers())
	require.Equal(t, []consult.RelayServer{{URLs: []string{DefaultSTUN}}}, cfg.RelayServers())
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("DOMAIN", "env.example.org")
	t.Setenv("CONSULT_CODEC", "msgpack")
	t.Setenv("CONSULT_MAX_DURATION", "45m")
	t.Setenv("CONSULT_RECONNECT_ATTEMPTS", "5")
	t.Setenv("FORCE_RELAY", "true")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	require.Equal(t, "env.example.org", cfg.Domain)
	require.Equal(t, "msgpack", cfg.Codec)
	require.Equal(t, 45*time.Minute, cfg.MaxDuration)
	require.Equal(t, 5, cfg.ReconnectAttempts)
	require.True(t, cfg.ForceRelay)

	cfg, err = Load(Options{Domain: "flag.example.org", Codec: "json", MaxDuration: 10 * time.Minute})
	require.NoError(t, err)
	require.Equal(t, "flag.example.org", cfg.Domain)
	require.Equal(t, "wss://flag.example.org/ws/signal", cfg.SignalingURL)
	require.Equal(t, "json", cfg.Codec)
	require.Equal(t, 10*time.Minute, cfg.MaxDuration)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("CONSULT_GRACE_DELAY", "soon")
	_, err := Load(Options{})
	require.ErrorContains(t, err, "CONSULT_GRACE_DELAY")

	_, err = Load(Options{Codec: "xml"})
	require.Error(t, err)
}

func TestTURNServers(t *testing.T) {
	cfg, err := Load(Options{TURNServer: "turn:relay.example.org", TURNUser: "u", TURNPass: "p"})
	require.NoError(t, err)
	require.Equal(t, []string{
		"turn:relay.example.org:3478?transport=udp",
		"turn:relay.example.org:3478?transport=tcp",
		"turns:relay.example.org:5349?transport=tcp",
	}, cfg.GetTURNServers())

	relays := cfg.RelayServers()
	require.Len(t, relays, 2)
	require.True(t, relays[1].IsTURN())
	require.Equal(t, "u", relays[1].Username)
}

func TestLoadServer(t *testing.T) {
	_, err := LoadServer(ServerOptions{})
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CONSULT_ROOM_TTL", "90m")
	cfg, err := LoadServer(ServerOptions{Addr: ":9000"})
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Addr)
	require.Equal(t, "s3cret", cfg.JWTSecret)
	require.Equal(t, "http://localhost:9000", cfg.PublicURL)
	require.Equal(t, 90*time.Minute, cfg.RoomTTL)
	require.Equal(t, DefaultGuestCodeTTL, cfg.GuestCodeTTL)
	require.Empty(t, cfg.RedisAddr)
}
