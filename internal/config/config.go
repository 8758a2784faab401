package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Andiveli/HospitalFront-sub000/internal/consult"
)

// Default configuration values (production)
const (
	DefaultDomain   = "consultas.hospital.local"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURN     = "" // Optional, empty by default
	DefaultTURNUser = ""
	DefaultTURNPass = ""
	DefaultCodec    = "json"

	DefaultMaxDuration        = 30 * time.Minute
	DefaultDoctorWarningLead  = 10 * time.Minute
	DefaultPatientWarningLead = 5 * time.Minute
	DefaultGraceDelay         = 3 * time.Second
	DefaultReconnectAttempts  = 3
	DefaultReconnectBackoff   = 2 * time.Second
	DefaultRequestTimeout     = 15 * time.Second
)

// Config holds application configuration
type Config struct {
	// Domain is the portal domain
	Domain string

	// APIBaseURL and SignalingURL are derived from Domain unless set
	APIBaseURL   string
	SignalingURL string

	// AccessToken authenticates directory calls; guests run without one
	AccessToken string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	// Codec is the signaling wire format, json or msgpack
	Codec string

	MaxDuration        time.Duration
	DoctorWarningLead  time.Duration
	PatientWarningLead time.Duration
	GraceDelay         time.Duration
	ReconnectAttempts  int
	ReconnectBackoff   time.Duration
	RequestTimeout     time.Duration

	// SyntheticMedia sends generated tracks instead of opening devices
	SyntheticMedia bool
}

// Options for loading config with CLI flag overrides. Zero values mean
// "not given".
type Options struct {
	Domain       string
	APIBaseURL   string
	SignalingURL string
	AccessToken  string
	STUNServer   string
	TURNServer   string
	TURNUser     string
	TURNPass     string
	ForceRelay   bool
	Codec        string
	MaxDuration  time.Duration
	Synthetic    bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := pick(opts.Domain, "DOMAIN", DefaultDomain)

	cfg := &Config{
		Domain:       domain,
		APIBaseURL:   pick(opts.APIBaseURL, "CONSULT_API_URL", fmt.Sprintf("https://%s", domain)),
		SignalingURL: pick(opts.SignalingURL, "CONSULT_SIGNALING_URL", fmt.Sprintf("wss://%s/ws/signal", domain)),
		AccessToken:  pick(opts.AccessToken, "CONSULT_ACCESS_TOKEN", ""),
		STUNServer:   pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer:   pick(opts.TURNServer, "TURN_SERVER", DefaultTURN),
		TURNUser:     pick(opts.TURNUser, "TURN_USERNAME", DefaultTURNUser),
		TURNPass:     pick(opts.TURNPass, "TURN_PASSWORD", DefaultTURNPass),
		Codec:        strings.ToLower(pick(opts.Codec, "CONSULT_CODEC", DefaultCodec)),
	}

	var err error
	if cfg.ForceRelay, err = pickBool(opts.ForceRelay, "FORCE_RELAY"); err != nil {
		return nil, err
	}
	if cfg.SyntheticMedia, err = pickBool(opts.Synthetic, "CONSULT_SYNTHETIC_MEDIA"); err != nil {
		return nil, err
	}

	durations := []struct {
		dst  *time.Duration
		flag time.Duration
		env  string
		def  time.Duration
	}{
		{&cfg.MaxDuration, opts.MaxDuration, "CONSULT_MAX_DURATION", DefaultMaxDuration},
		{&cfg.DoctorWarningLead, 0, "CONSULT_DOCTOR_WARNING", DefaultDoctorWarningLead},
		{&cfg.PatientWarningLead, 0, "CONSULT_PATIENT_WARNING", DefaultPatientWarningLead},
		{&cfg.GraceDelay, 0, "CONSULT_GRACE_DELAY", DefaultGraceDelay},
		{&cfg.ReconnectBackoff, 0, "CONSULT_RECONNECT_BACKOFF", DefaultReconnectBackoff},
		{&cfg.RequestTimeout, 0, "CONSULT_REQUEST_TIMEOUT", DefaultRequestTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = pickDuration(d.flag, d.env, d.def); err != nil {
			return nil, err
		}
	}

	if cfg.ReconnectAttempts, err = pickInt(0, "CONSULT_RECONNECT_ATTEMPTS", DefaultReconnectAttempts); err != nil {
		return nil, err
	}

	if cfg.Codec != "json" && cfg.Codec != "msgpack" {
		return nil, fmt.Errorf("unsupported codec %q (want json or msgpack)", cfg.Codec)
	}
	return cfg, nil
}

// GetRoomLink returns the portal URL for joining an appointment's room
func (c *Config) GetRoomLink(appointmentID string) string {
	return fmt.Sprintf("https://%s/consultations/%s", c.Domain, appointmentID)
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(strings.TrimPrefix(c.TURNServer, "turns:"), "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

// RelayServers is the locally configured STUN/TURN list, used when the
// portal does not hand one out.
func (c *Config) RelayServers() []consult.RelayServer {
	var out []consult.RelayServer
	if stun := c.GetSTUNServers(); len(stun) > 0 {
		out = append(out, consult.RelayServer{URLs: stun})
	}
	if turn := c.GetTURNServers(); len(turn) > 0 {
		user, pass := c.GetTURNCredentials()
		out = append(out, consult.RelayServer{URLs: turn, Username: user, Credential: pass})
	}
	return out
}

func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func pickBool(flag bool, env string) (bool, error) {
	if flag {
		return true, nil
	}
	v := os.Getenv(env)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", env, err)
	}
	return b, nil
}

func pickDuration(flag time.Duration, env string, def time.Duration) (time.Duration, error) {
	if flag > 0 {
		return flag, nil
	}
	v := os.Getenv(env)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", env, err)
	}
	return d, nil
}

func pickInt(flag int, env string, def int) (int, error) {
	if flag > 0 {
		return flag, nil
	}
	v := os.Getenv(env)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", env, err)
	}
	return n, nil
}
