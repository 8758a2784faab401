package config

import (
	"errors"
	"time"
)

const (
	DefaultAddr         = ":8080"
	DefaultRedisAddr    = ""
	DefaultRoomTTL      = 2 * time.Hour
	DefaultGuestCodeTTL = 24 * time.Hour
)

// ServerConfig configures the development portal and relay.
type ServerConfig struct {
	Addr      string
	JWTSecret string
	PublicURL string

	// RedisAddr selects the Redis store; empty keeps state in memory
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RoomTTL      time.Duration
	GuestCodeTTL time.Duration
}

type ServerOptions struct {
	Addr      string
	JWTSecret string
	PublicURL string
	RedisAddr string
}

// LoadServer layers flags over environment over defaults, like Load.
func LoadServer(opts ServerOptions) (*ServerConfig, error) {
	cfg := &ServerConfig{
		Addr:          pick(opts.Addr, "CONSULT_ADDR", DefaultAddr),
		JWTSecret:     pick(opts.JWTSecret, "JWT_SECRET", ""),
		RedisAddr:     pick(opts.RedisAddr, "REDIS_ADDR", DefaultRedisAddr),
		RedisPassword: pick("", "REDIS_PASSWORD", ""),
	}
	cfg.PublicURL = pick(opts.PublicURL, "CONSULT_PUBLIC_URL", "http://localhost"+cfg.Addr)

	var err error
	if cfg.RedisDB, err = pickInt(0, "REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RoomTTL, err = pickDuration(0, "CONSULT_ROOM_TTL", DefaultRoomTTL); err != nil {
		return nil, err
	}
	if cfg.GuestCodeTTL, err = pickDuration(0, "CONSULT_GUEST_CODE_TTL", DefaultGuestCodeTTL); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, errMissingSecret
	}
	return cfg, nil
}

var errMissingSecret = errors.New("JWT secret required (--jwt-secret or JWT_SECRET)")
