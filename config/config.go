// Package config loads the demo binary's settings from the environment,
// following the teacher's "load .env, then read typed fields with
// defaults, validate once" shape.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all demo-binary configuration.
type Config struct {
	// ListenAddr is the QUIC listen address, e.g. "0.0.0.0:4433".
	ListenAddr string

	// RootSecret is the hex-encoded Ed25519 seed for the root issuer
	// signer that every Reference in this process ultimately chains back
	// to. If absent, the demo binary generates an ephemeral root signer for
	// that run only; the generated secret is neither printed nor stored.
	RootSecret []byte

	// MaxShare is the default max_share bound new root References are
	// issued with.
	MaxShare uint32

	// MaxFrameSize is a codec frame size cap, checked here to be positive.
	// The demo binary does not apply it: its codec.Framed values keep
	// codec.DefaultMaxFrameSize.
	MaxFrameSize int

	// DispatchMaxCount bounds concurrent in-flight dispatch calls.
	DispatchMaxCount int64

	// BearerSecret is the HMAC key for reference.BearerManager.
	BearerSecret []byte

	// BearerTTL is how long issued bearer tokens remain valid.
	BearerTTL time.Duration
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first if present (dev convenience; no-op in
// production where real env vars are already set).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:       getEnv("RPCCAPS_LISTEN_ADDR", "0.0.0.0:4433"),
		MaxShare:         uint32(getEnvInt("RPCCAPS_MAX_SHARE", 64)),
		MaxFrameSize:     getEnvInt("RPCCAPS_MAX_FRAME_SIZE", 16<<20),
		DispatchMaxCount: int64(getEnvInt("RPCCAPS_DISPATCH_MAX_COUNT", 256)),
		BearerTTL:        time.Duration(getEnvInt("RPCCAPS_BEARER_TTL_MINUTES", 60)) * time.Minute,
	}

	rootHex := getEnv("RPCCAPS_ROOT_SECRET", "")
	if rootHex != "" {
		secret, err := hex.DecodeString(rootHex)
		if err != nil {
			return nil, fmt.Errorf("config: RPCCAPS_ROOT_SECRET must be valid hex: %w", err)
		}
		cfg.RootSecret = secret
	}

	bearerHex := getEnv("RPCCAPS_BEARER_SECRET", "")
	if bearerHex == "" {
		return nil, fmt.Errorf("config: RPCCAPS_BEARER_SECRET env var is required (32-byte hex)")
	}
	bearerSecret, err := hex.DecodeString(bearerHex)
	if err != nil {
		return nil, fmt.Errorf("config: RPCCAPS_BEARER_SECRET must be valid hex: %w", err)
	}
	if len(bearerSecret) < 32 {
		return nil, fmt.Errorf("config: RPCCAPS_BEARER_SECRET must be at least 32 bytes (64 hex chars)")
	}
	cfg.BearerSecret = bearerSecret

	if cfg.MaxFrameSize <= 0 {
		return nil, fmt.Errorf("config: RPCCAPS_MAX_FRAME_SIZE must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
