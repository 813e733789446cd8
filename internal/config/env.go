package config

import (
	"os"
	"strconv"
)

// FromEnv overlays PODIUM_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("PODIUM_PARTITIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Partitions = n
		}
	}
	if v := os.Getenv("PODIUM_CHANNEL"); v != "" {
		cfg.Channel = v
	}
	if v := os.Getenv("PODIUM_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TopN = n
		}
	}
	if v := os.Getenv("PODIUM_SNAPSHOT_TTL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SnapshotTTLMs = n
		}
	}
	if v := os.Getenv("PODIUM_ALLOW_REGRESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AllowRegress = b
		}
	}
	if v := os.Getenv("PODIUM_RECOVER_ON_BOOT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RecoverOnBoot = b
		}
	}
	if v := os.Getenv("PODIUM_LEDGER_DRIVER"); v != "" {
		cfg.Ledger.Driver = v
	}
	if v := os.Getenv("PODIUM_LEDGER_DSN"); v != "" {
		cfg.Ledger.DSN = v
	}
	if v := os.Getenv("PODIUM_PUBLISHER_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Publisher.BatchSize = n
		}
	}
	if v := os.Getenv("PODIUM_PUBLISHER_IDLE_POLL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Publisher.IdlePollMs = n
		}
	}
	if v := os.Getenv("PODIUM_PROJECTION_GROUP"); v != "" {
		cfg.Projection.Group = v
	}
	if v := os.Getenv("PODIUM_PROJECTION_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Projection.MaxAttempts = n
		}
	}
	if v := os.Getenv("PODIUM_PROJECTION_LEASE_TTL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Projection.LeaseTTLMs = n
		}
	}
	if v := os.Getenv("PODIUM_NOTIFY_THROTTLE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Notify.ThrottleMs = n
		}
	}
	if v := os.Getenv("PODIUM_NOTIFY_RATE_PER_SEC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Notify.RatePerSec = f
		}
	}
	if v := os.Getenv("PODIUM_NOTIFY_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Notify.Burst = n
		}
	}
}
