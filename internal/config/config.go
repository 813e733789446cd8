package config

import (
	"encoding/json"
	"os"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// Partitions is the raw score log partition count. Fixed for the life
	// of a data dir.
	Partitions int `json:"partitions"`
	// Channel names the leaderboard notification channel.
	Channel string `json:"channel"`
	// TopN is the rendered snapshot size.
	TopN int `json:"topN"`
	// SnapshotTTLMs bounds how long a cached snapshot serves reads.
	SnapshotTTLMs int `json:"snapshotTtlMs"`
	// AllowRegress accepts score submissions that do not improve.
	AllowRegress bool `json:"allowRegress"`
	// RecoverOnBoot rescans the ledger into the store at startup.
	RecoverOnBoot bool `json:"recoverOnBoot"`

	Ledger     LedgerConfig     `json:"ledger"`
	Publisher  PublisherConfig  `json:"publisher"`
	Projection ProjectionConfig `json:"projection"`
	Notify     NotifyConfig     `json:"notify"`
}

// LedgerConfig selects and configures the durable store.
type LedgerConfig struct {
	// Driver is "postgres" or "memory".
	Driver string `json:"driver"`
	// DSN is the postgres connection string.
	DSN string `json:"dsn"`
	// OutboxRetentionMs deletes processed outbox rows older than this when
	// >0.
	OutboxRetentionMs int64 `json:"outboxRetentionMs"`
}

// PublisherConfig paces the outbox drain loop.
type PublisherConfig struct {
	BatchSize  int `json:"batchSize"`
	IdlePollMs int `json:"idlePollMs"`
}

// ProjectionConfig shapes the consumer group.
type ProjectionConfig struct {
	Group         string `json:"group"`
	MaxAttempts   int    `json:"maxAttempts"`
	BackoffBaseMs int    `json:"backoffBaseMs"`
	BackoffCapMs  int    `json:"backoffCapMs"`
	LeaseTTLMs    int    `json:"leaseTtlMs"`
}

// NotifyConfig shapes throttling and fan-out.
type NotifyConfig struct {
	// ThrottleMs is the minimum interval between score-only notifications.
	ThrottleMs int `json:"throttleMs"`
	// RetentionAgeMs trims notification history older than this when >0.
	RetentionAgeMs int64 `json:"retentionAgeMs"`
	// RatePerSec caps deliveries per subscriber connection.
	RatePerSec float64 `json:"ratePerSec"`
	// Burst is the per-connection limiter burst.
	Burst int `json:"burst"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Partitions:    16,
		Channel:       "global",
		TopN:          10,
		SnapshotTTLMs: 5000,
		RecoverOnBoot: true,
		Ledger: LedgerConfig{
			Driver:            "memory",
			OutboxRetentionMs: 24 * 60 * 60 * 1000,
		},
		Publisher: PublisherConfig{
			BatchSize:  256,
			IdlePollMs: 25,
		},
		Projection: ProjectionConfig{
			Group:         "projection",
			MaxAttempts:   5,
			BackoffBaseMs: 200,
			BackoffCapMs:  30000,
			LeaseTTLMs:    10000,
		},
		Notify: NotifyConfig{
			ThrottleMs:     1000,
			RetentionAgeMs: 60 * 60 * 1000,
			RatePerSec:     10,
			Burst:          2,
		},
	}
}

// Load reads configuration from a JSON file. If path is empty, returns
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
