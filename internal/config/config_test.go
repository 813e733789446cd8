package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Partitions != 16 {
		t.Fatalf("partitions default: %d", cfg.Partitions)
	}
	if cfg.TopN != 10 || cfg.Channel != "global" {
		t.Fatalf("board defaults: topN=%d channel=%q", cfg.TopN, cfg.Channel)
	}
	if cfg.Ledger.Driver != "memory" {
		t.Fatalf("ledger driver default: %q", cfg.Ledger.Driver)
	}
	if cfg.Projection.MaxAttempts != 5 || cfg.Projection.BackoffBaseMs != 200 {
		t.Fatalf("projection defaults: %+v", cfg.Projection)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "podium.json")
	body := `{"partitions": 4, "topN": 3, "ledger": {"driver": "postgres", "dsn": "postgres://x"}}`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Partitions != 4 || cfg.TopN != 3 {
		t.Fatalf("file overrides lost: %+v", cfg)
	}
	if cfg.Ledger.Driver != "postgres" || cfg.Ledger.DSN != "postgres://x" {
		t.Fatalf("ledger overrides lost: %+v", cfg.Ledger)
	}
	// untouched fields keep defaults
	if cfg.Publisher.BatchSize != 256 {
		t.Fatalf("publisher default lost: %+v", cfg.Publisher)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Partitions != Default().Partitions {
		t.Fatal("empty path must return defaults")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PODIUM_PARTITIONS", "8")
	t.Setenv("PODIUM_LEDGER_DRIVER", "postgres")
	t.Setenv("PODIUM_NOTIFY_RATE_PER_SEC", "2.5")
	t.Setenv("PODIUM_ALLOW_REGRESS", "true")

	cfg := Default()
	FromEnv(&cfg)
	if cfg.Partitions != 8 {
		t.Fatalf("partitions: %d", cfg.Partitions)
	}
	if cfg.Ledger.Driver != "postgres" {
		t.Fatalf("driver: %q", cfg.Ledger.Driver)
	}
	if cfg.Notify.RatePerSec != 2.5 {
		t.Fatalf("rate: %v", cfg.Notify.RatePerSec)
	}
	if !cfg.AllowRegress {
		t.Fatal("allow regress not applied")
	}
}
