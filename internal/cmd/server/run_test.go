package serverrun

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/podium/internal/config"
	pebblestore "github.com/rzbill/podium/internal/storage/pebble"
)

func TestDataDirFallback(t *testing.T) {
	opts := Options{DataDir: ""}
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	if opts.DataDir == "" {
		t.Fatal("expected DataDir after fallback")
	}
	if !strings.Contains(strings.ToLower(opts.DataDir), "podium") && !strings.HasPrefix(opts.DataDir, "./") {
		t.Fatalf("unexpected fallback dir %s", opts.DataDir)
	}
}

func TestStoreSubdirectory(t *testing.T) {
	base := "/tmp/podium"
	if got := filepath.Join(base, "store"); got != "/tmp/podium/store" {
		t.Fatalf("store dir: %s", got)
	}
}

// TestRunIntegration boots the full pipeline against the memory ledger and
// verifies a clean shutdown.
func TestRunIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	cfg := cfgpkg.Default()
	cfg.Partitions = 2
	cfg.RecoverOnBoot = true

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	err := Run(ctx, Options{
		DataDir:  t.TempDir(),
		HTTPAddr: "127.0.0.1:0",
		Fsync:    pebblestore.FsyncModeNever,
		Config:   cfg,
	})
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}
