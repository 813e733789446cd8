package runtime

import (
	"context"
	"testing"

	cfgpkg "github.com/rzbill/podium/internal/config"
	pebblestore "github.com/rzbill/podium/internal/storage/pebble"
)

func TestOpenCloseHealth(t *testing.T) {
	rt, err := Open(Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	defer rt.Close()
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestOpenRawScoreLogs(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Partitions = 4
	rt, err := Open(Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfg})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	logs, err := rt.OpenRawScoreLogs()
	if err != nil {
		t.Fatalf("open logs: %v", err)
	}
	if len(logs) != 4 {
		t.Fatalf("expected 4 partitions, got %d", len(logs))
	}
	for p, l := range logs {
		if l.Partition() != uint32(p) || l.Topic() != RawScoresTopic {
			t.Fatalf("partition %d misconfigured: topic=%s part=%d", p, l.Topic(), l.Partition())
		}
	}
}
