package runtime

import (
	"context"
	"errors"
	"time"

	cfgpkg "github.com/rzbill/podium/internal/config"
	"github.com/rzbill/podium/internal/eventlog"
	pebblestore "github.com/rzbill/podium/internal/storage/pebble"
)

// RawScoresTopic is the partitioned log carrying published score events.
const RawScoresTopic = "scores.raw"

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// Runtime wires storage and config for a single-node instance.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: opts.DataDir, Fsync: opts.Fsync, FsyncInterval: opts.FsyncInterval})
	if err != nil {
		return nil, err
	}
	return &Runtime{db: db, config: opts.Config}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return nil
}

// OpenLog opens an event log for the given topic/partition.
func (r *Runtime) OpenLog(topic string, partition uint32) (*eventlog.Log, error) {
	return eventlog.OpenLog(r.db, topic, partition)
}

// OpenRawScoreLogs opens all configured partitions of the raw score log.
func (r *Runtime) OpenRawScoreLogs() ([]*eventlog.Log, error) {
	parts := r.config.Partitions
	if parts <= 0 {
		parts = 1
	}
	logs := make([]*eventlog.Log, parts)
	for p := 0; p < parts; p++ {
		l, err := eventlog.OpenLog(r.db, RawScoresTopic, uint32(p))
		if err != nil {
			return nil, err
		}
		logs[p] = l
	}
	return logs, nil
}

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
