// Package runtime wires storage and config into a single-node Podium
// instance. It exposes Open/Close, basic health checks, and helpers to
// open the event logs used by higher-level components.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	logs, _ := rt.OpenRawScoreLogs()
package runtime
