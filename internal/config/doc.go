// Package config provides loading and environment overlay for Podium
// runtime configuration. It exposes a Default() baseline, JSON file
// loading, and a PODIUM_* environment overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/podium.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
package config
