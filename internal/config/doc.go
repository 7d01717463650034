// Package config provides loading and environment overlay for the broker's
// runtime configuration: the root queue directory, the HTTP front-end
// address, logging settings, the periodic expiration sweep interval, and
// the default plus named per-queue and per-alias overrides consumed by
// internal/collection.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/kestrel.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
package config
