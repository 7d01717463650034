package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sudhishp/kestrel/internal/alias"
	"github.com/sudhishp/kestrel/internal/pqueue"
)

// QueueConfig is the JSON-friendly shape of a per-queue config: durations
// are expressed in milliseconds since encoding/json has no native
// time.Duration support.
type QueueConfig struct {
	MaxItems                  int64 `json:"maxItems"`
	MaxItemSizeBytes          int64 `json:"maxItemSizeBytes"`
	MaxQueueBytes             int64 `json:"maxQueueBytes"`
	MaxAgeMs                  int64 `json:"maxAgeMs"`
	MaxExpirySweep            int   `json:"maxExpirySweep"`
	MaxIdleBeforeExpirationMs int64 `json:"maxIdleBeforeExpirationMs"`
	DefaultItemExpiryMs       int64 `json:"defaultItemExpiryMs"`
}

func (q QueueConfig) toPQueue() pqueue.Config {
	return pqueue.Config{
		MaxItems:                q.MaxItems,
		MaxItemSizeBytes:        q.MaxItemSizeBytes,
		MaxQueueBytes:           q.MaxQueueBytes,
		MaxAge:                  time.Duration(q.MaxAgeMs) * time.Millisecond,
		MaxExpirySweep:          q.MaxExpirySweep,
		MaxIdleBeforeExpiration: time.Duration(q.MaxIdleBeforeExpirationMs) * time.Millisecond,
		DefaultItemExpiry:       time.Duration(q.DefaultItemExpiryMs) * time.Millisecond,
	}
}

// AliasConfig is the JSON-friendly shape of an alias entry. The alias's name
// is the key it is stored under in Config.Aliases, not a field here.
type AliasConfig struct {
	Targets []string `json:"targets"`
	Filter  string   `json:"filter,omitempty"`
}

func (a AliasConfig) toAlias(name string) alias.Config {
	return alias.Config{Name: name, Targets: a.Targets, Filter: a.Filter}
}

// Config is the top-level configuration loaded from file/env: the root
// data directory the collection scans and writes under, the HTTP front-end
// address, logging settings, the periodic expiration sweep interval, the
// default queue config, and named per-queue and per-alias overrides.
type Config struct {
	DataDir               string                 `json:"dataDir"`
	HTTPAddr              string                 `json:"httpAddr"`
	LogLevel              string                 `json:"logLevel"`
	LogFormat             string                 `json:"logFormat"`
	ExpirySweepIntervalMs int64                  `json:"expirySweepIntervalMs"`
	Default               QueueConfig            `json:"default"`
	Queues                map[string]QueueConfig `json:"queues"`
	Aliases               map[string]AliasConfig `json:"aliases"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DataDir:               DefaultDataDir(),
		HTTPAddr:              ":4703",
		LogLevel:              "info",
		LogFormat:             "text",
		ExpirySweepIntervalMs: 30_000,
		Default:               QueueConfig{},
		Queues:                map[string]QueueConfig{},
		Aliases:               map[string]AliasConfig{},
	}
}

// Load reads configuration from a JSON file, overlaid onto Default(). If
// path is empty, returns defaults.
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

// Save writes cfg as indented JSON to path, creating parent directories as
// needed. The result can be read back with Load.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// DefaultQueueConfig converts the JSON-friendly default queue config into
// the pqueue.Config the collection package consumes.
func (c Config) DefaultQueueConfig() pqueue.Config {
	return c.Default.toPQueue()
}

// QueueConfigs converts the named per-queue overrides into pqueue.Config
// values, keyed by queue name.
func (c Config) QueueConfigs() map[string]pqueue.Config {
	out := make(map[string]pqueue.Config, len(c.Queues))
	for name, qc := range c.Queues {
		out[name] = qc.toPQueue()
	}
	return out
}

// AliasConfigs converts the named alias overrides into alias.Config values,
// keyed by alias name.
func (c Config) AliasConfigs() map[string]alias.Config {
	out := make(map[string]alias.Config, len(c.Aliases))
	for name, ac := range c.Aliases {
		out[name] = ac.toAlias(name)
	}
	return out
}

// ExpirySweepInterval returns the configured periodic sweep interval as a
// time.Duration.
func (c Config) ExpirySweepInterval() time.Duration {
	return time.Duration(c.ExpirySweepIntervalMs) * time.Millisecond
}
