package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.HTTPAddr != ":4703" {
		t.Fatalf("unexpected default http addr: %s", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("unexpected default log level: %s", cfg.LogLevel)
	}
	if cfg.ExpirySweepInterval() != 30*time.Second {
		t.Fatalf("unexpected default sweep interval: %v", cfg.ExpirySweepInterval())
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "kestrel.json")
	data := []byte(`{
		"dataDir": "/tmp/kestrel-data",
		"httpAddr": ":9999",
		"default": {"maxItems": 100},
		"queues": {"orders": {"maxItems": 50, "maxAgeMs": 60000}},
		"aliases": {"m": {"targets": ["t1", "t2"], "filter": "headers[\"kind\"] == \"urgent\""}}
	}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/tmp/kestrel-data" {
		t.Fatalf("unexpected data dir: %s", cfg.DataDir)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTPAddr)
	}
	if cfg.DefaultQueueConfig().MaxItems != 100 {
		t.Fatalf("unexpected default max items")
	}
	qc := cfg.QueueConfigs()
	if qc["orders"].MaxItems != 50 || qc["orders"].MaxAge != time.Minute {
		t.Fatalf("unexpected orders queue config: %+v", qc["orders"])
	}
	ac := cfg.AliasConfigs()
	if ac["m"].Name != "m" || len(ac["m"].Targets) != 2 || ac["m"].Filter == "" {
		t.Fatalf("unexpected alias config: %+v", ac["m"])
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	os.Setenv("KESTREL_DATA_DIR", "/var/lib/kestrel-test")
	os.Setenv("KESTREL_HTTP_ADDR", ":8080")
	os.Setenv("KESTREL_DEFAULT_MAX_ITEMS", "42")
	t.Cleanup(func() {
		os.Unsetenv("KESTREL_DATA_DIR")
		os.Unsetenv("KESTREL_HTTP_ADDR")
		os.Unsetenv("KESTREL_DEFAULT_MAX_ITEMS")
	})
	FromEnv(&cfg)
	if cfg.DataDir != "/var/lib/kestrel-test" {
		t.Fatalf("env override data dir")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("env override http addr")
	}
	if cfg.Default.MaxItems != 42 {
		t.Fatalf("env override default max items")
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "nested", "kestrel.json")
	cfg := Default()
	cfg.DataDir = "/data/kestrel"
	cfg.Queues = map[string]QueueConfig{"q": {MaxItems: 7}}
	if err := Save(file, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.DataDir != cfg.DataDir || got.Queues["q"].MaxItems != 7 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}
