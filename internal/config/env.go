package config

import (
	"os"
	"strconv"
)

// FromEnv overlays KESTREL_* environment variables onto cfg. Only the
// top-level and default-queue-config knobs are exposed this way; per-queue
// and per-alias overrides are file-only.
func FromEnv(cfg *Config) {
	if v := os.Getenv("KESTREL_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("KESTREL_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("KESTREL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("KESTREL_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("KESTREL_EXPIRY_SWEEP_INTERVAL_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.ExpirySweepIntervalMs = n
		}
	}
	if v := os.Getenv("KESTREL_DEFAULT_MAX_ITEMS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Default.MaxItems = n
		}
	}
	if v := os.Getenv("KESTREL_DEFAULT_MAX_ITEM_SIZE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Default.MaxItemSizeBytes = n
		}
	}
	if v := os.Getenv("KESTREL_DEFAULT_MAX_QUEUE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Default.MaxQueueBytes = n
		}
	}
	if v := os.Getenv("KESTREL_DEFAULT_MAX_AGE_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Default.MaxAgeMs = n
		}
	}
	if v := os.Getenv("KESTREL_DEFAULT_MAX_IDLE_BEFORE_EXPIRATION_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Default.MaxIdleBeforeExpirationMs = n
		}
	}
}
