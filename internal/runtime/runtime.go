// Package runtime is the composition root: it wires configuration, logging,
// and the queue collection into a single running broker instance.
package runtime

import (
	"context"
	"errors"

	"github.com/sudhishp/kestrel/internal/collection"
	cfgpkg "github.com/sudhishp/kestrel/internal/config"
	"github.com/sudhishp/kestrel/pkg/log"
)

// Options configure Runtime.Open.
type Options struct {
	Config cfgpkg.Config
	Logger log.Logger
}

// Runtime wires the configured root directory and process configuration
// into a live Collection.
type Runtime struct {
	collection *collection.Collection
	config     cfgpkg.Config
	logger     log.Logger
}

// Open verifies the configured root directory, boots the queue collection
// (running its on-disk discovery scan and initial alias reconciliation),
// and starts the periodic expiration sweeper.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger()
	}
	col, err := collection.Open(
		opts.Config.DataDir,
		opts.Config.DefaultQueueConfig(),
		opts.Config.QueueConfigs(),
		opts.Config.AliasConfigs(),
		logger,
	)
	if err != nil {
		return nil, err
	}
	col.StartExpirySweeper(opts.Config.ExpirySweepInterval())
	return &Runtime{collection: col, config: opts.Config, logger: logger}, nil
}

// Close shuts the collection down: every queue handle is closed
// synchronously before Close returns.
func (r *Runtime) Close() error {
	if r.collection == nil {
		return nil
	}
	return r.collection.Shutdown()
}

// CheckHealth reports whether the collection is still accepting operations.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.collection == nil {
		return errors.New("runtime: collection not open")
	}
	if r.collection.IsShuttingDown() {
		return errors.New("runtime: collection is shutting down")
	}
	return nil
}

// Collection exposes the OperationFacade for callers (HTTP front-end, CLI).
func (r *Runtime) Collection() *collection.Collection { return r.collection }

// Config returns the runtime's active configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Reload re-reads the on-disk config file (if any) at path, applies the
// KESTREL_* env overlay, and pushes the result through Collection.Reload.
func (r *Runtime) Reload(path string) error {
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return err
	}
	cfgpkg.FromEnv(&cfg)
	r.config = cfg
	return r.collection.Reload(cfg.DefaultQueueConfig(), cfg.QueueConfigs(), cfg.AliasConfigs())
}
