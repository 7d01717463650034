// Package collection implements the queue collection registry: lifecycle
// management for every named queue served from one root directory, the
// master+tag fanout naming convention, alias indirection, atomic per-queue
// operations, and global shutdown semantics. The per-queue storage engine
// itself lives in internal/pqueue and the alias forwarder in internal/alias;
// this package is the coordinator above them.
package collection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sudhishp/kestrel/internal/alias"
	"github.com/sudhishp/kestrel/internal/pqueue"
	"github.com/sudhishp/kestrel/pkg/log"
)

// Collection is the single owned structure that encapsulates the registry,
// the alias registry, the fanout index, the shutting-down flag, and the
// configuration binder, all guarded by one lock. Callers
// never reach into the registries directly - only the methods below are
// public.
type Collection struct {
	mu           sync.Mutex
	root         string
	shuttingDown bool
	registry     *registry
	aliases      *aliasRegistry
	creating     map[string]chan struct{}
	binder       *configBinder
	logger       log.Logger
	sweepStop    chan struct{}

	totalItems uint64
	getHits    uint64
	getMisses  uint64
}

// Open verifies the root directory, builds a Collection, runs the boot-time
// scan that materializes every queue with recoverable on-disk state, and
// reconciles the initial alias configuration. Open corresponds to
// the boot-time lifecycle sequence.
func Open(root string, def QueueConfig, queueConfigs map[string]QueueConfig, aliasConfigs map[string]AliasConfig, logger log.Logger) (*Collection, error) {
	if logger == nil {
		logger = log.NewLogger()
	}
	if err := ensureRootDir(root); err != nil {
		return nil, err
	}
	c := &Collection{
		root:     root,
		registry: newRegistry(),
		aliases:  newAliasRegistry(),
		creating: make(map[string]chan struct{}),
		binder:   newConfigBinder(def, queueConfigs, aliasConfigs),
		logger:   logger.WithComponent("collection"),
	}
	if err := c.bootScan(); err != nil {
		return nil, err
	}
	if err := c.reconcileAliases(aliasConfigs); err != nil {
		return nil, err
	}
	return c, nil
}

// ensureRootDir enforces the boot check: the root path must be
// a directory and writable, creating it if absent, failing hard otherwise.
func ensureRootDir(root string) error {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(root, 0o755); mkErr != nil {
			return fmt.Errorf("%w: %v", ErrInaccessibleQueuePath, mkErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInaccessibleQueuePath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInaccessibleQueuePath, root)
	}
	probe := diskPath(root, ".kestrel-write-probe")
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInaccessibleQueuePath, err)
	}
	f.Close()
	_ = os.Remove(probe)
	return nil
}

// bootScan discovers every queue name with recoverable on-disk state under
// root and materializes it via getOrCreate.
func (c *Collection) bootScan() error {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInaccessibleQueuePath, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		raw, err := nameFromDiskEntry(e.Name())
		if err != nil {
			c.logger.Warn("skipping unrecoverable queue directory", log.Str("dir", e.Name()), log.Err(err))
			continue
		}
		n, err := Resolve(raw)
		if err != nil {
			c.logger.Warn("skipping queue directory with an illegal name", log.Str("dir", e.Name()), log.Err(err))
			continue
		}
		if _, err := c.getOrCreate(n); err != nil {
			c.logger.Warn("failed to load queue at boot", log.Str("name", n.Raw), log.Err(err))
		}
	}
	return nil
}

// getOrCreate returns the registry's live handle for n: absent while
// shutting down; otherwise an existing handle, or a newly constructed one
// with creation serialized so concurrent callers for the same not-yet-
// existing name converge on the same handle, built exactly once. The
// coarse lock is released for the duration of the actual journal open, so a
// slow queue setup never blocks unrelated registry traffic.
func (c *Collection) getOrCreate(n Name) (*pqueue.Queue, error) {
	c.mu.Lock()
	if c.shuttingDown {
		c.mu.Unlock()
		return nil, nil
	}
	if q := c.registry.lookup(n.Raw); q != nil {
		c.mu.Unlock()
		return q, nil
	}
	if ch, ok := c.creating[n.Raw]; ok {
		c.mu.Unlock()
		<-ch
		c.mu.Lock()
		q := c.registry.lookup(n.Raw)
		c.mu.Unlock()
		return q, nil
	}
	ch := make(chan struct{})
	c.creating[n.Raw] = ch
	cfg := c.binder.queueConfigFor(n)
	c.mu.Unlock()

	q, err := pqueue.Open(n.Raw, diskPath(c.root, n.Raw), cfg, c.logger.WithComponent("pqueue"))

	c.mu.Lock()
	delete(c.creating, n.Raw)
	if err == nil {
		c.registry.put(n, q)
	}
	close(ch)
	c.mu.Unlock()
	return q, err
}

// lookup is QueueRegistry.lookup: the live handle if present, else nil -
// never creates, and always absent once shutting down.
func (c *Collection) lookup(n Name) *pqueue.Queue {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shuttingDown {
		return nil
	}
	return c.registry.lookup(n.Raw)
}

func (c *Collection) lookupAlias(name string) *alias.Queue {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shuttingDown {
		return nil
	}
	return c.aliases.lookup(name)
}

func (c *Collection) fanoutChildren(master string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.children(master)
}

// IsShuttingDown reports whether Shutdown has been called.
func (c *Collection) IsShuttingDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shuttingDown
}

// ---- queue operations ----

// Add enqueues data onto the named queue (or alias), returning whether it
// was delivered. Resolution order: alias delegation, then fanout broadcast to any existing
// children of a master name, then (unconditionally) the named queue itself.
func (c *Collection) Add(ctx context.Context, rawName string, data []byte, expiresAtMs int64) (bool, error) {
	if err := CheckCharacters(rawName); err != nil {
		return false, err
	}
	if al := c.lookupAlias(rawName); al != nil {
		return al.Add(ctx, data, expiresAtMs, nil), nil
	}
	return c.addQueue(ctx, rawName, data, expiresAtMs)
}

func (c *Collection) addQueue(ctx context.Context, rawName string, data []byte, expiresAtMs int64) (bool, error) {
	n, err := Resolve(rawName)
	if err != nil {
		return false, err
	}

	delivered := false
	if !n.IsFanoutChild {
		// rawName is a master name: broadcast independently to every
		// existing child before (unconditionally) adding to the master's
		// own queue below. A failure on one child does not abort siblings.
		for _, child := range c.fanoutChildren(n.Raw) {
			if ok, _ := c.addQueue(ctx, child, data, expiresAtMs); ok {
				delivered = true
			}
		}
	}

	q, err := c.getOrCreate(n)
	if err != nil {
		return delivered, err
	}
	if q == nil {
		return delivered, nil // shutting down
	}
	if err := q.Add(ctx, data, expiresAtMs); err != nil {
		return delivered, err
	}
	atomic.AddUint64(&c.totalItems, 1)
	return true, nil
}

// Remove pops the next item from the named queue, optionally reserving it
// (transactional) or leaving it in place (peek). Aliases always resolve to
// "no item". The returned bool reports whether an item was found. A queue
// closed out from under a blocked wait (shutdown, or a racing Delete)
// resolves to "no item" rather than an error.
func (c *Collection) Remove(ctx context.Context, rawName string, deadline time.Time, transactional, peek bool) (pqueue.Item, pqueue.Xid, bool, error) {
	if err := CheckCharacters(rawName); err != nil {
		return pqueue.Item{}, pqueue.Xid{}, false, err
	}
	if c.lookupAlias(rawName) != nil {
		return pqueue.Item{}, pqueue.Xid{}, false, nil
	}
	n, err := Resolve(rawName)
	if err != nil {
		return pqueue.Item{}, pqueue.Xid{}, false, err
	}
	q := c.lookup(n)
	if q == nil {
		atomic.AddUint64(&c.getMisses, 1)
		return pqueue.Item{}, pqueue.Xid{}, false, nil
	}

	var item pqueue.Item
	var xid pqueue.Xid
	var found bool
	if peek {
		item, found, err = q.WaitPeek(ctx, deadline)
	} else {
		item, xid, found, err = q.WaitRemove(ctx, deadline, transactional)
	}
	if errors.Is(err, pqueue.ErrClosed) {
		atomic.AddUint64(&c.getMisses, 1)
		return pqueue.Item{}, pqueue.Xid{}, false, nil
	}
	if err != nil {
		return pqueue.Item{}, pqueue.Xid{}, false, err
	}
	if found {
		atomic.AddUint64(&c.getHits, 1)
	} else {
		atomic.AddUint64(&c.getMisses, 1)
	}
	return item, xid, found, nil
}

// Unremove returns a reserved item to the head of its queue. Lookup without
// create; no-op if the queue is absent.
func (c *Collection) Unremove(ctx context.Context, rawName string, xid pqueue.Xid) error {
	n, err := Resolve(rawName)
	if err != nil {
		return nil
	}
	q := c.lookup(n)
	if q == nil {
		return nil
	}
	_, err = q.Unremove(ctx, xid)
	return err
}

// ConfirmRemove permanently discards a reserved item. Lookup without
// create; no-op if the queue is absent.
func (c *Collection) ConfirmRemove(ctx context.Context, rawName string, xid pqueue.Xid) error {
	n, err := Resolve(rawName)
	if err != nil {
		return nil
	}
	q := c.lookup(n)
	if q == nil {
		return nil
	}
	_, err = q.ConfirmRemove(ctx, xid)
	return err
}

// Flush discards every item currently in the named queue. Lookup without
// create; no-op if absent.
func (c *Collection) Flush(ctx context.Context, rawName string) error {
	n, err := Resolve(rawName)
	if err != nil {
		return nil
	}
	q := c.lookup(n)
	if q == nil {
		return nil
	}
	return q.Flush(ctx)
}

// Delete closes the queue's handle, destroys its journal, removes it from
// the map and (if a fanout child) from its master's child set. No-op after
// shutdown or if absent.
func (c *Collection) Delete(rawName string) error {
	n, err := Resolve(rawName)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.shuttingDown {
		c.mu.Unlock()
		return nil
	}
	q := c.registry.lookup(n.Raw)
	if q == nil {
		c.mu.Unlock()
		return nil
	}
	c.registry.remove(n)
	c.mu.Unlock()

	if err := q.Close(); err != nil {
		return err
	}
	return q.DestroyJournal()
}

// FlushExpired discards a single queue's expired items and returns the count.
func (c *Collection) FlushExpired(ctx context.Context, rawName string) (int, error) {
	n, err := Resolve(rawName)
	if err != nil {
		return 0, err
	}
	q := c.lookup(n)
	if q == nil {
		return 0, nil
	}
	return q.DiscardExpired(ctx, time.Now().UnixMilli(), 0)
}

// FlushAllExpired discards expired items across every live queue and
// returns the total count. No-op while shutting down.
func (c *Collection) FlushAllExpired(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.shuttingDown {
		c.mu.Unlock()
		return 0, nil
	}
	snap := c.registry.snapshot()
	c.mu.Unlock()

	total := 0
	for _, q := range snap {
		n, err := q.DiscardExpired(ctx, time.Now().UnixMilli(), 0)
		if err != nil {
			continue
		}
		total += n
	}
	return total, nil
}

// ExpireQueue deletes the named queue if it reports readiness for
// expiration.
func (c *Collection) ExpireQueue(rawName string) (bool, error) {
	n, err := Resolve(rawName)
	if err != nil {
		return false, err
	}
	q := c.lookup(n)
	if q == nil {
		return false, nil
	}
	if !q.IsReadyForExpiration(time.Now()) {
		return false, nil
	}
	return true, c.Delete(rawName)
}

// DeleteExpiredQueues deletes every live queue ready for expiration and
// returns the count.
func (c *Collection) DeleteExpiredQueues() (int, error) {
	c.mu.Lock()
	if c.shuttingDown {
		c.mu.Unlock()
		return 0, nil
	}
	snap := c.registry.snapshot()
	c.mu.Unlock()

	now := time.Now()
	count := 0
	for name, q := range snap {
		if q.IsReadyForExpiration(now) {
			if err := c.Delete(name); err == nil {
				count++
			}
		}
	}
	return count, nil
}

// Stats returns a queue's or alias's dumpStats() snapshot, and whether the
// name resolved to anything live.
func (c *Collection) Stats(rawName string) (map[string]string, bool) {
	if al := c.lookupAlias(rawName); al != nil {
		return al.DumpStats(), true
	}
	n, err := Resolve(rawName)
	if err != nil {
		return nil, false
	}
	q := c.lookup(n)
	if q == nil {
		return nil, false
	}
	return q.DumpStats(), true
}

// RemoveStats resets a queue's cumulative counters (removeStats()).
func (c *Collection) RemoveStats(rawName string) {
	n, err := Resolve(rawName)
	if err != nil {
		return
	}
	if q := c.lookup(n); q != nil {
		q.RemoveStats()
	}
}

// Shutdown is idempotent: it sets the shutting-down flag, then closes every
// handle synchronously so journals are fully flushed before it returns.
func (c *Collection) Shutdown() error {
	c.StopExpirySweeper()

	c.mu.Lock()
	if c.shuttingDown {
		c.mu.Unlock()
		return nil
	}
	c.shuttingDown = true
	queues := c.registry.clear()
	c.mu.Unlock()

	var firstErr error
	for _, q := range queues {
		if err := q.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Reload atomically replaces the default/per-queue/per-alias config maps,
// re-applies the effective config to every live queue in place (preserving
// handle identity), and reconciles aliases. Reload never creates or
// destroys queues.
func (c *Collection) Reload(def QueueConfig, queueConfigs map[string]QueueConfig, aliasConfigs map[string]AliasConfig) error {
	c.binder.setAll(def, queueConfigs, aliasConfigs)

	c.mu.Lock()
	snap := c.registry.snapshot()
	c.mu.Unlock()
	for name, q := range snap {
		n, err := Resolve(name)
		if err != nil {
			continue
		}
		q.SetConfig(c.binder.queueConfigFor(n))
	}

	return c.reconcileAliases(aliasConfigs)
}

// reconcileAliases updates each configured alias in place if it already
// exists, otherwise creates it. Aliases absent from aliasConfigs are not
// removed (see DESIGN.md). A warning is logged for any name that collides
// between a queue and an alias config.
func (c *Collection) reconcileAliases(aliasConfigs map[string]AliasConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, cfg := range aliasConfigs {
		if _, isLiveQueue := c.registry.queues[name]; isLiveQueue {
			c.logger.Warn("alias name collides with a live queue name; writes will go to the alias",
				log.Str("name", name))
		} else if c.binder.hasQueueConfig(name) {
			c.logger.Warn("alias name collides with a configured queue name; writes will go to the alias",
				log.Str("name", name))
		}

		if existing := c.aliases.lookup(name); existing != nil {
			if err := existing.SetConfig(cfg); err != nil {
				return err
			}
			continue
		}
		aq, err := alias.New(cfg, c.forward)
		if err != nil {
			return err
		}
		c.aliases.put(name, aq)
	}
	return nil
}

// forward is the alias.Forwarder bound to this Collection, letting an
// AliasedQueue deliver to a real queue (and, transitively, its own fanout
// children) without holding a direct registry reference.
func (c *Collection) forward(ctx context.Context, target string, data []byte, expiresAtMs int64) (bool, error) {
	return c.addQueue(ctx, target, data, expiresAtMs)
}

// StartExpirySweeper runs LifecycleCoordinator's periodic expiration sweep
// in the background, discarding expired items
// and deleting queues that have been empty and idle for longer than their
// configured MaxIdleBeforeExpiration. It is a no-op if interval <= 0 or a sweeper is already running.
func (c *Collection) StartExpirySweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.mu.Lock()
	if c.sweepStop != nil {
		c.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	c.sweepStop = stop
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx := context.Background()
				if _, err := c.FlushAllExpired(ctx); err != nil {
					c.logger.Warn("expiry sweep failed", log.Err(err))
				}
				if _, err := c.DeleteExpiredQueues(); err != nil {
					c.logger.Warn("queue expiration sweep failed", log.Err(err))
				}
			}
		}
	}()
}

// StopExpirySweeper stops a sweeper started by StartExpirySweeper, if any.
func (c *Collection) StopExpirySweeper() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sweepStop != nil {
		close(c.sweepStop)
		c.sweepStop = nil
	}
}

// Snapshot aggregates cheap, eventually-consistent counters across every
// live queue: these are summed over live handles and need not be
// consistent across queues.
type Snapshot struct {
	QueueCount   int
	AliasCount   int
	CurrentItems int64
	CurrentBytes int64
	TotalItems   uint64
	GetHits      uint64
	GetMisses    uint64
}

func (c *Collection) Snapshot() Snapshot {
	c.mu.Lock()
	snap := c.registry.snapshot()
	aliasCount := c.aliases.count()
	c.mu.Unlock()

	var items, bytes int64
	for _, q := range snap {
		items += q.Length()
		bytes += q.Bytes()
	}
	return Snapshot{
		QueueCount:   len(snap),
		AliasCount:   aliasCount,
		CurrentItems: items,
		CurrentBytes: bytes,
		TotalItems:   atomic.LoadUint64(&c.totalItems),
		GetHits:      atomic.LoadUint64(&c.getHits),
		GetMisses:    atomic.LoadUint64(&c.getMisses),
	}
}
