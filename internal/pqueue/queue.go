// Package pqueue implements the PersistentQueue collaborator: a single
// durable FIFO with reservation semantics, backed by its own Pebble
// database directory. The collection package (internal/collection) is
// the only intended caller; it owns exactly one live *Queue per name.
package pqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/sudhishp/kestrel/internal/storage/pebble"
	"github.com/sudhishp/kestrel/pkg/id"
	"github.com/sudhishp/kestrel/pkg/log"
)

// ErrClosed is returned by operations on a queue whose Close has already run.
var ErrClosed = errors.New("pqueue: queue is closed")

// Config bounds a single queue's behavior. The zero value of every numeric
// limit means "unbounded", except MaxIdleBeforeExpiration, whose zero value
// means the queue is never offered up for idle expiration.
type Config struct {
	MaxItems                int64
	MaxItemSizeBytes        int64
	MaxQueueBytes           int64
	MaxAge                  time.Duration
	MaxExpirySweep          int
	MaxIdleBeforeExpiration time.Duration
	DefaultItemExpiry       time.Duration
}

// Item is a single dequeued value together with the bookkeeping a caller
// needs to later confirm or abandon it.
type Item struct {
	Seq         uint64
	Data        []byte
	AddedAtMs   int64
	ExpiresAtMs int64 // 0 means no expiry
}

// Xid identifies an in-flight transactional reservation. It is opaque to
// callers and must be round-tripped verbatim to ConfirmRemove or Unremove.
type Xid [16]byte

type reservation struct {
	seq         uint64
	addedAtMs   int64
	expiresAtMs int64
	data        []byte
}

// Queue is one physical queue's live handle: its Pebble database, its
// in-memory reservation table, and the notify channel blocking readers wait
// on.
type Queue struct {
	mu sync.Mutex

	name   string
	db     *pebblestore.DB
	logger log.Logger

	cfg Config

	lastSeq       uint64
	itemCount     int64
	byteCount     int64
	totalEnqueued uint64
	totalDequeued uint64
	expiredItems  uint64
	lastActivity  time.Time

	reservations map[Xid]reservation
	reservedSeqs map[uint64]Xid
	idGen        *id.Generator

	notifyCh chan struct{}
	closed   bool
}

// Open creates or recovers a queue rooted at dataDir. If the directory
// already contains a journal, its items are indexed (but not loaded into
// memory) so Length/Bytes are accurate immediately.
func Open(name, dataDir string, cfg Config, logger log.Logger) (*Queue, error) {
	if logger == nil {
		logger = log.NewLogger()
	}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir: dataDir,
		Fsync:   pebblestore.FsyncModeInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("pqueue: open %s: %w", name, err)
	}

	q := &Queue{
		name:         name,
		db:           db,
		logger:       logger.WithComponent("pqueue").With(log.Str("queue", name)),
		cfg:          cfg,
		reservations: make(map[Xid]reservation),
		reservedSeqs: make(map[uint64]Xid),
		idGen:        id.NewGenerator(),
		notifyCh:     make(chan struct{}),
		lastActivity: time.Now(),
	}

	if err := q.recover(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return q, nil
}

// recover replays the on-disk item index to reconstruct lastSeq, itemCount,
// and byteCount after process restart.
func (q *Queue) recover() error {
	if v, err := q.db.Get([]byte(keyLastSeq)); err == nil {
		q.lastSeq = decodeUint64(v)
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return err
	}

	lo, hi := itemRange()
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return err
	}
	defer iter.Close()
	for ok := iter.First(); ok; ok = iter.Next() {
		q.itemCount++
		if dec, ok2 := decodeItem(iter.Value()); ok2 {
			q.byteCount += int64(len(dec.Payload))
		}
	}
	return nil
}

// SetConfig swaps the effective config in place, the way ConfigurationBinder
// reload requires.
func (q *Queue) SetConfig(cfg Config) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cfg = cfg
}

// Config returns a copy of the queue's current effective config.
func (q *Queue) Config() Config {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cfg
}

// Add appends data to the tail of the queue. expiresAtMs of 0 applies the
// queue's DefaultItemExpiry, else its MaxAge, and means no expiry when
// neither is set; a negative value is rejected.
func (q *Queue) Add(ctx context.Context, data []byte, expiresAtMs int64) error {
	if expiresAtMs < 0 {
		return fmt.Errorf("pqueue: negative expiry")
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if q.cfg.MaxItemSizeBytes > 0 && int64(len(data)) > q.cfg.MaxItemSizeBytes {
		q.mu.Unlock()
		return fmt.Errorf("pqueue: item of %d bytes exceeds max item size %d", len(data), q.cfg.MaxItemSizeBytes)
	}
	if q.cfg.MaxItems > 0 && q.itemCount >= q.cfg.MaxItems {
		q.mu.Unlock()
		return fmt.Errorf("pqueue: queue %q is at capacity (%d items)", q.name, q.cfg.MaxItems)
	}
	if q.cfg.MaxQueueBytes > 0 && q.byteCount+int64(len(data)) > q.cfg.MaxQueueBytes {
		q.mu.Unlock()
		return fmt.Errorf("pqueue: queue %q would exceed max bytes %d", q.name, q.cfg.MaxQueueBytes)
	}

	now := time.Now()
	if expiresAtMs == 0 {
		switch {
		case q.cfg.DefaultItemExpiry > 0:
			expiresAtMs = now.Add(q.cfg.DefaultItemExpiry).UnixMilli()
		case q.cfg.MaxAge > 0:
			expiresAtMs = now.Add(q.cfg.MaxAge).UnixMilli()
		}
	}

	q.lastSeq++
	seq := q.lastSeq
	rec := encodeItem(now.UnixMilli(), expiresAtMs, data)

	b := q.db.NewBatch()
	defer b.Close()
	if err := b.Set(itemKey(seq), rec, nil); err != nil {
		q.mu.Unlock()
		return err
	}
	if expiresAtMs > 0 {
		if err := b.Set(expiryKey(expiresAtMs, seq), []byte{}, nil); err != nil {
			q.mu.Unlock()
			return err
		}
	}
	if err := b.Set([]byte(keyLastSeq), encodeUint64(seq), nil); err != nil {
		q.mu.Unlock()
		return err
	}
	if err := q.db.CommitBatch(ctx, b); err != nil {
		q.mu.Unlock()
		return err
	}

	q.itemCount++
	q.byteCount += int64(len(data))
	q.totalEnqueued++
	q.lastActivity = now
	q.mu.Unlock()

	q.notifyWaiters()
	return nil
}

// notifyWaiters wakes every goroutine blocked in waitForActivity by closing
// the current channel and installing a fresh one, mirroring the
// close-then-recreate pattern used for blocking log reads.
func (q *Queue) notifyWaiters() {
	q.mu.Lock()
	ch := q.notifyCh
	q.notifyCh = make(chan struct{})
	q.mu.Unlock()
	close(ch)
}

// waitForActivity blocks until either Add/Flush/Close signals, ctx is done,
// or deadline elapses. deadline's zero value means wait forever (bounded
// only by ctx).
func (q *Queue) waitForActivity(ctx context.Context, deadline time.Time) bool {
	q.mu.Lock()
	ch := q.notifyCh
	q.mu.Unlock()

	if deadline.IsZero() {
		select {
		case <-ch:
			return true
		case <-ctx.Done():
			return false
		}
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// nextVisible scans from the head for the first item that is neither
// reserved nor expired, discarding expired items it encounters along the
// way. Caller must hold q.mu.
func (q *Queue) nextVisible(batch *pebble.Batch) (Item, bool, error) {
	lo, hi := itemRange()
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return Item{}, false, err
	}
	defer iter.Close()

	now := time.Now().UnixMilli()
	for ok := iter.First(); ok; ok = iter.Next() {
		seq, valid := parseSeqFromItemKey(iter.Key())
		if !valid {
			continue
		}
		if _, reserved := q.reservedSeqs[seq]; reserved {
			continue
		}
		dec, ok2 := decodeItem(iter.Value())
		if !ok2 {
			continue
		}
		if dec.ExpiresAtMs > 0 && dec.ExpiresAtMs <= now {
			// Opportunistically reclaim; the caller commits the batch.
			if batch != nil {
				_ = batch.Delete(iterKeyCopy(iter.Key()), nil)
				_ = batch.Delete(expiryKey(dec.ExpiresAtMs, seq), nil)
				q.itemCount--
				q.byteCount -= int64(len(dec.Payload))
				q.expiredItems++
			}
			continue
		}
		return Item{Seq: seq, Data: dec.Payload, AddedAtMs: dec.AddedAtMs, ExpiresAtMs: dec.ExpiresAtMs}, true, nil
	}
	return Item{}, false, nil
}

func iterKeyCopy(k []byte) []byte {
	return append([]byte(nil), k...)
}

// WaitRemove blocks (bounded by ctx and deadline) until an item is visible,
// then removes it. When transactional is true the item is held in a
// reservation rather than deleted outright, and the returned xid must later
// be passed to ConfirmRemove or Unremove.
func (q *Queue) WaitRemove(ctx context.Context, deadline time.Time, transactional bool) (Item, Xid, bool, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return Item{}, Xid{}, false, ErrClosed
		}
		b := q.db.NewBatch()
		item, found, err := q.nextVisible(b)
		if err != nil {
			b.Close()
			q.mu.Unlock()
			return Item{}, Xid{}, false, err
		}
		if !found {
			if b.Len() > 0 {
				if cerr := q.db.CommitBatch(ctx, b); cerr != nil {
					b.Close()
					q.mu.Unlock()
					return Item{}, Xid{}, false, cerr
				}
			}
			b.Close()
			q.mu.Unlock()
			if !q.waitForActivity(ctx, deadline) {
				return Item{}, Xid{}, false, nil
			}
			continue
		}

		var xid Xid
		if transactional {
			xid = Xid(q.idGen.Next())
			q.reservations[xid] = reservation{seq: item.Seq, addedAtMs: item.AddedAtMs, expiresAtMs: item.ExpiresAtMs, data: item.Data}
			q.reservedSeqs[item.Seq] = xid
			if err := b.Set(resvKey(xid), itemKey(item.Seq), nil); err != nil {
				b.Close()
				q.mu.Unlock()
				return Item{}, Xid{}, false, err
			}
		} else {
			if err := b.Delete(itemKey(item.Seq), nil); err != nil {
				b.Close()
				q.mu.Unlock()
				return Item{}, Xid{}, false, err
			}
			if item.ExpiresAtMs > 0 {
				if err := b.Delete(expiryKey(item.ExpiresAtMs, item.Seq), nil); err != nil {
					b.Close()
					q.mu.Unlock()
					return Item{}, Xid{}, false, err
				}
			}
			q.itemCount--
			q.byteCount -= int64(len(item.Data))
			q.totalDequeued++
		}

		if err := q.db.CommitBatch(ctx, b); err != nil {
			b.Close()
			q.mu.Unlock()
			return Item{}, Xid{}, false, err
		}
		b.Close()
		q.lastActivity = time.Now()
		q.mu.Unlock()
		return item, xid, true, nil
	}
}

// WaitPeek behaves like WaitRemove but never removes or reserves the item.
func (q *Queue) WaitPeek(ctx context.Context, deadline time.Time) (Item, bool, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return Item{}, false, ErrClosed
		}
		b := q.db.NewBatch()
		item, found, err := q.nextVisible(b)
		if err != nil {
			b.Close()
			q.mu.Unlock()
			return Item{}, false, err
		}
		if b.Len() > 0 {
			if cerr := q.db.CommitBatch(ctx, b); cerr != nil {
				b.Close()
				q.mu.Unlock()
				return Item{}, false, cerr
			}
		}
		b.Close()
		if found {
			q.mu.Unlock()
			return item, true, nil
		}
		q.mu.Unlock()
		if !q.waitForActivity(ctx, deadline) {
			return Item{}, false, nil
		}
	}
}

// ConfirmRemove permanently consumes the reserved item identified by xid.
func (q *Queue) ConfirmRemove(ctx context.Context, xid Xid) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.reservations[xid]
	if !ok {
		return false, nil
	}

	b := q.db.NewBatch()
	defer b.Close()
	if err := b.Delete(itemKey(r.seq), nil); err != nil {
		return false, err
	}
	if r.expiresAtMs > 0 {
		if err := b.Delete(expiryKey(r.expiresAtMs, r.seq), nil); err != nil {
			return false, err
		}
	}
	if err := b.Delete(resvKey(xid), nil); err != nil {
		return false, err
	}
	if err := q.db.CommitBatch(ctx, b); err != nil {
		return false, err
	}

	delete(q.reservations, xid)
	delete(q.reservedSeqs, r.seq)
	q.itemCount--
	q.byteCount -= int64(len(r.data))
	q.totalDequeued++
	return true, nil
}

// Unremove releases the reservation identified by xid, making the item
// visible again at the head of the queue.
func (q *Queue) Unremove(ctx context.Context, xid Xid) (bool, error) {
	q.mu.Lock()
	r, ok := q.reservations[xid]
	if !ok {
		q.mu.Unlock()
		return false, nil
	}
	b := q.db.NewBatch()
	defer b.Close()
	if err := b.Delete(resvKey(xid), nil); err != nil {
		q.mu.Unlock()
		return false, err
	}
	if err := q.db.CommitBatch(ctx, b); err != nil {
		q.mu.Unlock()
		return false, err
	}
	delete(q.reservations, xid)
	delete(q.reservedSeqs, r.seq)
	q.mu.Unlock()
	q.notifyWaiters()
	return true, nil
}

// Flush discards every item and reservation without deleting the queue
// itself.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}

	err := q.flushLocked(ctx)
	q.mu.Unlock()
	if err != nil {
		return err
	}
	q.notifyWaiters()
	return nil
}

// flushLocked does the actual work of Flush. Caller must hold q.mu and
// release it itself; this keeps the unlock-then-notify ordering explicit at
// the call site instead of relying on a bare defer.
func (q *Queue) flushLocked(ctx context.Context) error {
	b := q.db.NewBatch()
	defer b.Close()

	lo, hi := itemRange()
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return err
	}
	for ok := iter.First(); ok; ok = iter.Next() {
		if err := b.Delete(iterKeyCopy(iter.Key()), nil); err != nil {
			iter.Close()
			return err
		}
	}
	iter.Close()

	elo, ehi := expiryRangeUpTo(int64(^uint64(0) >> 1))
	eiter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: elo, UpperBound: ehi})
	if err != nil {
		return err
	}
	for ok := eiter.First(); ok; ok = eiter.Next() {
		if err := b.Delete(iterKeyCopy(eiter.Key()), nil); err != nil {
			eiter.Close()
			return err
		}
	}
	eiter.Close()

	for xid := range q.reservations {
		if err := b.Delete(resvKey(xid), nil); err != nil {
			return err
		}
	}

	if err := q.db.CommitBatch(ctx, b); err != nil {
		return err
	}

	q.reservations = make(map[Xid]reservation)
	q.reservedSeqs = make(map[uint64]Xid)
	q.itemCount = 0
	q.byteCount = 0
	return nil
}

// DiscardExpired reclaims at most max items whose expiry has passed as of
// nowMs, returning the number actually removed.
func (q *Queue) DiscardExpired(ctx context.Context, nowMs int64, max int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, ErrClosed
	}
	if max <= 0 {
		max = q.cfg.MaxExpirySweep
	}
	if max <= 0 {
		max = 1000
	}

	lo, hi := expiryRangeUpTo(nowMs)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	b := q.db.NewBatch()
	defer b.Close()

	removed := 0
	for ok := iter.First(); ok && removed < max; ok = iter.Next() {
		seq, valid := parseSeqFromExpiryKey(iter.Key())
		if !valid {
			continue
		}
		if _, reserved := q.reservedSeqs[seq]; reserved {
			continue
		}
		val, err := q.db.Get(itemKey(seq))
		if err != nil {
			if errors.Is(err, pebble.ErrNotFound) {
				_ = b.Delete(iterKeyCopy(iter.Key()), nil)
				continue
			}
			return removed, err
		}
		dec, ok2 := decodeItem(val)
		if !ok2 {
			continue
		}
		if err := b.Delete(itemKey(seq), nil); err != nil {
			return removed, err
		}
		if err := b.Delete(iterKeyCopy(iter.Key()), nil); err != nil {
			return removed, err
		}
		q.itemCount--
		q.byteCount -= int64(len(dec.Payload))
		q.expiredItems++
		removed++
	}
	if removed > 0 {
		if err := q.db.CommitBatch(ctx, b); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// IsReadyForExpiration reports whether this queue has been idle and empty
// long enough to be a candidate for LifecycleCoordinator's expiration sweep.
func (q *Queue) IsReadyForExpiration(now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cfg.MaxIdleBeforeExpiration <= 0 {
		return false
	}
	return q.itemCount == 0 && now.Sub(q.lastActivity) > q.cfg.MaxIdleBeforeExpiration
}

// Length returns the current item count.
func (q *Queue) Length() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.itemCount
}

// Bytes returns the current total payload size in bytes.
func (q *Queue) Bytes() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.byteCount
}

// DumpStats returns a snapshot of cumulative and live counters as
// string-keyed values, the shape an admin endpoint or CLI renders directly.
func (q *Queue) DumpStats() map[string]string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return map[string]string{
		"items":          fmt.Sprintf("%d", q.itemCount),
		"bytes":          fmt.Sprintf("%d", q.byteCount),
		"total_enqueued": fmt.Sprintf("%d", q.totalEnqueued),
		"total_dequeued": fmt.Sprintf("%d", q.totalDequeued),
		"expired_items":  fmt.Sprintf("%d", q.expiredItems),
		"open_reserves":  fmt.Sprintf("%d", len(q.reservations)),
	}
}

// RemoveStats resets the cumulative counters (total_enqueued, total_dequeued,
// expired_items) to zero without touching live item/byte counts.
func (q *Queue) RemoveStats() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.totalEnqueued = 0
	q.totalDequeued = 0
	q.expiredItems = 0
}

// Close flushes and closes the underlying database. It is idempotent and
// wakes any blocked waiters so they observe ErrClosed.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	ch := q.notifyCh
	q.notifyCh = make(chan struct{})
	err := q.db.Close()
	q.mu.Unlock()
	close(ch)
	return err
}

// DestroyJournal removes the queue's on-disk directory. Close must have
// already been called.
func (q *Queue) DestroyJournal() error {
	return pebblestore.Destroy(q.db.DataDir())
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func decodeUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8 && i < len(b); i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
