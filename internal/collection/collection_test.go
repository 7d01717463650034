package collection

import (
	"context"
	"testing"
	"time"

	"github.com/sudhishp/kestrel/internal/pqueue"
	"github.com/sudhishp/kestrel/pkg/log"
)

func newCollectionForTest(t *testing.T) *Collection {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(dir, pqueue.Config{}, nil, nil, log.NewLogger())
	if err != nil {
		t.Fatalf("open collection: %v", err)
	}
	t.Cleanup(func() { _ = c.Shutdown() })
	return c
}

func mustAdd(t *testing.T, c *Collection, name, data string) bool {
	t.Helper()
	ok, err := c.Add(context.Background(), name, []byte(data), 0)
	if err != nil {
		t.Fatalf("add(%q): %v", name, err)
	}
	return ok
}

func soon() time.Time { return time.Now().Add(50 * time.Millisecond) }

// S1: fanout basic.
func TestFanoutBasic(t *testing.T) {
	c := newCollectionForTest(t)

	if !mustAdd(t, c, "feed+a", "x") {
		t.Fatalf("add feed+a failed")
	}
	if !mustAdd(t, c, "feed+b", "y") {
		t.Fatalf("add feed+b failed")
	}
	if !mustAdd(t, c, "feed", "z") {
		t.Fatalf("add feed failed")
	}

	wantSeq := func(name string, want ...string) {
		for _, w := range want {
			item, _, found, err := c.Remove(context.Background(), name, soon(), false, false)
			if err != nil {
				t.Fatalf("remove(%q): %v", name, err)
			}
			if !found {
				t.Fatalf("remove(%q): expected %q, got none", name, w)
			}
			if string(item.Data) != w {
				t.Fatalf("remove(%q) = %q, want %q", name, item.Data, w)
			}
		}
	}
	wantSeq("feed+a", "x", "z")
	wantSeq("feed+b", "y", "z")
	wantSeq("feed", "z")
}

// S2: illegal name.
func TestIllegalName(t *testing.T) {
	c := newCollectionForTest(t)
	_, err := c.Add(context.Background(), "bad.name", []byte("x"), 0)
	if err == nil {
		t.Fatalf("expected IllegalName error")
	}
	snap := c.Snapshot()
	if snap.QueueCount != 0 {
		t.Fatalf("registry should be unchanged, got %d queues", snap.QueueCount)
	}
}

// S3: shutdown race.
func TestShutdownThenAddReturnsFalse(t *testing.T) {
	c := newCollectionForTest(t)
	if err := c.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	ok, err := c.Add(context.Background(), "q", []byte("x"), 0)
	if err != nil {
		t.Fatalf("add after shutdown: %v", err)
	}
	if ok {
		t.Fatalf("expected add to report false after shutdown")
	}
	// Idempotent.
	if err := c.Shutdown(); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}

func TestShutdownUnblocksPendingRemove(t *testing.T) {
	c := newCollectionForTest(t)
	if !mustAdd(t, c, "q", "seed") {
		t.Fatalf("seed add failed")
	}
	// drain the seed item so the next remove genuinely blocks
	if _, _, found, err := c.Remove(context.Background(), "q", soon(), false, false); err != nil || !found {
		t.Fatalf("drain seed: found=%v err=%v", found, err)
	}

	type result struct {
		found bool
		err   error
	}
	done := make(chan result, 1)
	go func() {
		_, _, found, err := c.Remove(context.Background(), "q", time.Now().Add(2*time.Second), false, false)
		done <- result{found, err}
	}()
	time.Sleep(20 * time.Millisecond)
	if err := c.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("expected a blocked remove to resolve to no item on shutdown, not an error: %v", r.err)
		}
		if r.found {
			t.Fatalf("expected no item after shutdown")
		}
	case <-time.After(time.Second):
		t.Fatalf("remove did not unblock after shutdown")
	}
}

// S4: reservation.
func TestReservationRoundTrip(t *testing.T) {
	c := newCollectionForTest(t)
	if !mustAdd(t, c, "q", "x") {
		t.Fatalf("add failed")
	}
	item, xid, found, err := c.Remove(context.Background(), "q", soon(), true, false)
	if err != nil || !found {
		t.Fatalf("transactional remove: found=%v err=%v", found, err)
	}
	if string(item.Data) != "x" {
		t.Fatalf("got %q, want x", item.Data)
	}

	if _, _, found, _ := c.Remove(context.Background(), "q", time.Now().Add(10*time.Millisecond), false, false); found {
		t.Fatalf("expected item to stay reserved")
	}

	if err := c.Unremove(context.Background(), "q", xid); err != nil {
		t.Fatalf("unremove: %v", err)
	}

	item2, _, found, err := c.Remove(context.Background(), "q", soon(), false, false)
	if err != nil || !found {
		t.Fatalf("remove after unremove: found=%v err=%v", found, err)
	}
	if string(item2.Data) != "x" {
		t.Fatalf("got %q after unremove, want x", item2.Data)
	}
}

func TestConfirmRemoveConsumesItem(t *testing.T) {
	c := newCollectionForTest(t)
	if !mustAdd(t, c, "q", "x") {
		t.Fatalf("add failed")
	}
	_, xid, found, err := c.Remove(context.Background(), "q", soon(), true, false)
	if err != nil || !found {
		t.Fatalf("transactional remove: found=%v err=%v", found, err)
	}
	if err := c.ConfirmRemove(context.Background(), "q", xid); err != nil {
		t.Fatalf("confirm remove: %v", err)
	}
	if _, _, found, _ := c.Remove(context.Background(), "q", time.Now().Add(10*time.Millisecond), false, false); found {
		t.Fatalf("expected item to be permanently consumed")
	}
}

// S5: expiry.
func TestExpiredItemIsFlushedAndInvisible(t *testing.T) {
	c := newCollectionForTest(t)
	past := time.Now().Add(-1 * time.Second).UnixMilli()
	ok, err := c.Add(context.Background(), "q", []byte("x"), past)
	if err != nil || !ok {
		t.Fatalf("add: ok=%v err=%v", ok, err)
	}
	n, err := c.FlushExpired(context.Background(), "q")
	if err != nil {
		t.Fatalf("flush expired: %v", err)
	}
	if n != 1 {
		t.Fatalf("flush expired count = %d, want 1", n)
	}
	if _, _, found, _ := c.Remove(context.Background(), "q", time.Now().Add(10*time.Millisecond), false, false); found {
		t.Fatalf("expected no item after expiry flush")
	}
}

// S6: alias masking.
func TestAliasMasksQueueOfSameName(t *testing.T) {
	c := newCollectionForTest(t)
	if !mustAdd(t, c, "t1", "seed") {
		t.Fatalf("seed t1 failed")
	}
	if _, _, found, _ := c.Remove(context.Background(), "t1", soon(), false, false); !found {
		t.Fatalf("expected to drain seed from t1")
	}

	if err := c.Reload(pqueue.Config{}, map[string]QueueConfig{"m": {}}, map[string]AliasConfig{
		"m": {Name: "m", Targets: []string{"t1"}},
	}); err != nil {
		t.Fatalf("reload: %v", err)
	}

	ok, err := c.Add(context.Background(), "m", []byte("x"), 0)
	if err != nil || !ok {
		t.Fatalf("add to alias: ok=%v err=%v", ok, err)
	}
	if _, _, found, _ := c.Remove(context.Background(), "m", time.Now().Add(10*time.Millisecond), false, false); found {
		t.Fatalf("expected no item reading an alias name")
	}
	item, _, found, err := c.Remove(context.Background(), "t1", soon(), false, false)
	if err != nil || !found {
		t.Fatalf("remove t1: found=%v err=%v", found, err)
	}
	if string(item.Data) != "x" {
		t.Fatalf("got %q, want x", item.Data)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	c := newCollectionForTest(t)
	if !mustAdd(t, c, "q", "x") {
		t.Fatalf("add failed")
	}
	item1, _, found, err := c.Remove(context.Background(), "q", soon(), false, true)
	if err != nil || !found {
		t.Fatalf("peek: found=%v err=%v", found, err)
	}
	item2, _, found, err := c.Remove(context.Background(), "q", soon(), false, false)
	if err != nil || !found {
		t.Fatalf("remove after peek: found=%v err=%v", found, err)
	}
	if string(item1.Data) != string(item2.Data) {
		t.Fatalf("peek then remove returned different items: %q vs %q", item1.Data, item2.Data)
	}
}

func TestGetOrCreateConcurrentCallersConvergeOnSameHandle(t *testing.T) {
	c := newCollectionForTest(t)
	n, err := Resolve("q")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	const workers = 16
	results := make(chan *pqueue.Queue, workers)
	for i := 0; i < workers; i++ {
		go func() {
			q, err := c.getOrCreate(n)
			if err != nil {
				t.Errorf("getOrCreate: %v", err)
			}
			results <- q
		}()
	}
	var first *pqueue.Queue
	for i := 0; i < workers; i++ {
		q := <-results
		if first == nil {
			first = q
		} else if q != first {
			t.Fatalf("expected every caller to get the same handle")
		}
	}
}

func TestRemoveOnAbsentQueueReturnsNoItem(t *testing.T) {
	c := newCollectionForTest(t)
	_, _, found, err := c.Remove(context.Background(), "nope", time.Now().Add(10*time.Millisecond), false, false)
	if err != nil {
		t.Fatalf("remove on absent queue errored: %v", err)
	}
	if found {
		t.Fatalf("expected no item for an absent queue")
	}
}

func TestUnremoveConfirmRemoveFlushAreNoOpOnAbsentQueue(t *testing.T) {
	c := newCollectionForTest(t)
	if err := c.Unremove(context.Background(), "nope", pqueue.Xid{}); err != nil {
		t.Fatalf("unremove on absent queue: %v", err)
	}
	if err := c.ConfirmRemove(context.Background(), "nope", pqueue.Xid{}); err != nil {
		t.Fatalf("confirmRemove on absent queue: %v", err)
	}
	if err := c.Flush(context.Background(), "nope"); err != nil {
		t.Fatalf("flush on absent queue: %v", err)
	}
}

func TestReloadPreservesQueueIdentity(t *testing.T) {
	c := newCollectionForTest(t)
	n, err := Resolve("q")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	before, err := c.getOrCreate(n)
	if err != nil {
		t.Fatalf("getOrCreate: %v", err)
	}
	if err := c.Reload(pqueue.Config{MaxItems: 10}, map[string]QueueConfig{"q": {MaxItems: 5}}, nil); err != nil {
		t.Fatalf("reload: %v", err)
	}
	after := c.lookup(n)
	if before != after {
		t.Fatalf("expected the same handle identity across reload")
	}
	if after.Config().MaxItems != 5 {
		t.Fatalf("expected reload to apply the new per-queue config, got MaxItems=%d", after.Config().MaxItems)
	}
}

func TestBootScanRediscoversQueuesAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	c1, err := Open(dir, pqueue.Config{}, nil, nil, log.NewLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !mustAdd(t, c1, "feed+a", "x") {
		t.Fatalf("add failed")
	}
	if err := c1.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	c2, err := Open(dir, pqueue.Config{}, nil, nil, log.NewLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Shutdown()

	item, _, found, err := c2.Remove(context.Background(), "feed+a", soon(), false, false)
	if err != nil || !found {
		t.Fatalf("remove after reopen: found=%v err=%v", found, err)
	}
	if string(item.Data) != "x" {
		t.Fatalf("got %q, want x", item.Data)
	}
}

func TestDeleteRemovesFromFanoutIndex(t *testing.T) {
	c := newCollectionForTest(t)
	if !mustAdd(t, c, "feed+a", "x") {
		t.Fatalf("add failed")
	}
	if err := c.Delete("feed+a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if children := c.fanoutChildren("feed"); len(children) != 0 {
		t.Fatalf("expected no children after delete, got %v", children)
	}
	if !mustAdd(t, c, "feed", "z") {
		t.Fatalf("add to master failed")
	}
	// feed+a no longer exists, so only a fresh feed+a add would recreate it;
	// this just confirms master add doesn't error after the child is gone.
}
