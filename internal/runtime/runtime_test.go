package runtime

import (
	"context"
	"testing"
	"time"

	cfgpkg "github.com/sudhishp/kestrel/internal/config"
)

func newRuntimeForTest(t *testing.T) *Runtime {
	t.Helper()
	dir := t.TempDir()
	cfg := cfgpkg.Default()
	cfg.DataDir = dir
	rt, err := Open(Options{Config: cfg})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestOpenCloseHealth(t *testing.T) {
	rt := newRuntimeForTest(t)
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestCloseMarksUnhealthy(t *testing.T) {
	rt := newRuntimeForTest(t)
	if err := rt.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := rt.CheckHealth(context.Background()); err == nil {
		t.Fatalf("expected health check to fail after close")
	}
}

func TestCollectionAddAndRemove(t *testing.T) {
	rt := newRuntimeForTest(t)
	ctx := context.Background()
	ok, err := rt.Collection().Add(ctx, "jobs", []byte("hello"), 0)
	if err != nil || !ok {
		t.Fatalf("add: ok=%v err=%v", ok, err)
	}
	item, _, found, err := rt.Collection().Remove(ctx, "jobs", time.Time{}, false, false)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !found || string(item.Data) != "hello" {
		t.Fatalf("unexpected remove result: found=%v item=%+v", found, item)
	}
}

func TestReloadAppliesNewDefaults(t *testing.T) {
	rt := newRuntimeForTest(t)
	dir := t.TempDir()
	path := dir + "/kestrel.json"
	cfg := rt.Config()
	cfg.Default.MaxItems = 5
	if err := cfgpkg.Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := rt.Reload(path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if rt.Config().Default.MaxItems != 5 {
		t.Fatalf("reload did not apply new default max items")
	}
}
