package alias

import (
	"context"
	"testing"
)

func TestAddForwardsToAllTargets(t *testing.T) {
	var delivered []string
	fwd := func(ctx context.Context, target string, data []byte, expiresAtMs int64) (bool, error) {
		delivered = append(delivered, target)
		return true, nil
	}
	q, err := New(Config{Name: "m", Targets: []string{"t1", "t2"}}, fwd)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ok := q.Add(context.Background(), []byte("x"), 0, nil)
	if !ok {
		t.Fatalf("expected delivery")
	}
	if len(delivered) != 2 || delivered[0] != "t1" || delivered[1] != "t2" {
		t.Fatalf("unexpected delivery set: %v", delivered)
	}
}

func TestAddOneTargetFailureDoesNotAbortOthers(t *testing.T) {
	var delivered []string
	fwd := func(ctx context.Context, target string, data []byte, expiresAtMs int64) (bool, error) {
		if target == "bad" {
			return false, errFake
		}
		delivered = append(delivered, target)
		return true, nil
	}
	q, err := New(Config{Name: "m", Targets: []string{"bad", "good"}}, fwd)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ok := q.Add(context.Background(), []byte("x"), 0, nil)
	if !ok {
		t.Fatalf("expected at least one delivery")
	}
	if len(delivered) != 1 || delivered[0] != "good" {
		t.Fatalf("unexpected delivery set: %v", delivered)
	}
}

func TestFilterRestrictsTargets(t *testing.T) {
	var delivered []string
	fwd := func(ctx context.Context, target string, data []byte, expiresAtMs int64) (bool, error) {
		delivered = append(delivered, target)
		return true, nil
	}
	q, err := New(Config{Name: "m", Targets: []string{"t1"}, Filter: `headers["kind"] == "urgent"`}, fwd)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if ok := q.Add(context.Background(), []byte("x"), 0, map[string]string{"kind": "normal"}); ok {
		t.Fatalf("expected no delivery for non-matching header")
	}
	if len(delivered) != 0 {
		t.Fatalf("expected no deliveries, got %v", delivered)
	}
	if ok := q.Add(context.Background(), []byte("x"), 0, map[string]string{"kind": "urgent"}); !ok {
		t.Fatalf("expected delivery for matching header")
	}
}

func TestSetConfigRecompilesFilter(t *testing.T) {
	fwd := func(ctx context.Context, target string, data []byte, expiresAtMs int64) (bool, error) {
		return true, nil
	}
	q, err := New(Config{Name: "m", Targets: []string{"t1"}}, fwd)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := q.SetConfig(Config{Name: "m", Targets: []string{"t1", "t2"}}); err != nil {
		t.Fatalf("set config: %v", err)
	}
	if len(q.Config().Targets) != 2 {
		t.Fatalf("expected updated targets")
	}
	if err := q.SetConfig(Config{Name: "m", Filter: "not valid cel ((("}); err == nil {
		t.Fatalf("expected compile error")
	}
}

type fakeError struct{}

func (fakeError) Error() string { return "fake forwarding error" }

var errFake = fakeError{}
