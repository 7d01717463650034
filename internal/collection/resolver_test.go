package collection

import "testing"

func TestResolvePlainName(t *testing.T) {
	n, err := Resolve("orders")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if n.IsFanoutChild || n.Master != "orders" || n.Raw != "orders" {
		t.Fatalf("unexpected resolution: %+v", n)
	}
}

func TestResolveFanoutChild(t *testing.T) {
	n, err := Resolve("feed+a")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !n.IsFanoutChild || n.Master != "feed" || n.Raw != "feed+a" {
		t.Fatalf("unexpected resolution: %+v", n)
	}
}

func TestResolveEmptyTagPermitted(t *testing.T) {
	n, err := Resolve("feed+")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !n.IsFanoutChild || n.Master != "feed" {
		t.Fatalf("unexpected resolution: %+v", n)
	}
}

func TestResolveRejectsForbiddenCharacters(t *testing.T) {
	for _, bad := range []string{"a.b", "a/b", "a~b"} {
		if _, err := Resolve(bad); err == nil {
			t.Fatalf("expected IllegalName for %q", bad)
		}
	}
}

func TestResolveRejectsMultiplePlus(t *testing.T) {
	if _, err := Resolve("a+b+c"); err == nil {
		t.Fatalf("expected IllegalName for more than one '+'")
	}
}
