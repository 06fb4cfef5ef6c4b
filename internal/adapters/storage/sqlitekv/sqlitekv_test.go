package sqlitekv

import (
	"context"
	"path/filepath"
	"testing"
)

func TestNamespace_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.db")

	ns, err := Open(path, "app")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok, err := ns.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := ns.Put(ctx, "k", []byte(`["a"]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := ns.Put(ctx, "k", []byte(`["b"]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := ns.Close(); err != nil {
		t.Fatal(err)
	}

	ns, err = Open(path, "app")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer ns.Close()
	got, ok, err := ns.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected key after reopen, got ok=%v err=%v", ok, err)
	}
	if string(got) != `["b"]` {
		t.Errorf("expected last write to win, got %q", got)
	}
}

func TestNamespace_IsolatesNamespaces(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.db")

	a, err := Open(path, "a")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := Open(path, "b")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if err := a.Put(ctx, "k", []byte("1")); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Error("namespace b must not see keys of namespace a")
	}
	if got, ok, err := a.Get(ctx, "k"); err != nil || !ok || string(got) != "1" {
		t.Errorf("namespace a lost its key: %q ok=%v err=%v", got, ok, err)
	}
}

func TestOpen_RejectsEmptyNamespace(t *testing.T) {
	if _, err := Open(":memory:", " "); err == nil {
		t.Error("expected error for empty namespace")
	}
}
