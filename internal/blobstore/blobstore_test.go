package blobstore

import (
    "context"
    "path/filepath"
    "testing"

    "github.com/jaminalder/codex-xo/internal/history"
)

var (
    _ history.BlobStore = (*Memory)(nil)
    _ history.BlobStore = (*SQLite)(nil)
)

func exerciseStore(t *testing.T, s history.BlobStore) {
    t.Helper()
    ctx := context.Background()

    if _, ok, err := s.Get(ctx, "gameHistory"); err != nil || ok {
        t.Fatalf("expected missing slot, ok=%v err=%v", ok, err)
    }
    if err := s.Put(ctx, "gameHistory", []byte(`[1]`)); err != nil {
        t.Fatalf("put: %v", err)
    }
    if err := s.Put(ctx, "gameHistory", []byte(`[1,2]`)); err != nil {
        t.Fatalf("overwrite: %v", err)
    }
    got, ok, err := s.Get(ctx, "gameHistory")
    if err != nil || !ok || string(got) != `[1,2]` {
        t.Fatalf("expected overwritten blob, got %q ok=%v err=%v", got, ok, err)
    }
    if err := s.Delete(ctx, "gameHistory"); err != nil {
        t.Fatalf("delete: %v", err)
    }
    if _, ok, _ := s.Get(ctx, "gameHistory"); ok {
        t.Fatalf("expected slot gone after delete")
    }
    if err := s.Delete(ctx, "gameHistory"); err != nil {
        t.Fatalf("delete of missing slot should succeed: %v", err)
    }
}

func TestMemoryStore(t *testing.T) {
    exerciseStore(t, NewMemory())
}

func TestMemoryReturnsCopies(t *testing.T) {
    ctx := context.Background()
    m := NewMemory()
    data := []byte("abc")
    _ = m.Put(ctx, "k", data)
    data[0] = 'z'
    got, _, _ := m.Get(ctx, "k")
    if string(got) != "abc" {
        t.Fatalf("store aliased caller slice: %q", got)
    }
}

func TestSQLiteStore(t *testing.T) {
    s, err := OpenSQLite(filepath.Join(t.TempDir(), "xo.db"))
    if err != nil {
        t.Fatalf("open: %v", err)
    }
    defer s.Close()
    exerciseStore(t, s)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
    ctx := context.Background()
    path := filepath.Join(t.TempDir(), "xo.db")
    s, err := OpenSQLite(path)
    if err != nil {
        t.Fatalf("open: %v", err)
    }
    if err := s.Put(ctx, "gameHistory/p1", []byte(`[]`)); err != nil {
        t.Fatalf("put: %v", err)
    }
    if err := s.Put(ctx, "gameHistory/p0", []byte(`[]`)); err != nil {
        t.Fatalf("put: %v", err)
    }
    s.Close()

    s, err = OpenSQLite(path)
    if err != nil {
        t.Fatalf("reopen: %v", err)
    }
    defer s.Close()
    keys, err := s.Keys(ctx)
    if err != nil {
        t.Fatalf("keys: %v", err)
    }
    if len(keys) != 2 || keys[0] != "gameHistory/p0" || keys[1] != "gameHistory/p1" {
        t.Fatalf("unexpected keys %v", keys)
    }
}
