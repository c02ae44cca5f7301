package history

import (
    "context"
    "fmt"
    "sync"
)

// BlobStore is a key-value store holding whole serialized logs.
type BlobStore interface {
    Get(ctx context.Context, key string) ([]byte, bool, error)
    Put(ctx context.Context, key string, data []byte) error
    Delete(ctx context.Context, key string) error
}

// Store is an append-only log of snapshots persisted under one slot.
// Every mutation is flushed to the blob store before it becomes visible.
type Store struct {
    mu      sync.Mutex
    blobs   BlobStore
    key     string
    entries []Snapshot
}

// NewStore returns an empty store bound to key. Call Load to read the slot.
func NewStore(blobs BlobStore, key string) *Store {
    return &Store{blobs: blobs, key: key}
}

// Load replaces the in-memory log with the persisted one. A missing slot
// yields an empty log; a corrupt slot leaves the log empty and returns an
// error wrapping ErrParse.
func (s *Store) Load(ctx context.Context) error {
    data, ok, err := s.blobs.Get(ctx, s.key)
    if err != nil {
        return fmt.Errorf("load history %q: %w", s.key, err)
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    s.entries = nil
    if !ok || len(data) == 0 {
        return nil
    }
    entries, err := Decode(data)
    if err != nil {
        return err
    }
    s.entries = entries
    return nil
}

// Key is the slot name.
func (s *Store) Key() string { return s.key }

// Len returns the number of snapshots.
func (s *Store) Len() int {
    s.mu.Lock()
    defer s.mu.Unlock()
    return len(s.entries)
}

// Entries returns a copy of the log in insertion order.
func (s *Store) Entries() []Snapshot {
    s.mu.Lock()
    defer s.mu.Unlock()
    return append([]Snapshot(nil), s.entries...)
}

// Append adds snap at the end and persists the whole log.
func (s *Store) Append(ctx context.Context, snap Snapshot) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    next := make([]Snapshot, len(s.entries), len(s.entries)+1)
    copy(next, s.entries)
    next = append(next, snap)
    if err := s.persistLocked(ctx, next); err != nil {
        return err
    }
    s.entries = next
    return nil
}

// Import parses blob and, when every entry is well formed, swaps it in.
func (s *Store) Import(ctx context.Context, blob []byte) error {
    entries, err := Decode(blob)
    if err != nil {
        return err
    }
    return s.ReplaceAll(ctx, entries)
}

// ReplaceAll swaps the log for entries.
func (s *Store) ReplaceAll(ctx context.Context, entries []Snapshot) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    next := append([]Snapshot(nil), entries...)
    if err := s.persistLocked(ctx, next); err != nil {
        return err
    }
    s.entries = next
    return nil
}

// Clear empties the log and removes the persisted slot. Clearing an empty
// log does nothing.
func (s *Store) Clear(ctx context.Context) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if len(s.entries) == 0 {
        return nil
    }
    if err := s.blobs.Delete(ctx, s.key); err != nil {
        return fmt.Errorf("clear history %q: %w", s.key, err)
    }
    s.entries = nil
    return nil
}

// Export renders the log in the import format.
func (s *Store) Export() ([]byte, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return EncodeIndent(s.entries)
}

func (s *Store) persistLocked(ctx context.Context, entries []Snapshot) error {
    data, err := Encode(entries)
    if err != nil {
        return fmt.Errorf("encode history: %w", err)
    }
    if err := s.blobs.Put(ctx, s.key, data); err != nil {
        return fmt.Errorf("persist history %q: %w", s.key, err)
    }
    return nil
}
