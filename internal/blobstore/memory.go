// Package blobstore holds key-value stores for serialized history logs.
package blobstore

import (
    "context"
    "sync"
)

// Memory keeps blobs in process memory. Contents die with the process.
type Memory struct {
    mu    sync.RWMutex
    blobs map[string][]byte
}

func NewMemory() *Memory {
    return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    b, ok := m.blobs[key]
    if !ok {
        return nil, false, nil
    }
    return append([]byte(nil), b...), true, nil
}

func (m *Memory) Put(ctx context.Context, key string, data []byte) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.blobs[key] = append([]byte(nil), data...)
    return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    delete(m.blobs, key)
    return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
