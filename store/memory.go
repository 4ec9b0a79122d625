package store

import (
	"context"
	"sync"

	"github.com/rushteam/giftrec/core"
)

// MemoryStore 把日志放在进程内，用于测试与单机部署，重启后丢失。
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string][][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string][][]byte)}
}

func (m *MemoryStore) Name() string { return KindMemory }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Append(_ context.Context, key string, record []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[key] = append(m.logs[key], append([]byte(nil), record...))
	return int64(len(m.logs[key]) - 1), nil
}

func (m *MemoryStore) Range(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	log := m.logs[key]
	lo, hi := window(int64(len(log)), start, stop)
	if lo == hi {
		return nil, nil
	}
	out := make([][]byte, hi-lo)
	copy(out, log[lo:hi])
	return out, nil
}

func (m *MemoryStore) Len(_ context.Context, key string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.logs[key])), nil
}

var _ core.LogStore = (*MemoryStore)(nil)
