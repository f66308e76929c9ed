package kv

import (
	"context"
	"fmt"
	"sync"
	"time"
)

func sprintf(f string, v []interface{}) string {
	return fmt.Sprintf(f, v...)
}

// Memory is an in-memory Store. It is safe for concurrent use and intended
// primarily for testing.
type Memory struct {
	mu   sync.RWMutex
	data map[string]memEntry
	now  func() time.Time
}

type memEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemory creates an in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]memEntry),
		now:  time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()
	if !ok || (!e.expiresAt.IsZero() && m.now().After(e.expiresAt)) {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(e.value))
	copy(cp, e.value)
	return cp, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	return m.put(key, value, time.Time{})
}

func (m *Memory) SetTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return m.put(key, value, m.now().Add(ttl))
}

func (m *Memory) put(key string, value []byte, expiresAt time.Time) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.mu.Lock()
	m.data[key] = memEntry{value: cp, expiresAt: expiresAt}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	return nil
}
