package kv

import (
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store with no persistence. It is the
// zero-config default and the substitution point for tests. An optional byte
// quota reproduces the eviction behavior of the file store.
type MemoryStore struct {
	mu       sync.Mutex
	values   map[string]json.RawMessage
	quota    int
	notifier notifier
}

// NewMemoryStore returns an empty MemoryStore without a quota.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]json.RawMessage)}
}

// NewMemoryStoreWithQuota returns a MemoryStore that evicts like the file
// store once the summed size of stored values would exceed quota bytes.
func NewMemoryStoreWithQuota(quota int) *MemoryStore {
	return &MemoryStore{values: make(map[string]json.RawMessage), quota: quota}
}

func (s *MemoryStore) Get(key string, dst any) bool {
	s.mu.Lock()
	raw, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false
	}
	return true
}

func (s *MemoryStore) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.quota > 0 && s.sizeWithLocked(key, raw) > s.quota {
		for _, victim := range evictable {
			delete(s.values, victim)
		}
		if s.sizeWithLocked(key, raw) > s.quota {
			s.mu.Unlock()
			return ErrQuotaExceeded
		}
	}
	s.values[key] = raw
	s.mu.Unlock()

	if signal, ok := signalFor(key); ok {
		s.notifier.broadcast(signal)
	}
	return nil
}

func (s *MemoryStore) Remove(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()

	if signal, ok := signalFor(key); ok {
		s.notifier.broadcast(signal)
	}
}

func (s *MemoryStore) Subscribe(signal Signal) <-chan struct{} {
	return s.notifier.subscribe(signal)
}

// sizeWithLocked is the total stored size if raw replaced the value at key.
func (s *MemoryStore) sizeWithLocked(key string, raw json.RawMessage) int {
	total := len(key) + len(raw)
	for k, v := range s.values {
		if k == key {
			continue
		}
		total += len(k) + len(v)
	}
	return total
}
