package kv

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the whole keyspace as a single JSON document, the
// closest durable analogue of the quota-bounded local storage it models.
// Writes land in a temp file first and replace the document atomically.
type FileStore struct {
	path     string
	quota    int
	mu       sync.Mutex
	values   map[string]json.RawMessage
	notifier notifier
}

// NewFileStore opens (or creates) the store at path with the given byte
// quota for the serialized document. A corrupt or missing file degrades to
// an empty keyspace rather than an error.
func NewFileStore(path string, quota int) (*FileStore, error) {
	s := &FileStore{path: path, quota: quota, values: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("opening store file: %w", err)
	default:
		if jerr := json.Unmarshal(raw, &s.values); jerr != nil {
			slog.Warn("store file corrupt, starting empty", "path", path, "error", jerr)
			s.values = make(map[string]json.RawMessage)
		}
	}
	return s, nil
}

func (s *FileStore) Get(key string, dst any) bool {
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

func (s *FileStore) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	prev, hadPrev := s.values[key]
	s.values[key] = raw

	if err := s.persistLocked(); err != nil {
		// Quota or write pressure: drop the low-priority keys and retry
		// once. Callers of the evicted keys tolerate the loss.
		for _, victim := range evictable {
			if victim != key {
				delete(s.values, victim)
			}
		}
		if err := s.persistLocked(); err != nil {
			if hadPrev {
				s.values[key] = prev
			} else {
				delete(s.values, key)
			}
			s.mu.Unlock()
			return ErrQuotaExceeded
		}
	}
	s.mu.Unlock()

	if signal, ok := signalFor(key); ok {
		s.notifier.broadcast(signal)
	}
	return nil
}

func (s *FileStore) Remove(key string) {
	s.mu.Lock()
	delete(s.values, key)
	if err := s.persistLocked(); err != nil {
		slog.Warn("persisting after remove failed", "key", key, "error", err)
	}
	s.mu.Unlock()

	if signal, ok := signalFor(key); ok {
		s.notifier.broadcast(signal)
	}
}

func (s *FileStore) Subscribe(signal Signal) <-chan struct{} {
	return s.notifier.subscribe(signal)
}

// persistLocked serializes the keyspace and replaces the backing file.
// Exceeding the quota counts as a write failure.
func (s *FileStore) persistLocked() error {
	doc, err := json.Marshal(s.values)
	if err != nil {
		return err
	}
	if s.quota > 0 && len(doc) > s.quota {
		return ErrQuotaExceeded
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".kv-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
