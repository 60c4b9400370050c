package kvstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/evetabi/arbengine/internal/domain"
)

type memEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is an in-process Store implementation backed by a mutex-guarded
// map. It is used by tests so the suite never needs a running Redis
// container, and mirrors the semantics of RedisStore exactly (including TTL
// expiry) rather than being a loose stand-in.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]memEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]memEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok || e.expired(time.Now()) {
		return "", domain.ErrNotFound
	}
	return e.value, nil
}

func (s *MemoryStore) SetIfAbsent(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if e, ok := s.data[key]; ok && !e.expired(now) {
		return false, nil
	}
	s.data[key] = s.newEntry(value, ttl, now)
	return true, nil
}

func (s *MemoryStore) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = s.newEntry(value, ttl, time.Now())
	return nil
}

func (s *MemoryStore) newEntry(value string, ttl time.Duration, now time.Time) memEntry {
	e := memEntry{value: value}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	return e
}

func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok || e.expired(time.Now()) {
		return 0, nil
	}
	if e.expiresAt.IsZero() {
		return -1, nil
	}
	return time.Until(e.expiresAt), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) ScanPrefix(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var keys []string
	for k, e := range s.data {
		if e.expired(now) {
			continue
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}
