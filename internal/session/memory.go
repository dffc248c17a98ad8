package session

import (
	"context"
	"time"

	"github.com/geocoder89/akbidlab/internal/cache"
)

// MemoryStore keeps entries in process. Reads extend the idle timeout.
type MemoryStore struct {
	entries *cache.Cache[[]byte]
}

func NewMemoryStore(idleTTL time.Duration) *MemoryStore {
	return &MemoryStore{entries: cache.New[[]byte](idleTTL)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.entries.Touch(key)
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	s.entries.Set(key, v)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}

// Sweep drops idle entries; main runs it on a ticker.
func (s *MemoryStore) Sweep() int {
	return s.entries.Sweep()
}
