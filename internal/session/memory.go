package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry[T any] struct {
	v    T
	seen time.Time
}

type MemoryStore[T any] struct {
	mu  sync.RWMutex
	m   map[string]entry[T]
	now func() time.Time
}

func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{m: map[string]entry[T]{}, now: time.Now}
}

func (s *MemoryStore[T]) Get(_ context.Context, id string) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.m[id]
	return e.v, ok, nil
}

func (s *MemoryStore[T]) Put(_ context.Context, id string, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = entry[T]{v: v, seen: s.now()}
	return nil
}

func (s *MemoryStore[T]) Update(_ context.Context, id string, fn func(T, bool) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[id]
	v, err := fn(e.v, ok)
	if err != nil {
		return e.v, err
	}
	s.m[id] = entry[T]{v: v, seen: s.now()}
	return v, nil
}

func (s *MemoryStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func (s *MemoryStore[T]) NewID() string {
	return uuid.NewString()
}

// Evict drops entries not written since before and returns their ids.
func (s *MemoryStore[T]) Evict(before time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, e := range s.m {
		if e.seen.Before(before) {
			delete(s.m, id)
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of live sessions.
func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
