package repository

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("not found")

// SessionStorage is a per-browser key/value store. clientID scopes the keys
// the same way a browser scopes its local storage to one origin.
type SessionStorage interface {
	Get(ctx context.Context, clientID, key string) (string, error)
	Set(ctx context.Context, clientID, key, value string) error
	Remove(ctx context.Context, clientID, key string) error
}

type memoryEntry struct {
	values  map[string]string
	touched time.Time
}

// MemorySessionStorage keeps sessions in process. Idle clients are dropped by Sweep.
type MemorySessionStorage struct {
	mu      sync.Mutex
	clients map[string]*memoryEntry
	now     func() time.Time
}

func NewMemorySessionStorage() *MemorySessionStorage {
	return &MemorySessionStorage{
		clients: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *MemorySessionStorage) Get(_ context.Context, clientID, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.clients[clientID]
	if !ok {
		return "", ErrNotFound
	}
	e.touched = s.now()
	v, ok := e.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemorySessionStorage) Set(_ context.Context, clientID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.clients[clientID]
	if !ok {
		e = &memoryEntry{values: make(map[string]string)}
		s.clients[clientID] = e
	}
	e.values[key] = value
	e.touched = s.now()
	return nil
}

func (s *MemorySessionStorage) Remove(_ context.Context, clientID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.clients[clientID]
	if !ok {
		return nil
	}
	delete(e.values, key)
	if len(e.values) == 0 {
		delete(s.clients, clientID)
	}
	return nil
}

// Sweep drops clients idle for longer than ttl and returns how many went.
func (s *MemorySessionStorage) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	removed := 0
	for id, e := range s.clients {
		if e.touched.Before(cutoff) {
			delete(s.clients, id)
			removed++
		}
	}
	return removed
}
