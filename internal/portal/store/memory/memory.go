// Package memory provides in-process implementations of the store
// interfaces: the ephemeral interaction store used by every verification
// flow, and a KeyValue used in dev mode and as the test fake.
package memory

import (
	"context"
	"sync"

	"github.com/nyaypaksh/memberportal/internal/portal/store"
)

// KV is an in-memory KeyValue. Durable only for the lifetime of the process;
// useful for dev mode and tests.
type KV struct {
	mu sync.RWMutex
	m  map[string]string

	// FailSet, when non-empty, makes Set fail for the listed keys. Tests use
	// it to exercise partial-write rollback.
	FailSet map[string]error
}

func NewKV() *KV {
	return &KV{m: make(map[string]string)}
}

func (s *KV) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.m[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (s *KV) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.FailSet[key]; ok {
		return err
	}
	s.m[key] = value
	return nil
}

func (s *KV) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.m, key)
	return nil
}

func (s *KV) Ping(context.Context) error { return nil }

func (s *KV) Close() error { return nil }

// Len reports the number of stored keys. Test helper.
func (s *KV) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Ephemeral is the interaction-scoped store. One instance models one
// principal's tab session.
type Ephemeral struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewEphemeral() *Ephemeral {
	return &Ephemeral{m: make(map[string]string)}
}

func (s *Ephemeral) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.m[key]
	return v, ok
}

func (s *Ephemeral) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func (s *Ephemeral) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

func (s *Ephemeral) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = make(map[string]string)
}
