// README: Injectable set-valued key-value store for per-device driver state.
package kv

import (
	"context"
	"sync"
)

// SetStore holds string sets under string keys. It backs the declined-order
// fast path and the notified-id dedup set, both keyed by driver id. The
// production implementation is Redis; tests use Memory.
type SetStore interface {
	Add(ctx context.Context, key string, members ...string) error
	Members(ctx context.Context, key string) ([]string, error)
	Contains(ctx context.Context, key, member string) (bool, error)
}

// Memory is a mutex-guarded in-process SetStore.
type Memory struct {
	mu   sync.RWMutex
	sets map[string]map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{sets: make(map[string]map[string]struct{})}
}

func (m *Memory) Add(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (m *Memory) Members(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.sets[key]
	out := make([]string, 0, len(set))
	for member := range set {
		out = append(out, member)
	}
	return out, nil
}

func (m *Memory) Contains(_ context.Context, key, member string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sets[key][member]
	return ok, nil
}
