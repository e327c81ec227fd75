package directory

import (
	"context"
	"sync"
)

// Memory is an in-process Store, used in tests and local runs.
type Memory struct {
	mu    sync.RWMutex
	users map[string]Profile
}

// NewMemory creates a Memory seeded with profiles.
func NewMemory(profiles ...Profile) *Memory {
	m := &Memory{users: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		m.users[p.ID] = p
	}
	return m
}

// Put inserts or replaces a profile.
func (m *Memory) Put(p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[p.ID] = p
}

func (m *Memory) Get(ctx context.Context, id string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.users[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	p.IsAdmin = isAdmin
	m.users[id] = p
	return nil
}
