package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Memory keeps users, properties and snapshots in process. It backs the
// server when no database is configured, and tests.
type Memory struct {
	mu        sync.RWMutex
	users     map[string]User
	props     map[string]Property
	snapshots map[string][]Snapshot // by property, ascending version
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]User),
		props:     make(map[string]Property),
		snapshots: make(map[string][]Snapshot),
		now:       time.Now,
	}
}

func (m *Memory) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == u.Email {
			return User{}, fmt.Errorf("create user: %w", ErrDuplicate)
		}
	}
	u.CreatedAt = m.now()
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("get user: %w", ErrNotFound)
}

func (m *Memory) GetUserByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("get user: %w", ErrNotFound)
	}
	return u, nil
}

func (m *Memory) CreateProperty(_ context.Context, p Property, first Snapshot) (Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.props[p.ID]; ok {
		return Property{}, fmt.Errorf("create property: %w", ErrDuplicate)
	}
	now := m.now()
	p.CreatedAt, p.UpdatedAt = now, now
	m.props[p.ID] = p

	first.PropertyID = p.ID
	first.CreatedAt = now
	m.snapshots[p.ID] = []Snapshot{first}
	return p, nil
}

func (m *Memory) GetProperty(_ context.Context, id string) (Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.props[id]
	if !ok {
		return Property{}, fmt.Errorf("get property: %w", ErrNotFound)
	}
	return p, nil
}

func (m *Memory) ListProperties(_ context.Context, ownerID string) ([]Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Property
	for _, p := range m.props {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b Property) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *Memory) SaveSnapshot(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.props[snap.PropertyID]
	if !ok {
		return fmt.Errorf("save snapshot: %w", ErrNotFound)
	}
	for _, s := range m.snapshots[snap.PropertyID] {
		if s.Version == snap.Version {
			return ErrConflict
		}
	}

	snap.CreatedAt = m.now()
	list := append(m.snapshots[snap.PropertyID], snap)
	slices.SortFunc(list, func(a, b Snapshot) int { return cmp.Compare(a.Version, b.Version) })
	m.snapshots[snap.PropertyID] = list

	p.UpdatedAt = snap.CreatedAt
	m.props[p.ID] = p
	return nil
}

func (m *Memory) LatestSnapshot(_ context.Context, propertyID string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.snapshots[propertyID]
	if len(list) == 0 {
		return Snapshot{}, fmt.Errorf("get snapshot: %w", ErrNotFound)
	}
	return list[len(list)-1], nil
}
