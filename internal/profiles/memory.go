package profiles

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository for development and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*Profile
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*Profile)}
}

func (m *MemoryRepository) Get(ctx context.Context, uid string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[uid]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryRepository) Create(ctx context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	cp := *p
	m.store[p.UID] = &cp
	return nil
}

func (m *MemoryRepository) Update(ctx context.Context, uid string, f Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[uid]
	if !ok {
		return ErrNotFound
	}
	f.apply(p)
	p.UpdatedAt = time.Now().UTC()
	return nil
}
