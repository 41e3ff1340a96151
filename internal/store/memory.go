package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/serroba/shortlink/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Store.
type MemoryStore struct {
	nextID atomic.Uint64
	mu     sync.RWMutex
	links  map[shortener.Code]shortener.ShortLink
	ids    map[uint64]struct{}
}

// NewMemoryStore creates a new in-memory URL store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links: make(map[shortener.Code]shortener.ShortLink),
		ids:   make(map[uint64]struct{}),
	}
}

func (m *MemoryStore) AllocateID(_ context.Context) (uint64, error) {
	return m.nextID.Add(1), nil
}

func (m *MemoryStore) Create(_ context.Context, link *shortener.ShortLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[link.Code]; ok {
		return shortener.ErrAliasConflict
	}

	if _, ok := m.ids[link.ID]; ok {
		return errDuplicateID
	}

	m.links[link.Code] = *link
	m.ids[link.ID] = struct{}{}

	return nil
}

func (m *MemoryStore) FindByCode(_ context.Context, code shortener.Code) (*shortener.ShortLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return &link, nil
}

// Compile-time check.
var _ shortener.Store = (*MemoryStore)(nil)
