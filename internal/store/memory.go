package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

type memoryRecord struct {
	root      *tree.Folder
	updatedAt time.Time
}

// Memory keeps trees in a map. Trees are immutable, so it stores them
// as given.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]memoryRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]memoryRecord)}
}

func (m *Memory) Load(ctx context.Context, id string) (*tree.Folder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.root, nil
}

func (m *Memory) Save(ctx context.Context, id string, root *tree.Folder) error {
	if err := validID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = memoryRecord{root: root, updatedAt: time.Now().UTC()}
	return nil
}

func (m *Memory) List(ctx context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]Entry, 0, len(m.docs))
	for id, rec := range m.docs {
		data, err := tree.Encode(rec.root)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{ID: id, UpdatedAt: rec.updatedAt, Size: len(data)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (m *Memory) Close() error { return nil }
