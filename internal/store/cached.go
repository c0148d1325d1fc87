package store

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/metrics"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

// Cached keeps recently loaded and saved trees in an LRU in front of
// another store. Trees are never mutated in place, so cached values are
// shared freely.
type Cached struct {
	Store
	cache *lru.Cache[string, *tree.Folder]
}

// NewCached wraps s with a cache of size trees.
func NewCached(s Store, size int) (*Cached, error) {
	cache, err := lru.New[string, *tree.Folder](size)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	return &Cached{Store: s, cache: cache}, nil
}

func (c *Cached) Load(ctx context.Context, id string) (*tree.Folder, error) {
	if root, ok := c.cache.Get(id); ok {
		metrics.RecordCacheLookup(true)
		return root, nil
	}
	metrics.RecordCacheLookup(false)

	root, err := c.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, root)
	return root, nil
}

// Save writes through and caches root only once the backend accepted it.
func (c *Cached) Save(ctx context.Context, id string, root *tree.Folder) error {
	if err := c.Store.Save(ctx, id, root); err != nil {
		c.cache.Remove(id)
		return err
	}
	c.cache.Add(id, root)
	return nil
}

func (c *Cached) Close() error {
	c.cache.Purge()
	return c.Store.Close()
}
