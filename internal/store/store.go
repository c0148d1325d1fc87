// Package store persists workspace trees.
//
// Every backend keeps one document per workspace id: the tree in its JSON
// form, as produced by tree.Encode, plus the time it was last saved.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/metrics"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

// ErrNotFound is returned by Load when no tree was saved for the id.
var ErrNotFound = errors.New("workspace not found in store")

// Gateway loads and saves workspace trees.
type Gateway interface {
	// Load returns the saved tree, or ErrNotFound
	Load(ctx context.Context, id string) (*tree.Folder, error)

	// Save replaces the saved tree
	Save(ctx context.Context, id string, root *tree.Folder) error
}

// Entry describes a saved workspace.
type Entry struct {
	ID        string
	UpdatedAt time.Time

	// Size is the length of the JSON document in bytes
	Size int
}

// Lister enumerates saved workspaces.
type Lister interface {
	List(ctx context.Context) ([]Entry, error)
}

// Store is a Gateway backend owning its resources.
type Store interface {
	Gateway
	Lister
	Close() error
}

// Backend names a store implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendBadger   Backend = "badger"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Backend Backend

	// Path is the badger directory or the sqlite database file
	Path string

	// DSN is the postgres connection string
	DSN string

	// CacheSize enables an LRU of loaded trees when positive
	CacheSize int
}

// Open opens the configured backend.
func Open(cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendMemory:
		s = NewMemory()
	case BackendBadger, "":
		s, err = OpenBadger(cfg.Path)
	case BackendSQLite:
		s, err = OpenSQLite(cfg.Path)
	case BackendPostgres:
		s, err = OpenPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize > 0 {
		return NewCached(s, cfg.CacheSize)
	}
	return s, nil
}

func validID(id string) error {
	if id == "" {
		return errors.New("workspace id cannot be empty")
	}
	return nil
}

func observe(backend Backend, op string, start time.Time) {
	metrics.RecordStoreOperation(string(backend), op, time.Since(start))
}
