package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

const badgerPrefix = "workspace"

// Badger stores compressed tree documents in a badger database under
// "workspace:<id>" keys.
type Badger struct {
	db    *badger.DB
	owned bool
}

// OpenBadger opens (or creates) a badger database in dir.
func OpenBadger(dir string) (*Badger, error) {
	if dir == "" {
		return nil, errors.New("badger store needs a directory")
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", dir, err)
	}
	logging.Debug("opened badger store", "dir", dir)
	return &Badger{db: db, owned: true}, nil
}

// NewBadger wraps an open database. Close leaves db open.
func NewBadger(db *badger.DB) *Badger {
	return &Badger{db: db}
}

func (s *Badger) makeKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", badgerPrefix, id))
}

func (s *Badger) stripPrefix(key []byte) string {
	return strings.TrimPrefix(string(key), badgerPrefix+":")
}

func (s *Badger) Load(ctx context.Context, id string) (*tree.Folder, error) {
	defer observe(BackendBadger, "load", time.Now())

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.makeKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading workspace %s: %w", id, err)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("workspace %s: %w", id, err)
	}
	return tree.Decode(doc.Content)
}

func (s *Badger) Save(ctx context.Context, id string, root *tree.Folder) error {
	defer observe(BackendBadger, "save", time.Now())

	if err := validID(id); err != nil {
		return err
	}
	data, err := encodeDocument(root, time.Now().UTC())
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.makeKey(id), data)
	})
}

func (s *Badger) List(ctx context.Context) ([]Entry, error) {
	defer observe(BackendBadger, "list", time.Now())

	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(badgerPrefix + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id := s.stripPrefix(item.Key())
			err := item.Value(func(val []byte) error {
				doc, err := decodeDocument(val)
				if err != nil {
					return fmt.Errorf("workspace %s: %w", id, err)
				}
				entries = append(entries, Entry{ID: id, UpdatedAt: doc.UpdatedAt, Size: len(doc.Content)})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return entries, err
}

func (s *Badger) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
