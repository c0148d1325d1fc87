// Package buffers tracks the files a user has open in the editor, their
// in-progress content and whether that content differs from what was last
// saved.
package buffers

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

// ErrBufferNotFound is returned for operations on an id that is not open.
var ErrBufferNotFound = errors.New("buffer not found")

// Buffer is the editor-side state of one open file.
type Buffer struct {
	ID                string
	Name              string
	Extension         string
	Content           string
	OriginalContent   string
	HasUnsavedChanges bool
}

// Store holds open buffers in the order they were opened plus the
// current selection. It is safe for concurrent use; accessors return copies.
type Store struct {
	mu       sync.RWMutex
	buffers  []*Buffer
	selected string
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Open opens file, resolved against root, and selects it. Opening an
// already-open file only selects it.
func (s *Store) Open(file *tree.File, root *tree.Folder) Buffer {
	return s.OpenAt(tree.GenerateID(file, root), file)
}

// OpenAt is Open for a caller that already knows the file's path. Files
// sharing a name in different folders each get their own buffer.
func (s *Store) OpenAt(id string, file *tree.File) Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b := s.find(id); b != nil {
		s.selected = id
		return *b
	}

	b := &Buffer{
		ID:              id,
		Name:            file.Name,
		Extension:       file.Extension,
		Content:         file.Content,
		OriginalContent: file.Content,
	}
	s.buffers = append(s.buffers, b)
	s.selected = id
	return *b
}

// Update replaces the content of buffer id and recomputes its dirty flag.
func (s *Store) Update(id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.find(id)
	if b == nil {
		return fmt.Errorf("%w: %s", ErrBufferNotFound, id)
	}
	b.Content = content
	b.HasUnsavedChanges = b.Content != b.OriginalContent
	return nil
}

// Close removes buffer id. If it was selected, the last remaining buffer
// becomes selected, or nothing when none remain. It reports whether a buffer
// was removed.
func (s *Store) Close(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return false
	}
	s.buffers = slices.Delete(s.buffers, i, i+1)

	if s.selected == id {
		s.selected = ""
		if n := len(s.buffers); n > 0 {
			s.selected = s.buffers[n-1].ID
		}
	}
	return true
}

// CloseAll removes every buffer and clears the selection.
func (s *Store) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers = nil
	s.selected = ""
}

// Select makes buffer id the selected one.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(id) == nil {
		return fmt.Errorf("%w: %s", ErrBufferNotFound, id)
	}
	s.selected = id
	return nil
}

// Selected returns the selected buffer.
func (s *Store) Selected() (Buffer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b := s.find(s.selected); b != nil {
		return *b, true
	}
	return Buffer{}, false
}

// Get returns buffer id.
func (s *Store) Get(id string) (Buffer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b := s.find(id); b != nil {
		return *b, true
	}
	return Buffer{}, false
}

// List returns all buffers in open order.
func (s *Store) List() []Buffer {
	return s.filter(func(*Buffer) bool { return true })
}

// Dirty returns buffers with unsaved changes in open order.
func (s *Store) Dirty() []Buffer {
	return s.filter(func(b *Buffer) bool { return b.HasUnsavedChanges })
}

// AnyUnsaved reports whether any buffer has unsaved changes.
func (s *Store) AnyUnsaved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.ContainsFunc(s.buffers, func(b *Buffer) bool { return b.HasUnsavedChanges })
}

// Len returns the number of open buffers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buffers)
}

// MarkSaved records saved as the persisted content of buffer id. Edits made
// after the save began keep the buffer dirty.
func (s *Store) MarkSaved(id, saved string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.find(id)
	if b == nil {
		return fmt.Errorf("%w: %s", ErrBufferNotFound, id)
	}
	b.OriginalContent = saved
	b.HasUnsavedChanges = b.Content != b.OriginalContent
	return nil
}

// Rekey moves buffer oldID to newID after its file was renamed, keeping
// content, dirty state and selection.
func (s *Store) Rekey(oldID, newID, name, ext string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.find(oldID)
	if b == nil {
		return fmt.Errorf("%w: %s", ErrBufferNotFound, oldID)
	}
	if oldID != newID && s.find(newID) != nil {
		return fmt.Errorf("buffer already open: %s", newID)
	}
	b.ID, b.Name, b.Extension = newID, name, ext
	if s.selected == oldID {
		s.selected = newID
	}
	return nil
}

func (s *Store) filter(keep func(*Buffer) bool) []Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Buffer, 0, len(s.buffers))
	for _, b := range s.buffers {
		if keep(b) {
			out = append(out, *b)
		}
	}
	return out
}

func (s *Store) find(id string) *Buffer {
	if i := s.index(id); i >= 0 {
		return s.buffers[i]
	}
	return nil
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.buffers, func(b *Buffer) bool { return b.ID == id })
}
