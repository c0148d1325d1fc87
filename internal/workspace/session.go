package workspace

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/buffers"
	ferrors "github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/metrics"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/sandbox"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/store"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/template"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

// DefaultSaveConcurrency bounds parallel saves in SaveAll.
const DefaultSaveConcurrency = 4

// SandboxWriter writes into the live sandbox. *sandbox.Controller
// implements it and returns sandbox.ErrNoSandbox when nothing is booted.
type SandboxWriter interface {
	WriteFile(ctx context.Context, filePath, content string) error
	MkdirAll(ctx context.Context, dir string) error
}

// Options configures a Session.
type Options struct {
	// TemplateKey seeds a workspace that has nothing stored
	TemplateKey string

	// Sandbox receives saved files and structural changes; may be set later
	Sandbox SandboxWriter

	Notifier        Notifier
	Audit           *audit.Logger
	SaveConcurrency int
}

// Session is one open workspace.
type Session struct {
	id          string
	templateKey string
	gw          store.Gateway
	buffers     *buffers.Store
	notifier    Notifier
	audit       *audit.Logger
	saveLimit   int

	// mu serializes tree edits from computing the next tree to adopting it
	mu      sync.Mutex
	root    *tree.Folder
	sandbox SandboxWriter
}

// Open loads workspace id from gw. When the store has nothing for id the
// tree is materialized from opts.TemplateKey and persisted.
func Open(ctx context.Context, id string, gw store.Gateway, templates template.Provider, opts Options) (*Session, error) {
	s := &Session{
		id:          id,
		templateKey: opts.TemplateKey,
		gw:          gw,
		buffers:     buffers.New(),
		notifier:    opts.Notifier,
		audit:       opts.Audit,
		saveLimit:   opts.SaveConcurrency,
		sandbox:     opts.Sandbox,
	}
	if s.notifier == nil {
		s.notifier = logNotifier{}
	}
	if s.saveLimit <= 0 {
		s.saveLimit = DefaultSaveConcurrency
	}

	root, err := gw.Load(ctx, id)
	switch {
	case err == nil:
		s.root = root
	case errors.Is(err, store.ErrNotFound):
		if templates == nil || opts.TemplateKey == "" {
			return nil, ferrors.WorkspaceNotFound(id)
		}
		if s.root, err = s.seed(ctx, templates); err != nil {
			return nil, err
		}
	default:
		return nil, ferrors.PersistenceFailed("load", err)
	}

	files, folders := tree.Count(s.root)
	logging.Debug("opened workspace", "workspace", id, "files", files, "folders", folders)
	return s, nil
}

// seed materializes the template and persists it so the template is read
// once per workspace. A failed persist is reported but the tree is used.
func (s *Session) seed(ctx context.Context, templates template.Provider) (*tree.Folder, error) {
	root, err := templates.Materialize(ctx, s.templateKey)
	if err != nil {
		return nil, err
	}
	if err := s.gw.Save(ctx, s.id, root); err != nil {
		logging.Warn("failed to persist template tree", "workspace", s.id, "error", err)
		s.notifier.Error(fmt.Sprintf("Failed to save template %s: %v", s.templateKey, err))
	}
	s.logEvent(audit.EventCreate, "template="+s.templateKey)
	return root, nil
}

// ID returns the workspace id.
func (s *Session) ID() string { return s.id }

// TemplateKey returns the template the session was opened with.
func (s *Session) TemplateKey() string { return s.templateKey }

// Buffers returns the open-buffer store.
func (s *Session) Buffers() *buffers.Store { return s.buffers }

// Tree returns the current tree.
func (s *Session) Tree() *tree.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// AttachSandbox routes saves and structural edits to w.
func (s *Session) AttachSandbox(w SandboxWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sandbox = w
}

// OpenFile opens file from the current tree in a buffer.
func (s *Session) OpenFile(file *tree.File) buffers.Buffer {
	b := s.buffers.Open(file, s.Tree())
	metrics.SetOpenBuffers(s.buffers.Len())
	return b
}

// OpenPath opens the file at filePath, keyed by that path.
func (s *Session) OpenPath(filePath string) (buffers.Buffer, error) {
	filePath = strings.Trim(path.Clean("/"+filePath), "/")
	f, ok := tree.Lookup(s.Tree(), filePath)
	if !ok {
		return buffers.Buffer{}, ferrors.PathNotFound(filePath)
	}
	b := s.buffers.OpenAt(filePath, f)
	metrics.SetOpenBuffers(s.buffers.Len())
	return b, nil
}

// Update replaces a buffer's content.
func (s *Session) Update(id, content string) error {
	return s.buffers.Update(id, content)
}

// Close closes a buffer.
func (s *Session) Close(id string) bool {
	closed := s.buffers.Close(id)
	metrics.SetOpenBuffers(s.buffers.Len())
	return closed
}

// Save writes buffer id to the sandbox and the store, then adopts the new
// tree and marks the buffer saved. On any failure the buffer stays dirty
// and the tree is unchanged.
func (s *Session) Save(ctx context.Context, id string) error {
	if err := s.saveOne(ctx, id); err != nil {
		s.notifier.Error(fmt.Sprintf("Failed to save %s: %v", id, err))
		return err
	}
	s.notifier.Success(fmt.Sprintf("Saved %s", id))
	return nil
}

func (s *Session) saveOne(ctx context.Context, id string) error {
	start := time.Now()
	err := s.save(ctx, id)
	metrics.RecordSave(err == nil, time.Since(start))

	if err != nil {
		logging.Warn("save failed", "workspace", s.id, "file", id, "error", err)
		s.logEvent(audit.EventSaveFailed, id+": "+err.Error())
		return err
	}
	logging.Debug("saved file", "workspace", s.id, "file", id)
	s.logEvent(audit.EventSave, id)
	return nil
}

func (s *Session) save(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buffers.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", buffers.ErrBufferNotFound, id)
	}
	if _, ok := tree.Lookup(s.root, id); !ok {
		return ferrors.PathNotFound(id)
	}
	next, err := tree.UpdateFileContent(s.root, id, b.Content)
	if err != nil {
		return err
	}

	if err := s.writeSandbox(ctx, id, b.Content); err != nil {
		return err
	}
	if err := s.gw.Save(ctx, s.id, next); err != nil {
		return ferrors.PersistenceFailed("save", err)
	}

	s.root = next
	return s.buffers.MarkSaved(id, b.Content)
}

// writeSandbox must be called with mu held. A missing sandbox is not an
// error: the file reaches it on the next mount. A controller that was torn
// down reports sandbox.ErrNoSandbox and counts as missing, so saves keep
// reaching the store after the dev server is gone.
func (s *Session) writeSandbox(ctx context.Context, filePath, content string) error {
	if s.sandbox == nil {
		return nil
	}
	err := s.sandbox.WriteFile(ctx, filePath, content)
	if errors.Is(err, sandbox.ErrNoSandbox) {
		return nil
	}
	if err != nil {
		return ferrors.SandboxFailed("write", err)
	}
	return nil
}

// mkdirSandbox follows the same rules as writeSandbox.
func (s *Session) mkdirSandbox(ctx context.Context, dir string) error {
	if s.sandbox == nil {
		return nil
	}
	err := s.sandbox.MkdirAll(ctx, dir)
	if errors.Is(err, sandbox.ErrNoSandbox) {
		return nil
	}
	if err != nil {
		return ferrors.SandboxFailed("mkdir", err)
	}
	return nil
}

// commit persists next and adopts it. It must be called with mu held.
func (s *Session) commit(ctx context.Context, op string, next *tree.Folder) error {
	if err := s.gw.Save(ctx, s.id, next); err != nil {
		err = ferrors.PersistenceFailed(op, err)
		s.notifier.Error(fmt.Sprintf("Failed to save changes: %v", err))
		return err
	}
	s.root = next
	s.logEvent(audit.EventStructure, op)
	return nil
}

// AddFile adds file to the folder at parentPath and writes it into the
// sandbox.
func (s *Session) AddFile(ctx context.Context, parentPath string, file *tree.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := tree.AddFile(s.root, parentPath, file)
	if err != nil {
		return err
	}
	filePath := path.Join(parentPath, tree.FileName(file))
	if err := s.writeSandbox(ctx, filePath, file.Content); err != nil {
		return err
	}
	return s.commit(ctx, "add-file "+filePath, next)
}

// AddFolder adds an empty folder at parentPath and creates it in the
// sandbox.
func (s *Session) AddFolder(ctx context.Context, parentPath, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := tree.AddFolder(s.root, parentPath, &tree.Folder{Name: name})
	if err != nil {
		return err
	}
	dir := path.Join(parentPath, name)
	if err := s.mkdirSandbox(ctx, dir); err != nil {
		return err
	}
	return s.commit(ctx, "add-folder "+dir, next)
}

// DeleteFile removes a file and closes its buffer.
func (s *Session) DeleteFile(ctx context.Context, parentPath string, file *tree.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := tree.DeleteFile(s.root, parentPath, file)
	if err != nil {
		return err
	}
	filePath := path.Join(parentPath, tree.FileName(file))
	if err := s.commit(ctx, "delete-file "+filePath, next); err != nil {
		return err
	}
	s.buffers.Close(filePath)
	metrics.SetOpenBuffers(s.buffers.Len())
	return nil
}

// DeleteFolder removes a folder and closes buffers of files inside it.
func (s *Session) DeleteFolder(ctx context.Context, parentPath, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := tree.DeleteFolder(s.root, parentPath, name)
	if err != nil {
		return err
	}
	dir := path.Join(parentPath, name)
	if err := s.commit(ctx, "delete-folder "+dir, next); err != nil {
		return err
	}
	for _, b := range s.buffers.List() {
		if strings.HasPrefix(b.ID, dir+"/") {
			s.buffers.Close(b.ID)
		}
	}
	metrics.SetOpenBuffers(s.buffers.Len())
	return nil
}

// RenameFile renames a file in place; an open buffer follows it.
func (s *Session) RenameFile(ctx context.Context, parentPath string, file *tree.File, newName, newExt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := tree.RenameFile(s.root, parentPath, file, newName, newExt)
	if err != nil {
		return err
	}
	oldPath := path.Join(parentPath, tree.FileName(file))
	newPath := path.Join(parentPath, tree.FileName(&tree.File{Name: newName, Extension: newExt}))
	if err := s.commit(ctx, "rename-file "+oldPath+" -> "+newPath, next); err != nil {
		return err
	}
	if _, open := s.buffers.Get(oldPath); open {
		if err := s.buffers.Rekey(oldPath, newPath, newName, newExt); err != nil {
			logging.Warn("failed to rekey buffer", "workspace", s.id, "from", oldPath, "to", newPath, "error", err)
		}
	}
	return nil
}

// RenameFolder renames a folder; open buffers below it follow.
func (s *Session) RenameFolder(ctx context.Context, parentPath, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := tree.RenameFolder(s.root, parentPath, oldName, newName)
	if err != nil {
		return err
	}
	oldDir, newDir := path.Join(parentPath, oldName), path.Join(parentPath, newName)
	if err := s.commit(ctx, "rename-folder "+oldDir+" -> "+newDir, next); err != nil {
		return err
	}
	for _, b := range s.buffers.List() {
		if rest, ok := strings.CutPrefix(b.ID, oldDir+"/"); ok {
			if err := s.buffers.Rekey(b.ID, newDir+"/"+rest, b.Name, b.Extension); err != nil {
				logging.Warn("failed to rekey buffer", "workspace", s.id, "buffer", b.ID, "error", err)
			}
		}
	}
	return nil
}

func (s *Session) logEvent(t audit.EventType, details string) {
	if err := s.audit.LogEvent(t, s.id, details); err != nil {
		logging.Debug("failed to write audit event", "type", t, "error", err)
	}
}
