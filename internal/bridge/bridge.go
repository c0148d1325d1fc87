// Package bridge mirrors a workspace into a host directory so local
// editors can work on it. Changes made in the directory flow back through
// the session: edits are saved like editor buffers, new files and folders
// are added and removed ones deleted.
package bridge

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/buffers"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/template"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

// DefaultDebounce is how long the bridge waits for a burst of file events
// to settle before applying them.
const DefaultDebounce = 150 * time.Millisecond

// Session is the part of a workspace session the bridge drives.
type Session interface {
	Tree() *tree.Folder
	OpenPath(filePath string) (buffers.Buffer, error)
	Update(id, content string) error
	Save(ctx context.Context, id string) error
	AddFile(ctx context.Context, parentPath string, file *tree.File) error
	AddFolder(ctx context.Context, parentPath, name string) error
	DeleteFile(ctx context.Context, parentPath string, file *tree.File) error
	DeleteFolder(ctx context.Context, parentPath, name string) error
}

// Bridge syncs one session with one directory.
type Bridge struct {
	dir      string
	fs       billy.Filesystem
	session  Session
	ignore   map[string]bool
	debounce time.Duration
}

// New creates a bridge between s and dir.
func New(dir string, s Session) *Bridge {
	ignore := make(map[string]bool, len(template.DefaultIgnore))
	for _, name := range template.DefaultIgnore {
		ignore[name] = true
	}
	return &Bridge{
		dir:      dir,
		fs:       osfs.New(dir),
		session:  s,
		ignore:   ignore,
		debounce: DefaultDebounce,
	}
}

// Export writes the session's tree into the directory.
func (b *Bridge) Export() (int, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return 0, err
	}
	return Export(b.fs, b.session.Tree())
}

// Run watches the directory and applies changes until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := b.watchDir(watcher, b.dir, nil); err != nil {
		return err
	}
	logging.Debug("watching sync directory", "dir", b.dir)

	pending := make(map[string]struct{})
	timer := time.NewTimer(b.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			rel, ok := b.relative(event.Name)
			if !ok || b.Ignored(rel) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// Files created before the watch was added produce no events.
					if err := b.watchDir(watcher, event.Name, pending); err != nil {
						logging.Warn("failed to watch directory", "dir", event.Name, "error", err)
					}
				}
			}
			pending[rel] = struct{}{}
			timer.Reset(b.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("file watcher error", "dir", b.dir, "error", err)

		case <-timer.C:
			b.flush(ctx, pending)
			pending = make(map[string]struct{})
		}
	}
}

// watchDir adds watches for dir and every directory below it. When
// pending is non-nil every path found is queued.
func (b *Bridge) watchDir(watcher *fsnotify.Watcher, dir string, pending map[string]struct{}) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, ok := b.relative(p)
		if ok && b.Ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if pending != nil && ok {
			pending[rel] = struct{}{}
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}

// flush applies pending paths parents first.
func (b *Bridge) flush(ctx context.Context, pending map[string]struct{}) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := b.Apply(ctx, p); err != nil {
			logging.Warn("failed to sync change", "path", p, "error", err)
		}
	}
}

func (b *Bridge) relative(name string) (string, bool) {
	rel, err := filepath.Rel(b.dir, name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Ignored reports whether rel is skipped by the bridge.
func (b *Bridge) Ignored(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if b.ignore[seg] {
			return true
		}
	}
	base := path.Base(rel)
	return strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") || base == "4913"
}

// Apply brings the session in line with the directory at rel.
func (b *Bridge) Apply(ctx context.Context, rel string) error {
	root := b.session.Tree()
	dir, base := path.Split(rel)
	dir = strings.TrimSuffix(dir, "/")

	info, err := b.fs.Stat(rel)
	if errors.Is(err, fs.ErrNotExist) {
		return b.remove(ctx, root, rel, dir, base)
	}
	if err != nil {
		return err
	}

	if info.IsDir() {
		return b.ensureFolder(ctx, rel)
	}
	if !info.Mode().IsRegular() || info.Size() > template.DefaultMaxFileSize {
		return nil
	}

	data, err := util.ReadFile(b.fs, rel)
	if err != nil {
		return err
	}
	content := string(data)

	if f, ok := tree.Lookup(root, rel); ok {
		if f.Content == content {
			return nil
		}
		buf, err := b.session.OpenPath(rel)
		if err != nil {
			return err
		}
		if err := b.session.Update(buf.ID, content); err != nil {
			return err
		}
		logging.Debug("syncing edited file", "path", rel)
		return b.session.Save(ctx, buf.ID)
	}

	if err := b.ensureFolder(ctx, dir); err != nil {
		return err
	}
	name, ext := tree.SplitFileName(base)
	logging.Debug("syncing new file", "path", rel)
	return b.session.AddFile(ctx, dir, &tree.File{Name: name, Extension: ext, Content: content})
}

func (b *Bridge) remove(ctx context.Context, root *tree.Folder, rel, dir, base string) error {
	if _, ok := tree.Lookup(root, rel); ok {
		name, ext := tree.SplitFileName(base)
		logging.Debug("syncing deleted file", "path", rel)
		return b.session.DeleteFile(ctx, dir, &tree.File{Name: name, Extension: ext})
	}
	if _, ok := tree.LookupFolder(root, rel); ok {
		logging.Debug("syncing deleted folder", "path", rel)
		return b.session.DeleteFolder(ctx, dir, base)
	}
	return nil
}

// ensureFolder adds any folders of dir missing from the tree.
func (b *Bridge) ensureFolder(ctx context.Context, dir string) error {
	if dir == "" {
		return nil
	}
	parent := ""
	for _, seg := range strings.Split(dir, "/") {
		current := path.Join(parent, seg)
		if _, ok := tree.LookupFolder(b.session.Tree(), current); !ok {
			if err := b.session.AddFolder(ctx, parent, seg); err != nil {
				return err
			}
		}
		parent = current
	}
	return nil
}
