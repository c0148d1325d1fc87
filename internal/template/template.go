// Package template materializes starter templates into workspace trees.
package template

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"unicode/utf8"

	securejoin "github.com/cyphar/filepath-securejoin"

	ferrors "github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

// DefaultMaxFileSize is the largest file copied into a tree.
const DefaultMaxFileSize = 1 << 20

// Provider turns a template key into a tree.
type Provider interface {
	Materialize(ctx context.Context, key string) (*tree.Folder, error)
	Keys() []string
}

// DefaultIgnore lists directory and file names never copied from a template.
var DefaultIgnore = []string{
	"node_modules", ".git", ".next", ".nuxt", ".angular", ".svelte-kit",
	"dist", "build", "coverage", ".turbo", ".cache",
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "bun.lockb", ".DS_Store",
}

// DirProvider reads templates from directories. Each key maps to a
// directory relative to the provider's root.
type DirProvider struct {
	dir         string
	fsys        fs.FS
	paths       map[string]string
	ignore      map[string]bool
	maxFileSize int64
}

// NewDirProvider reads templates below dir on the host.
func NewDirProvider(dir string, paths map[string]string) *DirProvider {
	p := newProvider(paths)
	p.dir = dir
	return p
}

// NewFSProvider reads templates from fsys.
func NewFSProvider(fsys fs.FS, paths map[string]string) *DirProvider {
	p := newProvider(paths)
	p.fsys = fsys
	return p
}

func newProvider(paths map[string]string) *DirProvider {
	ignore := make(map[string]bool, len(DefaultIgnore))
	for _, name := range DefaultIgnore {
		ignore[name] = true
	}
	return &DirProvider{paths: paths, ignore: ignore, maxFileSize: DefaultMaxFileSize}
}

// SetMaxFileSize changes the size limit; larger files are skipped.
func (p *DirProvider) SetMaxFileSize(n int64) {
	p.maxFileSize = n
}

// Keys returns the template keys in order.
func (p *DirProvider) Keys() []string {
	keys := make([]string, 0, len(p.paths))
	for k := range p.paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Materialize builds the tree for key in directory order. Ignored names
// are left out, as are files over the size limit or not valid UTF-8.
func (p *DirProvider) Materialize(ctx context.Context, key string) (*tree.Folder, error) {
	fsys, err := p.open(key)
	if err != nil {
		return nil, err
	}

	root := &tree.Folder{Name: tree.RootName}
	stats := &walkStats{}
	root.Items, err = p.readDir(ctx, fsys, ".", stats)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", key, err)
	}
	logging.Debug("materialized template", "template", key, "files", stats.files, "skipped", stats.skipped)
	return root, nil
}

type walkStats struct {
	files   int
	skipped int
}

func (p *DirProvider) open(key string) (fs.FS, error) {
	rel, ok := p.paths[key]
	if !ok {
		return nil, ferrors.TemplateNotFound(key)
	}

	if p.fsys == nil {
		full, err := securejoin.SecureJoin(p.dir, rel)
		if err != nil {
			return nil, fmt.Errorf("invalid template path %q: %w", rel, err)
		}
		info, err := os.Stat(full)
		if err != nil || !info.IsDir() {
			return nil, ferrors.Wrap(ferrors.ExitTemplateNotFound, "template directory missing: "+full, err)
		}
		return os.DirFS(full), nil
	}

	clean := path.Clean(rel)
	if !fs.ValidPath(clean) {
		return nil, fmt.Errorf("invalid template path %q", rel)
	}
	info, err := fs.Stat(p.fsys, clean)
	if err != nil || !info.IsDir() {
		return nil, ferrors.Wrap(ferrors.ExitTemplateNotFound, "template directory missing: "+clean, err)
	}
	return fs.Sub(p.fsys, clean)
}

func (p *DirProvider) readDir(ctx context.Context, fsys fs.FS, dir string, stats *walkStats) ([]tree.Node, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	items := make([]tree.Node, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if p.ignore[name] {
			continue
		}
		full := path.Join(dir, name)

		switch {
		case entry.IsDir():
			children, err := p.readDir(ctx, fsys, full, stats)
			if err != nil {
				return nil, err
			}
			items = append(items, &tree.Folder{Name: name, Items: children})

		case entry.Type().IsRegular():
			info, err := entry.Info()
			if err != nil {
				return nil, err
			}
			if info.Size() > p.maxFileSize {
				logging.Debug("skipping large template file", "path", full, "size", info.Size())
				stats.skipped++
				continue
			}
			data, err := fs.ReadFile(fsys, full)
			if err != nil {
				return nil, err
			}
			if !utf8.Valid(data) {
				logging.Debug("skipping binary template file", "path", full)
				stats.skipped++
				continue
			}
			base, ext := tree.SplitFileName(name)
			items = append(items, &tree.File{Name: base, Extension: ext, Content: string(data)})
			stats.files++

		default:
			stats.skipped++
		}
	}
	return items, nil
}
