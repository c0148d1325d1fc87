package bridge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/store"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/workspace"
)

func projectTree() *tree.Folder {
	return tree.NewRoot(
		&tree.File{Name: "package", Extension: "json", Content: "{}"},
		&tree.Folder{Name: "app", Items: []tree.Node{
			&tree.File{Name: "index", Extension: "js", Content: "v1"},
		}},
		&tree.Folder{Name: "empty"},
	)
}

func newSession(t *testing.T) (*workspace.Session, store.Gateway) {
	t.Helper()
	return newSessionFrom(t, projectTree())
}

func newSessionFrom(t *testing.T, root *tree.Folder) (*workspace.Session, store.Gateway) {
	t.Helper()
	gw := store.NewMemory()
	ctx := context.Background()
	if err := gw.Save(ctx, "ws", root); err != nil {
		t.Fatal(err)
	}
	s, err := workspace.Open(ctx, "ws", gw, nil, workspace.Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s, gw
}

func TestExport(t *testing.T) {
	fsys := memfs.New()
	n, err := Export(fsys, projectTree())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Export() wrote %d files, want 2", n)
	}

	data, err := util.ReadFile(fsys, "app/index.js")
	if err != nil || string(data) != "v1" {
		t.Errorf("app/index.js = %q, %v", data, err)
	}
	if info, err := fsys.Stat("empty"); err != nil || !info.IsDir() {
		t.Errorf("empty folder not exported: %v", err)
	}
}

func TestApply(t *testing.T) {
	s, gw := newSession(t)
	dir := t.TempDir()
	b := New(dir, s)
	ctx := context.Background()

	if _, err := b.Export(); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	// Unchanged files are not saved again.
	if err := b.Apply(ctx, "app/index.js"); err != nil {
		t.Fatalf("Apply(unchanged) error = %v", err)
	}
	if s.Buffers().Len() != 0 {
		t.Error("unchanged file should not open a buffer")
	}

	write(t, dir, "app/index.js", "v2")
	if err := b.Apply(ctx, "app/index.js"); err != nil {
		t.Fatalf("Apply(edit) error = %v", err)
	}
	if got := storedContent(t, gw, "app/index.js"); got != "v2" {
		t.Errorf("stored app/index.js = %q", got)
	}

	write(t, dir, "lib/util/strings.ts", "export {}")
	if err := b.Apply(ctx, "lib/util/strings.ts"); err != nil {
		t.Fatalf("Apply(new) error = %v", err)
	}
	if got := storedContent(t, gw, "lib/util/strings.ts"); got != "export {}" {
		t.Errorf("stored lib/util/strings.ts = %q", got)
	}

	if err := os.Remove(filepath.Join(dir, "package.json")); err != nil {
		t.Fatal(err)
	}
	if err := b.Apply(ctx, "package.json"); err != nil {
		t.Fatalf("Apply(delete) error = %v", err)
	}
	if _, ok := tree.Lookup(s.Tree(), "package.json"); ok {
		t.Error("deleted file still in tree")
	}

	if err := os.RemoveAll(filepath.Join(dir, "empty")); err != nil {
		t.Fatal(err)
	}
	if err := b.Apply(ctx, "empty"); err != nil {
		t.Fatalf("Apply(delete folder) error = %v", err)
	}
	if _, ok := tree.LookupFolder(s.Tree(), "empty"); ok {
		t.Error("deleted folder still in tree")
	}
}

func TestApply_SameNameInTwoFolders(t *testing.T) {
	s, gw := newSessionFrom(t, tree.NewRoot(
		&tree.Folder{Name: "src", Items: []tree.Node{
			&tree.File{Name: "index", Extension: "js", Content: "SRC"},
		}},
		&tree.Folder{Name: "lib", Items: []tree.Node{
			&tree.File{Name: "index", Extension: "js", Content: "LIB"},
		}},
	))
	dir := t.TempDir()
	b := New(dir, s)
	ctx := context.Background()

	if _, err := b.Export(); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	write(t, dir, "lib/index.js", "LIB v2")
	if err := b.Apply(ctx, "lib/index.js"); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got := storedContent(t, gw, "lib/index.js"); got != "LIB v2" {
		t.Errorf("stored lib/index.js = %q, want %q", got, "LIB v2")
	}
	if got := storedContent(t, gw, "src/index.js"); got != "SRC" {
		t.Errorf("stored src/index.js = %q, want %q", got, "SRC")
	}
	if _, open := s.Buffers().Get("src/index.js"); open {
		t.Error("src/index.js should not have been opened")
	}
}

func TestIgnored(t *testing.T) {
	b := New(t.TempDir(), nil)
	tests := map[string]bool{
		"app/index.js":            false,
		"node_modules/react/x.js": true,
		"app/.git/HEAD":           true,
		"app/index.js~":           true,
		"app/.index.js.swp":       true,
		"package-lock.json":       true,
		"src/build.ts":            false,
	}
	for rel, want := range tests {
		if got := b.Ignored(rel); got != want {
			t.Errorf("Ignored(%q) = %v, want %v", rel, got, want)
		}
	}
}

func TestRun(t *testing.T) {
	s, gw := newSession(t)
	dir := t.TempDir()
	b := New(dir, s)
	b.debounce = 20 * time.Millisecond
	if _, err := b.Export(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	write(t, dir, "app/index.js", "from editor")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		root, err := gw.Load(context.Background(), "ws")
		if err == nil {
			if f, ok := tree.Lookup(root, "app/index.js"); ok && f.Content == "from editor" {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("edit in sync dir never reached the store")
}

func write(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func storedContent(t *testing.T, gw store.Gateway, rel string) string {
	t.Helper()
	root, err := gw.Load(context.Background(), "ws")
	if err != nil {
		t.Fatal(err)
	}
	f, ok := tree.Lookup(root, rel)
	if !ok {
		t.Fatalf("%s not stored", rel)
	}
	return f.Content
}
