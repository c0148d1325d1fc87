package bridge

import (
	"fmt"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

// Export writes root into fsys, creating every folder including empty
// ones. Existing files are overwritten; files not in root are left alone.
// It returns the number of files written.
func Export(fsys billy.Filesystem, root *tree.Folder) (int, error) {
	return exportFolder(fsys, root, "")
}

func exportFolder(fsys billy.Filesystem, folder *tree.Folder, dir string) (int, error) {
	if dir != "" {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	written := 0
	for _, item := range folder.Items {
		switch n := item.(type) {
		case *tree.File:
			p := path.Join(dir, tree.FileName(n))
			if err := util.WriteFile(fsys, p, []byte(n.Content), 0o644); err != nil {
				return written, fmt.Errorf("failed to write %s: %w", p, err)
			}
			written++
		case *tree.Folder:
			count, err := exportFolder(fsys, n, path.Join(dir, n.Name))
			written += count
			if err != nil {
				return written, err
			}
		}
	}
	return written, nil
}
