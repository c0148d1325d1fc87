package runtime

import (
	"context"
	"fmt"
	"sort"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/transform"
)

type fileWriter interface {
	MkdirAll(ctx context.Context, path string) error
	WriteFile(ctx context.Context, path string, data []byte) error
}

// mountMapping creates every directory of m, parents first, then writes
// every file in path order.
func mountMapping(ctx context.Context, w fileWriter, m transform.Mapping) error {
	for _, dir := range m.Dirs() {
		if err := w.MkdirAll(ctx, dir); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	files := m.Flatten()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.WriteFile(ctx, p, []byte(files[p])); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
	}
	return nil
}
