package workspace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// SaveFailure is one file SaveAll could not save.
type SaveFailure struct {
	ID  string
	Err error
}

// SaveReport is the outcome of SaveAll.
type SaveReport struct {
	Saved  []string
	Failed []SaveFailure
}

// Err returns nil when every file saved, otherwise an error joining the
// individual failures.
func (r SaveReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = fmt.Errorf("%s: %w", f.ID, f.Err)
	}
	return fmt.Errorf("failed to save %d of %d files: %w",
		len(r.Failed), len(r.Failed)+len(r.Saved), errors.Join(errs...))
}

// SaveAll saves every dirty buffer. Each file succeeds or fails on its own;
// the report lists both in id order.
func (s *Session) SaveAll(ctx context.Context) SaveReport {
	dirty := s.buffers.Dirty()

	var (
		mu     sync.Mutex
		report SaveReport
		g      errgroup.Group
	)
	g.SetLimit(s.saveLimit)
	for _, b := range dirty {
		g.Go(func() error {
			err := s.saveOne(ctx, b.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, SaveFailure{ID: b.ID, Err: err})
			} else {
				report.Saved = append(report.Saved, b.ID)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.Saved)
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].ID < report.Failed[j].ID })

	switch {
	case len(dirty) == 0:
	case len(report.Failed) == 0:
		s.notifier.Success(fmt.Sprintf("Saved %d files", len(report.Saved)))
	default:
		s.notifier.Error(report.Err().Error())
	}
	return report
}
