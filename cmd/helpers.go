package cmd

import (
	"context"
	stderrors "errors"
	"sort"

	"github.com/google/uuid"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/store"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tui"
)

// cfg returns the loaded configuration.
func cfg() *config.Config {
	return app.Default.Config
}

// openStore returns the application store.
func openStore() (store.Store, error) {
	s, err := app.Default.Store()
	if err != nil {
		return nil, errors.PersistenceFailed("open", err)
	}
	return s, nil
}

// loadWorkspace loads a stored tree or returns a WorkspaceNotFound error.
func loadWorkspace(ctx context.Context, id string) (*tree.Folder, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}
	root, err := s.Load(ctx, id)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.WorkspaceNotFound(id)
	}
	if err != nil {
		return nil, errors.PersistenceFailed("load", err)
	}
	return root, nil
}

// workspaceExists reports whether id has a stored tree.
func workspaceExists(ctx context.Context, id string) (bool, error) {
	_, err := loadWorkspace(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.HasCode(err, errors.ExitWorkspaceNotFound):
		return false, nil
	default:
		return false, err
	}
}

// listWorkspaces lists stored workspaces.
func listWorkspaces(ctx context.Context) ([]store.Entry, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}
	entries, err := s.List(ctx)
	if err != nil {
		return nil, errors.PersistenceFailed("list", err)
	}
	return entries, nil
}

// resolveID validates id, generating one when it is empty.
func resolveID(id string) (string, error) {
	if id == "" {
		return uuid.NewString(), nil
	}
	if err := config.ValidateWorkspaceID(id); err != nil {
		return "", errors.ValidationError(err.Error())
	}
	return id, nil
}

// templateChoices lists the configured templates for the wizard.
func templateChoices() []tui.TemplateChoice {
	c := cfg()
	keys := c.TemplateKeys()
	sort.Strings(keys)
	choices := make([]tui.TemplateChoice, 0, len(keys))
	for _, k := range keys {
		choices = append(choices, tui.TemplateChoice{Key: k, Description: c.Templates.Paths[k]})
	}
	return choices
}
