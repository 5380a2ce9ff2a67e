package store

import (
	"context"
	"errors"

	"basegraph.app/sandbox/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique key (id or namespace) is already taken
var ErrConflict = errors.New("already exists")

// WorkspaceStore defines the contract for workspace metadata access
type WorkspaceStore interface {
	GetByID(ctx context.Context, id int64) (*model.Workspace, error)
	Create(ctx context.Context, ws *model.Workspace) error
	// Update replaces the name and declared tables. Query history is only
	// ever touched through AppendQueryHistory.
	Update(ctx context.Context, ws *model.Workspace) error
	Delete(ctx context.Context, id int64) error
	// List returns workspaces most recently updated first, without history.
	List(ctx context.Context, limit int) ([]model.Workspace, error)
	// AppendQueryHistory pushes one entry and keeps the newest
	// model.MaxQueryHistory entries.
	AppendQueryHistory(ctx context.Context, id int64, entry model.QueryHistoryEntry) error
}
