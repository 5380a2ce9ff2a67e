package store

import (
	"context"

	"basegraph.app/sandbox/core/docdb"
)

type Stores struct {
	client *docdb.Client
}

func NewStores(client *docdb.Client) *Stores {
	return &Stores{client: client}
}

func (s *Stores) Workspaces() WorkspaceStore {
	return newWorkspaceStore(s.client.Workspaces())
}

// EnsureIndexes creates the indexes the stores rely on. Safe to call on
// every boot.
func (s *Stores) EnsureIndexes(ctx context.Context) error {
	return ensureWorkspaceIndexes(ctx, s.client.Workspaces())
}
