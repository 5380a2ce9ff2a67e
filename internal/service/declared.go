package service

import (
	"context"
	"fmt"
	"time"

	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/reconcile"
	"basegraph.app/sandbox/internal/store"
)

// refreshDeclared rewrites the workspace's declared tables from what the
// engine holds now and saves them. Tables the extractor had to skip keep
// their previous declaration so a transient read failure never deletes
// metadata.
func refreshDeclared(ctx context.Context, extractor StateExtractor, workspaces store.WorkspaceStore, ws *model.Workspace) ([]reconcile.TableFailure, error) {
	state, err := extractor.ExtractWorkspaceState(ctx, ws.Namespace)
	if err != nil {
		return nil, fmt.Errorf("extracting workspace state: %w", err)
	}

	ws.Tables = mergeDeclared(ws.Tables, state, time.Now().UTC())
	if err := workspaces.Update(ctx, ws); err != nil {
		return nil, fmt.Errorf("saving workspace: %w", err)
	}
	return state.Skipped, nil
}

func mergeDeclared(previous []model.Table, state *reconcile.State, now time.Time) []model.Table {
	byName := make(map[string]model.Table, len(previous))
	for _, t := range previous {
		byName[t.Name] = t
	}

	out := make([]model.Table, 0, len(state.Tables)+len(state.Skipped))
	for _, t := range state.Tables {
		t.CreatedAt = now
		if prev, ok := byName[t.Name]; ok && !prev.CreatedAt.IsZero() {
			t.CreatedAt = prev.CreatedAt
		}
		out = append(out, t)
	}
	for _, f := range state.Skipped {
		if prev, ok := byName[f.TableName]; ok {
			out = append(out, prev)
		}
	}
	return out
}

func loadWorkspace(ctx context.Context, workspaces store.WorkspaceStore, id int64) (*model.Workspace, error) {
	ws, err := workspaces.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading workspace %d: %w", id, err)
	}
	return ws, nil
}
