package dto

import (
	"time"

	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/reconcile"
	"basegraph.app/sandbox/internal/service"
)

type CreateWorkspaceRequest struct {
	Name string `json:"name" binding:"required"`
}

type UpdateWorkspaceRequest struct {
	Name string `json:"name" binding:"required"`
}

type WorkspaceSummary struct {
	ID         int64     `json:"id,string"`
	Name       string    `json:"name"`
	Namespace  string    `json:"namespace"`
	TableCount int       `json:"table_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type WorkspaceResponse struct {
	ID             int64                     `json:"id,string"`
	Name           string                    `json:"name"`
	Namespace      string                    `json:"namespace"`
	Tables         []TableResponse           `json:"tables"`
	PhysicalTables []string                  `json:"physical_tables,omitempty"`
	QueryHistory   []model.QueryHistoryEntry `json:"query_history"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

type WorkspaceDetailsResponse struct {
	Workspace WorkspaceResponse     `json:"workspace"`
	Sync      *reconcile.SyncReport `json:"sync"`
}

type SyncResponse struct {
	Workspace WorkspaceResponse        `json:"workspace"`
	Skipped   []reconcile.TableFailure `json:"skipped"`
}

func ToWorkspaceSummary(ws model.Workspace) WorkspaceSummary {
	return WorkspaceSummary{
		ID:         ws.ID,
		Name:       ws.Name,
		Namespace:  ws.Namespace,
		TableCount: len(ws.Tables),
		CreatedAt:  ws.CreatedAt,
		UpdatedAt:  ws.UpdatedAt,
	}
}

func ToWorkspaceResponse(ws *model.Workspace, history []model.QueryHistoryEntry) WorkspaceResponse {
	if history == nil {
		history = []model.QueryHistoryEntry{}
	}
	return WorkspaceResponse{
		ID:           ws.ID,
		Name:         ws.Name,
		Namespace:    ws.Namespace,
		Tables:       ToTableResponses(ws.Tables),
		QueryHistory: history,
		CreatedAt:    ws.CreatedAt,
		UpdatedAt:    ws.UpdatedAt,
	}
}

func ToWorkspaceDetailsResponse(d *service.WorkspaceDetails) WorkspaceDetailsResponse {
	resp := ToWorkspaceResponse(d.Workspace, d.RecentQueries)
	resp.PhysicalTables = d.PhysicalTables
	return WorkspaceDetailsResponse{Workspace: resp, Sync: d.Sync}
}

func ToSyncResponse(r *service.SyncResult) SyncResponse {
	skipped := r.Skipped
	if skipped == nil {
		skipped = []reconcile.TableFailure{}
	}
	return SyncResponse{
		Workspace: ToWorkspaceResponse(r.Workspace, r.Workspace.RecentHistory(0)),
		Skipped:   skipped,
	}
}
