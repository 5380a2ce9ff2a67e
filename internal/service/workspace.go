package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"basegraph.app/sandbox/common/id"
	"basegraph.app/sandbox/common/logger"
	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/reconcile"
	"basegraph.app/sandbox/internal/schema"
	"basegraph.app/sandbox/internal/store"
)

const (
	maxWorkspaceNameLength = 100
	defaultWorkspaceLimit  = 50
	maxWorkspaceLimit      = 200
	recentQueryCount       = 10
)

type WorkspaceService interface {
	Create(ctx context.Context, name string) (*model.Workspace, error)
	Get(ctx context.Context, id int64) (*WorkspaceDetails, error)
	Update(ctx context.Context, id int64, name string) (*model.Workspace, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit int) ([]model.Workspace, error)
	Sync(ctx context.Context, id int64) (*SyncResult, error)
}

// WorkspaceDetails is a workspace after VerifyAndSync ran. Sync is nil when
// nothing had to be rebuilt.
type WorkspaceDetails struct {
	Workspace      *model.Workspace
	PhysicalTables []string
	RecentQueries  []model.QueryHistoryEntry
	Sync           *reconcile.SyncReport
}

type SyncResult struct {
	Workspace *model.Workspace
	Skipped   []reconcile.TableFailure
}

type workspaceService struct {
	workspaces store.WorkspaceStore
	engine     Engine
	syncer     Syncer
	extractor  StateExtractor
}

func NewWorkspaceService(workspaces store.WorkspaceStore, eng Engine, syncer Syncer, extractor StateExtractor) WorkspaceService {
	return &workspaceService{
		workspaces: workspaces,
		engine:     eng,
		syncer:     syncer,
		extractor:  extractor,
	}
}

func (s *workspaceService) Create(ctx context.Context, name string) (*model.Workspace, error) {
	name, err := normalizeWorkspaceName(name)
	if err != nil {
		return nil, err
	}

	wsID := id.New()
	ws := &model.Workspace{
		ID:        wsID,
		Name:      name,
		Namespace: model.NamespaceFor(wsID),
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		WorkspaceID: logger.Ptr(wsID),
		Namespace:   logger.Ptr(ws.Namespace),
		Component:   "sandbox.workspace",
	})

	if err := s.engine.CreateNamespace(ctx, ws.Namespace); err != nil {
		return nil, fmt.Errorf("creating namespace: %w", err)
	}

	if err := s.workspaces.Create(ctx, ws); err != nil {
		if dropErr := s.engine.DropNamespace(ctx, ws.Namespace); dropErr != nil {
			slog.ErrorContext(ctx, "failed to drop namespace after store failure", "error", dropErr)
		}
		return nil, fmt.Errorf("saving workspace: %w", err)
	}

	slog.InfoContext(ctx, "workspace created")
	return ws, nil
}

func (s *workspaceService) Get(ctx context.Context, id int64) (*WorkspaceDetails, error) {
	ws, err := loadWorkspace(ctx, s.workspaces, id)
	if err != nil {
		return nil, err
	}

	report, err := s.syncer.VerifyAndSync(ctx, ws.ID, ws.Namespace, ws.Tables)
	if err != nil {
		return nil, fmt.Errorf("syncing workspace: %w", err)
	}

	physical, err := s.engine.ListTables(ctx, ws.Namespace)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	details := &WorkspaceDetails{
		Workspace:      ws,
		PhysicalTables: physical,
		RecentQueries:  ws.RecentHistory(recentQueryCount),
	}
	if report.Reconstructed {
		details.Sync = report
	}
	return details, nil
}

func (s *workspaceService) Update(ctx context.Context, id int64, name string) (*model.Workspace, error) {
	name, err := normalizeWorkspaceName(name)
	if err != nil {
		return nil, err
	}

	ws, err := loadWorkspace(ctx, s.workspaces, id)
	if err != nil {
		return nil, err
	}

	ws.Name = name
	if err := s.workspaces.Update(ctx, ws); err != nil {
		return nil, fmt.Errorf("updating workspace: %w", err)
	}
	return ws, nil
}

// Delete drops the namespace before the metadata so a failed drop leaves
// the workspace reachable for another attempt.
func (s *workspaceService) Delete(ctx context.Context, id int64) error {
	ws, err := loadWorkspace(ctx, s.workspaces, id)
	if err != nil {
		return err
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		WorkspaceID: logger.Ptr(ws.ID),
		Namespace:   logger.Ptr(ws.Namespace),
		Component:   "sandbox.workspace",
	})

	if err := s.engine.DropNamespace(ctx, ws.Namespace); err != nil {
		return fmt.Errorf("dropping namespace: %w", err)
	}
	if err := s.workspaces.Delete(ctx, ws.ID); err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}

	slog.InfoContext(ctx, "workspace deleted")
	return nil
}

func (s *workspaceService) List(ctx context.Context, limit int) ([]model.Workspace, error) {
	if limit <= 0 {
		limit = defaultWorkspaceLimit
	}
	if limit > maxWorkspaceLimit {
		limit = maxWorkspaceLimit
	}

	list, err := s.workspaces.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	return list, nil
}

// Sync rebuilds the declared tables from the engine's current state.
func (s *workspaceService) Sync(ctx context.Context, id int64) (*SyncResult, error) {
	ws, err := loadWorkspace(ctx, s.workspaces, id)
	if err != nil {
		return nil, err
	}

	skipped, err := refreshDeclared(ctx, s.extractor, s.workspaces, ws)
	if err != nil {
		return nil, err
	}
	return &SyncResult{Workspace: ws, Skipped: skipped}, nil
}

func normalizeWorkspaceName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", schema.NewRequestError("Workspace name is required")
	}
	if utf8.RuneCountInString(name) > maxWorkspaceNameLength {
		return "", schema.NewRequestError(fmt.Sprintf("Workspace name must be at most %d characters", maxWorkspaceNameLength))
	}
	return name, nil
}
