package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/sandbox/common/logger"
	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/schema"
	"basegraph.app/sandbox/internal/store"
)

const defaultHistoryLimit = 20

type QueryService interface {
	Execute(ctx context.Context, workspaceID int64, sqlText string) (*QueryOutcome, error)
	History(ctx context.Context, workspaceID int64, limit int) ([]model.QueryHistoryEntry, error)
}

// QueryOutcome wraps an engine result. Refreshed is set when the statement
// could have changed structure or data and the declared tables were
// re-extracted afterwards.
type QueryOutcome struct {
	Result    *engine.Result
	Refreshed bool
}

type queryService struct {
	workspaces store.WorkspaceStore
	engine     Engine
	extractor  StateExtractor
}

func NewQueryService(workspaces store.WorkspaceStore, eng Engine, extractor StateExtractor) QueryService {
	return &queryService{
		workspaces: workspaces,
		engine:     eng,
		extractor:  extractor,
	}
}

// Execute runs one user statement and records it in the history whatever
// the outcome. A failed history write is logged, never returned: the
// statement already committed or rolled back by then.
func (s *queryService) Execute(ctx context.Context, workspaceID int64, sqlText string) (*QueryOutcome, error) {
	if strings.TrimSpace(sqlText) == "" {
		return nil, schema.NewRequestError("Query is required")
	}

	ws, err := loadWorkspace(ctx, s.workspaces, workspaceID)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		WorkspaceID: logger.Ptr(ws.ID),
		Namespace:   logger.Ptr(ws.Namespace),
		Component:   "sandbox.query",
	})

	result, execErr := s.engine.Execute(ctx, ws.Namespace, sqlText)

	entry := model.QueryHistoryEntry{Query: sqlText, ExecutedAt: time.Now().UTC()}
	if execErr != nil {
		entry.Status = model.QueryStatusError
		entry.Error = historyMessage(execErr)
	} else {
		entry.Status = model.QueryStatusSuccess
		entry.Result = fmt.Sprintf("%s %d", result.Command, result.RowCount)
	}
	if err := s.workspaces.AppendQueryHistory(ctx, ws.ID, entry); err != nil {
		slog.WarnContext(ctx, "failed to record query history", "error", err)
	}

	if execErr != nil {
		return nil, execErr
	}

	outcome := &QueryOutcome{Result: result}
	if !engine.IsReadOnly(sqlText, result.Command) {
		if _, err := refreshDeclared(ctx, s.extractor, s.workspaces, ws); err != nil {
			slog.WarnContext(ctx, "failed to refresh declared tables after query", "error", err, "command", result.Command)
		} else {
			outcome.Refreshed = true
		}
	}
	return outcome, nil
}

func (s *queryService) History(ctx context.Context, workspaceID int64, limit int) ([]model.QueryHistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > model.MaxQueryHistory {
		limit = model.MaxQueryHistory
	}

	ws, err := loadWorkspace(ctx, s.workspaces, workspaceID)
	if err != nil {
		return nil, err
	}
	return ws.RecentHistory(limit), nil
}

func historyMessage(err error) string {
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		return ee.Message
	}
	return err.Error()
}
