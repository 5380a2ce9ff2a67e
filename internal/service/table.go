package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"basegraph.app/sandbox/common/logger"
	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/reconcile"
	"basegraph.app/sandbox/internal/schema"
	"basegraph.app/sandbox/internal/store"
)

type TableService interface {
	Create(ctx context.Context, workspaceID int64, table model.Table) (*TableChange, error)
	List(ctx context.Context, workspaceID int64) (*TableList, error)
	Get(ctx context.Context, workspaceID int64, name string) (*TableDetails, error)
	Drop(ctx context.Context, workspaceID int64, name string) error
	InsertRows(ctx context.Context, workspaceID int64, name string, rows []map[string]any) (*TableChange, error)
}

// TableChange describes statements applied to one table and the declared
// state saved afterwards.
type TableChange struct {
	Table      model.Table
	Statements []schema.Statement
	Inserted   int
	Skipped    []reconcile.TableFailure
}

type TableList struct {
	Tables         []model.Table
	PhysicalTables []string
}

// TableDetails is the live structure and content of a table. Declared is
// nil when the table exists physically but was never declared.
type TableDetails struct {
	Name      string
	Structure []engine.ColumnInfo
	Rows      []map[string]any
	Declared  *model.Table
}

type tableService struct {
	workspaces store.WorkspaceStore
	engine     Engine
	extractor  StateExtractor
}

func NewTableService(workspaces store.WorkspaceStore, eng Engine, extractor StateExtractor) TableService {
	return &tableService{
		workspaces: workspaces,
		engine:     eng,
		extractor:  extractor,
	}
}

func (s *tableService) Create(ctx context.Context, workspaceID int64, table model.Table) (*TableChange, error) {
	ws, err := loadWorkspace(ctx, s.workspaces, workspaceID)
	if err != nil {
		return nil, err
	}
	ctx = tableContext(ctx, ws, table.Name)

	if _, ok := ws.FindTable(table.Name); ok {
		return nil, fmt.Errorf("table '%s': %w", table.Name, ErrTableExists)
	}
	physical, err := s.engine.ListTables(ctx, ws.Namespace)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	if slices.Contains(physical, schema.SanitizeIdentifier(table.Name)) {
		return nil, fmt.Errorf("table '%s': %w", table.Name, ErrTableExists)
	}

	compiled := schema.Compile(table, ws.Namespace)
	if !compiled.Success {
		return nil, compiled.Err()
	}
	if err := s.engine.ApplyStatements(ctx, ws.Namespace, compiled.Statements); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "table created", "columns", len(table.Columns), "rows", len(table.Rows))

	skipped, err := refreshDeclared(ctx, s.extractor, s.workspaces, ws)
	if err != nil {
		return nil, err
	}

	change := &TableChange{
		Table:      table,
		Statements: compiled.Statements,
		Inserted:   len(table.Rows),
		Skipped:    skipped,
	}
	if saved, ok := ws.FindTable(table.Name); ok {
		change.Table = *saved
	} else if change.Table.CreatedAt.IsZero() {
		change.Table.CreatedAt = time.Now().UTC()
	}
	return change, nil
}

func (s *tableService) List(ctx context.Context, workspaceID int64) (*TableList, error) {
	ws, err := loadWorkspace(ctx, s.workspaces, workspaceID)
	if err != nil {
		return nil, err
	}

	physical, err := s.engine.ListTables(ctx, ws.Namespace)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	return &TableList{Tables: ws.Tables, PhysicalTables: physical}, nil
}

func (s *tableService) Get(ctx context.Context, workspaceID int64, name string) (*TableDetails, error) {
	ws, err := loadWorkspace(ctx, s.workspaces, workspaceID)
	if err != nil {
		return nil, err
	}

	cols, err := s.engine.DescribeTable(ctx, ws.Namespace, name)
	if err != nil {
		return nil, err
	}

	orderBy := ""
	for _, c := range cols {
		if c.Name == schema.SurrogateKey {
			orderBy = schema.SurrogateKey
			break
		}
	}
	rows, err := s.engine.ReadRows(ctx, ws.Namespace, name, cols, orderBy)
	if err != nil {
		return nil, err
	}

	details := &TableDetails{Name: name, Structure: cols, Rows: rows}
	if declared, ok := ws.FindTable(name); ok {
		details.Declared = declared
	}
	return details, nil
}

func (s *tableService) Drop(ctx context.Context, workspaceID int64, name string) error {
	ws, err := loadWorkspace(ctx, s.workspaces, workspaceID)
	if err != nil {
		return err
	}
	ctx = tableContext(ctx, ws, name)

	if err := s.engine.DropTable(ctx, ws.Namespace, name); err != nil {
		return err
	}

	ws.Tables = slices.DeleteFunc(ws.Tables, func(t model.Table) bool { return t.Name == name })
	if err := s.workspaces.Update(ctx, ws); err != nil {
		return fmt.Errorf("saving workspace: %w", err)
	}

	slog.InfoContext(ctx, "table dropped")
	return nil
}

// InsertRows validates rows against the declared columns and inserts them
// in one transaction. Either every row lands or none does.
func (s *tableService) InsertRows(ctx context.Context, workspaceID int64, name string, rows []map[string]any) (*TableChange, error) {
	if len(rows) == 0 {
		return nil, schema.NewRequestError("Rows array is required")
	}

	ws, err := loadWorkspace(ctx, s.workspaces, workspaceID)
	if err != nil {
		return nil, err
	}
	ctx = tableContext(ctx, ws, name)

	declared, ok := ws.FindTable(name)
	if !ok {
		return nil, fmt.Errorf("table '%s' is not declared in this workspace: %w", name, engine.ErrTableNotFound)
	}

	stmts, err := schema.CompileRows(*declared, ws.Namespace, rows)
	if err != nil {
		return nil, err
	}
	if err := s.engine.ApplyStatements(ctx, ws.Namespace, stmts); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "rows inserted", "rows", len(rows))

	skipped, err := refreshDeclared(ctx, s.extractor, s.workspaces, ws)
	if err != nil {
		return nil, err
	}

	change := &TableChange{Statements: stmts, Inserted: len(rows), Skipped: skipped}
	if saved, ok := ws.FindTable(name); ok {
		change.Table = *saved
	}
	return change, nil
}

func tableContext(ctx context.Context, ws *model.Workspace, table string) context.Context {
	return logger.WithLogFields(ctx, logger.LogFields{
		WorkspaceID: logger.Ptr(ws.ID),
		Namespace:   logger.Ptr(ws.Namespace),
		TableName:   logger.Ptr(table),
		Component:   "sandbox.table",
	})
}
