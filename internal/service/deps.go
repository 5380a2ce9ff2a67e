package service

import (
	"context"
	"errors"

	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/reconcile"
	"basegraph.app/sandbox/internal/schema"
	"basegraph.app/sandbox/internal/store"
)

var (
	// ErrTableExists is returned when a table name is already declared or
	// physically present in the namespace.
	ErrTableExists = errors.New("table already exists")

	// ErrHintsDisabled is returned when no LLM provider is configured.
	ErrHintsDisabled = errors.New("hints are not configured")

	// ErrHintsUnavailable is returned when the LLM provider is temporarily
	// unable to answer.
	ErrHintsUnavailable = errors.New("hint service temporarily unavailable")
)

// StoreProvider exposes the stores the services need.
type StoreProvider interface {
	Workspaces() store.WorkspaceStore
}

// Engine is the part of the relational engine the services drive directly.
type Engine interface {
	Execute(ctx context.Context, namespace, sqlText string) (*engine.Result, error)
	CreateNamespace(ctx context.Context, namespace string) error
	DropNamespace(ctx context.Context, namespace string) error
	ListTables(ctx context.Context, namespace string) ([]string, error)
	DescribeTable(ctx context.Context, namespace, table string) ([]engine.ColumnInfo, error)
	ReadRows(ctx context.Context, namespace, table string, columns []engine.ColumnInfo, orderBy string) ([]map[string]any, error)
	DropTable(ctx context.Context, namespace, table string) error
	ApplyStatements(ctx context.Context, namespace string, stmts []schema.Statement) error
}

type Syncer interface {
	VerifyAndSync(ctx context.Context, workspaceID int64, namespace string, declared []model.Table) (*reconcile.SyncReport, error)
}

type StateExtractor interface {
	ExtractWorkspaceState(ctx context.Context, namespace string) (*reconcile.State, error)
}
