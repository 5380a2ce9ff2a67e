package service_test

import (
	"context"

	"basegraph.app/sandbox/common/llm"
	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/reconcile"
	"basegraph.app/sandbox/internal/schema"
	"basegraph.app/sandbox/internal/store"
)

type mockWorkspaceStore struct {
	getByIDFn            func(ctx context.Context, id int64) (*model.Workspace, error)
	createFn             func(ctx context.Context, ws *model.Workspace) error
	updateFn             func(ctx context.Context, ws *model.Workspace) error
	deleteFn             func(ctx context.Context, id int64) error
	listFn               func(ctx context.Context, limit int) ([]model.Workspace, error)
	appendQueryHistoryFn func(ctx context.Context, id int64, entry model.QueryHistoryEntry) error

	createCalls int
	updateCalls int
	deleteCalls int
	history     []model.QueryHistoryEntry
}

func (m *mockWorkspaceStore) GetByID(ctx context.Context, id int64) (*model.Workspace, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockWorkspaceStore) Create(ctx context.Context, ws *model.Workspace) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, ws)
	}
	return nil
}

func (m *mockWorkspaceStore) Update(ctx context.Context, ws *model.Workspace) error {
	m.updateCalls++
	if m.updateFn != nil {
		return m.updateFn(ctx, ws)
	}
	return nil
}

func (m *mockWorkspaceStore) Delete(ctx context.Context, id int64) error {
	m.deleteCalls++
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockWorkspaceStore) List(ctx context.Context, limit int) ([]model.Workspace, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit)
	}
	return []model.Workspace{}, nil
}

func (m *mockWorkspaceStore) AppendQueryHistory(ctx context.Context, id int64, entry model.QueryHistoryEntry) error {
	m.history = append(m.history, entry)
	if m.appendQueryHistoryFn != nil {
		return m.appendQueryHistoryFn(ctx, id, entry)
	}
	return nil
}

type mockEngine struct {
	executeFn         func(ctx context.Context, namespace, sqlText string) (*engine.Result, error)
	createNamespaceFn func(ctx context.Context, namespace string) error
	dropNamespaceFn   func(ctx context.Context, namespace string) error
	listTablesFn      func(ctx context.Context, namespace string) ([]string, error)
	describeTableFn   func(ctx context.Context, namespace, table string) ([]engine.ColumnInfo, error)
	readRowsFn        func(ctx context.Context, namespace, table string, columns []engine.ColumnInfo, orderBy string) ([]map[string]any, error)
	dropTableFn       func(ctx context.Context, namespace, table string) error
	applyStatementsFn func(ctx context.Context, namespace string, stmts []schema.Statement) error

	createdNamespaces []string
	droppedNamespaces []string
	applied           [][]schema.Statement
}

func (m *mockEngine) Execute(ctx context.Context, namespace, sqlText string) (*engine.Result, error) {
	if m.executeFn != nil {
		return m.executeFn(ctx, namespace, sqlText)
	}
	return &engine.Result{Command: "SELECT", Rows: []map[string]any{}, Fields: []engine.Field{}}, nil
}

func (m *mockEngine) CreateNamespace(ctx context.Context, namespace string) error {
	m.createdNamespaces = append(m.createdNamespaces, namespace)
	if m.createNamespaceFn != nil {
		return m.createNamespaceFn(ctx, namespace)
	}
	return nil
}

func (m *mockEngine) DropNamespace(ctx context.Context, namespace string) error {
	m.droppedNamespaces = append(m.droppedNamespaces, namespace)
	if m.dropNamespaceFn != nil {
		return m.dropNamespaceFn(ctx, namespace)
	}
	return nil
}

func (m *mockEngine) ListTables(ctx context.Context, namespace string) ([]string, error) {
	if m.listTablesFn != nil {
		return m.listTablesFn(ctx, namespace)
	}
	return []string{}, nil
}

func (m *mockEngine) DescribeTable(ctx context.Context, namespace, table string) ([]engine.ColumnInfo, error) {
	if m.describeTableFn != nil {
		return m.describeTableFn(ctx, namespace, table)
	}
	return nil, engine.ErrTableNotFound
}

func (m *mockEngine) ReadRows(ctx context.Context, namespace, table string, columns []engine.ColumnInfo, orderBy string) ([]map[string]any, error) {
	if m.readRowsFn != nil {
		return m.readRowsFn(ctx, namespace, table, columns, orderBy)
	}
	return []map[string]any{}, nil
}

func (m *mockEngine) DropTable(ctx context.Context, namespace, table string) error {
	if m.dropTableFn != nil {
		return m.dropTableFn(ctx, namespace, table)
	}
	return nil
}

func (m *mockEngine) ApplyStatements(ctx context.Context, namespace string, stmts []schema.Statement) error {
	m.applied = append(m.applied, stmts)
	if m.applyStatementsFn != nil {
		return m.applyStatementsFn(ctx, namespace, stmts)
	}
	return nil
}

type mockSyncer struct {
	verifyAndSyncFn func(ctx context.Context, workspaceID int64, namespace string, declared []model.Table) (*reconcile.SyncReport, error)
}

func (m *mockSyncer) VerifyAndSync(ctx context.Context, workspaceID int64, namespace string, declared []model.Table) (*reconcile.SyncReport, error) {
	if m.verifyAndSyncFn != nil {
		return m.verifyAndSyncFn(ctx, workspaceID, namespace, declared)
	}
	return &reconcile.SyncReport{}, nil
}

type mockExtractor struct {
	extractFn func(ctx context.Context, namespace string) (*reconcile.State, error)
	calls     int
}

func (m *mockExtractor) ExtractWorkspaceState(ctx context.Context, namespace string) (*reconcile.State, error) {
	m.calls++
	if m.extractFn != nil {
		return m.extractFn(ctx, namespace)
	}
	return &reconcile.State{Tables: []model.Table{}, Skipped: []reconcile.TableFailure{}}, nil
}

type mockLLM struct {
	completeFn func(ctx context.Context, req llm.Request) (*llm.Response, error)
	requests   []llm.Request
}

func (m *mockLLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.requests = append(m.requests, req)
	if m.completeFn != nil {
		return m.completeFn(ctx, req)
	}
	return &llm.Response{Content: "Try filtering with a WHERE clause."}, nil
}

func (m *mockLLM) Model() string {
	return "mock-model"
}

func workspaceFixture(tables ...model.Table) *model.Workspace {
	return &model.Workspace{
		ID:           42,
		Name:         "Practice",
		Namespace:    model.NamespaceFor(42),
		Tables:       tables,
		QueryHistory: []model.QueryHistoryEntry{},
	}
}

func usersTable() model.Table {
	return model.Table{
		Name:    "users",
		Columns: []model.Column{{Name: "name", DataType: "TEXT"}, {Name: "age", DataType: "INTEGER"}},
		Rows:    []map[string]any{{"name": "Ada", "age": int64(36)}},
	}
}

func returning(ws *model.Workspace) func(context.Context, int64) (*model.Workspace, error) {
	return func(_ context.Context, id int64) (*model.Workspace, error) {
		if id != ws.ID {
			return nil, store.ErrNotFound
		}
		return ws, nil
	}
}
