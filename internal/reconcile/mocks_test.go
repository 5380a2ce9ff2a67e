package reconcile_test

import (
	"context"

	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/schema"
)

type mockCatalog struct {
	namespaceExistsFn func(ctx context.Context, namespace string) (bool, error)
	createNamespaceFn func(ctx context.Context, namespace string) error
	listTablesFn      func(ctx context.Context, namespace string) ([]string, error)
	describeTableFn   func(ctx context.Context, namespace, table string) ([]engine.ColumnInfo, error)
	readRowsFn        func(ctx context.Context, namespace, table string, columns []engine.ColumnInfo, orderBy string) ([]map[string]any, error)
	applyTableFn      func(ctx context.Context, namespace, table string, stmts []schema.Statement) (bool, error)

	createNamespaceCalls int
	applied              []string
}

func (m *mockCatalog) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	if m.namespaceExistsFn != nil {
		return m.namespaceExistsFn(ctx, namespace)
	}
	return true, nil
}

func (m *mockCatalog) CreateNamespace(ctx context.Context, namespace string) error {
	m.createNamespaceCalls++
	if m.createNamespaceFn != nil {
		return m.createNamespaceFn(ctx, namespace)
	}
	return nil
}

func (m *mockCatalog) ListTables(ctx context.Context, namespace string) ([]string, error) {
	if m.listTablesFn != nil {
		return m.listTablesFn(ctx, namespace)
	}
	return []string{}, nil
}

func (m *mockCatalog) DescribeTable(ctx context.Context, namespace, table string) ([]engine.ColumnInfo, error) {
	if m.describeTableFn != nil {
		return m.describeTableFn(ctx, namespace, table)
	}
	return nil, engine.ErrTableNotFound
}

func (m *mockCatalog) ReadRows(ctx context.Context, namespace, table string, columns []engine.ColumnInfo, orderBy string) ([]map[string]any, error) {
	if m.readRowsFn != nil {
		return m.readRowsFn(ctx, namespace, table, columns, orderBy)
	}
	return []map[string]any{}, nil
}

func (m *mockCatalog) ApplyTable(ctx context.Context, namespace, table string, stmts []schema.Statement) (bool, error) {
	m.applied = append(m.applied, table)
	if m.applyTableFn != nil {
		return m.applyTableFn(ctx, namespace, table, stmts)
	}
	return true, nil
}
