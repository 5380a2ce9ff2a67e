package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"basegraph.app/sandbox/common/logger"
	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/schema"
)

// State is the namespace as the engine currently holds it.
type State struct {
	Tables  []model.Table  `json:"tables"`
	Skipped []TableFailure `json:"skipped"`
}

// Err returns a *PartialReconstructionError when any table was skipped.
func (s *State) Err() error {
	if s == nil || len(s.Skipped) == 0 {
		return nil
	}
	return &PartialReconstructionError{Failures: s.Skipped, Succeeded: len(s.Tables)}
}

type Extractor struct {
	catalog Catalog
}

func NewExtractor(catalog Catalog) *Extractor {
	return &Extractor{catalog: catalog}
}

// ExtractWorkspaceState reads every physical table of the namespace back
// into declarative form, surrogate key excluded. A table that cannot be read
// is skipped with a warning; only failing to list the namespace is an error.
func (x *Extractor) ExtractWorkspaceState(ctx context.Context, namespace string) (*State, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Namespace: logger.Ptr(namespace),
		Component: "sandbox.extract",
	})
	sc := logger.StartSpan(ctx, "reconcile.extract_workspace_state", attribute.String("namespace", namespace))
	defer sc.End()
	ctx = sc.Context()

	names, err := x.catalog.ListTables(ctx, namespace)
	if err != nil {
		sc.RecordError(err)
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	state := &State{Tables: make([]model.Table, 0, len(names)), Skipped: make([]TableFailure, 0)}
	for _, name := range names {
		tctx := logger.WithLogFields(ctx, logger.LogFields{TableName: logger.Ptr(name)})

		table, err := x.extractTable(tctx, namespace, name)
		if err != nil {
			slog.WarnContext(tctx, "skipping table during extraction", "error", err)
			state.Skipped = append(state.Skipped, failureFor(name, err))
			continue
		}
		state.Tables = append(state.Tables, table)
	}

	sc.SetAttributes(
		attribute.Int("tables", len(state.Tables)),
		attribute.Int("skipped", len(state.Skipped)))
	return state, nil
}

func (x *Extractor) extractTable(ctx context.Context, namespace, name string) (model.Table, error) {
	cols, err := x.catalog.DescribeTable(ctx, namespace, name)
	if err != nil {
		return model.Table{}, err
	}

	declared := make([]engine.ColumnInfo, 0, len(cols))
	hasSurrogate := false
	for _, c := range cols {
		if c.Name == schema.SurrogateKey {
			hasSurrogate = true
			continue
		}
		declared = append(declared, c)
	}

	orderBy := ""
	if hasSurrogate {
		orderBy = schema.SurrogateKey
	}
	rows, err := x.catalog.ReadRows(ctx, namespace, name, declared, orderBy)
	if err != nil {
		return model.Table{}, err
	}

	table := model.Table{
		Name:    name,
		Columns: make([]model.Column, 0, len(declared)),
		Rows:    rows,
	}
	for _, c := range declared {
		table.Columns = append(table.Columns, model.Column{Name: c.Name, DataType: c.Friendly})
	}
	return table, nil
}
