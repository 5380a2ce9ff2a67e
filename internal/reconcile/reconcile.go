package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"basegraph.app/sandbox/common/logger"
	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/schema"
)

const KindPartialReconstruction = "PARTIAL_RECONSTRUCTION"

// Catalog is the part of the engine reconciliation and extraction need.
type Catalog interface {
	NamespaceExists(ctx context.Context, namespace string) (bool, error)
	CreateNamespace(ctx context.Context, namespace string) error
	ListTables(ctx context.Context, namespace string) ([]string, error)
	DescribeTable(ctx context.Context, namespace, table string) ([]engine.ColumnInfo, error)
	ReadRows(ctx context.Context, namespace, table string, columns []engine.ColumnInfo, orderBy string) ([]map[string]any, error)
	ApplyTable(ctx context.Context, namespace, table string, stmts []schema.Statement) (bool, error)
}

type TableResult struct {
	TableName   string `json:"table_name"`
	ColumnCount int    `json:"column_count"`
	RowCount    int    `json:"row_count"`
}

type TableFailure struct {
	TableName string   `json:"table_name"`
	Kind      string   `json:"kind"`
	Errors    []string `json:"errors"`
}

type Summary struct {
	TotalTables      int `json:"total_tables"`
	SuccessfulTables int `json:"successful_tables"`
	FailedTables     int `json:"failed_tables"`
}

// SyncReport describes one VerifyAndSync run. Reconstructed is false when
// the namespace already matched the declared tables. Partial means the
// namespace survived and only its missing tables were rebuilt.
type SyncReport struct {
	Reconstructed       bool           `json:"reconstructed"`
	Partial             bool           `json:"partial"`
	NamespaceCreated    bool           `json:"namespace_created"`
	ReconstructedTables []TableResult  `json:"reconstructed_tables"`
	Errors              []TableFailure `json:"errors"`
	Summary             Summary        `json:"summary"`
}

// Err returns a *PartialReconstructionError when any table failed.
func (r *SyncReport) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	return &PartialReconstructionError{Failures: r.Errors, Succeeded: r.Summary.SuccessfulTables}
}

// PartialReconstructionError lists the tables of a batch that could not be
// rebuilt or read. The rest of the batch went through.
type PartialReconstructionError struct {
	Failures  []TableFailure
	Succeeded int
}

func (e *PartialReconstructionError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.TableName, strings.Join(f.Errors, "; ")))
	}
	return fmt.Sprintf("%d of %d tables failed: %s",
		len(e.Failures), len(e.Failures)+e.Succeeded, strings.Join(parts, " | "))
}

func (e *PartialReconstructionError) Kind() string {
	return KindPartialReconstruction
}

// FailedTables returns the names of the failed tables.
func (e *PartialReconstructionError) FailedTables() []string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.TableName)
	}
	return names
}

type Reconciler struct {
	catalog Catalog
}

func NewReconciler(catalog Catalog) *Reconciler {
	return &Reconciler{catalog: catalog}
}

// VerifyAndSync makes the namespace hold every declared table. It creates
// the namespace when it is missing and rebuilds absent tables one by one,
// each in its own transaction. A failing table is recorded in the report and
// does not stop the others. Only namespace-level failures return an error.
func (r *Reconciler) VerifyAndSync(ctx context.Context, workspaceID int64, namespace string, declared []model.Table) (*SyncReport, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		WorkspaceID: logger.Ptr(workspaceID),
		Namespace:   logger.Ptr(namespace),
		Component:   "sandbox.reconcile",
	})
	sc := logger.StartSpan(ctx, "reconcile.verify_and_sync",
		attribute.String("namespace", namespace),
		attribute.Int("declared_tables", len(declared)))
	defer sc.End()
	ctx = sc.Context()

	exists, err := r.catalog.NamespaceExists(ctx, namespace)
	if err != nil {
		sc.RecordError(err)
		return nil, fmt.Errorf("checking namespace: %w", err)
	}

	report := &SyncReport{
		ReconstructedTables: make([]TableResult, 0),
		Errors:              make([]TableFailure, 0),
	}

	var missing []model.Table
	if !exists {
		slog.InfoContext(ctx, "namespace missing, rebuilding workspace", "tables", len(declared))
		if err := r.catalog.CreateNamespace(ctx, namespace); err != nil {
			sc.RecordError(err)
			return nil, fmt.Errorf("creating namespace: %w", err)
		}
		report.NamespaceCreated = true
		report.Reconstructed = true
		missing = declared
	} else {
		physical, err := r.catalog.ListTables(ctx, namespace)
		if err != nil {
			sc.RecordError(err)
			return nil, fmt.Errorf("listing tables: %w", err)
		}
		missing = missingTables(declared, physical)
		if len(missing) == 0 {
			slog.DebugContext(ctx, "namespace in sync")
			return report, nil
		}
		slog.InfoContext(ctx, "namespace missing tables, rebuilding",
			"missing", len(missing), "declared", len(declared), "physical", len(physical))
		report.Reconstructed = true
		report.Partial = true
	}

	r.rebuild(ctx, namespace, missing, report)

	sc.SetAttributes(
		attribute.Int("successful_tables", report.Summary.SuccessfulTables),
		attribute.Int("failed_tables", report.Summary.FailedTables))
	if err := report.Err(); err != nil {
		slog.WarnContext(ctx, "reconstruction finished with failures", "error", err)
	}
	return report, nil
}

// rebuild runs tables strictly in order so one table's transaction is
// finished before the next starts.
func (r *Reconciler) rebuild(ctx context.Context, namespace string, tables []model.Table, report *SyncReport) {
	report.Summary.TotalTables = len(tables)

	for _, table := range tables {
		tctx := logger.WithLogFields(ctx, logger.LogFields{TableName: logger.Ptr(table.Name)})

		if err := r.rebuildTable(tctx, namespace, table); err != nil {
			slog.WarnContext(tctx, "table reconstruction failed", "error", err)
			report.Errors = append(report.Errors, failureFor(table.Name, err))
			report.Summary.FailedTables++
			continue
		}

		report.ReconstructedTables = append(report.ReconstructedTables, TableResult{
			TableName:   table.Name,
			ColumnCount: len(table.Columns),
			RowCount:    len(table.Rows),
		})
		report.Summary.SuccessfulTables++
	}
}

func (r *Reconciler) rebuildTable(ctx context.Context, namespace string, table model.Table) error {
	compiled := schema.Compile(table, namespace)
	if !compiled.Success {
		return compiled.Err()
	}

	applied, err := r.catalog.ApplyTable(ctx, namespace, table.Name, compiled.Statements)
	if err != nil {
		return err
	}
	if !applied {
		slog.InfoContext(ctx, "table already rebuilt by a concurrent sync")
	}
	return nil
}

func missingTables(declared []model.Table, physical []string) []model.Table {
	present := make(map[string]struct{}, len(physical))
	for _, name := range physical {
		present[name] = struct{}{}
	}
	var missing []model.Table
	for _, t := range declared {
		if _, ok := present[schema.SanitizeIdentifier(t.Name)]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

type kinded interface {
	Kind() string
}

func failureFor(table string, err error) TableFailure {
	f := TableFailure{TableName: table, Kind: engine.KindEngine}

	var k kinded
	if errors.As(err, &k) {
		f.Kind = k.Kind()
	}

	var ee *engine.EngineError
	switch {
	case errors.As(err, &ee):
		f.Errors = []string{ee.Message}
	default:
		f.Errors = splitJoined(err)
	}
	return f
}

// splitJoined unpacks errors.Join results so each cause is its own message.
func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
