package reconcile_test

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/reconcile"
	"basegraph.app/sandbox/internal/schema"
)

func table(name string, cols ...model.Column) model.Table {
	return model.Table{Name: name, Columns: cols}
}

func col(name, dataType string) model.Column {
	return model.Column{Name: name, DataType: dataType}
}

var _ = Describe("Reconciler.VerifyAndSync", func() {
	var (
		ctx     context.Context
		catalog *mockCatalog
		rec     *reconcile.Reconciler
		users   model.Table
		orders  model.Table
	)

	BeforeEach(func() {
		ctx = context.Background()
		catalog = &mockCatalog{}
		rec = reconcile.NewReconciler(catalog)
		users = table("users", col("name", "TEXT"), col("age", "INTEGER"))
		users.Rows = []map[string]any{{"name": "Ada", "age": float64(36)}}
		orders = table("orders", col("total", "DECIMAL"))
	})

	It("creates a missing namespace and rebuilds every declared table", func() {
		catalog.namespaceExistsFn = func(_ context.Context, ns string) (bool, error) {
			Expect(ns).To(Equal("ws_1"))
			return false, nil
		}
		var statements [][]schema.Statement
		catalog.applyTableFn = func(_ context.Context, _ string, _ string, stmts []schema.Statement) (bool, error) {
			statements = append(statements, stmts)
			return true, nil
		}

		report, err := rec.VerifyAndSync(ctx, 1, "ws_1", []model.Table{users, orders})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Reconstructed).To(BeTrue())
		Expect(report.Partial).To(BeFalse())
		Expect(report.NamespaceCreated).To(BeTrue())
		Expect(catalog.createNamespaceCalls).To(Equal(1))
		Expect(catalog.applied).To(Equal([]string{"users", "orders"}))
		Expect(report.Summary).To(Equal(reconcile.Summary{TotalTables: 2, SuccessfulTables: 2}))
		Expect(report.ReconstructedTables[0]).To(Equal(reconcile.TableResult{TableName: "users", ColumnCount: 2, RowCount: 1}))
		Expect(statements[0]).To(HaveLen(2))
		Expect(statements[0][0].Kind).To(Equal(schema.StatementCreateTable))
		Expect(report.Err()).To(BeNil())
	})

	It("does nothing when every declared table exists", func() {
		catalog.listTablesFn = func(context.Context, string) ([]string, error) {
			return []string{"orders", "users"}, nil
		}

		report, err := rec.VerifyAndSync(ctx, 1, "ws_1", []model.Table{users, orders})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Reconstructed).To(BeFalse())
		Expect(catalog.applied).To(BeEmpty())
		Expect(catalog.createNamespaceCalls).To(BeZero())
	})

	It("ignores physical tables that were never declared", func() {
		catalog.listTablesFn = func(context.Context, string) ([]string, error) {
			return []string{"users", "scratch"}, nil
		}

		report, err := rec.VerifyAndSync(ctx, 1, "ws_1", []model.Table{users})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Reconstructed).To(BeFalse())
	})

	It("rebuilds only the missing subset as a partial reconstruction", func() {
		catalog.listTablesFn = func(context.Context, string) ([]string, error) {
			return []string{"users"}, nil
		}

		report, err := rec.VerifyAndSync(ctx, 1, "ws_1", []model.Table{users, orders})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Reconstructed).To(BeTrue())
		Expect(report.Partial).To(BeTrue())
		Expect(catalog.applied).To(Equal([]string{"orders"}))
		Expect(report.Summary.TotalTables).To(Equal(1))
	})

	It("keeps going when one table has an unsupported column type", func() {
		catalog.namespaceExistsFn = func(context.Context, string) (bool, error) { return false, nil }
		broken := table("shapes", col("outline", "GEOMETRY"))

		report, err := rec.VerifyAndSync(ctx, 1, "ws_1", []model.Table{users, broken, orders})
		Expect(err).NotTo(HaveOccurred())
		Expect(catalog.applied).To(Equal([]string{"users", "orders"}))
		Expect(report.Summary).To(Equal(reconcile.Summary{TotalTables: 3, SuccessfulTables: 2, FailedTables: 1}))
		Expect(report.Errors).To(HaveLen(1))
		Expect(report.Errors[0].TableName).To(Equal("shapes"))
		Expect(report.Errors[0].Kind).To(Equal(schema.KindUnsupportedType))

		var partial *reconcile.PartialReconstructionError
		Expect(errors.As(report.Err(), &partial)).To(BeTrue())
		Expect(partial.Kind()).To(Equal(reconcile.KindPartialReconstruction))
		Expect(partial.FailedTables()).To(Equal([]string{"shapes"}))
		Expect(partial.Error()).To(HavePrefix("1 of 3 tables failed"))
	})

	It("records malformed row data without blocking the other tables", func() {
		catalog.namespaceExistsFn = func(context.Context, string) (bool, error) { return false, nil }
		bad := table("scores", col("points", "INTEGER"))
		bad.Rows = []map[string]any{{"points": "lots"}}

		report, err := rec.VerifyAndSync(ctx, 1, "ws_1", []model.Table{bad, users})
		Expect(err).NotTo(HaveOccurred())
		Expect(catalog.applied).To(Equal([]string{"users"}))
		Expect(report.Errors[0].Kind).To(Equal(schema.KindValidation))
		Expect(report.Errors[0].Errors[0]).To(ContainSubstring("Row 1"))
	})

	It("records engine failures per table", func() {
		catalog.namespaceExistsFn = func(context.Context, string) (bool, error) { return false, nil }
		catalog.applyTableFn = func(_ context.Context, _ string, name string, _ []schema.Statement) (bool, error) {
			if name == "users" {
				return false, engine.Classify(&pgconn.PgError{Code: "42501", Message: "permission denied for schema ws_1"})
			}
			return true, nil
		}

		report, err := rec.VerifyAndSync(ctx, 1, "ws_1", []model.Table{users, orders})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Summary.SuccessfulTables).To(Equal(1))
		Expect(report.Errors[0]).To(Equal(reconcile.TableFailure{
			TableName: "users",
			Kind:      engine.KindEngine,
			Errors:    []string{"Permission denied"},
		}))
	})

	It("counts a table another request already rebuilt as a success", func() {
		catalog.listTablesFn = func(context.Context, string) ([]string, error) { return []string{}, nil }
		catalog.applyTableFn = func(context.Context, string, string, []schema.Statement) (bool, error) {
			return false, nil
		}

		report, err := rec.VerifyAndSync(ctx, 1, "ws_1", []model.Table{users})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Summary.SuccessfulTables).To(Equal(1))
	})

	It("marks an existing but empty namespace as a partial reconstruction", func() {
		catalog.listTablesFn = func(context.Context, string) ([]string, error) { return []string{}, nil }

		report, err := rec.VerifyAndSync(ctx, 1, "ws_1", []model.Table{users})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Reconstructed).To(BeTrue())
		Expect(report.Partial).To(BeTrue())
		Expect(report.NamespaceCreated).To(BeFalse())
		Expect(catalog.applied).To(Equal([]string{"users"}))
	})

	It("fails the whole call when the namespace cannot be created", func() {
		catalog.namespaceExistsFn = func(context.Context, string) (bool, error) { return false, nil }
		catalog.createNamespaceFn = func(context.Context, string) error { return errors.New("disk full") }

		report, err := rec.VerifyAndSync(ctx, 1, "ws_1", []model.Table{users})
		Expect(err).To(MatchError(ContainSubstring("disk full")))
		Expect(report).To(BeNil())
		Expect(catalog.applied).To(BeEmpty())
	})

	It("fails the whole call when the namespace cannot be inspected", func() {
		catalog.namespaceExistsFn = func(context.Context, string) (bool, error) { return false, errors.New("connection refused") }

		_, err := rec.VerifyAndSync(ctx, 1, "ws_1", nil)
		Expect(err).To(HaveOccurred())
	})
})
