package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/sandbox/core/db"
	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/reconcile"
	"basegraph.app/sandbox/internal/schema"
)

// Runs only when SANDBOX_TEST_DATABASE_URL points at a disposable Postgres.
var _ = Describe("Workspace round trip against Postgres", Ordered, func() {
	var (
		ctx      context.Context
		database *db.DB
		eng      *engine.Engine
		rec      *reconcile.Reconciler
		ext      *reconcile.Extractor
		ns       string
		users    model.Table
	)

	BeforeAll(func() {
		dsn := os.Getenv("SANDBOX_TEST_DATABASE_URL")
		if dsn == "" {
			Skip("SANDBOX_TEST_DATABASE_URL not set")
		}

		ctx = context.Background()
		var err error
		database, err = db.New(ctx, db.Config{DSN: dsn, MaxConns: 4})
		Expect(err).NotTo(HaveOccurred())

		eng = engine.New(database.Pool())
		rec = reconcile.NewReconciler(eng)
		ext = reconcile.NewExtractor(eng)
		ns = fmt.Sprintf("ws_it_%d", time.Now().UnixNano())
		users = model.Table{
			Name:    "users",
			Columns: []model.Column{{Name: "name", DataType: "TEXT"}, {Name: "age", DataType: "INTEGER"}},
			Rows:    []map[string]any{{"name": "Ada", "age": float64(36)}},
		}
	})

	AfterAll(func() {
		if database == nil {
			return
		}
		Expect(eng.DropNamespace(ctx, ns)).To(Succeed())
		database.Close()
	})

	It("creates the namespace and the declared table", func() {
		Expect(eng.CreateNamespace(ctx, ns)).To(Succeed())

		compiled := schema.Compile(users, ns)
		Expect(compiled.Err()).NotTo(HaveOccurred())
		Expect(eng.ApplyStatements(ctx, ns, compiled.Statements)).To(Succeed())
	})

	It("reports the namespace as in sync", func() {
		report, err := rec.VerifyAndSync(ctx, 1, ns, []model.Table{users})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Reconstructed).To(BeFalse())
	})

	It("answers queries inside the namespace", func() {
		res, err := eng.Execute(ctx, ns, "SELECT name FROM users WHERE age > 20")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Rows).To(Equal([]map[string]any{{"name": "Ada"}}))

		raw, err := eng.Execute(ctx, ns, "SELECT * FROM users")
		Expect(err).NotTo(HaveOccurred())
		Expect(raw.Rows[0]).To(HaveKeyWithValue("id", int64(1)))
	})

	It("cannot see tables of other namespaces and survives the failure", func() {
		_, err := eng.Execute(ctx, ns, "SELECT * FROM ws_other_table_that_does_not_exist")
		var ee *engine.EngineError
		Expect(errors.As(err, &ee)).To(BeTrue())
		Expect(ee.Class).To(Equal(engine.ClassTableNotFound))
		Expect(ee.Code).To(Equal("42P01"))

		res, err := eng.Execute(ctx, ns, "SELECT count(*) AS n FROM users")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Rows[0]["n"]).To(Equal(int64(1)))
	})

	It("extracts the live state without the surrogate key", func() {
		state, err := ext.ExtractWorkspaceState(ctx, ns)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.Tables).To(HaveLen(1))
		Expect(state.Tables[0].Columns).To(Equal(users.Columns))
		Expect(state.Tables[0].Rows).To(Equal([]map[string]any{{"name": "Ada", "age": int64(36)}}))
	})

	It("rebuilds a table dropped behind its back", func() {
		Expect(eng.DropTable(ctx, ns, "users")).To(Succeed())

		report, err := rec.VerifyAndSync(ctx, 1, ns, []model.Table{users})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Reconstructed).To(BeTrue())
		Expect(report.Summary.SuccessfulTables).To(Equal(1))

		res, err := eng.Execute(ctx, ns, "SELECT name FROM users")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.RowCount).To(Equal(int64(1)))
	})
})
