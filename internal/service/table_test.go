package service_test

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
	"basegraph.app/sandbox/internal/service"
)

var _ = Describe("TableService", func() {
	var (
		ctx        context.Context
		workspaces *mockWorkspaceStore
		eng        *mockEngine
		extractor  *mockExtractor
		svc        service.TableService
		ws         *model.Workspace
	)

	BeforeEach(func() {
		ctx = context.Background()
		workspaces = &mockWorkspaceStore{}
		eng = &mockEngine{}
		extractor = &mockExtractor{}
		svc = service.NewTableService(workspaces, eng, extractor)
		ws = workspaceFixture()
		workspaces.getByIDFn = returning(ws)
	})

	Describe("Create", func() {
		It("compiles, applies in one batch and saves the extracted declaration", func() {
			extractor.extractFn = func(context.Context, string) (*reconcile.State, error) {
				return &reconcile.State{Tables: []model.Table{usersTable()}}, nil
			}

			change, err := svc.Create(ctx, ws.ID, usersTable())
			Expect(err).NotTo(HaveOccurred())
			Expect(eng.applied).To(HaveLen(1))
			Expect(eng.applied[0]).To(HaveLen(2))
			Expect(eng.applied[0][0].Kind).To(Equal(schema.StatementCreateTable))
			Expect(eng.applied[0][1].Kind).To(Equal(schema.StatementInsert))
			Expect(change.Inserted).To(Equal(1))
			Expect(change.Table.Name).To(Equal("users"))
			Expect(change.Table.CreatedAt.IsZero()).To(BeFalse())
			Expect(ws.TableNames()).To(Equal([]string{"users"}))
			Expect(workspaces.updateCalls).To(Equal(1))
		})

		It("rejects a table that is already declared", func() {
			ws.Tables = []model.Table{usersTable()}

			_, err := svc.Create(ctx, ws.ID, usersTable())
			Expect(errors.Is(err, service.ErrTableExists)).To(BeTrue())
			Expect(eng.applied).To(BeEmpty())
		})

		It("rejects a table that exists physically but was never declared", func() {
			eng.listTablesFn = func(context.Context, string) ([]string, error) { return []string{"users"}, nil }

			_, err := svc.Create(ctx, ws.ID, usersTable())
			Expect(errors.Is(err, service.ErrTableExists)).To(BeTrue())
		})

		It("never reaches the engine with an invalid definition", func() {
			bad := model.Table{Name: "select", Columns: []model.Column{{Name: "a", DataType: "TEXT"}}}

			_, err := svc.Create(ctx, ws.ID, bad)
			var verr *schema.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Stage).To(Equal(schema.StageTableName))
			Expect(eng.applied).To(BeEmpty())
			Expect(extractor.calls).To(BeZero())
		})

		It("reports unsupported column types", func() {
			bad := model.Table{Name: "shapes", Columns: []model.Column{{Name: "outline", DataType: "GEOMETRY"}}}

			_, err := svc.Create(ctx, ws.ID, bad)
			var uerr *schema.UnsupportedTypeError
			Expect(errors.As(err, &uerr)).To(BeTrue())
			Expect(uerr.Column).To(Equal("outline"))
		})

		It("surfaces engine failures without saving", func() {
			eng.applyStatementsFn = func(context.Context, string, []schema.Statement) error {
				return engine.Classify(&pgconn.PgError{Code: "42501", Message: "permission denied for schema ws_42"})
			}

			_, err := svc.Create(ctx, ws.ID, usersTable())
			var ee *engine.EngineError
			Expect(errors.As(err, &ee)).To(BeTrue())
			Expect(ee.Class).To(Equal(engine.ClassPermission))
			Expect(workspaces.updateCalls).To(BeZero())
		})
	})

	Describe("List", func() {
		It("returns declared and physical tables", func() {
			ws.Tables = []model.Table{usersTable()}
			eng.listTablesFn = func(context.Context, string) ([]string, error) { return []string{"scratch", "users"}, nil }

			list, err := svc.List(ctx, ws.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Tables).To(HaveLen(1))
			Expect(list.PhysicalTables).To(Equal([]string{"scratch", "users"}))
		})
	})

	Describe("Get", func() {
		It("reads the live structure ordered by the surrogate key", func() {
			ws.Tables = []model.Table{usersTable()}
			cols := []engine.ColumnInfo{{Name: "id", Friendly: "INTEGER"}, {Name: "name", Friendly: "TEXT"}}
			eng.describeTableFn = func(context.Context, string, string) ([]engine.ColumnInfo, error) { return cols, nil }
			eng.readRowsFn = func(_ context.Context, _, _ string, got []engine.ColumnInfo, orderBy string) ([]map[string]any, error) {
				Expect(got).To(Equal(cols))
				Expect(orderBy).To(Equal("id"))
				return []map[string]any{{"id": int64(1), "name": "Ada"}}, nil
			}

			details, err := svc.Get(ctx, ws.ID, "users")
			Expect(err).NotTo(HaveOccurred())
			Expect(details.Rows).To(HaveLen(1))
			Expect(details.Declared).NotTo(BeNil())
		})

		It("reports tables that do not exist", func() {
			_, err := svc.Get(ctx, ws.ID, "ghost")
			Expect(errors.Is(err, engine.ErrTableNotFound)).To(BeTrue())
		})
	})

	Describe("Drop", func() {
		It("drops the physical table and forgets its declaration", func() {
			ws.Tables = []model.Table{usersTable(), {Name: "orders"}}
			var dropped string
			eng.dropTableFn = func(_ context.Context, _, table string) error {
				dropped = table
				return nil
			}

			Expect(svc.Drop(ctx, ws.ID, "users")).To(Succeed())
			Expect(dropped).To(Equal("users"))
			Expect(ws.TableNames()).To(Equal([]string{"orders"}))
			Expect(workspaces.updateCalls).To(Equal(1))
		})
	})

	Describe("InsertRows", func() {
		BeforeEach(func() {
			ws.Tables = []model.Table{usersTable()}
		})

		It("inserts every row in one batch", func() {
			rows := []map[string]any{{"name": "Grace", "age": float64(45)}, {"name": "Linus", "age": "28"}}

			change, err := svc.InsertRows(ctx, ws.ID, "users", rows)
			Expect(err).NotTo(HaveOccurred())
			Expect(change.Inserted).To(Equal(2))
			Expect(eng.applied).To(HaveLen(1))
			Expect(eng.applied[0]).To(HaveLen(2))
			Expect(eng.applied[0][0].SQL).To(ContainSubstring("'Grace', 45"))
			Expect(extractor.calls).To(Equal(1))
		})

		It("rejects the whole batch when one row is invalid", func() {
			rows := []map[string]any{{"name": "Grace", "age": 45}, {"name": "Bad", "age": "old"}}

			_, err := svc.InsertRows(ctx, ws.ID, "users", rows)
			var verr *schema.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Messages[0]).To(HavePrefix("Row 2"))
			Expect(eng.applied).To(BeEmpty())
		})

		It("requires at least one row", func() {
			_, err := svc.InsertRows(ctx, ws.ID, "users", nil)
			var verr *schema.ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
		})

		It("requires a declared table", func() {
			_, err := svc.InsertRows(ctx, ws.ID, "ghost", []map[string]any{{"a": 1}})
			Expect(errors.Is(err, engine.ErrTableNotFound)).To(BeTrue())
		})
	})
})
