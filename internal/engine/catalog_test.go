package engine_test

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/schema"
	"basegraph.app/sandbox/internal/testutil/pgfake"
)

var _ = Describe("Engine catalog", func() {
	var (
		ctx  context.Context
		pool *pgfake.Pool
		eng  *engine.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		pool = pgfake.New()
		eng = engine.New(pool)
	})

	Describe("NamespaceExists", func() {
		It("reads the schemata catalog", func() {
			pool.Handle("information_schema.schemata", func(_ string, args []any) (*pgfake.Result, error) {
				Expect(args).To(Equal([]any{"ws_7"}))
				return &pgfake.Result{Rows: [][]any{{true}}}, nil
			})

			exists, err := eng.NamespaceExists(ctx, "ws_7")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())
		})
	})

	Describe("CreateNamespace / DropNamespace", func() {
		It("issues idempotent DDL", func() {
			Expect(eng.CreateNamespace(ctx, "ws_7")).To(Succeed())
			Expect(eng.DropNamespace(ctx, "ws_7")).To(Succeed())
			Expect(pool.Statements("SCHEMA")).To(Equal([]string{
				`CREATE SCHEMA IF NOT EXISTS "ws_7"`,
				`DROP SCHEMA IF EXISTS "ws_7" CASCADE`,
			}))
		})

		It("refuses a namespace that sanitizes to nothing", func() {
			Expect(errors.Is(eng.CreateNamespace(ctx, "$$"), engine.ErrInvalidNamespace)).To(BeTrue())
			Expect(errors.Is(eng.DropNamespace(ctx, ""), engine.ErrInvalidNamespace)).To(BeTrue())
			Expect(pool.Calls()).To(BeEmpty())
		})
	})

	Describe("ListTables", func() {
		It("returns base tables", func() {
			pool.Respond("information_schema.tables", &pgfake.Result{Rows: [][]any{{"orders"}, {"users"}}})

			tables, err := eng.ListTables(ctx, "ws_7")
			Expect(err).NotTo(HaveOccurred())
			Expect(tables).To(Equal([]string{"orders", "users"}))
		})

		It("returns an empty slice for an empty namespace", func() {
			pool.Respond("information_schema.tables", &pgfake.Result{})

			tables, err := eng.ListTables(ctx, "ws_7")
			Expect(err).NotTo(HaveOccurred())
			Expect(tables).NotTo(BeNil())
			Expect(tables).To(BeEmpty())
		})
	})

	Describe("DescribeTable", func() {
		It("maps native types back to friendly ones", func() {
			pool.Respond("information_schema.columns", &pgfake.Result{Rows: [][]any{
				{"id", "integer", nil, 32, 0, "NO", "nextval('ws_7.users_id_seq'::regclass)"},
				{"name", "character varying", 40, nil, nil, "YES", nil},
				{"balance", "numeric", nil, 12, 4, "YES", nil},
				{"seen", "timestamp without time zone", nil, nil, nil, "YES", nil},
				{"addr", "inet", nil, nil, nil, "YES", nil},
			}})

			cols, err := eng.DescribeTable(ctx, "ws_7", "users")
			Expect(err).NotTo(HaveOccurred())
			Expect(cols).To(HaveLen(5))
			Expect(cols[0].Friendly).To(Equal("INTEGER"))
			Expect(cols[0].Nullable).To(BeFalse())
			Expect(cols[0].Default).To(ContainSubstring("nextval"))
			Expect(cols[1].NativeType).To(Equal("character varying(40)"))
			Expect(cols[1].Friendly).To(Equal("VARCHAR(40)"))
			Expect(cols[2].Friendly).To(Equal("NUMERIC(12,4)"))
			Expect(cols[3].Friendly).To(Equal("TIMESTAMP"))
			Expect(cols[4].Friendly).To(Equal("INET"))
		})

		It("reports a missing table", func() {
			pool.Respond("information_schema.columns", &pgfake.Result{})

			_, err := eng.DescribeTable(ctx, "ws_7", "ghost")
			Expect(errors.Is(err, engine.ErrTableNotFound)).To(BeTrue())
		})
	})

	Describe("ReadRows", func() {
		It("selects the requested columns ordered by the surrogate key", func() {
			day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
			pool.Respond(`FROM "ws_7"."users"`, &pgfake.Result{Rows: [][]any{{"Ada", int32(36), day}}})

			rows, err := eng.ReadRows(ctx, "ws_7", "users", []engine.ColumnInfo{
				{Name: "name", Friendly: "TEXT"},
				{Name: "age", Friendly: "INTEGER"},
				{Name: "born", Friendly: "DATE"},
			}, schema.SurrogateKey)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal([]map[string]any{{"name": "Ada", "age": int64(36), "born": "2024-03-09"}}))
			Expect(pool.Calls()[0].SQL).To(Equal(`SELECT "name", "age", "born" FROM "ws_7"."users" ORDER BY "id"`))
		})

		It("returns JSON columns as text the compiler accepts again", func() {
			pool.Respond(`FROM "ws_7"."notes"`, &pgfake.Result{Rows: [][]any{
				{"hello", map[string]any{"a": float64(1)}},
				{"123", nil},
			}})
			cols := []engine.ColumnInfo{
				{Name: "body", Friendly: "JSONB"},
				{Name: "meta", Friendly: "JSON"},
			}

			rows, err := eng.ReadRows(ctx, "ws_7", "notes", cols, schema.SurrogateKey)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal([]map[string]any{
				{"body": `"hello"`, "meta": `{"a":1}`},
				{"body": `"123"`, "meta": nil},
			}))

			compiled := schema.Compile(model.Table{
				Name:    "notes",
				Columns: []model.Column{{Name: "body", DataType: "JSONB"}, {Name: "meta", DataType: "JSON"}},
				Rows:    rows,
			}, "ws_7")
			Expect(compiled.Err()).NotTo(HaveOccurred())
			Expect(compiled.SQL()[1]).To(ContainSubstring(`'"hello"'`))
			Expect(compiled.SQL()[2]).To(ContainSubstring(`'"123"'`))
		})
	})

	Describe("ApplyStatements", func() {
		stmts := []schema.Statement{
			{Kind: schema.StatementCreateTable, SQL: `CREATE TABLE IF NOT EXISTS "ws_7"."t" ("id" SERIAL PRIMARY KEY, "a" TEXT)`},
			{Kind: schema.StatementInsert, SQL: `INSERT INTO "ws_7"."t" ("a") VALUES ('x')`},
		}

		It("takes the namespace lock and runs everything in one transaction", func() {
			Expect(eng.ApplyStatements(ctx, "ws_7", stmts)).To(Succeed())

			calls := pool.Calls()
			Expect(calls).To(HaveLen(3))
			Expect(calls[0].SQL).To(ContainSubstring("pg_advisory_xact_lock"))
			Expect(calls[0].Args).To(Equal([]any{"ws_7"}))
			for _, c := range calls {
				Expect(c.Tx).To(Equal(calls[0].Tx))
			}
			Expect(pool.Commits()).To(Equal(1))
		})

		It("rolls back when a statement fails", func() {
			pool.Fail("INSERT INTO", &pgconn.PgError{Code: "23502", Message: `null value in column "a"`})

			err := eng.ApplyStatements(ctx, "ws_7", stmts)
			var ee *engine.EngineError
			Expect(errors.As(err, &ee)).To(BeTrue())
			Expect(ee.Class).To(Equal(engine.ClassNotNull))
			Expect(ee.Message).To(HavePrefix("statement 2 (INSERT)"))
			Expect(pool.Rollbacks()).To(Equal(1))
			Expect(pool.Commits()).To(Equal(0))
		})
	})

	Describe("ApplyTable", func() {
		stmts := []schema.Statement{{Kind: schema.StatementCreateTable, SQL: `CREATE TABLE IF NOT EXISTS "ws_7"."t" ("id" SERIAL PRIMARY KEY)`}}

		It("skips the rebuild when the table appeared while waiting for the lock", func() {
			pool.Respond("to_regclass", &pgfake.Result{Rows: [][]any{{true}}})

			applied, err := eng.ApplyTable(ctx, "ws_7", "t", stmts)
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeFalse())
			Expect(pool.Statements("CREATE TABLE")).To(BeEmpty())
		})

		It("builds the table when it is still missing", func() {
			pool.Respond("to_regclass", &pgfake.Result{Rows: [][]any{{false}}})

			applied, err := eng.ApplyTable(ctx, "ws_7", "t", stmts)
			Expect(err).NotTo(HaveOccurred())
			Expect(applied).To(BeTrue())
			Expect(pool.Statements("CREATE TABLE")).To(HaveLen(1))
		})
	})

	Describe("DropTable", func() {
		It("drops with cascade under the lock", func() {
			Expect(eng.DropTable(ctx, "ws_7", "users")).To(Succeed())
			Expect(pool.Statements("DROP TABLE")).To(Equal([]string{`DROP TABLE IF EXISTS "ws_7"."users" CASCADE`}))
			Expect(pool.Statements("pg_advisory_xact_lock")).To(HaveLen(1))
		})
	})
})
