package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"basegraph.app/sandbox/core/db"
	"basegraph.app/sandbox/internal/schema"
)

// ColumnInfo is one physical column as information_schema reports it.
type ColumnInfo struct {
	Name       string `json:"column_name"`
	NativeType string `json:"data_type"`
	Friendly   string `json:"friendly_type"`
	Nullable   bool   `json:"is_nullable"`
	Default    string `json:"column_default,omitempty"`
}

const (
	namespaceExistsSQL = `SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`

	listTablesSQL = `SELECT table_name::text
FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`

	describeTableSQL = `SELECT column_name::text,
       data_type::text,
       character_maximum_length::int,
       numeric_precision::int,
       numeric_scale::int,
       is_nullable::text,
       column_default::text
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`

	lockNamespaceSQL = `SELECT pg_advisory_xact_lock(hashtext($1))`

	tableExistsSQL = `SELECT to_regclass($1::text) IS NOT NULL`
)

func (e *Engine) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	var exists bool
	if err := e.pool.QueryRow(ctx, namespaceExistsSQL, schema.SanitizeIdentifier(namespace)).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking namespace %s: %w", namespace, Classify(err))
	}
	return exists, nil
}

func (e *Engine) CreateNamespace(ctx context.Context, namespace string) error {
	if schema.SanitizeIdentifier(namespace) == "" {
		return fmt.Errorf("creating namespace: %w", ErrInvalidNamespace)
	}
	if _, err := e.pool.Exec(ctx, schema.CreateNamespaceSQL(namespace)); err != nil {
		return fmt.Errorf("creating namespace %s: %w", namespace, Classify(err))
	}
	return nil
}

// DropNamespace removes the namespace and every table in it.
func (e *Engine) DropNamespace(ctx context.Context, namespace string) error {
	if schema.SanitizeIdentifier(namespace) == "" {
		return fmt.Errorf("dropping namespace: %w", ErrInvalidNamespace)
	}
	if _, err := e.pool.Exec(ctx, schema.DropNamespaceSQL(namespace)); err != nil {
		return fmt.Errorf("dropping namespace %s: %w", namespace, Classify(err))
	}
	return nil
}

// ListTables returns the physical base tables of a namespace, sorted by name.
func (e *Engine) ListTables(ctx context.Context, namespace string) ([]string, error) {
	rows, err := e.pool.Query(ctx, listTablesSQL, schema.SanitizeIdentifier(namespace))
	if err != nil {
		return nil, fmt.Errorf("listing tables in %s: %w", namespace, Classify(err))
	}
	defer rows.Close()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tables in %s: %w", namespace, Classify(err))
	}
	return tables, nil
}

// DescribeTable returns every column of a table, surrogate key included.
// ErrTableNotFound means the table has no columns visible in the catalog.
func (e *Engine) DescribeTable(ctx context.Context, namespace, table string) ([]ColumnInfo, error) {
	rows, err := e.pool.Query(ctx, describeTableSQL, schema.SanitizeIdentifier(namespace), schema.SanitizeIdentifier(table))
	if err != nil {
		return nil, fmt.Errorf("describing %s.%s: %w", namespace, table, Classify(err))
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var (
			name, dataType, nullable string
			charLen, prec, scale     *int32
			def                      *string
		)
		if err := rows.Scan(&name, &dataType, &charLen, &prec, &scale, &nullable, &def); err != nil {
			return nil, fmt.Errorf("scanning column of %s: %w", table, err)
		}
		native := nativeTypeName(dataType, charLen, prec, scale)
		col := ColumnInfo{
			Name:       name,
			NativeType: native,
			Friendly:   schema.FromEngineType(native),
			Nullable:   nullable == "YES",
		}
		if def != nil {
			col.Default = *def
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describing %s.%s: %w", namespace, table, Classify(err))
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("describing %s.%s: %w", namespace, table, ErrTableNotFound)
	}
	return cols, nil
}

// nativeTypeName re-attaches length/precision so VARCHAR(40) does not come back as VARCHAR.
func nativeTypeName(dataType string, charLen, prec, scale *int32) string {
	switch strings.ToLower(dataType) {
	case "character varying", "character":
		if charLen != nil {
			return fmt.Sprintf("%s(%d)", dataType, *charLen)
		}
	case "numeric":
		if prec != nil && scale != nil {
			return fmt.Sprintf("numeric(%d,%d)", *prec, *scale)
		}
		if prec != nil {
			return fmt.Sprintf("numeric(%d)", *prec)
		}
	}
	return dataType
}

// ReadRows selects columns from a table, ordered by orderBy when it is set.
// Values go through NormalizeValue; dates stay YYYY-MM-DD and JSON columns
// come back as JSON text.
func (e *Engine) ReadRows(ctx context.Context, namespace, table string, columns []ColumnInfo, orderBy string) ([]map[string]any, error) {
	selectList := "1"
	if len(columns) > 0 {
		quoted := make([]string, 0, len(columns))
		for _, c := range columns {
			quoted = append(quoted, schema.QuoteIdentifier(c.Name))
		}
		selectList = strings.Join(quoted, ", ")
	}

	query := fmt.Sprintf("SELECT %s FROM %s", selectList, schema.QualifiedName(namespace, table))
	if orderBy != "" {
		query += " ORDER BY " + schema.QuoteIdentifier(orderBy)
	}

	rows, err := e.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading %s.%s: %w", namespace, table, Classify(err))
	}
	defer rows.Close()

	out := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading %s.%s: %w", namespace, table, Classify(err))
		}
		row := make(map[string]any, len(columns))
		for i, c := range columns {
			if i >= len(values) {
				break
			}
			switch schema.FamilyOf(c.Friendly) {
			case schema.FamilyDate:
				row[c.Name] = normalizeDate(values[i])
			case schema.FamilyJSON:
				row[c.Name] = normalizeJSON(values[i])
			default:
				row[c.Name] = NormalizeValue(values[i])
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s.%s: %w", namespace, table, Classify(err))
	}
	return out, nil
}

func (e *Engine) DropTable(ctx context.Context, namespace, table string) error {
	err := db.RunInTx(ctx, e.pool, func(tx pgx.Tx) error {
		if err := lockNamespace(ctx, tx, namespace); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, schema.DropTableSQL(namespace, table))
		return err
	})
	if err != nil {
		return fmt.Errorf("dropping %s.%s: %w", namespace, table, Classify(err))
	}
	return nil
}

// ApplyStatements runs compiled statements in one transaction under the
// namespace lock. Nothing is kept if any statement fails.
func (e *Engine) ApplyStatements(ctx context.Context, namespace string, stmts []schema.Statement) error {
	err := db.RunInTx(ctx, e.pool, func(tx pgx.Tx) error {
		if err := lockNamespace(ctx, tx, namespace); err != nil {
			return err
		}
		return execAll(ctx, tx, stmts)
	})
	if err != nil {
		return Classify(err)
	}
	return nil
}

// ApplyTable is ApplyStatements for a table rebuild: once the lock is held it
// re-checks the catalog and skips the work when another request already
// created the table. Reports whether the statements ran.
func (e *Engine) ApplyTable(ctx context.Context, namespace, table string, stmts []schema.Statement) (bool, error) {
	applied := false
	err := db.RunInTx(ctx, e.pool, func(tx pgx.Tx) error {
		if err := lockNamespace(ctx, tx, namespace); err != nil {
			return err
		}
		var exists bool
		if err := tx.QueryRow(ctx, tableExistsSQL, schema.QualifiedName(namespace, table)).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return nil
		}
		if err := execAll(ctx, tx, stmts); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, Classify(err)
	}
	return applied, nil
}

func lockNamespace(ctx context.Context, tx pgx.Tx, namespace string) error {
	_, err := tx.Exec(ctx, lockNamespaceSQL, schema.SanitizeIdentifier(namespace))
	return err
}

func execAll(ctx context.Context, tx pgx.Tx, stmts []schema.Statement) error {
	for i, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt.SQL); err != nil {
			ee := Classify(err)
			ee.Message = fmt.Sprintf("statement %d (%s): %s", i+1, stmt.Kind, ee.Message)
			return ee
		}
	}
	return nil
}
