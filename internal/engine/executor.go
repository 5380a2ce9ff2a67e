package engine

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"basegraph.app/sandbox/common/logger"
	"basegraph.app/sandbox/core/db"
	"basegraph.app/sandbox/internal/schema"
)

// Engine runs everything the sandbox sends to the relational database. The
// pool is injected so tests can swap in a fake.
type Engine struct {
	pool db.Pool
}

func New(pool db.Pool) *Engine {
	return &Engine{pool: pool}
}

type Field struct {
	Name       string `json:"name"`
	DataTypeID uint32 `json:"dataTypeID"`
	Type       string `json:"type,omitempty"`
}

type Result struct {
	Command  string           `json:"command"`
	RowCount int64            `json:"rowCount"`
	Rows     []map[string]any `json:"rows"`
	Fields   []Field          `json:"fields"`
}

// Execute runs one user statement verbatim inside a transaction whose name
// resolution is limited to namespace and public. Any engine failure rolls
// the transaction back and comes back as an *EngineError.
func (e *Engine) Execute(ctx context.Context, namespace, sqlText string) (*Result, error) {
	ns := schema.SanitizeIdentifier(namespace)
	if ns == "" {
		return nil, &EngineError{Class: ClassQuery, Message: "Workspace namespace is missing", Original: "empty namespace"}
	}

	var result *Result
	err := db.RunInTx(ctx, e.pool, func(tx pgx.Tx) error {
		// SET LOCAL ends with the transaction, so the pooled connection never keeps this path.
		if _, err := tx.Exec(ctx, "SET LOCAL search_path TO "+schema.QuoteIdentifier(ns)+", public"); err != nil {
			return err
		}

		// Simple protocol: user text is sent as-is, so DDL and multi-keyword statements work.
		rows, err := tx.Query(ctx, sqlText, pgx.QueryExecModeSimpleProtocol)
		if err != nil {
			return err
		}
		defer rows.Close()

		typeMap := pgtype.NewMap()
		descs := rows.FieldDescriptions()
		fields := make([]Field, 0, len(descs))
		for _, fd := range descs {
			f := Field{Name: fd.Name, DataTypeID: fd.DataTypeOID}
			if t, ok := typeMap.TypeForOID(fd.DataTypeOID); ok {
				f.Type = t.Name
			}
			fields = append(fields, f)
		}

		out := make([]map[string]any, 0)
		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				return err
			}
			row := make(map[string]any, len(values))
			for i, v := range values {
				if i < len(fields) {
					row[fields[i].Name] = NormalizeValue(v)
				}
			}
			out = append(out, row)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		tag := rows.CommandTag()
		result = &Result{
			Command:  commandName(tag.String()),
			RowCount: tag.RowsAffected(),
			Rows:     out,
			Fields:   fields,
		}
		return nil
	})
	if err != nil {
		ee := Classify(err)
		slog.WarnContext(ctx, "user query failed",
			"namespace", ns,
			"class", ee.Class,
			"code", ee.Code,
			"query", logger.Truncate(sqlText, 200))
		return nil, ee
	}

	slog.DebugContext(ctx, "user query executed",
		"namespace", ns,
		"command", result.Command,
		"row_count", result.RowCount)
	return result, nil
}

func commandName(tag string) string {
	fields := strings.Fields(tag)
	if len(fields) == 0 {
		return ""
	}
	if len(fields) > 1 && (fields[0] == "CREATE" || fields[0] == "DROP" || fields[0] == "ALTER") {
		return fields[0] + " " + fields[1]
	}
	return fields[0]
}

var selectInto = regexp.MustCompile(`(?i)\binto\b`)

var writableCTE = regexp.MustCompile(`(?i)\b(insert|update|delete|merge)\b`)

// IsReadOnly reports whether a statement leaves the namespace's structure and
// data untouched. Both the leading keyword and the command tag have to agree,
// since CREATE TABLE AS reports itself as SELECT.
func IsReadOnly(sqlText, command string) bool {
	first := strings.ToUpper(firstWord(sqlText))
	switch first {
	case "SELECT", "WITH", "SHOW", "EXPLAIN", "VALUES", "TABLE":
	default:
		return false
	}
	if first == "SELECT" && selectInto.MatchString(sqlText) {
		return false
	}
	// A data-modifying CTE still reports SELECT.
	if first == "WITH" && writableCTE.MatchString(sqlText) {
		return false
	}
	switch strings.ToUpper(firstWord(command)) {
	case "SELECT", "SHOW", "EXPLAIN", "VALUES", "TABLE":
		return true
	}
	return false
}

func firstWord(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == '\r' || r == '(' || r == ';'
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
