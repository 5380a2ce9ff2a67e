package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"basegraph.app/sandbox/internal/model"
)

type StatementKind string

const (
	StatementCreateTable StatementKind = "CREATE_TABLE"
	StatementInsert      StatementKind = "INSERT"
)

type Statement struct {
	Kind StatementKind `json:"type"`
	SQL  string        `json:"sql"`
}

// CompileResult holds every statement built before the first failing stage,
// so callers can show partial output next to the errors.
type CompileResult struct {
	Success    bool
	Errors     []error
	Statements []Statement
}

// Err folds Errors into one error, nil on success.
func (r CompileResult) Err() error {
	switch len(r.Errors) {
	case 0:
		return nil
	case 1:
		return r.Errors[0]
	default:
		return errors.Join(r.Errors...)
	}
}

// Messages returns the human-readable form of every error.
func (r CompileResult) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		out = append(out, err.Error())
	}
	return out
}

// SQL returns the statement texts in execution order.
func (r CompileResult) SQL() []string {
	out := make([]string, 0, len(r.Statements))
	for _, s := range r.Statements {
		out = append(out, s.SQL)
	}
	return out
}

func failed(stmts []Statement, errs ...error) CompileResult {
	return CompileResult{Success: false, Errors: errs, Statements: stmts}
}

// Compile turns a table definition into a CREATE TABLE followed by one INSERT
// per snapshot row. It never touches the engine. Validation runs stage by
// stage and stops at the first stage that reports anything.
func Compile(table model.Table, namespace string) CompileResult {
	if SanitizeIdentifier(namespace) == "" {
		return failed(nil, newValidationError(StageNamespace, "Namespace is required"))
	}

	if errs := ValidateTableName(table.Name); len(errs) > 0 {
		return failed(nil, newValidationError(StageTableName, errs...))
	}

	if len(table.Columns) == 0 {
		return failed(nil, newValidationError(StageColumns, "Table must have at least one column"))
	}

	var columnErrs []error
	var nameMsgs []string
	for i, col := range table.Columns {
		if strings.TrimSpace(col.Name) == "" || strings.TrimSpace(col.DataType) == "" {
			nameMsgs = append(nameMsgs, fmt.Sprintf("Column %d: name and data type are required", i+1))
			continue
		}
		if errs := ValidateColumnName(col.Name); len(errs) > 0 {
			nameMsgs = append(nameMsgs, fmt.Sprintf("Column '%s': %s", col.Name, strings.Join(errs, ", ")))
		}
		if !IsSupported(col.DataType) {
			columnErrs = append(columnErrs, &UnsupportedTypeError{
				Type:      col.DataType,
				Column:    col.Name,
				Supported: SupportedTypes(),
			})
		}
	}
	if len(nameMsgs) > 0 {
		columnErrs = append([]error{newValidationError(StageColumns, nameMsgs...)}, columnErrs...)
	}
	if len(columnErrs) > 0 {
		return failed(nil, columnErrs...)
	}

	if dups := DuplicateColumns(table.ColumnNames()); len(dups) > 0 {
		return failed(nil, &ValidationError{
			Stage:      StageDuplicate,
			Messages:   []string{"Duplicate column names: " + strings.Join(dups, ", ")},
			Duplicates: dups,
		})
	}

	create, err := createTableSQL(namespace, table)
	if err != nil {
		return failed(nil, err)
	}
	stmts := []Statement{{Kind: StatementCreateTable, SQL: create}}

	inserts, err := CompileRows(table, namespace, table.Rows)
	if err != nil {
		return failed(stmts, err)
	}
	stmts = append(stmts, inserts...)

	return CompileResult{Success: true, Statements: stmts}
}

// CompileRows validates every row against the table's columns and, when all
// of them pass, returns one INSERT per row in input order. All row errors are
// collected before returning.
func CompileRows(table model.Table, namespace string, rows []map[string]any) ([]Statement, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make(map[string]model.Column, len(table.Columns))
	for _, c := range table.Columns {
		columns[c.Name] = c
	}

	var rowMsgs []string
	validated := make([][]string, 0, len(rows))
	for i, row := range rows {
		var errs []string
		literals := make([]string, 0, len(table.Columns))

		for _, key := range sortedKeys(row) {
			if _, ok := columns[key]; !ok {
				errs = append(errs, fmt.Sprintf("Column '%s': not declared on table", key))
			}
		}

		for _, col := range table.Columns {
			v, err := CoerceValue(row[col.Name], col.DataType)
			if err == nil {
				var lit string
				lit, err = FormatLiteral(v, col.DataType)
				literals = append(literals, lit)
			}
			if err != nil {
				errs = append(errs, fmt.Sprintf("Column '%s': %s", col.Name, err.Error()))
			}
		}

		if len(errs) > 0 {
			rowMsgs = append(rowMsgs, fmt.Sprintf("Row %d: %s", i+1, strings.Join(errs, ", ")))
			continue
		}
		validated = append(validated, literals)
	}

	if len(rowMsgs) > 0 {
		return nil, newValidationError(StageRows, rowMsgs...)
	}

	quotedCols := make([]string, 0, len(table.Columns))
	for _, c := range table.Columns {
		quotedCols = append(quotedCols, QuoteIdentifier(c.Name))
	}
	target := QualifiedName(namespace, table.Name)
	colList := strings.Join(quotedCols, ", ")

	stmts := make([]Statement, 0, len(validated))
	for _, literals := range validated {
		stmts = append(stmts, Statement{
			Kind: StatementInsert,
			SQL:  fmt.Sprintf("INSERT INTO %s (%s)\nVALUES (%s)", target, colList, strings.Join(literals, ", ")),
		})
	}
	return stmts, nil
}

func createTableSQL(namespace string, table model.Table) (string, error) {
	defs := make([]string, 0, len(table.Columns)+1)
	defs = append(defs, QuoteIdentifier(SurrogateKey)+" SERIAL PRIMARY KEY")
	for _, col := range table.Columns {
		engineType, err := ToEngineType(col.DataType)
		if err != nil {
			return "", err
		}
		defs = append(defs, QuoteIdentifier(col.Name)+" "+engineType)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		QualifiedName(namespace, table.Name), strings.Join(defs, ",\n  ")), nil
}

// DropTableSQL drops one table and everything depending on it.
func DropTableSQL(namespace, table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", QualifiedName(namespace, table))
}

// CreateNamespaceSQL creates the schema container for a workspace.
func CreateNamespaceSQL(namespace string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + QuoteIdentifier(namespace)
}

// DropNamespaceSQL removes a workspace's schema and all of its tables.
func DropNamespaceSQL(namespace string) string {
	return "DROP SCHEMA IF EXISTS " + QuoteIdentifier(namespace) + " CASCADE"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
