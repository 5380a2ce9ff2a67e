package dto

import (
	"time"

	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/reconcile"
	"basegraph.app/sandbox/internal/schema"
	"basegraph.app/sandbox/internal/service"
)

// Column and row checks are left to the compiler so clients get its
// messages rather than binding errors.
type CreateTableRequest struct {
	Name    string           `json:"name" binding:"required"`
	Columns []ColumnRequest  `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

type ColumnRequest struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

type InsertRowsRequest struct {
	Rows []map[string]any `json:"rows"`
}

type TableResponse struct {
	Name      string           `json:"name"`
	Columns   []model.Column   `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	CreatedAt time.Time        `json:"created_at"`
}

type TableChangeResponse struct {
	Table      TableResponse            `json:"table"`
	Statements []schema.Statement       `json:"statements"`
	Inserted   int                      `json:"inserted"`
	Skipped    []reconcile.TableFailure `json:"skipped,omitempty"`
}

type TableListResponse struct {
	Tables         []TableResponse `json:"tables"`
	PhysicalTables []string        `json:"physical_tables"`
}

type TableDetailsResponse struct {
	Name      string              `json:"name"`
	Structure []engine.ColumnInfo `json:"structure"`
	Rows      []map[string]any    `json:"rows"`
	RowCount  int                 `json:"row_count"`
	Metadata  *TableResponse      `json:"metadata"`
}

func (r CreateTableRequest) ToModel() model.Table {
	cols := make([]model.Column, 0, len(r.Columns))
	for _, c := range r.Columns {
		cols = append(cols, model.Column{Name: c.Name, DataType: c.DataType})
	}
	return model.Table{Name: r.Name, Columns: cols, Rows: r.Rows}
}

func ToTableResponse(t model.Table) TableResponse {
	rows := t.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	cols := t.Columns
	if cols == nil {
		cols = []model.Column{}
	}
	return TableResponse{
		Name:      t.Name,
		Columns:   cols,
		Rows:      rows,
		RowCount:  len(rows),
		CreatedAt: t.CreatedAt,
	}
}

func ToTableResponses(tables []model.Table) []TableResponse {
	out := make([]TableResponse, 0, len(tables))
	for _, t := range tables {
		out = append(out, ToTableResponse(t))
	}
	return out
}

func ToTableChangeResponse(c *service.TableChange) TableChangeResponse {
	return TableChangeResponse{
		Table:      ToTableResponse(c.Table),
		Statements: c.Statements,
		Inserted:   c.Inserted,
		Skipped:    c.Skipped,
	}
}

func ToTableDetailsResponse(d *service.TableDetails) TableDetailsResponse {
	resp := TableDetailsResponse{
		Name:      d.Name,
		Structure: d.Structure,
		Rows:      d.Rows,
		RowCount:  len(d.Rows),
	}
	if d.Declared != nil {
		meta := ToTableResponse(*d.Declared)
		resp.Metadata = &meta
	}
	return resp
}
