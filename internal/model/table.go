package model

import "time"

// Table is the declarative metadata for one physical table. Rows never
// contain the engine-managed surrogate key.
type Table struct {
	Name      string           `json:"name"`
	Columns   []Column         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	CreatedAt time.Time        `json:"created_at"`
}

type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

// ColumnNames returns the declared column names in order.
func (t Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}
