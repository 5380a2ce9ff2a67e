package model

import (
	"fmt"
	"time"
)

// MaxQueryHistory caps the per-workspace history log; older entries are trimmed first.
const MaxQueryHistory = 100

type Workspace struct {
	ID           int64               `json:"id"`
	Name         string              `json:"name"`
	Namespace    string              `json:"namespace"`
	Tables       []Table             `json:"tables"`
	QueryHistory []QueryHistoryEntry `json:"query_history"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// NamespaceFor derives the relational namespace of a workspace. It only
// depends on the id, so it never changes once the workspace exists.
func NamespaceFor(workspaceID int64) string {
	return fmt.Sprintf("ws_%d", workspaceID)
}

// TableNames returns the declared table names in declaration order.
func (w *Workspace) TableNames() []string {
	names := make([]string, 0, len(w.Tables))
	for _, t := range w.Tables {
		names = append(names, t.Name)
	}
	return names
}

// FindTable looks a declared table up by exact name.
func (w *Workspace) FindTable(name string) (*Table, bool) {
	for i := range w.Tables {
		if w.Tables[i].Name == name {
			return &w.Tables[i], true
		}
	}
	return nil, false
}

// RecentHistory returns up to n entries, newest first.
func (w *Workspace) RecentHistory(n int) []QueryHistoryEntry {
	total := len(w.QueryHistory)
	if n <= 0 || n > total {
		n = total
	}
	out := make([]QueryHistoryEntry, 0, n)
	for i := total - 1; i >= total-n; i-- {
		out = append(out, w.QueryHistory[i])
	}
	return out
}
