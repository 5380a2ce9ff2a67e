package example

type QueryStatus string

const (
	QueryStatusSuccess QueryStatus = "success"
	QueryStatusError   QueryStatus = "error"
)

type StatementKind string

const (
	StatementCreateTable StatementKind = "CREATE_TABLE"
)

type HistoryEntry struct {
	Query  string
	Status QueryStatus
}

type Statement struct {
	Kind StatementKind
	SQL  string
}

func bad() {
	e := &HistoryEntry{}
	e.Status = "sucess" // want "enum field Status assigned string literal"

	_ = Statement{Kind: "CREATE", SQL: "CREATE TABLE t ()"} // want "enum field Kind set to string literal"
}

func good() {
	e := &HistoryEntry{}
	e.Status = QueryStatusError

	_ = Statement{Kind: StatementCreateTable, SQL: "CREATE TABLE t ()"}
	_ = HistoryEntry{Query: "SELECT 1", Status: QueryStatusSuccess}
}

func alsoGood() {
	// Variables are fine, only literals are flagged.
	status := QueryStatusSuccess
	e := &HistoryEntry{Status: status}
	_ = e
}
