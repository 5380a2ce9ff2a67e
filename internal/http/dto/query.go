package dto

import (
	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/model"
	"basegraph.app/sandbox/internal/service"
)

type ExecuteQueryRequest struct {
	Query string `json:"query"`
}

type QueryResultResponse struct {
	Command   string           `json:"command"`
	RowCount  int64            `json:"rowCount"`
	Rows      []map[string]any `json:"rows"`
	Fields    []engine.Field   `json:"fields"`
	Refreshed bool             `json:"schema_refreshed"`
}

type HistoryResponse struct {
	History []model.QueryHistoryEntry `json:"history"`
	Count   int                       `json:"count"`
}

func ToQueryResultResponse(o *service.QueryOutcome) QueryResultResponse {
	rows := o.Result.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	fields := o.Result.Fields
	if fields == nil {
		fields = []engine.Field{}
	}
	return QueryResultResponse{
		Command:   o.Result.Command,
		RowCount:  o.Result.RowCount,
		Rows:      rows,
		Fields:    fields,
		Refreshed: o.Refreshed,
	}
}
