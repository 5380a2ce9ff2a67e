package model

import "time"

type QueryStatus string

const (
	QueryStatusSuccess QueryStatus = "success"
	QueryStatusError   QueryStatus = "error"
)

type QueryHistoryEntry struct {
	Query      string      `json:"query"`
	Status     QueryStatus `json:"status"`
	Result     string      `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
	ExecutedAt time.Time   `json:"executed_at"`
}
