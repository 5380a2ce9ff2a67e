package dto

import "basegraph.app/sandbox/internal/service"

type QueryErrorRequest struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type HintRequest struct {
	WorkspaceID int64              `json:"workspace_id,string" binding:"required"`
	Query       string             `json:"query"`
	Intent      string             `json:"intent"`
	Error       *QueryErrorRequest `json:"error"`
}

type ExplainErrorRequest struct {
	WorkspaceID int64             `json:"workspace_id,string" binding:"required"`
	Query       string            `json:"query" binding:"required"`
	Error       QueryErrorRequest `json:"error"`
}

type HintContext struct {
	TablesUsed      []string `json:"tables_used"`
	TablesAvailable []string `json:"tables_available"`
	HasQuery        bool     `json:"has_query"`
	HasIntent       bool     `json:"has_intent"`
	IsErrorHint     bool     `json:"is_error_hint"`
}

type HintResponse struct {
	Hint    string      `json:"hint"`
	Context HintContext `json:"context"`
}

type ExplainErrorResponse struct {
	Explanation   string `json:"explanation"`
	ErrorType     string `json:"error_type"`
	OriginalError string `json:"original_error"`
}

func (r HintRequest) ToService() service.HintRequest {
	req := service.HintRequest{WorkspaceID: r.WorkspaceID, Query: r.Query, Intent: r.Intent}
	if r.Error != nil {
		req.Error = &service.QueryErrorContext{Type: r.Error.Type, Message: r.Error.Message}
	}
	return req
}

func ToHintResponse(h *service.Hint) HintResponse {
	return HintResponse{
		Hint: h.Text,
		Context: HintContext{
			TablesUsed:      h.TablesUsed,
			TablesAvailable: h.TablesAvailable,
			HasQuery:        h.HasQuery,
			HasIntent:       h.HasIntent,
			IsErrorHint:     h.IsErrorHint,
		},
	}
}
