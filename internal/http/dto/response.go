package dto

// Response is the envelope of every successful answer.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the envelope of every failed answer. Clients switch on
// Error.Type and fall back to Error.Message for types they do not know.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

type ErrorBody struct {
	Type           string   `json:"type"`
	Message        string   `json:"message"`
	Code           string   `json:"code,omitempty"`
	Suggestion     string   `json:"suggestion,omitempty"`
	Original       string   `json:"original,omitempty"`
	Detail         string   `json:"detail,omitempty"`
	Hint           string   `json:"hint,omitempty"`
	Position       int32    `json:"position,omitempty"`
	Stage          string   `json:"stage,omitempty"`
	Errors         []string `json:"errors,omitempty"`
	Duplicates     []string `json:"duplicates,omitempty"`
	SupportedTypes []string `json:"supported_types,omitempty"`
}

func OK(data any) Response {
	return Response{Success: true, Data: data}
}

func OKMessage(message string, data any) Response {
	return Response{Success: true, Message: message, Data: data}
}

func Error(errType, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Type: errType, Message: message}}
}
