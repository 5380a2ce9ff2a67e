package schema

import (
	"fmt"
	"strings"
)

const (
	KindValidation      = "VALIDATION_ERROR"
	KindUnsupportedType = "UNSUPPORTED_TYPE"
)

// Stage names the compiler step a ValidationError came from.
type Stage string

const (
	StageNamespace Stage = "namespace"
	StageTableName Stage = "table_name"
	StageColumns   Stage = "columns"
	StageDuplicate Stage = "duplicate_columns"
	StageRows      Stage = "rows"
	StageValue     Stage = "value"
	StageRequest   Stage = "request"
)

// ValidationError reports input rejected before anything reaches the engine.
type ValidationError struct {
	Stage      Stage
	Messages   []string
	Duplicates []string // set for StageDuplicate
}

// NewRequestError reports a malformed request that never reached the compiler.
func NewRequestError(msgs ...string) *ValidationError {
	return newValidationError(StageRequest, msgs...)
}

func newValidationError(stage Stage, msgs ...string) *ValidationError {
	return &ValidationError{Stage: stage, Messages: msgs}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Kind() string {
	return KindValidation
}

// UnsupportedTypeError is returned for a data type outside the supported vocabulary.
type UnsupportedTypeError struct {
	Type      string
	Column    string // empty when not raised for a specific column
	Supported []string
}

func (e *UnsupportedTypeError) Error() string {
	msg := fmt.Sprintf("unsupported data type %q. Supported types: %s", e.Type, strings.Join(e.Supported, ", "))
	if e.Column != "" {
		return fmt.Sprintf("column '%s': %s", e.Column, msg)
	}
	return msg
}

func (e *UnsupportedTypeError) Kind() string {
	return KindUnsupportedType
}
