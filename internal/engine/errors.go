package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
)

const KindEngine = "ENGINE_ERROR"

// Classifications of engine failures, keyed off SQLSTATE.
const (
	ClassSyntax         = "SYNTAX_ERROR"
	ClassTableNotFound  = "TABLE_NOT_FOUND"
	ClassColumnNotFound = "COLUMN_NOT_FOUND"
	ClassTypeMismatch   = "DATA_TYPE_MISMATCH"
	ClassDivisionByZero = "DIVISION_BY_ZERO"
	ClassUnique         = "UNIQUE_VIOLATION"
	ClassForeignKey     = "FOREIGN_KEY_VIOLATION"
	ClassNotNull        = "NOT_NULL_VIOLATION"
	ClassUndefinedFunc  = "UNDEFINED_FUNCTION"
	ClassAmbiguous      = "AMBIGUOUS_COLUMN"
	ClassPermission     = "PERMISSION_DENIED"
	ClassQuery          = "QUERY_ERROR"
)

var (
	ErrTableNotFound    = errors.New("table not found")
	ErrInvalidNamespace = errors.New("invalid namespace")
)

// EngineError wraps anything the relational engine reported. Message is
// rewritten for learners; Original keeps the native text.
type EngineError struct {
	Class      string
	Code       string
	Message    string
	Original   string
	Detail     string
	Hint       string
	Position   int32
	Suggestion string
	Err        error
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (SQLSTATE %s)", e.Original, e.Code)
	}
	return e.Original
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) Kind() string {
	return KindEngine
}

type classRule struct {
	class      string
	pattern    *regexp.Regexp
	format     func(m []string) string
	suggestion string
}

var classRules = map[string]classRule{
	"42601": {
		class:   ClassSyntax,
		pattern: regexp.MustCompile(`syntax error at or near "(.+?)"`),
		format: func(m []string) string {
			if m == nil {
				return "Syntax error"
			}
			return fmt.Sprintf("Syntax error near '%s'", m[1])
		},
		suggestion: "Check your SQL syntax. Common mistakes: missing commas, incorrect keywords, or typos.",
	},
	"42P01": {
		class:      ClassTableNotFound,
		pattern:    regexp.MustCompile(`relation "(.+?)" does not exist`),
		format:     func(m []string) string { return fmt.Sprintf("Table '%s' does not exist", group(m, "unknown")) },
		suggestion: "Make sure the table name is correct and the table has been created.",
	},
	"42703": {
		class:      ClassColumnNotFound,
		pattern:    regexp.MustCompile(`column "(.+?)" does not exist`),
		format:     func(m []string) string { return fmt.Sprintf("Column '%s' does not exist", group(m, "unknown")) },
		suggestion: "Check the column name spelling and make sure it exists in the table.",
	},
	"22P02": typeMismatchRule,
	"22003": typeMismatchRule,
	"22007": typeMismatchRule,
	"22008": typeMismatchRule,
	"22012": {
		class:      ClassDivisionByZero,
		format:     func([]string) string { return "Division by zero error" },
		suggestion: "Check your calculation - you cannot divide by zero.",
	},
	"23505": {
		class:   ClassUnique,
		pattern: regexp.MustCompile(`Key \((.+?)\)=\((.+?)\)`),
		format: func(m []string) string {
			if m == nil {
				return "Duplicate key value violates unique constraint"
			}
			return fmt.Sprintf("Duplicate key value violates unique constraint: %s=%s", m[1], m[2])
		},
		suggestion: "This value already exists. Use a different value or update the existing record.",
	},
	"23503": {
		class:      ClassForeignKey,
		format:     func([]string) string { return "Foreign key constraint violation" },
		suggestion: "The referenced record does not exist or cannot be deleted due to dependent records.",
	},
	"23502": {
		class:   ClassNotNull,
		pattern: regexp.MustCompile(`null value in column "(.+?)"`),
		format: func(m []string) string {
			return fmt.Sprintf("NULL value not allowed in column '%s'", group(m, "unknown"))
		},
		suggestion: "This column requires a value. Provide a non-null value.",
	},
	"42883": {
		class:      ClassUndefinedFunc,
		pattern:    regexp.MustCompile(`function (.+?) does not exist`),
		format:     func(m []string) string { return fmt.Sprintf("Function '%s' does not exist", group(m, "unknown")) },
		suggestion: "Check the function name and arguments. Make sure you're using a valid SQL function.",
	},
	"42702": {
		class:      ClassAmbiguous,
		format:     func([]string) string { return "Column reference is ambiguous" },
		suggestion: "Specify the table name to disambiguate (e.g., table_name.column_name).",
	},
	"42501": {
		class:      ClassPermission,
		format:     func([]string) string { return "Permission denied" },
		suggestion: "You do not have permission to perform this operation.",
	},
}

var typeMismatchRule = classRule{
	class:   ClassTypeMismatch,
	pattern: regexp.MustCompile(`invalid input syntax for type (.+?):`),
	format: func(m []string) string {
		return fmt.Sprintf("Invalid value for data type %s", group(m, "unknown"))
	},
	suggestion: "Make sure the value matches the expected data type.",
}

func group(m []string, fallback string) string {
	if len(m) < 2 {
		return fallback
	}
	return m[1]
}

// Classify converts any error from pgx into an EngineError. Errors that are
// already classified pass through untouched.
func Classify(err error) *EngineError {
	if err == nil {
		return nil
	}

	var ee *EngineError
	if errors.As(err, &ee) {
		return ee
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			msg = "Query was cancelled before it completed"
		}
		return &EngineError{
			Class:      ClassQuery,
			Message:    msg,
			Original:   err.Error(),
			Suggestion: "Please check your query and try again.",
			Err:        err,
		}
	}

	out := &EngineError{
		Class:      ClassQuery,
		Code:       pgErr.Code,
		Message:    pgErr.Message,
		Original:   pgErr.Message,
		Detail:     pgErr.Detail,
		Hint:       pgErr.Hint,
		Position:   pgErr.Position,
		Suggestion: "Please check your query and try again.",
		Err:        err,
	}

	rule, ok := classRules[pgErr.Code]
	if !ok {
		return out
	}

	var m []string
	if rule.pattern != nil {
		// The unique-violation key lives in Detail, not Message.
		m = rule.pattern.FindStringSubmatch(pgErr.Message + "\n" + pgErr.Detail)
	}
	out.Class = rule.class
	out.Message = rule.format(m)
	out.Suggestion = rule.suggestion
	return out
}
