package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var unsafeIdentifierChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeIdentifier strips every character outside [A-Za-z0-9_]. Identifiers
// cannot be bound as parameters, so every table, column and namespace name
// goes through here before it is spliced into SQL.
func SanitizeIdentifier(name string) string {
	return unsafeIdentifierChars.ReplaceAllString(name, "")
}

// QuoteIdentifier sanitizes and double-quotes an identifier so its case survives.
func QuoteIdentifier(name string) string {
	return `"` + SanitizeIdentifier(name) + `"`
}

// QualifiedName renders "namespace"."table".
func QualifiedName(namespace, table string) string {
	return QuoteIdentifier(namespace) + "." + QuoteIdentifier(table)
}

// QuoteString doubles embedded single quotes and wraps the value in quotes.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

const nullLiteral = "NULL"

var numericLiteralPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// FormatLiteral renders value as a SQL literal for a column of the given
// friendly type. Numbers are written bare, booleans as TRUE/FALSE, and
// everything else as an escaped string.
func FormatLiteral(value any, dataType string) (string, error) {
	if value == nil {
		return nullLiteral, nil
	}

	pt, ok := parseType(dataType)
	if !ok {
		// Unknown types fall back to a quoted string; the engine has the final say.
		return QuoteString(stringify(value)), nil
	}

	switch pt.family {
	case FamilyInteger, FamilyFloat, FamilyDecimal:
		coerced, err := coerceWith(value, pt)
		if err != nil {
			return "", err
		}
		return formatNumber(coerced)
	case FamilyBoolean:
		if truthy(value) {
			return "TRUE", nil
		}
		return "FALSE", nil
	case FamilyJSON:
		if s, ok := value.(string); ok {
			return QuoteString(s), nil
		}
		b, err := json.Marshal(value)
		if err != nil {
			return "", newValidationError(StageValue, fmt.Sprintf("Value '%v' is not valid JSON", value))
		}
		return QuoteString(string(b)), nil
	default:
		return QuoteString(stringify(value)), nil
	}
}

func formatNumber(v any) (string, error) {
	switch n := v.(type) {
	case nil:
		return nullLiteral, nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return "", newValidationError(StageValue, fmt.Sprintf("Value '%v' is not a finite number", n))
		}
		return strconv.FormatFloat(n, 'g', -1, 64), nil
	case string:
		if !numericLiteralPattern.MatchString(n) {
			return "", newValidationError(StageValue, fmt.Sprintf("Value '%s' is not a valid number", n))
		}
		return n, nil
	default:
		return "", newValidationError(StageValue, fmt.Sprintf("Value '%v' is not a valid number", v))
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "t", "1":
			return true
		}
		return false
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return false
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return `\x` + fmt.Sprintf("%x", v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(value)
}
