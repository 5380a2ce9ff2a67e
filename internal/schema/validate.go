package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// SurrogateKey is the engine-managed primary key added to every table.
const SurrogateKey = "id"

const maxIdentifierLength = 63

var (
	startsWithLetter   = regexp.MustCompile(`^[A-Za-z]`)
	identifierPattern  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	reservedWords      = map[string]struct{}{}
	reservedWordsSlice = []string{
		"SELECT", "FROM", "WHERE", "INSERT", "UPDATE", "DELETE", "CREATE", "DROP",
		"ALTER", "TABLE", "DATABASE", "INDEX", "VIEW", "TRIGGER", "FUNCTION", "PROCEDURE",
		"AND", "OR", "NOT", "NULL", "TRUE", "FALSE", "AS", "ON", "IN", "EXISTS",
		"BETWEEN", "LIKE", "ORDER", "BY", "GROUP", "HAVING", "JOIN", "LEFT", "RIGHT",
		"INNER", "OUTER", "UNION", "ALL", "DISTINCT", "COUNT", "SUM", "AVG", "MIN",
		"MAX", "CASE", "WHEN", "THEN", "ELSE", "END",
	}
)

func init() {
	for _, w := range reservedWordsSlice {
		reservedWords[w] = struct{}{}
	}
}

// IsReservedWord reports whether name collides with a reserved SQL keyword.
func IsReservedWord(name string) bool {
	_, ok := reservedWords[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}

// ValidateTableName returns every rule the name breaks, or nil.
func ValidateTableName(name string) []string {
	return validateIdentifier("Table", "table", name)
}

// ValidateColumnName applies the table-name rules and also keeps the
// surrogate key name free.
func ValidateColumnName(name string) []string {
	errs := validateIdentifier("Column", "column", name)
	if strings.EqualFold(strings.TrimSpace(name), SurrogateKey) {
		errs = append(errs, fmt.Sprintf("'%s' is reserved for the auto-generated primary key", name))
	}
	return errs
}

func validateIdentifier(label, noun, name string) []string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return []string{fmt.Sprintf("%s name is required", label)}
	}

	var errs []string
	if len(trimmed) > maxIdentifierLength {
		errs = append(errs, fmt.Sprintf("%s name must be %d characters or less", label, maxIdentifierLength))
	}
	if !startsWithLetter.MatchString(trimmed) {
		errs = append(errs, fmt.Sprintf("%s name must start with a letter", label))
	}
	if !identifierPattern.MatchString(trimmed) {
		errs = append(errs, fmt.Sprintf("%s name can only contain letters, numbers, and underscores", label))
	}
	if IsReservedWord(trimmed) {
		errs = append(errs, fmt.Sprintf("'%s' is a SQL reserved word and cannot be used as a %s name", trimmed, noun))
	}
	return errs
}

// DuplicateColumns returns names that repeat an earlier column, compared case-insensitively.
func DuplicateColumns(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var dups []string
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		if _, ok := seen[key]; ok {
			dups = append(dups, n)
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}
