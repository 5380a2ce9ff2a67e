package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Family groups friendly types that share literal formatting and coercion rules.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyInteger
	FamilyFloat
	FamilyDecimal
	FamilyText
	FamilyBoolean
	FamilyDate
	FamilyTime
	FamilyTimestamp
	FamilyJSON
	FamilyUUID
	FamilyBinary
)

func (f Family) String() string {
	switch f {
	case FamilyInteger:
		return "integer"
	case FamilyFloat:
		return "float"
	case FamilyDecimal:
		return "decimal"
	case FamilyText:
		return "text"
	case FamilyBoolean:
		return "boolean"
	case FamilyDate:
		return "date"
	case FamilyTime:
		return "time"
	case FamilyTimestamp:
		return "timestamp"
	case FamilyJSON:
		return "json"
	case FamilyUUID:
		return "uuid"
	case FamilyBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether literals of the family are written unquoted.
func (f Family) IsNumeric() bool {
	return f == FamilyInteger || f == FamilyFloat || f == FamilyDecimal
}

type typeSpec struct {
	engine string
	family Family
	bits   int // integer width, or float width for REAL/DOUBLE
}

var friendlyTypes = map[string]typeSpec{
	"INTEGER":  {engine: "INTEGER", family: FamilyInteger, bits: 32},
	"INT":      {engine: "INTEGER", family: FamilyInteger, bits: 32},
	"BIGINT":   {engine: "BIGINT", family: FamilyInteger, bits: 64},
	"SMALLINT": {engine: "SMALLINT", family: FamilyInteger, bits: 16},

	"TEXT":    {engine: "TEXT", family: FamilyText},
	"VARCHAR": {engine: "VARCHAR(255)", family: FamilyText},
	"CHAR":    {engine: "CHAR(50)", family: FamilyText},
	"STRING":  {engine: "TEXT", family: FamilyText},

	"REAL":             {engine: "REAL", family: FamilyFloat, bits: 32},
	"FLOAT":            {engine: "REAL", family: FamilyFloat, bits: 32},
	"DOUBLE":           {engine: "DOUBLE PRECISION", family: FamilyFloat, bits: 64},
	"DOUBLE PRECISION": {engine: "DOUBLE PRECISION", family: FamilyFloat, bits: 64},
	"DECIMAL":          {engine: "DECIMAL(10,2)", family: FamilyDecimal},
	"NUMERIC":          {engine: "NUMERIC(10,2)", family: FamilyDecimal},

	"BOOLEAN": {engine: "BOOLEAN", family: FamilyBoolean},
	"BOOL":    {engine: "BOOLEAN", family: FamilyBoolean},

	"DATE":        {engine: "DATE", family: FamilyDate},
	"TIME":        {engine: "TIME", family: FamilyTime},
	"TIMESTAMP":   {engine: "TIMESTAMP", family: FamilyTimestamp},
	"DATETIME":    {engine: "TIMESTAMP", family: FamilyTimestamp},
	"TIMESTAMPTZ": {engine: "TIMESTAMPTZ", family: FamilyTimestamp},

	"JSON":  {engine: "JSON", family: FamilyJSON},
	"JSONB": {engine: "JSONB", family: FamilyJSON},
	"UUID":  {engine: "UUID", family: FamilyUUID},
	"BYTEA": {engine: "BYTEA", family: FamilyBinary},
}

// Native type names (lower-cased, as information_schema reports them) back to friendly tags.
var engineTypes = map[string]string{
	"integer":                     "INTEGER",
	"int":                         "INTEGER",
	"int4":                        "INTEGER",
	"serial":                      "INTEGER",
	"bigint":                      "BIGINT",
	"int8":                        "BIGINT",
	"bigserial":                   "BIGINT",
	"smallint":                    "SMALLINT",
	"int2":                        "SMALLINT",
	"text":                        "TEXT",
	"character varying":           "VARCHAR",
	"varchar":                     "VARCHAR",
	"character":                   "CHAR",
	"char":                        "CHAR",
	"bpchar":                      "CHAR",
	"real":                        "REAL",
	"float4":                      "REAL",
	"double precision":            "DOUBLE",
	"float8":                      "DOUBLE",
	"numeric":                     "NUMERIC",
	"decimal":                     "DECIMAL",
	"boolean":                     "BOOLEAN",
	"bool":                        "BOOLEAN",
	"date":                        "DATE",
	"time":                        "TIME",
	"time without time zone":      "TIME",
	"timestamp":                   "TIMESTAMP",
	"timestamp without time zone": "TIMESTAMP",
	"timestamp with time zone":    "TIMESTAMPTZ",
	"timestamptz":                 "TIMESTAMPTZ",
	"json":                        "JSON",
	"jsonb":                       "JSONB",
	"uuid":                        "UUID",
	"bytea":                       "BYTEA",
}

var (
	lengthTypePattern  = regexp.MustCompile(`^(VARCHAR|CHAR)\s*\(\s*(\d+)\s*\)$`)
	decimalTypePattern = regexp.MustCompile(`^(DECIMAL|NUMERIC)\s*\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)$`)
	nativeParamPattern = regexp.MustCompile(`^([a-z][a-z ]*?)\s*\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)$`)
)

const (
	maxCharLength       = 10485760
	maxNumericPrecision = 1000
)

// parsedType is a friendly type after normalization.
type parsedType struct {
	engine    string
	family    Family
	bits      int
	length    int // VARCHAR(n)/CHAR(n), 0 when unbounded
	precision int // DECIMAL(p,s), 0 when unconstrained
	scale     int
}

func normalize(friendly string) string {
	return strings.Join(strings.Fields(strings.ToUpper(friendly)), " ")
}

func parseType(friendly string) (parsedType, bool) {
	upper := normalize(friendly)
	if upper == "" {
		return parsedType{}, false
	}

	if def, ok := friendlyTypes[upper]; ok {
		pt := parsedType{engine: def.engine, family: def.family, bits: def.bits}
		switch upper {
		case "VARCHAR":
			pt.length = 255
		case "CHAR":
			pt.length = 50
		case "DECIMAL", "NUMERIC":
			pt.precision, pt.scale = 10, 2
		}
		return pt, true
	}

	if m := lengthTypePattern.FindStringSubmatch(upper); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 || n > maxCharLength {
			return parsedType{}, false
		}
		return parsedType{
			engine: fmt.Sprintf("%s(%d)", m[1], n),
			family: FamilyText,
			length: n,
		}, true
	}

	if m := decimalTypePattern.FindStringSubmatch(upper); m != nil {
		p, err := strconv.Atoi(m[2])
		if err != nil || p < 1 || p > maxNumericPrecision {
			return parsedType{}, false
		}
		s := 0
		if m[3] != "" {
			s, err = strconv.Atoi(m[3])
			if err != nil || s > p {
				return parsedType{}, false
			}
		}
		engine := fmt.Sprintf("%s(%d)", m[1], p)
		if m[3] != "" {
			engine = fmt.Sprintf("%s(%d,%d)", m[1], p, s)
		}
		return parsedType{engine: engine, family: FamilyDecimal, precision: p, scale: s}, true
	}

	return parsedType{}, false
}

// ToEngineType maps a friendly type to the native column type. Parameterized
// forms such as VARCHAR(40) or DECIMAL(12,4) pass through once their
// parameters are valid.
func ToEngineType(friendly string) (string, error) {
	pt, ok := parseType(friendly)
	if !ok {
		return "", &UnsupportedTypeError{Type: friendly, Supported: SupportedTypes()}
	}
	return pt.engine, nil
}

// FromEngineType maps a native type name back to a friendly tag. Unknown
// names come back upper-cased instead of failing.
func FromEngineType(native string) string {
	lower := strings.Join(strings.Fields(strings.ToLower(native)), " ")
	if friendly, ok := engineTypes[lower]; ok {
		return friendly
	}

	if m := nativeParamPattern.FindStringSubmatch(lower); m != nil {
		base, ok := engineTypes[m[1]]
		if ok {
			switch base {
			case "VARCHAR", "CHAR":
				if m[3] == "" {
					return fmt.Sprintf("%s(%s)", base, m[2])
				}
			case "NUMERIC", "DECIMAL":
				if m[3] == "" {
					return fmt.Sprintf("%s(%s)", base, m[2])
				}
				return fmt.Sprintf("%s(%s,%s)", base, m[2], m[3])
			default:
				// e.g. time(3), timestamp(6): the precision has no friendly form.
				return base
			}
		}
	}

	return strings.ToUpper(strings.TrimSpace(native))
}

// IsSupported reports whether friendly can be compiled.
func IsSupported(friendly string) bool {
	_, ok := parseType(friendly)
	return ok
}

// FamilyOf returns the family of a friendly type, FamilyUnknown when unsupported.
func FamilyOf(friendly string) Family {
	pt, ok := parseType(friendly)
	if !ok {
		return FamilyUnknown
	}
	return pt.family
}

// SupportedTypes lists the accepted vocabulary, including the parameterized forms.
func SupportedTypes() []string {
	out := make([]string, 0, len(friendlyTypes)+4)
	for name := range friendlyTypes {
		out = append(out, name)
	}
	sort.Strings(out)
	return append(out, "VARCHAR(n)", "CHAR(n)", "DECIMAL(p,s)", "NUMERIC(p,s)")
}

type DataTypeOption struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// RecommendedTypes is the short list offered in the table designer.
func RecommendedTypes() []DataTypeOption {
	return []DataTypeOption{
		{Value: "INTEGER", Label: "Integer", Description: "Whole numbers"},
		{Value: "BIGINT", Label: "Big Integer", Description: "Large whole numbers"},
		{Value: "TEXT", Label: "Text", Description: "Variable-length text"},
		{Value: "VARCHAR", Label: "Varchar(255)", Description: "Variable character with length"},
		{Value: "REAL", Label: "Real", Description: "Floating-point number"},
		{Value: "DECIMAL", Label: "Decimal(10,2)", Description: "Fixed-point number"},
		{Value: "BOOLEAN", Label: "Boolean", Description: "True/False"},
		{Value: "DATE", Label: "Date", Description: "Date (YYYY-MM-DD)"},
		{Value: "TIMESTAMP", Label: "Timestamp", Description: "Date and time"},
		{Value: "JSON", Label: "JSON", Description: "JSON data"},
		{Value: "UUID", Label: "UUID", Description: "Universally unique identifier"},
	}
}
