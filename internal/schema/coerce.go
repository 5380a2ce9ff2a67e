package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var timeLayouts = []string{"15:04:05.999999999", "15:04:05", "15:04"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// CoerceValue checks value against a column type and returns its normalized
// form: int64 for integers, float64 for floats, a canonical numeric string for
// decimals, bool for booleans and strings for everything else. Empty strings
// and nil become nil.
func CoerceValue(value any, dataType string) (any, error) {
	pt, ok := parseType(dataType)
	if !ok {
		return nil, &UnsupportedTypeError{Type: dataType, Supported: SupportedTypes()}
	}
	return coerceWith(value, pt)
}

func coerceWith(value any, pt parsedType) (any, error) {
	if value == nil {
		return nil, nil
	}
	if s, ok := value.(string); ok && s == "" {
		return nil, nil
	}

	switch pt.family {
	case FamilyInteger:
		return coerceInteger(value, pt.bits)
	case FamilyFloat:
		return coerceFloat(value, pt.bits)
	case FamilyDecimal:
		return coerceDecimal(value, pt.precision, pt.scale)
	case FamilyText:
		s := stringify(value)
		if pt.length > 0 && utf8.RuneCountInString(s) > pt.length {
			return nil, invalidValue(value, fmt.Sprintf("is longer than %d characters", pt.length))
		}
		return s, nil
	case FamilyBoolean:
		return coerceBool(value)
	case FamilyDate:
		s := strings.TrimSpace(stringify(value))
		if t, ok := value.(time.Time); ok {
			return t.Format("2006-01-02"), nil
		}
		if !datePattern.MatchString(s) {
			return nil, invalidValue(value, "is not a valid date (expected YYYY-MM-DD)")
		}
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return nil, invalidValue(value, "is not a valid date")
		}
		return s, nil
	case FamilyTime:
		s := strings.TrimSpace(stringify(value))
		if !parsesWithAny(s, timeLayouts) {
			return nil, invalidValue(value, "is not a valid time (expected HH:MM[:SS])")
		}
		return s, nil
	case FamilyTimestamp:
		if t, ok := value.(time.Time); ok {
			return t.Format(time.RFC3339Nano), nil
		}
		s := strings.TrimSpace(stringify(value))
		if !parsesWithAny(s, timestampLayouts) {
			return nil, invalidValue(value, "is not a valid timestamp")
		}
		return s, nil
	case FamilyJSON:
		if s, ok := value.(string); ok {
			if !json.Valid([]byte(s)) {
				return nil, invalidValue(value, "is not valid JSON")
			}
			return s, nil
		}
		b, err := json.Marshal(value)
		if err != nil {
			return nil, invalidValue(value, "is not valid JSON")
		}
		return string(b), nil
	case FamilyUUID:
		id, err := uuid.Parse(strings.TrimSpace(stringify(value)))
		if err != nil {
			return nil, invalidValue(value, "is not a valid UUID")
		}
		return id.String(), nil
	default:
		return stringify(value), nil
	}
}

func invalidValue(value any, reason string) error {
	return newValidationError(StageValue, fmt.Sprintf("Value '%v' %s", value, reason))
}

func parsesWithAny(s string, layouts []string) bool {
	for _, layout := range layouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// toNumber reads JSON-decoded numbers, Go numbers and numeric strings as a big.Float
// so integer ranges can be checked without float64 rounding.
func toNumber(value any) (*big.Float, bool) {
	var text string
	switch v := value.(type) {
	case int:
		return new(big.Float).SetInt64(int64(v)), true
	case int32:
		return new(big.Float).SetInt64(int64(v)), true
	case int64:
		return new(big.Float).SetInt64(v), true
	case float32:
		return finiteFloat(float64(v))
	case float64:
		return finiteFloat(v)
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	default:
		return nil, false
	}
	if !numericLiteralPattern.MatchString(text) {
		return nil, false
	}
	f, _, err := big.ParseFloat(text, 10, 256, big.ToNearestEven)
	if err != nil {
		return nil, false
	}
	return f, true
}

func finiteFloat(v float64) (*big.Float, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	return new(big.Float).SetFloat64(v), true
}

func coerceInteger(value any, bits int) (any, error) {
	f, ok := toNumber(value)
	if !ok || !f.IsInt() {
		return nil, invalidValue(value, "is not a valid integer")
	}
	i, acc := f.Int64()
	if acc != big.Exact {
		return nil, invalidValue(value, "is out of range for a 64-bit integer")
	}
	if bits < 64 {
		limit := int64(1) << (bits - 1)
		if i < -limit || i > limit-1 {
			return nil, invalidValue(value, fmt.Sprintf("is out of range for a %d-bit integer", bits))
		}
	}
	return i, nil
}

func coerceFloat(value any, bits int) (any, error) {
	f, ok := toNumber(value)
	if !ok {
		return nil, invalidValue(value, "is not a valid number")
	}
	v, _ := f.Float64()
	if math.IsInf(v, 0) || (bits == 32 && math.Abs(v) > math.MaxFloat32) {
		return nil, invalidValue(value, "is out of range")
	}
	return v, nil
}

func coerceDecimal(value any, precision, scale int) (any, error) {
	f, ok := toNumber(value)
	if !ok {
		return nil, invalidValue(value, "is not a valid decimal number")
	}
	text := f.Text('f', -1)
	if precision > 0 && !decimalFits(text, precision, scale) {
		return nil, invalidValue(value, fmt.Sprintf("does not fit DECIMAL(%d,%d)", precision, scale))
	}
	return text, nil
}

// decimalFits rounds text to scale digits, half away from zero as the engine
// does, and checks the integer digits of the result against precision-scale.
func decimalFits(text string, precision, scale int) bool {
	r, ok := new(big.Rat).SetString(text)
	if !ok {
		return false
	}
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
	r.Abs(r)
	r.Mul(r, new(big.Rat).SetInt(pow))
	r.Add(r, big.NewRat(1, 2))
	units := new(big.Int).Quo(r.Num(), r.Denom())
	whole := units.Quo(units, pow)
	return whole.Sign() == 0 || len(whole.String()) <= precision-scale
}

func coerceBool(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "t", "1":
			return true, nil
		case "false", "f", "0":
			return false, nil
		}
	case json.Number, float64, int, int64:
		switch fmt.Sprint(v) {
		case "1":
			return true, nil
		case "0":
			return false, nil
		}
	}
	return nil, invalidValue(value, "is not a valid boolean")
}
