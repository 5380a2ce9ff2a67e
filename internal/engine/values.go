package engine

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// NormalizeValue turns a decoded pgx value into something that survives JSON
// and BSON encoding unchanged: uuids and numerics become strings, small ints
// widen to int64, times of day render as HH:MM:SS.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float32:
		return float64(x)
	case [16]byte:
		return uuid.UUID(x).String()
	case []byte:
		return `\x` + hex.EncodeToString(x)
	case pgtype.Numeric:
		return valuerString(x)
	case pgtype.Time:
		if !x.Valid {
			return nil
		}
		d := time.Duration(x.Microseconds) * time.Microsecond
		return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
	case pgtype.Interval:
		return valuerString(x)
	case netip.Prefix:
		return x.String()
	case netip.Addr:
		return x.String()
	case driver.Valuer:
		return valuerString(x)
	default:
		return v
	}
}

func valuerString(v driver.Valuer) any {
	dv, err := v.Value()
	if err != nil || dv == nil {
		return nil
	}
	if s, ok := dv.(string); ok {
		return s
	}
	return fmt.Sprint(dv)
}

// normalizeDate keeps DATE columns as YYYY-MM-DD rather than midnight UTC timestamps.
func normalizeDate(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format("2006-01-02")
	}
	return NormalizeValue(v)
}

// normalizeJSON keeps json/jsonb values as JSON text. pgx decodes '"hello"'
// to the bare string hello, which would read back as invalid JSON.
func normalizeJSON(v any) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return NormalizeValue(v)
	}
	return string(b)
}
