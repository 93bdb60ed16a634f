package table

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FromRecords builds a table from a header row and row-major records, the
// shape stats.nba.com returns in a result set. Column kinds are inferred from
// the non-null values: all integers is Int, any mix of integers and
// fractions is Float, all booleans is Bool and anything else (including an
// all-null column) is String.
func FromRecords(headers []string, records [][]any) (*Table, error) {
	for i, rec := range records {
		if len(rec) != len(headers) {
			return nil, fmt.Errorf("%w: record %d has %d fields, want %d", ErrShape, i, len(rec), len(headers))
		}
	}
	cols := make([]Column, len(headers))
	for c, name := range headers {
		raw := make([]any, len(records))
		for r, rec := range records {
			v, err := normalize(rec[c])
			if err != nil {
				return nil, fmt.Errorf("table: column %q row %d: %w", name, r, err)
			}
			raw[r] = v
		}
		kind := inferKind(raw)
		cols[c] = Column{Name: name, Kind: kind, Values: coerce(kind, raw)}
	}
	return New(cols...)
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case bool:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n, nil
			}
		}
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func inferKind(vals []any) Kind {
	var k Kind
	for _, v := range vals {
		var vk Kind
		switch v.(type) {
		case nil:
			continue
		case string:
			vk = String
		case int64:
			vk = Int
		case float64:
			vk = Float
		case bool:
			vk = Bool
		}
		switch {
		case k == 0:
			k = vk
		case k == vk:
		case (k == Int && vk == Float) || (k == Float && vk == Int):
			k = Float
		default:
			return String
		}
	}
	if k == 0 {
		return String
	}
	return k
}

func coerce(k Kind, vals []any) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		switch {
		case v == nil:
		case k == Float:
			if n, ok := v.(int64); ok {
				out[i] = float64(n)
				continue
			}
			out[i] = v
		case k == String:
			if s, ok := v.(string); ok {
				out[i] = s
				continue
			}
			out[i] = fmt.Sprint(v)
		default:
			out[i] = v
		}
	}
	return out
}
