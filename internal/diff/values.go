package diff

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// timeLayouts are the text forms a temporal column may arrive in: MySQL and
// snapshot text, SQLite driver text and RFC 3339.
var timeLayouts = []string{
	types.TimeLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// canonical converts v to the form used for comparison. Temporal values
// become epoch seconds so that a time.Time and its text form compare equal.
// Numeric text in a numeric column becomes a number, as the snapshot
// stores it.
func canonical(v any, temporal, numeric bool) any {
	v = types.NormalizeValue(v)
	if numeric {
		if s, ok := v.(string); ok {
			if n, ok := types.ParseNumber(s); ok {
				return n
			}
		}
		return v
	}
	if !temporal {
		return v
	}
	switch x := v.(type) {
	case time.Time:
		return x.Unix()
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Unix()
			}
		}
	}
	return v
}

// equalValues compares two column values after canonicalization. Numbers
// compare by value across int64 and float64.
func equalValues(a, b any, temporal, numeric bool) bool {
	a, b = canonical(a, temporal, numeric), canonical(b, temporal, numeric)
	if af, ok := number(a); ok {
		if bf, ok := number(b); ok {
			return af == bf
		}
		return false
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case string, bool:
		return a == b
	default:
		return fmt.Sprint(x) == fmt.Sprint(b)
	}
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// FieldDiff returns the columns of next whose values differ from prev. Rows
// must have the same column set; a column appearing or disappearing is an
// integrity violation.
func FieldDiff(prev, next types.Row, schema types.Schema) (types.Delta, error) {
	if err := sameShape(prev, next); err != nil {
		return nil, err
	}
	var delta types.Delta
	for col, nv := range next {
		if equalValues(prev[col], nv, schema.IsTemporal(col), schema.IsNumeric(col)) {
			continue
		}
		if delta == nil {
			delta = make(types.Delta)
		}
		delta[col] = nv
	}
	return delta, nil
}

func sameShape(prev, next types.Row) error {
	var added, removed []string
	for col := range next {
		if _, ok := prev[col]; !ok {
			added = append(added, col)
		}
	}
	for col := range prev {
		if _, ok := next[col]; !ok {
			removed = append(removed, col)
		}
	}
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}
	slices.Sort(added)
	slices.Sort(removed)
	return fmt.Errorf("%w: columns added %v, removed %v", types.ErrIntegrity, added, removed)
}
