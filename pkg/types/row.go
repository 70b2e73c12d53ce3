package types

import (
	"cmp"
	"fmt"
	"iter"
	"math"
	"slices"
	"strconv"
	"time"
)

// Row maps column names to scalar values. Column order is carried by the
// Schema the row belongs to, not by the row itself.
type Row map[string]any

// RowIter yields rows one at a time. A non-nil error ends the sequence.
type RowIter = iter.Seq2[Row, error]

// Key is a normalized primary key value: int64, float64 or string.
type Key = any

// KeySet is a set of primary keys.
type KeySet map[Key]struct{}

// Add inserts k into the set.
func (s KeySet) Add(k Key) {
	s[k] = struct{}{}
}

// Has reports whether k is in the set.
func (s KeySet) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// TimeLayout is the text form used for temporal values in snapshots and
// changesets.
const TimeLayout = "2006-01-02 15:04:05"

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NormalizeValue converts driver values into the small set of scalar types
// the pipeline works with: int64, float64, string, bool, time.Time (UTC)
// and nil. Byte slices become strings. Unsigned values beyond the int64
// range become their decimal text.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return unsigned(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return unsigned(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.UTC()
	default:
		return v
	}
}

func unsigned(x uint64) any {
	if x > math.MaxInt64 {
		return strconv.FormatUint(x, 10)
	}
	return int64(x)
}

// NormalizeRow applies NormalizeValue to every column of r in place.
func NormalizeRow(r Row) Row {
	for col, v := range r {
		r[col] = NormalizeValue(v)
	}
	return r
}

// KeyOf returns the normalized primary key for v. The second result is false
// when v is nil or cannot serve as a key. Integral floats within the exact
// integer range of float64 become int64, so 12.0 and 12 are the same key.
func KeyOf(v any) (Key, bool) {
	switch x := NormalizeValue(v).(type) {
	case nil:
		return nil, false
	case int64:
		return x, true
	case float64:
		if x == math.Trunc(x) && math.Abs(x) <= 1<<53 {
			return int64(x), true
		}
		return x, true
	case string:
		return x, true
	case time.Time:
		return FormatTime(x), true
	case bool:
		if x {
			return int64(1), true
		}
		return int64(0), true
	default:
		return nil, false
	}
}

// RowKey extracts the primary key column pk from r.
func RowKey(r Row, pk string) (Key, bool) {
	v, ok := r[pk]
	if !ok {
		return nil, false
	}
	return KeyOf(v)
}

// CompareKeys orders keys: numbers before strings, numbers by value and
// strings lexically.
func CompareKeys(a, b Key) int {
	af, aNum := keyNumber(a)
	bf, bNum := keyNumber(b)
	switch {
	case aNum && bNum:
		return cmp.Compare(af, bf)
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func keyNumber(k Key) (float64, bool) {
	switch x := k.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// SortKeys sorts keys in place using CompareKeys.
func SortKeys(keys []Key) {
	slices.SortFunc(keys, CompareKeys)
}

// SortedKeys returns the keys of m in CompareKeys order.
func SortedKeys[V any](m map[Key]V) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// FormatKey renders k as a JSON object key.
func FormatKey(k Key) string {
	switch x := k.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
