package types

import (
	"math"
	"strconv"
	"strings"
)

// Column is a column name and its declared type as reported by the source
// database (e.g. "int(11)", "varchar(255)", "datetime").
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema is the ordered column list of a table.
type Schema []Column

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the column with the given name.
func (s Schema) Lookup(name string) (Column, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// IsTemporal reports whether the named column holds dates or times.
func (s Schema) IsTemporal(name string) bool {
	c, ok := s.Lookup(name)
	if !ok {
		return false
	}
	t := strings.ToLower(c.Type)
	return strings.Contains(t, "date") || strings.Contains(t, "time")
}

// Tuple returns the values of r in schema order.
func (s Schema) Tuple(r Row) []any {
	values := make([]any, len(s))
	for i, c := range s {
		values[i] = r[c.Name]
	}
	return values
}

// Affinity is the storage class SQLite prefers for a declared column type.
type Affinity int

// Affinities, following SQLite's rules for declared types.
const (
	AffinityBlob Affinity = iota
	AffinityText
	AffinityInteger
	AffinityReal
	AffinityNumeric
)

// AffinityOf derives the affinity of a declared type the way SQLite does:
// INT gives INTEGER; CHAR, CLOB or TEXT give TEXT; BLOB or no type gives
// BLOB; REAL, FLOA or DOUB give REAL; anything else is NUMERIC.
func AffinityOf(declared string) Affinity {
	t := strings.ToUpper(declared)
	switch {
	case strings.Contains(t, "INT"):
		return AffinityInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return AffinityText
	case strings.Contains(t, "BLOB"), strings.TrimSpace(t) == "":
		return AffinityBlob
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return AffinityReal
	default:
		return AffinityNumeric
	}
}

// Affinity returns the affinity of the named column, BLOB when unknown.
func (s Schema) Affinity(name string) Affinity {
	c, ok := s.Lookup(name)
	if !ok {
		return AffinityBlob
	}
	return AffinityOf(c.Type)
}

// IsNumeric reports whether the snapshot stores numeric-looking text of the
// named column as a number. Temporal columns are excluded.
func (s Schema) IsNumeric(name string) bool {
	switch s.Affinity(name) {
	case AffinityInteger, AffinityReal, AffinityNumeric:
		return !s.IsTemporal(name)
	default:
		return false
	}
}

// Value normalizes v for the named column. Numeric text in a numeric column
// becomes int64 or float64, which is what the snapshot reads back.
func (s Schema) Value(name string, v any) any {
	v = NormalizeValue(v)
	if str, ok := v.(string); ok && s.IsNumeric(name) {
		if n, ok := ParseNumber(str); ok {
			return n
		}
	}
	return v
}

// Normalize applies Value to every column of r in place.
func (s Schema) Normalize(r Row) Row {
	for col, v := range r {
		r[col] = s.Value(col, v)
	}
	return r
}

// Key extracts the primary key column pk from r, normalized for its type.
func (s Schema) Key(r Row, pk string) (Key, bool) {
	v, ok := r[pk]
	if !ok {
		return nil, false
	}
	return KeyOf(s.Value(pk, v))
}

// ParseNumber parses decimal text as int64 when integral and in range,
// otherwise as a finite float64.
func ParseNumber(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, false
	}
	return f, true
}
