package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Delta holds the columns of a row whose values changed, mapped to their
// new values.
type Delta map[string]any

// Changeset is the result of one diff run. A key appears in at most one of
// Added, Modified and Deleted.
type Changeset struct {
	Columns  []string
	Added    []Row
	Modified map[Key]Delta
	Deleted  []Key

	// TextKeys keeps modified keys as strings when decoding. JSON object
	// keys carry no type, so set it before unmarshalling a changeset whose
	// primary key is a text column; otherwise numeric-looking keys decode
	// as numbers.
	TextKeys bool
}

// NewChangeset returns an empty changeset for the given column order.
func NewChangeset(columns []string) *Changeset {
	return &Changeset{
		Columns:  columns,
		Modified: make(map[Key]Delta),
	}
}

// Count returns the number of classified keys.
func (c *Changeset) Count() int {
	return len(c.Added) + len(c.Modified) + len(c.Deleted)
}

// Empty reports whether the changeset carries no changes.
func (c *Changeset) Empty() bool {
	return c.Count() == 0
}

// changesetJSON is the on-disk form of a changeset.
type changesetJSON struct {
	Columns  []string                  `json:"columns"`
	Modified map[string]map[string]any `json:"modified"`
	Added    [][]any                   `json:"added"`
	Deleted  []any                     `json:"deleted"`
}

// MarshalJSON encodes the changeset with added rows as value tuples in
// column order and modified rows keyed by their formatted primary key.
func (c *Changeset) MarshalJSON() ([]byte, error) {
	out := changesetJSON{
		Columns:  c.Columns,
		Modified: make(map[string]map[string]any, len(c.Modified)),
		Added:    make([][]any, 0, len(c.Added)),
		Deleted:  make([]any, 0, len(c.Deleted)),
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	for k, delta := range c.Modified {
		encoded := make(map[string]any, len(delta))
		for col, v := range delta {
			encoded[col] = EncodeValue(v)
		}
		out.Modified[FormatKey(k)] = encoded
	}
	for _, row := range c.Added {
		tuple := make([]any, len(c.Columns))
		for i, col := range c.Columns {
			tuple[i] = EncodeValue(row[col])
		}
		out.Added = append(out.Added, tuple)
	}
	for _, k := range c.Deleted {
		out.Deleted = append(out.Deleted, k)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the on-disk form. Integral numbers decode as int64.
func (c *Changeset) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var in changesetJSON
	if err := dec.Decode(&in); err != nil {
		return err
	}

	c.Columns = in.Columns
	c.Modified = make(map[Key]Delta, len(in.Modified))
	for rawKey, delta := range in.Modified {
		d := make(Delta, len(delta))
		for col, v := range delta {
			d[col] = decodeNumber(v)
		}
		c.Modified[c.parseKey(rawKey)] = d
	}

	c.Added = make([]Row, 0, len(in.Added))
	for _, tuple := range in.Added {
		if len(tuple) != len(in.Columns) {
			return fmt.Errorf("added row has %d values for %d columns", len(tuple), len(in.Columns))
		}
		row := make(Row, len(tuple))
		for i, v := range tuple {
			row[in.Columns[i]] = decodeNumber(v)
		}
		c.Added = append(c.Added, row)
	}

	c.Deleted = make([]Key, 0, len(in.Deleted))
	for _, v := range in.Deleted {
		k, ok := KeyOf(decodeNumber(v))
		if !ok {
			return fmt.Errorf("deleted key %v: %w", v, ErrInvalidKey)
		}
		c.Deleted = append(c.Deleted, k)
	}
	return nil
}

// EncodeValue prepares a value for JSON output. Temporal values are written
// with TimeLayout so consumers see the same text the snapshot stores.
func EncodeValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return FormatTime(t)
	}
	return v
}

func decodeNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func (c *Changeset) parseKey(s string) Key {
	if c.TextKeys {
		return s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	return s
}
