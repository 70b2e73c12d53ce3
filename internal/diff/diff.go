// Package diff classifies the rows of a source table against the previously
// published snapshot into added, modified and deleted sets, and produces the
// reconciled row set the next snapshot is built from.
package diff

import (
	"fmt"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// Options configures a diff run.
type Options struct {
	// PrimaryKey is the key column shared by both datasets.
	PrimaryKey string

	// Schema gives column order for the changeset and marks temporal columns.
	Schema types.Schema
}

// Summary counts the outcome of a diff run.
type Summary struct {
	Added     int `json:"added"`
	Modified  int `json:"modified"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Total     int `json:"total"`

	// TableEmptied is set when every existing row was deleted and nothing
	// was added or modified. This usually points at a source-side fault.
	TableEmptied bool `json:"table_emptied"`
}

// Changed reports whether the run produced any change.
func (s Summary) Changed() bool {
	return s.Added+s.Modified+s.Deleted > 0
}

// Result is the output of Compute.
type Result struct {
	Changeset  *types.Changeset
	Reconciled map[types.Key]types.Row
	Summary    Summary
}

// Index builds the keyed mapping of a snapshot. Rows without a primary key
// are dropped.
func Index(rows []types.Row, pk string) map[types.Key]types.Row {
	indexed := make(map[types.Key]types.Row, len(rows))
	for _, r := range rows {
		k, ok := types.RowKey(r, pk)
		if !ok {
			continue
		}
		indexed[k] = r
	}
	return indexed
}

// Compute diffs master against existing.
//
// Master keys are normalized for the key column's type, so the text form of
// a decimal key matches the number the snapshot reads back.
//
// masterKeys is the full key set of the source table; master may be an
// incremental subset of its rows. Keys of existing missing from masterKeys
// are deleted. Each master row is added when its key is new, or compared
// column by column when the key exists. The reconciled mapping holds the
// existing rows overlaid with every master row, minus deletions. existing
// is not modified.
func Compute(master types.RowIter, masterKeys types.KeySet, existing map[types.Key]types.Row, opts Options) (*Result, error) {
	cs := types.NewChangeset(opts.Schema.Names())
	reconciled := make(map[types.Key]types.Row, len(existing))

	deleted := make(types.KeySet)
	for k, row := range existing {
		if masterKeys.Has(k) {
			reconciled[k] = row
			continue
		}
		deleted.Add(k)
	}

	var sum Summary
	seen := make(types.KeySet)
	for row, err := range master {
		if err != nil {
			return nil, fmt.Errorf("reading master rows: %w", err)
		}
		sum.Total++

		k, ok := opts.Schema.Key(row, opts.PrimaryKey)
		if !ok {
			sum.Skipped++
			continue
		}
		if seen.Has(k) {
			return nil, fmt.Errorf("%w: key %v appears twice in master", types.ErrIntegrity, k)
		}
		seen.Add(k)

		prev, found := reconciled[k]
		if !found && deleted.Has(k) {
			// The row arrived after the key set was read.
			delete(deleted, k)
			prev, found = existing[k], true
		}
		if !found {
			cs.Added = append(cs.Added, row)
		} else {
			delta, err := FieldDiff(prev, row, opts.Schema)
			if err != nil {
				return nil, fmt.Errorf("key %v: %w", k, err)
			}
			if len(delta) > 0 {
				cs.Modified[k] = delta
			} else {
				sum.Unchanged++
			}
		}
		reconciled[k] = row
	}

	for k := range deleted {
		cs.Deleted = append(cs.Deleted, k)
	}
	types.SortKeys(cs.Deleted)

	sum.Added = len(cs.Added)
	sum.Modified = len(cs.Modified)
	sum.Deleted = len(cs.Deleted)
	sum.TableEmptied = sum.Deleted > 0 && sum.Added == 0 && sum.Modified == 0 && len(reconciled) == 0

	return &Result{
		Changeset:  cs,
		Reconciled: reconciled,
		Summary:    sum,
	}, nil
}

// Rows adapts a slice to a RowIter.
func Rows(rows []types.Row) types.RowIter {
	return func(yield func(types.Row, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}
