// Package sqlite stores snapshots as single-table SQLite files.
//
// It uses modernc.org/sqlite, a pure Go SQLite implementation, so snapshot
// files can be produced without CGO on any platform. A snapshot file holds
// exactly one table whose columns match the source table's schema.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// Store implements types.SnapshotStore for one table.
type Store struct {
	table      string
	primaryKey string
	columns    []string
	batchSize  int
}

var _ types.SnapshotStore = (*Store)(nil)

// NewStore creates a store for the configured table. columns restricts reads
// to the listed columns; empty reads every column.
func NewStore(table, primaryKey string, columns []string, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = types.DefaultBatchSize
	}
	return &Store{
		table:      table,
		primaryKey: primaryKey,
		columns:    columns,
		batchSize:  batchSize,
	}
}

// NewStoreFromConfig creates a store from the run configuration.
func NewStoreFromConfig(cfg types.Config) *Store {
	return NewStore(cfg.Table, cfg.PrimaryKey, cfg.Columns, cfg.BatchSize)
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// One connection keeps the transaction and its statements together.
	db.SetMaxOpenConns(1)
	return db, nil
}

// ReadAll returns every row of the snapshot table at path with values
// normalized. The file must exist.
func (s *Store) ReadAll(ctx context.Context, path string) ([]types.Row, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("snapshot %s: %w", path, types.ErrNotFound)
		}
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	db, err := open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, selectSQL(s.table, s.columns))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var result []types.Row //nolint:prealloc // size unknown from query
	for rows.Next() {
		r, err := scanRow(rows, cols)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", s.table, err)
	}
	return result, nil
}

// scanRow reads the current row into a normalized types.Row.
func scanRow(rows *sql.Rows, cols []string) (types.Row, error) {
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scanning row: %w", err)
	}
	r := make(types.Row, len(cols))
	for i, c := range cols {
		r[c] = types.NormalizeValue(values[i])
	}
	return r, nil
}

// WriteTable drops and recreates the table at path with schema and inserts
// every row that has a primary key. Rows are inserted in batches inside one
// transaction; the batch size affects speed only, never the result.
func (s *Store) WriteTable(ctx context.Context, path string, schema types.Schema, rows []types.Row) error {
	db, err := open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning write transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, dropTableSQL(s.table)); err != nil {
		return fmt.Errorf("dropping %s: %w", s.table, err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(s.table, schema)); err != nil {
		return fmt.Errorf("creating %s: %w", s.table, err)
	}

	if err := s.insertBatches(ctx, tx, schema, rows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", s.table, err)
	}
	return nil
}

// insertBatches inserts rows in groups of the effective batch size. Rows
// without a primary key are skipped.
func (s *Store) insertBatches(ctx context.Context, tx *sql.Tx, schema types.Schema, rows []types.Row) error {
	cols := schema.Names()
	batch := effectiveBatch(s.batchSize, len(cols))

	args := make([]any, 0, batch*len(cols))
	pending := 0
	flush := func() error {
		if pending == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, insertSQL(s.table, cols, pending), args...); err != nil {
			return fmt.Errorf("inserting into %s: %w", s.table, err)
		}
		args = args[:0]
		pending = 0
		return nil
	}

	for _, r := range rows {
		if _, ok := types.RowKey(r, s.primaryKey); !ok {
			continue
		}
		for _, c := range cols {
			args = append(args, storeValue(r[c]))
		}
		pending++
		if pending == batch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// storeValue converts a value to the form written to the snapshot.
func storeValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return types.FormatTime(t)
	}
	return v
}
