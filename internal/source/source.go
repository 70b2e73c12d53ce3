// Package source reads the table being tracked from the source database.
// MySQL is the production source; SQLite files serve local use and tests.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// Database is a SourceDatabase over database/sql.
type Database struct {
	db       *sql.DB
	dialect  dialect
	table    string
	pk       string
	columns  []string
	modified string

	schema types.Schema
}

var _ types.SourceDatabase = (*Database)(nil)

// Open connects to the source described by cfg. columns restricts the
// tracked columns; empty tracks every column.
func Open(ctx context.Context, cfg types.SourceConfig, table, pk string, columns []string) (*Database, error) {
	if cfg.DSN == "" {
		return nil, types.ErrSourceDSNEmpty
	}
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := d.dsn(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s source: %w", cfg.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s source: %w", cfg.Driver, err)
	}

	return &Database{
		db:       db,
		dialect:  d,
		table:    table,
		pk:       pk,
		columns:  columns,
		modified: cfg.ModifiedColumn,
	}, nil
}

// OpenFromConfig opens the source named by the run configuration.
func OpenFromConfig(ctx context.Context, cfg types.Config) (*Database, error) {
	return Open(ctx, cfg.Source, cfg.Table, cfg.PrimaryKey, cfg.Columns)
}

// Schema returns the tracked columns in order. The result is cached.
func (d *Database) Schema(ctx context.Context) (types.Schema, error) {
	if d.schema != nil {
		return d.schema, nil
	}
	all, err := d.dialect.describe(ctx, d.db, d.table)
	if err != nil {
		return nil, fmt.Errorf("describing %s: %w", d.table, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("table %s: %w", d.table, types.ErrNotFound)
	}

	schema := all
	if len(d.columns) > 0 {
		schema = make(types.Schema, 0, len(d.columns))
		for _, name := range d.columns {
			c, ok := all.Lookup(name)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s", types.ErrColumnNotFound, d.table, name)
			}
			schema = append(schema, c)
		}
	}
	if _, ok := schema.Lookup(d.pk); !ok {
		return nil, fmt.Errorf("%w: primary key %s.%s", types.ErrColumnNotFound, d.table, d.pk)
	}
	d.schema = schema
	return schema, nil
}

// PrimaryKeys returns every non-null key in the table, normalized for the
// key column's type.
func (d *Database) PrimaryKeys(ctx context.Context) (types.KeySet, error) {
	schema, err := d.Schema(ctx)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s", d.dialect.quote(d.pk), d.dialect.quote(d.table))
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying keys: %w", err)
	}
	defer rows.Close()

	keys := make(types.KeySet)
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		if k, ok := types.KeyOf(schema.Value(d.pk, v)); ok {
			keys.Add(k)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keys: %w", err)
	}
	return keys, nil
}

// ChangedRows yields tracked rows ascending by primary key. With a modified
// column configured and a non-zero since, only rows modified after since
// are yielded. The query runs when the iterator is ranged over. Numeric
// text such as MySQL DECIMAL values is converted to numbers.
func (d *Database) ChangedRows(ctx context.Context, since time.Time) (types.RowIter, error) {
	schema, err := d.Schema(ctx)
	if err != nil {
		return nil, err
	}

	cols := make([]string, len(schema))
	for i, c := range schema {
		cols[i] = d.dialect.quote(c.Name)
	}
	var (
		q    strings.Builder
		args []any
	)
	fmt.Fprintf(&q, "SELECT %s FROM %s", strings.Join(cols, ", "), d.dialect.quote(d.table))
	if d.modified != "" && !since.IsZero() {
		fmt.Fprintf(&q, " WHERE %s > ?", d.dialect.quote(d.modified))
		args = append(args, d.dialect.bindTime(since))
	}
	fmt.Fprintf(&q, " ORDER BY %s", d.dialect.quote(d.pk))
	query := q.String()

	return func(yield func(types.Row, error) bool) {
		rows, err := d.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, fmt.Errorf("querying %s: %w", d.table, err))
			return
		}
		defer rows.Close()

		names, err := rows.Columns()
		if err != nil {
			yield(nil, fmt.Errorf("reading columns: %w", err))
			return
		}
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}

		for rows.Next() {
			if err := rows.Scan(ptrs...); err != nil {
				yield(nil, fmt.Errorf("scanning row: %w", err))
				return
			}
			r := make(types.Row, len(names))
			for i, n := range names {
				r[n] = schema.Value(n, values[i])
			}
			if !yield(r, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("iterating %s: %w", d.table, err))
		}
	}, nil
}

// Close releases the connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}
