package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// dialect covers the SQL differences between source drivers.
type dialect interface {
	driver() string
	dsn(raw string) (string, error)
	quote(ident string) string
	bindTime(t time.Time) any
	describe(ctx context.Context, db *sql.DB, table string) (types.Schema, error)
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case types.DriverMySQL:
		return mysqlDialect{}, nil
	case types.DriverSQLite:
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrSourceDriverUnknown, driver)
	}
}

type mysqlDialect struct{}

func (mysqlDialect) driver() string { return "mysql" }

// dsn makes temporal columns arrive as UTC time.Time values.
func (mysqlDialect) dsn(raw string) (string, error) {
	cfg, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("parsing mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func (mysqlDialect) quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (mysqlDialect) bindTime(t time.Time) any { return t.UTC() }

func (d mysqlDialect) describe(ctx context.Context, db *sql.DB, table string) (types.Schema, error) {
	rows, err := db.QueryContext(ctx, "DESCRIBE "+d.quote(table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schema types.Schema
	for rows.Next() {
		var (
			field, typ, null, key string
			def, extra            sql.NullString
		)
		if err := rows.Scan(&field, &typ, &null, &key, &def, &extra); err != nil {
			return nil, err
		}
		schema = append(schema, types.Column{Name: field, Type: typ})
	}
	return schema, rows.Err()
}

type sqliteDialect struct{}

func (sqliteDialect) driver() string                 { return "sqlite" }
func (sqliteDialect) dsn(raw string) (string, error) { return raw, nil }

func (sqliteDialect) quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// bindTime uses the text form temporal values are stored in.
func (sqliteDialect) bindTime(t time.Time) any { return types.FormatTime(t) }

func (sqliteDialect) describe(ctx context.Context, db *sql.DB, table string) (types.Schema, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schema types.Schema
	for rows.Next() {
		var c types.Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, err
		}
		schema = append(schema, c)
	}
	return schema, rows.Err()
}
