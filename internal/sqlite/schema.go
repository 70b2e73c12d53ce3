// This file builds the DDL and DML statements for snapshot tables.
package sqlite

import (
	"fmt"
	"strings"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// maxVariables is SQLite's limit on bound parameters per statement
// (SQLITE_MAX_VARIABLE_NUMBER in modernc.org/sqlite).
const maxVariables = 32766

// quoteIdent quotes a table or column name for SQLite.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// joinColumns quotes and joins column names with commas.
func joinColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func dropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + quoteIdent(table)
}

// createTableSQL declares every column with the type reported by the source.
// SQLite accepts any type name and derives affinity from it.
func createTableSQL(table string, schema types.Schema) string {
	defs := make([]string, len(schema))
	for i, c := range schema {
		defs[i] = strings.TrimSpace(quoteIdent(c.Name) + " " + c.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
}

func selectSQL(table string, cols []string) string {
	if len(cols) == 0 {
		return "SELECT * FROM " + quoteIdent(table)
	}
	return fmt.Sprintf("SELECT %s FROM %s", joinColumns(cols), quoteIdent(table))
}

// insertSQL builds a multi-row INSERT for n rows.
func insertSQL(table string, cols []string, n int) string {
	group := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	groups := make([]string, n)
	for i := range groups {
		groups[i] = group
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quoteIdent(table), joinColumns(cols), strings.Join(groups, ", "))
}

// effectiveBatch clamps size so one statement stays under maxVariables.
func effectiveBatch(size, columns int) int {
	if columns == 0 {
		return size
	}
	limit := maxVariables / columns
	if limit < 1 {
		limit = 1
	}
	if size > limit {
		return limit
	}
	return size
}
