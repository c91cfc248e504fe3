// Package schema renders the live database catalog as CREATE TABLE DDL
// for priming SQL generators.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	listTablesQuery = `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE' ORDER BY table_name`

	listColumnsQuery = `SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`

	primaryKeyQuery = `SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = $1 AND tc.table_name = $2
ORDER BY kcu.ordinal_position`

	foreignKeyQuery = `SELECT kcu.column_name, ccu.table_name AS foreign_table_name, ccu.column_name AS foreign_column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = $1 AND tc.table_name = $2
ORDER BY kcu.column_name`
)

// skippedTables never reach the generator.
var skippedTables = map[string]bool{
	"schema_migrations": true,
}

// Column is one catalog column.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ForeignKey links Column to Table(RefColumn).
type ForeignKey struct {
	Column    string `json:"column"`
	Table     string `json:"references_table"`
	RefColumn string `json:"references_column"`
}

// Table is the catalog view of one relation.
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  []string     `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}

// DDL renders t as a CREATE TABLE statement.
func (t Table) DDL() string {
	lines := make([]string, 0, len(t.Columns)+1+len(t.ForeignKeys))
	for _, c := range t.Columns {
		lines = append(lines, "    "+c.Name+" "+c.Type)
	}
	if len(t.PrimaryKey) > 0 {
		lines = append(lines, fmt.Sprintf("    PRIMARY KEY (%s)", strings.Join(t.PrimaryKey, ", ")))
	}
	for _, fk := range t.ForeignKeys {
		lines = append(lines, fmt.Sprintf("    FOREIGN KEY (%s) REFERENCES %s(%s)", fk.Column, fk.Table, fk.RefColumn))
	}
	return "CREATE TABLE " + t.Name + " (\n" + strings.Join(lines, ",\n") + "\n);"
}

// Introspector reads table metadata from information_schema.
type Introspector struct {
	db     *sql.DB
	schema string
}

func NewIntrospector(db *sql.DB) *Introspector {
	return &Introspector{db: db, schema: "public"}
}

// Tables lists every base table of the public schema with its keys.
func (i *Introspector) Tables(ctx context.Context) ([]Table, error) {
	names, err := i.queryStrings(ctx, listTablesQuery, i.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		if skippedTables[name] {
			continue
		}
		t, err := i.describe(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// DDL renders every table, separated by a blank line.
func (i *Introspector) DDL(ctx context.Context) (string, error) {
	tables, err := i.Tables(ctx)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(tables))
	for n, t := range tables {
		parts[n] = t.DDL()
	}
	return strings.Join(parts, "\n\n"), nil
}

// DDLOrFallback never fails: catalog errors and empty catalogs yield FallbackDDL.
func (i *Introspector) DDLOrFallback(ctx context.Context) string {
	ddl, err := i.DDL(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("schema introspection failed, using built-in DDL")
		return FallbackDDL
	}
	if strings.TrimSpace(ddl) == "" {
		log.Warn().Msg("schema introspection found no tables, using built-in DDL")
		return FallbackDDL
	}
	return ddl
}

func (i *Introspector) describe(ctx context.Context, table string) (Table, error) {
	t := Table{Name: table}

	rows, err := i.db.QueryContext(ctx, listColumnsQuery, i.schema, table)
	if err != nil {
		return t, fmt.Errorf("columns of %s: %w", table, err)
	}
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			rows.Close()
			return t, fmt.Errorf("columns of %s: %w", table, err)
		}
		t.Columns = append(t.Columns, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return t, fmt.Errorf("columns of %s: %w", table, err)
	}

	if t.PrimaryKey, err = i.queryStrings(ctx, primaryKeyQuery, i.schema, table); err != nil {
		return t, fmt.Errorf("primary key of %s: %w", table, err)
	}

	rows, err = i.db.QueryContext(ctx, foreignKeyQuery, i.schema, table)
	if err != nil {
		return t, fmt.Errorf("foreign keys of %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Column, &fk.Table, &fk.RefColumn); err != nil {
			return t, fmt.Errorf("foreign keys of %s: %w", table, err)
		}
		t.ForeignKeys = append(t.ForeignKeys, fk)
	}
	return t, rows.Err()
}

func (i *Introspector) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
