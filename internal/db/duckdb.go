// Package db keeps an in-memory DuckDB copy of the station dataset for
// ad-hoc SQL exploration.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
)

// StationsTable is the table the station dataset is loaded into.
const StationsTable = "stations"

// ErrNotReadOnly rejects statements that could modify the database.
var ErrNotReadOnly = errors.New("only read-only statements are allowed")

// Config holds database configuration.
type Config struct {
	DataDir string
	// Stations is the station dataset, relative to DataDir.
	Stations string
}

// Open creates an in-memory database and loads the station dataset into it.
// A missing dataset leaves the database empty.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}

	path := filepath.Join(cfg.DataDir, cfg.Stations)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return conn, nil
	}
	if err := LoadStations(ctx, conn, path); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// LoadStations (re)creates the stations table from a JSON array file.
func LoadStations(ctx context.Context, conn *sql.DB, path string) error {
	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_json_auto(%s)", StationsTable, quote(path))
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// quote renders s as a SQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// readOnlyPrefixes are the statement keywords ReadOnly accepts.
var readOnlyPrefixes = []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "SUMMARIZE", "EXPLAIN", "FROM", "VALUES"}

// ReadOnly rejects anything but a single read-only statement.
func ReadOnly(query string) error {
	q := strings.TrimSpace(query)
	q = strings.TrimSuffix(q, ";")
	if q == "" {
		return fmt.Errorf("%w: empty query", ErrNotReadOnly)
	}
	if strings.Contains(q, ";") {
		return fmt.Errorf("%w: multiple statements", ErrNotReadOnly)
	}
	fields := strings.Fields(q)
	first := strings.ToUpper(fields[0])
	for _, p := range readOnlyPrefixes {
		if first == p {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotReadOnly, first)
}

// Tables lists the tables in the database.
func Tables(ctx context.Context, conn *sql.DB) ([]string, error) {
	rows, err := conn.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("listing tables: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Result is a query result with rows keyed by column.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// Query runs a read-only query, returning at most limit rows (0 means no limit).
func Query(ctx context.Context, conn *sql.DB, query string, limit int) (*Result, error) {
	if err := ReadOnly(query); err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	res := &Result{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		if limit > 0 && len(res.Rows) >= limit {
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		res.Rows = append(res.Rows, row)
	}
	return res, rows.Err()
}
