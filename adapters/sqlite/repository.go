// Package sqlite stores a table as a single SQLite table inside a database file.
package sqlite

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"tabio/adapters/datareadiness/coercer"
	"tabio/domain/table"
	"tabio/internal"
	"tabio/internal/config"
	"tabio/internal/errors"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

// Repository reads and writes the configured table of a database file
type Repository struct {
	table  string
	logger *internal.Logger
}

// NewRepository creates a repository for the configured table name
func NewRepository(cfg config.SQLiteConfig, logger *internal.Logger) *Repository {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Repository{table: cfg.Table, logger: logger}
}

// Name identifies the format
func (r *Repository) Name() string { return "sqlite" }

// Save replaces any existing file at path with a new database holding t.
// Saving the same table twice leaves a file with exactly one copy of its rows.
func (r *Repository) Save(ctx context.Context, t *table.Table, path string) error {
	if t.NumCols() == 0 {
		return errors.EncodeError(r.Name(), path, fmt.Errorf("a table needs at least one column"))
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.IOError(path, err)
	}

	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return errors.IOError(path, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, r.createStatement(t)); err != nil {
		return errors.EncodeError(r.Name(), path, fmt.Errorf("failed to create table: %w", err))
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.EncodeError(r.Name(), path, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, r.insertStatement(t))
	if err != nil {
		return errors.EncodeError(r.Name(), path, fmt.Errorf("failed to prepare insert: %w", err))
	}
	defer stmt.Close()

	args := make([]interface{}, t.NumCols())
	for row := 0; row < t.NumRows(); row++ {
		for i, col := range t.Columns() {
			args[i] = bindValue(col.Values[row])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return errors.EncodeError(r.Name(), path, fmt.Errorf("failed to insert row %d: %w", row, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.EncodeError(r.Name(), path, fmt.Errorf("failed to commit: %w", err))
	}
	r.logger.Debug("[SQLiteRepository] wrote %d rows to %s in %s", t.NumRows(), r.table, path)
	return nil
}

// Load reads every row of the configured table in storage order
func (r *Repository) Load(ctx context.Context, path string) (*table.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.IOError(path, err)
	}

	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	defer db.Close()

	rows, err := db.QueryxContext(ctx, "SELECT * FROM "+quoteIdent(r.table))
	if err != nil {
		return nil, errors.DecodeError(r.Name(), path, fmt.Errorf("failed to query %s: %w", r.table, err))
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, errors.DecodeError(r.Name(), path, err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.DecodeError(r.Name(), path, err)
	}

	values := make([][]any, len(names))
	for rows.Next() {
		record, err := rows.SliceScan()
		if err != nil {
			return nil, errors.DecodeError(r.Name(), path, err)
		}
		for i, v := range record {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			values[i] = append(values[i], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DecodeError(r.Name(), path, err)
	}

	cols := make([]*table.Column, len(names))
	for i, name := range names {
		if values[i] == nil {
			values[i] = []any{}
		}
		kind, vals := coercer.Normalize(values[i])
		if countPresent(vals) == 0 {
			kind = declaredKind(types[i].DatabaseTypeName())
		}
		cols[i] = table.NewColumn(name, kind, vals)
	}
	return table.New(cols...)
}

func (r *Repository) createStatement(t *table.Table) string {
	defs := make([]string, t.NumCols())
	for i, col := range t.Columns() {
		defs[i] = quoteIdent(col.Name) + " " + columnType(col.Kind)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(r.table), strings.Join(defs, ", "))
}

func (r *Repository) insertStatement(t *table.Table) string {
	names := make([]string, t.NumCols())
	marks := make([]string, t.NumCols())
	for i, name := range t.Names() {
		names[i] = quoteIdent(name)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(r.table), strings.Join(names, ", "), strings.Join(marks, ", "))
}

func columnType(kind table.Kind) string {
	switch kind {
	case table.KindInt:
		return "INTEGER"
	case table.KindFloat:
		return "REAL"
	case table.KindBool:
		return "BOOLEAN"
	case table.KindTime:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func declaredKind(decl string) table.Kind {
	switch strings.ToUpper(decl) {
	case "INTEGER":
		return table.KindInt
	case "REAL":
		return table.KindFloat
	case "BOOLEAN":
		return table.KindBool
	case "TIMESTAMP":
		return table.KindTime
	case "TEXT":
		return table.KindString
	default:
		return table.KindFloat
	}
}

func bindValue(v any) interface{} {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case time.Time:
		return x.UTC()
	case nil, int64, bool, string:
		return x
	default:
		return table.FormatValue(x)
	}
}

func countPresent(values []any) int {
	n := 0
	for _, v := range values {
		if v != nil {
			n++
		}
	}
	return n
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
