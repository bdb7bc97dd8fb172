package orm

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Row maps column names to values.
type Row map[string]any

// Where holds equality conditions that are joined with AND.
type Where map[string]any

// DB is a small query layer over database/sql for tables addressed by
// name, every identifier is validated before it is put in a query.
type DB struct {
	db *sql.DB
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quote(name string) (string, error) {
	if !identifier.MatchString(name) {
		return "", fmt.Errorf("invalid identifier '%s'", name)
	}
	return `"` + name + `"`, nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (w Where) clause() (string, []any, error) {
	if len(w) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(w))
	args := make([]any, 0, len(w))
	for _, column := range sortedKeys(w) {
		quoted, err := quote(column)
		if err != nil {
			return "", nil, err
		}
		value := w[column]
		if value == nil {
			parts = append(parts, quoted+" IS NULL")
			continue
		}
		parts = append(parts, quoted+" = ?")
		args = append(args, value)
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

// CreateTables executes a schema of CREATE statements.
func (d *DB) CreateTables(ctx context.Context, schema string) error {
	_, err := d.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

func (d *DB) TableNames(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(
		ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("table names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			return nil, fmt.Errorf("table names: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, exec execer, table string, row Row) (int64, error) {
	if len(row) == 0 {
		return 0, fmt.Errorf("empty row")
	}
	quotedTable, err := quote(table)
	if err != nil {
		return 0, err
	}
	columns := make([]string, 0, len(row))
	marks := make([]string, 0, len(row))
	args := make([]any, 0, len(row))
	for _, column := range sortedKeys(row) {
		quoted, err := quote(column)
		if err != nil {
			return 0, err
		}
		columns = append(columns, quoted)
		marks = append(marks, "?")
		args = append(args, row[column])
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quotedTable, strings.Join(columns, ", "), strings.Join(marks, ", "),
	)
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Insert adds a row and returns its rowid.
func (d *DB) Insert(ctx context.Context, table string, row Row) (int64, error) {
	id, err := insert(ctx, d.db, table, row)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	return id, nil
}

// InsertBulk adds every row in one transaction, nothing is inserted if a
// row fails.
func (d *DB) InsertBulk(ctx context.Context, table string, rows []Row) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert bulk %s: %w", table, err)
	}
	for _, row := range rows {
		_, err = insert(ctx, tx, table, row)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert bulk %s: %w", table, err)
		}
	}
	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("insert bulk %s: %w", table, err)
	}
	return nil
}

// Update sets values on the rows matching where and returns how many rows
// changed.
func (d *DB) Update(ctx context.Context, table string, values Row, where Where) (int64, error) {
	wrap := func(err error) error {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if len(values) == 0 {
		return 0, wrap(fmt.Errorf("no values"))
	}
	quotedTable, err := quote(table)
	if err != nil {
		return 0, wrap(err)
	}

	sets := make([]string, 0, len(values))
	args := make([]any, 0, len(values)+len(where))
	for _, column := range sortedKeys(values) {
		quoted, err := quote(column)
		if err != nil {
			return 0, wrap(err)
		}
		sets = append(sets, quoted+" = ?")
		args = append(args, values[column])
	}
	clause, whereArgs, err := where.clause()
	if err != nil {
		return 0, wrap(err)
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s%s", quotedTable, strings.Join(sets, ", "), clause)
	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrap(err)
	}
	return result.RowsAffected()
}

// Delete removes the rows matching where, an empty where removes every row.
func (d *DB) Delete(ctx context.Context, table string, where Where) (int64, error) {
	wrap := func(err error) error {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	quotedTable, err := quote(table)
	if err != nil {
		return 0, wrap(err)
	}
	clause, args, err := where.clause()
	if err != nil {
		return 0, wrap(err)
	}
	result, err := d.db.ExecContext(ctx, "DELETE FROM "+quotedTable+clause, args...)
	if err != nil {
		return 0, wrap(err)
	}
	return result.RowsAffected()
}

// Select returns the rows matching where ordered by rowid, text columns
// come back as strings.
func (d *DB) Select(ctx context.Context, table string, where Where) ([]Row, error) {
	wrap := func(err error) error {
		return fmt.Errorf("select %s: %w", table, err)
	}
	quotedTable, err := quote(table)
	if err != nil {
		return nil, wrap(err)
	}
	clause, args, err := where.clause()
	if err != nil {
		return nil, wrap(err)
	}

	rows, err := d.db.QueryContext(ctx, "SELECT * FROM "+quotedTable+clause+" ORDER BY rowid", args...)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, wrap(err)
	}

	out := []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		err = rows.Scan(pointers...)
		if err != nil {
			return nil, wrap(err)
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
				continue
			}
			row[column] = values[i]
		}
		out = append(out, row)
	}
	if err = rows.Err(); err != nil {
		return nil, wrap(err)
	}
	return out, nil
}
