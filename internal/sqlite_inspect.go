package internal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ColumnInfo describes one column of a ledger table
type ColumnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"not_null"`
	PrimaryKey bool   `json:"primary_key"`
}

// TableInfo summarizes one table of the ledger database
type TableInfo struct {
	Name    string              `json:"name"`
	Rows    int                 `json:"rows"`
	Columns []ColumnInfo        `json:"columns"`
	Sample  []map[string]string `json:"sample,omitempty"`
}

// maxSampleValue truncates long cell values in samples
const maxSampleValue = 200

// Inspect lists the tables of the ledger database with their schema, row
// counts and up to sampleRows rows each
func (s *SQLiteStore) Inspect(ctx context.Context, sampleRows int) ([]TableInfo, error) {
	names, err := s.tableNames(ctx)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "inspect", Err: err}
	}

	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		info, err := s.inspectTable(ctx, name, sampleRows)
		if err != nil {
			LogWarn("Error inspecting table %s: %v", name, err)
			continue
		}
		tables = append(tables, info)
	}
	return tables, nil
}

func (s *SQLiteStore) tableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// inspectTable interpolates name, which only ever comes from sqlite_master
func (s *SQLiteStore) inspectTable(ctx context.Context, name string, sampleRows int) (TableInfo, error) {
	info := TableInfo{Name: name}
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %q", name)).Scan(&info.Rows); err != nil {
		return info, fmt.Errorf("row count: %w", err)
	}

	columns, err := s.tableSchema(ctx, name)
	if err != nil {
		return info, fmt.Errorf("schema: %w", err)
	}
	info.Columns = columns

	if info.Rows > 0 && sampleRows > 0 && len(columns) > 0 {
		info.Sample, err = s.sampleRows(ctx, name, columns, sampleRows)
		if err != nil {
			return info, fmt.Errorf("sample: %w", err)
		}
	}
	return info, nil
}

func (s *SQLiteStore) tableSchema(ctx context.Context, name string) ([]ColumnInfo, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var (
			col          ColumnInfo
			cid          int
			notNull, pk  int
			defaultValue sql.NullString
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		col.NotNull = notNull == 1
		col.PrimaryKey = pk > 0
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (s *SQLiteStore) sampleRows(ctx context.Context, name string, columns []ColumnInfo, limit int) ([]map[string]string, error) {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = fmt.Sprintf("%q", col.Name)
	}

	query := fmt.Sprintf("SELECT %s FROM %q ORDER BY rowid DESC LIMIT ?", strings.Join(names, ", "), name)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sample []map[string]string
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]string, len(columns))
		for i, col := range columns {
			row[col.Name] = sampleValue(values[i])
		}
		sample = append(sample, row)
	}
	return sample, rows.Err()
}

func sampleValue(v any) string {
	if v == nil {
		return "<NULL>"
	}
	var s string
	switch v := v.(type) {
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprintf("%v", v)
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + "..."
	}
	if len(s) > maxSampleValue {
		s = s[:maxSampleValue] + "..."
	}
	return s
}
