package table

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// LoadSQLite reads one table from a SQLite database file. When tableName is
// empty the database must contain exactly one user table, which is used.
// All cell values are rendered to strings so the Frame accessors can apply
// the same coercion rules as for CSV input.
func LoadSQLite(path, tableName string) (*Frame, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer db.Close()

	if tableName == "" {
		tableName, err = soleUserTable(db)
		if err != nil {
			return nil, err
		}
	}
	if !validIdentifier(tableName) {
		return nil, fmt.Errorf("invalid table name %q", tableName)
	}

	rows, err := db.Query(fmt.Sprintf(`SELECT * FROM "%s"`, tableName))
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", tableName, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", tableName, err)
	}

	frame := NewFrame(cols)
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", frame.NumRows(), err)
		}
		record := make([]string, len(cols))
		for i, v := range values {
			record[i] = renderCell(v)
		}
		if err := frame.AppendRow(record); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", tableName, err)
	}
	return frame, nil
}

// soleUserTable returns the only user table in the database, or an error
// naming the candidates when the choice is ambiguous.
func soleUserTable(db *sql.DB) (string, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return "", fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(names) {
	case 0:
		return "", fmt.Errorf("database contains no user tables")
	case 1:
		return names[0], nil
	default:
		return "", fmt.Errorf("database contains %d tables %v; specify one", len(names), names)
	}
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// renderCell converts a database value to the string form the Frame
// accessors expect.
func renderCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", x)
	}
}
