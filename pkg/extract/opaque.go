package extract

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/durck/crawl/pkg/extract/run"
)

const (
	sqliteMaxRowsPerTable = 200
	sqliteMaxDumpBytes    = 4 * 1024 * 1024
)

// extractSQLite dumps every user table of a SQLite database, bounded per
// table and in total.
func (s *Set) extractSQLite(ctx context.Context, path, scratch string) (string, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro&immutable=1")
	if err != nil {
		return "", fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return "", fmt.Errorf("listing tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return "", err
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, table := range tables {
		if b.Len() > sqliteMaxDumpBytes {
			break
		}
		b.WriteString(table)
		b.WriteByte(' ')
		dumpTable(ctx, db, table, &b)
	}
	return Sanitize(b.String()), nil
}

func dumpTable(ctx context.Context, db *sql.DB, table string, b *strings.Builder) {
	// Table names come from sqlite_master, not user input; quoting guards
	// reserved words.
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM "%s" LIMIT %d`, table, sqliteMaxRowsPerTable))
	if err != nil {
		return
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return
	}
	b.WriteString(strings.Join(cols, " "))
	b.WriteByte(' ')

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() && b.Len() < sqliteMaxDumpBytes {
		if err := rows.Scan(ptrs...); err != nil {
			return
		}
		for _, v := range values {
			switch val := v.(type) {
			case nil:
			case []byte:
				fmt.Fprintf(b, "%s ", val)
			default:
				fmt.Fprintf(b, "%v ", val)
			}
		}
	}
}

// extractPCAP dumps packet summaries with tcpdump.
func (s *Set) extractPCAP(ctx context.Context, path, scratch string) (string, error) {
	out, err := run.Command{Name: "tcpdump", Args: []string{"-nn", "-tttt", "-r", path}}.Output(ctx)
	if err != nil {
		return "", err
	}
	return Sanitize(string(out)), nil
}

// extractBytecode disassembles Python bytecode.
func (s *Set) extractBytecode(ctx context.Context, path, scratch string) (string, error) {
	out, err := run.Command{Name: "pycdc", Args: []string{path}}.Output(ctx)
	if err != nil {
		return "", err
	}
	return Sanitize(string(out)), nil
}
