package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/picshed/picshed"
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

// Migrate creates the images table and its indexes if they do not exist.
func Migrate(ctx context.Context, db *sql.DB, tables picshed.Tables) error {
	quotedTable := quoteIdentifier(tables.Images)
	indexOwnerCreated := quoteIdentifier(fmt.Sprintf("idx_%s_owner_created", tables.Images))
	indexPublicURL := quoteIdentifier(fmt.Sprintf("idx_%s_public_url", tables.Images))

	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT NOT NULL PRIMARY KEY,
			owner_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			storage_path TEXT NOT NULL UNIQUE,
			public_url TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)
	`, quotedTable)

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	indexSQL := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s ON %s (owner_id, created_at)
	`, indexOwnerCreated, quotedTable)

	if _, err := db.ExecContext(ctx, indexSQL); err != nil {
		return fmt.Errorf("create index owner_created: %w", err)
	}

	indexSQL = fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s ON %s (public_url)
	`, indexPublicURL, quotedTable)

	if _, err := db.ExecContext(ctx, indexSQL); err != nil {
		return fmt.Errorf("create index public_url: %w", err)
	}

	return nil
}

// DropTables removes the images table. Used by tests.
func DropTables(ctx context.Context, db *sql.DB, tables picshed.Tables) error {
	dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(tables.Images))
	if _, err := db.ExecContext(ctx, dropSQL); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	return nil
}

// expectedColumns are the columns the repo relies on.
var expectedColumns = []string{
	"id", "owner_id", "filename", "storage_path", "public_url", "size_bytes", "created_at",
}

// ValidateSchema verifies the images table exists and carries every column
// the repo needs.
func ValidateSchema(ctx context.Context, db *sql.DB, tables picshed.Tables) error {
	if !picshed.IsValidTableName(tables.Images) {
		return fmt.Errorf("validate schema: invalid table name: %s", tables.Images)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdentifier(tables.Images)))
	if err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	actual := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("validate schema: scan column: %w", err)
		}
		actual[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}

	if len(actual) == 0 {
		return fmt.Errorf("validate schema: table %s does not exist", tables.Images)
	}

	var missing []string
	for _, col := range expectedColumns {
		if !actual[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("validate schema: table %s missing columns: %s", tables.Images, strings.Join(missing, ", "))
	}

	return nil
}
