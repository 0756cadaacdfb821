package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/picshed/picshed"
)

// quoteIdentifier safely quotes a PostgreSQL identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

// Migrate creates the images table and its indexes if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables picshed.Tables) error {
	quotedTable := quoteIdentifier(tables.Images)
	indexOwnerCreated := quoteIdentifier(fmt.Sprintf("idx_%s_owner_created", tables.Images))
	indexPublicURL := quoteIdentifier(fmt.Sprintf("idx_%s_public_url", tables.Images))

	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID NOT NULL PRIMARY KEY,
			owner_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			storage_path TEXT NOT NULL UNIQUE,
			public_url TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			created_at TEXT NOT NULL
		)
	`, quotedTable)

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	indexSQL := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s ON %s (owner_id, created_at)
	`, indexOwnerCreated, quotedTable)

	if _, err := pool.Exec(ctx, indexSQL); err != nil {
		return fmt.Errorf("create index owner_created: %w", err)
	}

	indexSQL = fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s ON %s (public_url)
	`, indexPublicURL, quotedTable)

	if _, err := pool.Exec(ctx, indexSQL); err != nil {
		return fmt.Errorf("create index public_url: %w", err)
	}

	return nil
}

// DropTables removes the images table. Used by tests.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables picshed.Tables) error {
	dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(tables.Images))
	if _, err := pool.Exec(ctx, dropSQL); err != nil {
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
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, tables picshed.Tables) error {
	if !picshed.IsValidTableName(tables.Images) {
		return fmt.Errorf("validate schema: invalid table name: %s", tables.Images)
	}

	var exists bool
	existsQuery := `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`
	if err := pool.QueryRow(ctx, existsQuery, tables.Images).Scan(&exists); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	if !exists {
		return fmt.Errorf("validate schema: table %s does not exist", tables.Images)
	}

	rows, err := pool.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = $1
	`, tables.Images)
	if err != nil {
		return fmt.Errorf("validate schema: query columns: %w", err)
	}
	defer rows.Close()

	actual := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("validate schema: scan column: %w", err)
		}
		actual[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}

	var missing []string
	for _, col := range expectedColumns {
		if !actual[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return errors.New("validate schema: table " + tables.Images + " missing columns: " + strings.Join(missing, ", "))
	}

	return nil
}
