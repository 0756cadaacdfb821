// Package postgres implements the image repo interface using PostgreSQL
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/picshed/picshed"
)

const recordColumns = "id, owner_id, filename, storage_path, public_url, size_bytes, created_at"

type repo struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewRepo creates an ImageRepo over a pgx connection pool. The table name is
// validated up front; Migrate must have run already.
func NewRepo(pool *pgxpool.Pool, tables picshed.Tables) (picshed.ImageRepo, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &repo{pool: pool, tableName: tables.Images}, nil
}

// scanRecord maps one row to an ImageRecord. A created_at value that does
// not parse as RFC 3339 is kept raw (zero time, CreatedAtRaw set) so a
// legacy row degrades to an unknown date instead of failing the whole query.
func scanRecord(scan func(dest ...any) error) (picshed.ImageRecord, error) {
	var rec picshed.ImageRecord
	var createdAt string

	if err := scan(&rec.ID, &rec.OwnerID, &rec.Filename, &rec.StoragePath, &rec.PublicURL, &rec.SizeBytes, &createdAt); err != nil {
		return picshed.ImageRecord{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		rec.CreatedAtRaw = createdAt
	} else {
		rec.CreatedAt = t
	}

	return rec, nil
}

func (r *repo) Insert(ctx context.Context, rec picshed.ImageRecord) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7)`, r.tableName, recordColumns)

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.OwnerID, rec.Filename, rec.StoragePath, rec.PublicURL,
		rec.SizeBytes, rec.CreatedAt.UTC().Format(picshed.TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	return nil
}

func (r *repo) getOne(ctx context.Context, where, opName string, args ...any) (picshed.ImageRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s WHERE %s`, recordColumns, r.tableName, where)

	row := r.pool.QueryRow(ctx, query, args...)
	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return picshed.ImageRecord{}, picshed.ErrNotFound
		}
		return picshed.ImageRecord{}, fmt.Errorf("%s: %w", opName, err)
	}

	return rec, nil
}

func (r *repo) Get(ctx context.Context, id uuid.UUID) (picshed.ImageRecord, error) {
	return r.getOne(ctx, "id = $1", "get", id)
}

func (r *repo) FindByURL(ctx context.Context, publicURL string) (picshed.ImageRecord, error) {
	return r.getOne(ctx, "public_url = $1", "find by url", publicURL)
}

func (r *repo) FindByFilename(ctx context.Context, ownerID, filename string) (picshed.ImageRecord, error) {
	return r.getOne(ctx, "owner_id = $1 AND filename = $2", "find by filename", ownerID, filename)
}

func (r *repo) list(ctx context.Context, where, opName string, args ...any) ([]picshed.ImageRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s WHERE %s ORDER BY created_at DESC, filename`, recordColumns, r.tableName, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opName, err)
	}
	defer rows.Close()

	records := []picshed.ImageRecord{}
	for rows.Next() {
		rec, scanErr := scanRecord(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("%s: %w", opName, scanErr)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", opName, err)
	}

	return records, nil
}

func (r *repo) ListByOwner(ctx context.Context, ownerID string) ([]picshed.ImageRecord, error) {
	return r.list(ctx, "owner_id = $1", "list by owner", ownerID)
}

func (r *repo) ListAll(ctx context.Context) ([]picshed.ImageRecord, error) {
	return r.list(ctx, "TRUE", "list all")
}

func (r *repo) DeleteByFilename(ctx context.Context, ownerID, filename string) (int64, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE owner_id = $1 AND filename = $2`, r.tableName)

	tag, err := r.pool.Exec(ctx, query, ownerID, filename)
	if err != nil {
		return 0, fmt.Errorf("delete by filename: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *repo) UpdateCreatedAt(ctx context.Context, id uuid.UUID, createdAt time.Time) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET created_at = $1 WHERE id = $2`, r.tableName)

	tag, err := r.pool.Exec(ctx, query, createdAt.UTC().Format(picshed.TimeLayout), id)
	if err != nil {
		return fmt.Errorf("update created_at: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update created_at: %w", picshed.ErrNotFound)
	}

	return nil
}
