package sqlite_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	_ "modernc.org/sqlite"

	"github.com/picshed/picshed"
	"github.com/picshed/picshed/database/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestRepo creates a repo over an in-memory database with a unique
// table name for test isolation.
func setupTestRepo(t *testing.T) (picshed.ImageRepo, *sql.DB, picshed.Tables) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	assert.NoError(t, err, "failed to open sqlite database")

	ctx := context.Background()
	tables := picshed.Tables{Images: fmt.Sprintf("images_%s", getRandomString(t))}

	err = sqlite.Migrate(ctx, db, tables)
	assert.NoError(t, err, "failed to migrate")

	repo, err := sqlite.NewRepo(db, tables)
	assert.NoError(t, err, "failed to create repo")

	t.Cleanup(func() {
		_ = sqlite.DropTables(ctx, db, tables)
		_ = db.Close()
	})

	return repo, db, tables
}

func newRecord(owner, filename string, createdAt time.Time) picshed.ImageRecord {
	return picshed.ImageRecord{
		ID:          uuid.New(),
		OwnerID:     owner,
		Filename:    filename,
		StoragePath: owner + "/" + filename,
		PublicURL:   "http://localhost:8080/media/" + owner + "/" + filename,
		SizeBytes:   1024,
		CreatedAt:   createdAt,
	}
}

func TestRepo_InsertAndGet(t *testing.T) {
	repo, _, _ := setupTestRepo(t)
	ctx := context.Background()

	rec := newRecord("alice", "cat.jpg", time.Now().UTC().Truncate(time.Microsecond))
	assert.NoError(t, repo.Insert(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	assert.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "alice", got.OwnerID)
	assert.Equal(t, "cat.jpg", got.Filename)
	assert.Equal(t, rec.StoragePath, got.StoragePath)
	assert.Equal(t, rec.PublicURL, got.PublicURL)
	assert.Equal(t, int64(1024), got.SizeBytes)
	assert.True(t, got.CreatedAt.Equal(rec.CreatedAt))
	assert.Empty(t, got.CreatedAtRaw)
}

func TestRepo_Get_NotFound(t *testing.T) {
	repo, _, _ := setupTestRepo(t)

	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, picshed.ErrNotFound)
}

func TestRepo_Insert_DuplicateStoragePath(t *testing.T) {
	repo, _, _ := setupTestRepo(t)
	ctx := context.Background()

	rec := newRecord("alice", "cat.jpg", time.Now().UTC())
	assert.NoError(t, repo.Insert(ctx, rec))

	dup := newRecord("alice", "cat.jpg", time.Now().UTC())
	assert.Error(t, repo.Insert(ctx, dup))
}

func TestRepo_FindByURL(t *testing.T) {
	repo, _, _ := setupTestRepo(t)
	ctx := context.Background()

	rec := newRecord("alice", "cat.jpg", time.Now().UTC())
	assert.NoError(t, repo.Insert(ctx, rec))

	got, err := repo.FindByURL(ctx, rec.PublicURL)
	assert.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	_, err = repo.FindByURL(ctx, "http://localhost:8080/media/alice/nothere.jpg")
	assert.ErrorIs(t, err, picshed.ErrNotFound)
}

func TestRepo_FindByFilename(t *testing.T) {
	repo, _, _ := setupTestRepo(t)
	ctx := context.Background()

	alice := newRecord("alice", "cat.jpg", time.Now().UTC())
	bob := newRecord("bob", "cat.jpg", time.Now().UTC())
	assert.NoError(t, repo.Insert(ctx, alice))
	assert.NoError(t, repo.Insert(ctx, bob))

	got, err := repo.FindByFilename(ctx, "alice", "cat.jpg")
	assert.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	got, err = repo.FindByFilename(ctx, "bob", "cat.jpg")
	assert.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)

	_, err = repo.FindByFilename(ctx, "mallory", "cat.jpg")
	assert.ErrorIs(t, err, picshed.ErrNotFound)
}

func TestRepo_ListByOwner(t *testing.T) {
	repo, _, _ := setupTestRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	oldest := newRecord("alice", "oldest.jpg", base)
	middle := newRecord("alice", "middle.jpg", base.Add(time.Hour))
	newest := newRecord("alice", "newest.jpg", base.Add(2*time.Hour))
	other := newRecord("bob", "other.jpg", base.Add(3*time.Hour))

	for _, rec := range []picshed.ImageRecord{middle, other, newest, oldest} {
		assert.NoError(t, repo.Insert(ctx, rec))
	}

	records, err := repo.ListByOwner(ctx, "alice")
	assert.NoError(t, err)
	assert.Len(t, records, 3)

	// Newest first, never another owner's records.
	assert.Equal(t, "newest.jpg", records[0].Filename)
	assert.Equal(t, "middle.jpg", records[1].Filename)
	assert.Equal(t, "oldest.jpg", records[2].Filename)
	for _, rec := range records {
		assert.Equal(t, "alice", rec.OwnerID)
	}
}

func TestRepo_ListByOwner_SubSecondOrdering(t *testing.T) {
	repo, _, _ := setupTestRepo(t)
	ctx := context.Background()

	// Timestamps in the same second, with fractions whose trimmed text would
	// sort against chronological order (".5Z" < "Z", ".1" < ".12" bytewise).
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	older := newRecord("alice", "older.jpg", base)
	newer := newRecord("alice", "newer.jpg", base.Add(500*time.Millisecond))
	tenth := newRecord("alice", "tenth.jpg", base.Add(100*time.Millisecond))
	twelfth := newRecord("alice", "twelfth.jpg", base.Add(120*time.Millisecond))

	for _, rec := range []picshed.ImageRecord{older, newer, tenth, twelfth} {
		assert.NoError(t, repo.Insert(ctx, rec))
	}

	records, err := repo.ListByOwner(ctx, "alice")
	assert.NoError(t, err)
	assert.Len(t, records, 4)
	assert.Equal(t, "newer.jpg", records[0].Filename)
	assert.Equal(t, "twelfth.jpg", records[1].Filename)
	assert.Equal(t, "tenth.jpg", records[2].Filename)
	assert.Equal(t, "older.jpg", records[3].Filename)
}

func TestRepo_ListByOwner_Empty(t *testing.T) {
	repo, _, _ := setupTestRepo(t)

	records, err := repo.ListByOwner(context.Background(), "nobody")
	assert.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestRepo_ListAll(t *testing.T) {
	repo, _, _ := setupTestRepo(t)
	ctx := context.Background()

	assert.NoError(t, repo.Insert(ctx, newRecord("alice", "a.jpg", time.Now().UTC())))
	assert.NoError(t, repo.Insert(ctx, newRecord("bob", "b.jpg", time.Now().UTC())))

	records, err := repo.ListAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRepo_DeleteByFilename(t *testing.T) {
	repo, _, _ := setupTestRepo(t)
	ctx := context.Background()

	alice := newRecord("alice", "cat.jpg", time.Now().UTC())
	bob := newRecord("bob", "cat.jpg", time.Now().UTC())
	assert.NoError(t, repo.Insert(ctx, alice))
	assert.NoError(t, repo.Insert(ctx, bob))

	count, err := repo.DeleteByFilename(ctx, "alice", "cat.jpg")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = repo.Get(ctx, alice.ID)
	assert.ErrorIs(t, err, picshed.ErrNotFound)

	// Bob's record with the same filename survives.
	_, err = repo.Get(ctx, bob.ID)
	assert.NoError(t, err)

	count, err = repo.DeleteByFilename(ctx, "alice", "cat.jpg")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRepo_LegacyCreatedAt(t *testing.T) {
	repo, db, tables := setupTestRepo(t)
	ctx := context.Background()

	// A row written by an earlier deployment with a non-canonical date.
	legacyID := uuid.New()
	insertSQL := fmt.Sprintf(
		`INSERT INTO "%s" (id, owner_id, filename, storage_path, public_url, size_bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`, tables.Images)
	_, err := db.ExecContext(ctx, insertSQL,
		legacyID.String(), "alice", "old.jpg", "alice/old.jpg", "http://x/alice/old.jpg", 500, "2024-06-01 03:04:05 PM")
	assert.NoError(t, err)

	got, err := repo.Get(ctx, legacyID)
	assert.NoError(t, err)
	assert.True(t, got.CreatedAt.IsZero())
	assert.Equal(t, "2024-06-01 03:04:05 PM", got.CreatedAtRaw)
}

func TestRepo_UpdateCreatedAt(t *testing.T) {
	repo, _, _ := setupTestRepo(t)
	ctx := context.Background()

	rec := newRecord("alice", "cat.jpg", time.Now().UTC())
	assert.NoError(t, repo.Insert(ctx, rec))

	canonical := time.Date(2024, 6, 1, 15, 4, 5, 0, time.UTC)
	assert.NoError(t, repo.UpdateCreatedAt(ctx, rec.ID, canonical))

	got, err := repo.Get(ctx, rec.ID)
	assert.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(canonical))
	assert.Empty(t, got.CreatedAtRaw)

	err = repo.UpdateCreatedAt(ctx, uuid.New(), canonical)
	assert.ErrorIs(t, err, picshed.ErrNotFound)
}

func TestValidateSchema(t *testing.T) {
	t.Run("valid schema", func(t *testing.T) {
		_, db, tables := setupTestRepo(t)
		assert.NoError(t, sqlite.ValidateSchema(context.Background(), db, tables))
	})

	t.Run("missing table", func(t *testing.T) {
		db, err := sql.Open("sqlite", ":memory:")
		assert.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		err = sqlite.ValidateSchema(context.Background(), db, picshed.Tables{Images: "missing_table"})
		assert.Error(t, err)
	})
}

func TestNewRepo_InvalidTable(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	assert.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = sqlite.NewRepo(db, picshed.Tables{Images: "Bad Name"})
	assert.Error(t, err)
}
