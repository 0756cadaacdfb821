package picshed

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// ImageRepo defines the interface for managing image metadata persistence.
// Implementations must handle concurrent access safely and must filter by
// owner server-side: ListByOwner never returns another owner's records.
//
// All methods accept a context for cancellation and timeout control.
type ImageRepo interface {
	// Insert persists a new image record. The caller supplies the generated
	// id and canonical created_at; records are immutable after insertion.
	Insert(ctx context.Context, rec ImageRecord) error

	// Get retrieves a record by id, regardless of owner. Returns ErrNotFound
	// if no record exists. Ownership checks are the caller's responsibility.
	Get(ctx context.Context, id uuid.UUID) (ImageRecord, error)

	// FindByURL retrieves a record by its public URL, regardless of owner.
	// Returns ErrNotFound if no record matches.
	FindByURL(ctx context.Context, publicURL string) (ImageRecord, error)

	// FindByFilename retrieves an owner's record by filename. Returns
	// ErrNotFound if the owner has no record with that filename.
	FindByFilename(ctx context.Context, ownerID, filename string) (ImageRecord, error)

	// ListByOwner returns all records whose owner_id equals ownerID, ordered
	// newest first (created_at descending, filename as tiebreak). An owner
	// with no records yields an empty slice, not an error.
	ListByOwner(ctx context.Context, ownerID string) ([]ImageRecord, error)

	// ListAll returns every record in the store. Used by reconciliation and
	// the legacy date import, not by request handling.
	ListAll(ctx context.Context) ([]ImageRecord, error)

	// DeleteByFilename removes every record matching owner and filename and
	// reports how many rows were removed. Matching more than one row means
	// duplicate stale records existed; all are removed.
	DeleteByFilename(ctx context.Context, ownerID, filename string) (int64, error)

	// UpdateCreatedAt rewrites a record's created_at in the canonical
	// layout. Only the legacy date import calls this; records are otherwise
	// immutable.
	UpdateCreatedAt(ctx context.Context, id uuid.UUID, createdAt time.Time) error
}

// BlobStore defines the interface for blob storage backends. Implementations
// can use the local filesystem, S3-compatible object storage, or any other
// backend that can issue a public URL per object.
type BlobStore interface {
	// Put streams content to the given path, tags it with contentType, makes
	// the object publicly readable, and returns the issued public URL along
	// with the true number of bytes written.
	//
	// Implementations should write atomically where the backend allows it
	// and must count bytes from the actual stream, not from any declared
	// length.
	Put(ctx context.Context, path string, content io.Reader, contentType string) (PutResult, error)

	// Get opens the blob at path for reading. Returns ErrNotFound if the
	// blob does not exist. The caller closes the returned reader.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the blob at path. Returns ErrNotFound if the blob does
	// not exist.
	//
	// Note: this only deletes the blob, not its metadata record. Callers
	// coordinate blob and record deletion.
	Delete(ctx context.Context, path string) error

	// List returns the paths of all blobs currently in storage. Used by
	// reconciliation to find blobs with no backing record; can be expensive
	// on large volumes.
	List(ctx context.Context) ([]string, error)
}

// TokenVerifier checks an opaque bearer token with the identity provider and
// resolves it to a stable owner id. Implementations return ErrUnauthorized
// when the token is rejected.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}
