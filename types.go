package picshed

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the canonical format for persisted timestamps. The
// fractional second is fixed width, unlike RFC3339Nano which trims trailing
// zeros, so the stored text sorts in chronological order and ORDER BY
// created_at stays correct for sub-second differences. Reads parse with
// time.RFC3339Nano, which accepts both padded and trimmed fractions;
// anything else is a legacy row handled by the import-dates migration.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultMaxUploadBytes caps an upload payload when no limit is configured.
const DefaultMaxUploadBytes int64 = 16_000_000

// ImageRecord is the metadata record for one uploaded image. Records are
// immutable once created; there is no update operation.
type ImageRecord struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	PublicURL   string    `json:"public_url"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`

	// CreatedAtRaw carries the stored created_at text when it does not parse
	// in the canonical layout. Only the import-dates migration reads it; the
	// serving path treats such records as having an unknown date.
	CreatedAtRaw string `json:"-"`
}

// GalleryEntry is the display-ready view of an ImageRecord returned to the
// web front end. Size and UploadedAt are formatted for humans; the numeric
// fields remain available for JSON consumers.
type GalleryEntry struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Size       string    `json:"size"`
	UploadedAt string    `json:"uploaded_at"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// UploadRequest describes an incoming upload. DeclaredSize is the size the
// client claims; it is checked before any network write, and the true byte
// count is enforced again while streaming.
type UploadRequest struct {
	OwnerID      string
	Filename     string
	ContentType  string
	DeclaredSize int64
}

// ImageRef addresses an image for deletion by record id, public URL, or
// filename. Exactly one field needs to be set; they are consulted in that
// order. Filename lookups are scoped to the caller's owner id.
type ImageRef struct {
	ID       uuid.UUID
	URL      string
	Filename string
}

// PutResult reports the outcome of a blob write: the public URL issued by
// the store and the number of bytes actually written.
type PutResult struct {
	URL          string
	BytesWritten int64
}

// Tables holds configurable table names for metadata storage.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Images string `mapstructure:"images"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric
// with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Images == "" {
		return errors.New("validate tables: images table name cannot be empty")
	}

	if !IsValidTableName(t.Images) {
		return fmt.Errorf("validate tables: invalid images table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Images)
	}

	return nil
}
