package picshed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// GalleryService orchestrates uploads, listings, and deletions across the
// blob store and the metadata repo. It holds no mutable state of its own and
// is safe for concurrent use; all durable state lives in the two stores.
type GalleryService struct {
	repo           ImageRepo
	blobs          BlobStore
	maxUploadBytes int64
	cleanupTimeout time.Duration
}

// ServiceConfig holds configuration options for GalleryService.
type ServiceConfig struct {
	MaxUploadBytes int64         // Maximum upload payload (default: DefaultMaxUploadBytes)
	CleanupTimeout time.Duration // Timeout for compensating deletes (default: 30s)
}

func NewGalleryService(repo ImageRepo, blobs BlobStore, cfg ServiceConfig) (*GalleryService, error) {
	if repo == nil {
		return nil, errors.New("new gallery service: repo is nil")
	}
	if blobs == nil {
		return nil, errors.New("new gallery service: blob store is nil")
	}

	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}

	return &GalleryService{
		repo:           repo,
		blobs:          blobs,
		maxUploadBytes: maxUploadBytes,
		cleanupTimeout: cleanupTimeout,
	}, nil
}

// Upload validates and stores one image as a single logical operation:
//
//  1. Reject missing owner, bad filename, or oversize declaration. These
//     checks run before any external call and have no side effects.
//  2. Stream the payload to the blob store at {owner}/{filename}, capturing
//     the issued public URL and the true byte count.
//  3. Insert the metadata record. If the insert fails, the just-written blob
//     is deleted again (best effort, background context) so no orphan blob
//     survives; a failed compensation is logged, never silent.
//
// Callers distinguish outcomes via errors.Is against ErrUnauthorized,
// ErrInvalidFile, ErrPayloadTooLarge, ErrStorageWrite, and ErrMetadataWrite.
func (s *GalleryService) Upload(ctx context.Context, req UploadRequest, content io.Reader) (ImageRecord, error) {
	if err := ctx.Err(); err != nil {
		return ImageRecord{}, fmt.Errorf("upload: %w", err)
	}

	// Uploads always use the authenticated owner. A missing owner is a hard
	// rejection, never a fallback to a shared default identity.
	if !IsValidOwnerID(req.OwnerID) {
		return ImageRecord{}, fmt.Errorf("upload: %w: missing or invalid owner", ErrUnauthorized)
	}

	filename := SanitizeFilename(req.Filename)
	if filename == "" {
		return ImageRecord{}, fmt.Errorf("upload: %w: empty filename", ErrInvalidFile)
	}
	if !AllowedExtension(filename) {
		return ImageRecord{}, fmt.Errorf("upload %s: %w: extension not allowed", filename, ErrInvalidFile)
	}

	if req.DeclaredSize > s.maxUploadBytes {
		return ImageRecord{}, fmt.Errorf("upload %s: %w: declared %d bytes, limit %d", filename, ErrPayloadTooLarge, req.DeclaredSize, s.maxUploadBytes)
	}

	storagePath := StoragePathFor(req.OwnerID, filename)

	// The declared size is not trusted: cap the stream one byte past the
	// limit so an oversize payload is detected from the actual bytes.
	limited := io.LimitReader(content, s.maxUploadBytes+1)

	res, writeErr := s.blobs.Put(ctx, storagePath, limited, req.ContentType)
	if writeErr != nil {
		return ImageRecord{}, fmt.Errorf("upload %s: %w: %w", storagePath, ErrStorageWrite, writeErr)
	}

	if res.BytesWritten > s.maxUploadBytes {
		s.compensateBlob(storagePath)
		return ImageRecord{}, fmt.Errorf("upload %s: %w: payload exceeds %d bytes", storagePath, ErrPayloadTooLarge, s.maxUploadBytes)
	}

	rec := ImageRecord{
		ID:          uuid.New(),
		OwnerID:     req.OwnerID,
		Filename:    filename,
		StoragePath: storagePath,
		PublicURL:   res.URL,
		SizeBytes:   res.BytesWritten,
		CreatedAt:   time.Now().UTC(),
	}

	if insertErr := s.repo.Insert(ctx, rec); insertErr != nil {
		s.compensateBlob(storagePath)
		return ImageRecord{}, fmt.Errorf("upload %s: %w: %w", storagePath, ErrMetadataWrite, insertErr)
	}

	return rec, nil
}

// compensateBlob deletes a blob written by an upload whose later step
// failed. It uses a background context so caller cancellation cannot strand
// an orphan blob, and logs when the compensation itself fails.
func (s *GalleryService) compensateBlob(storagePath string) {
	cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
	defer cancel()

	if err := s.blobs.Delete(cleanupCtx, storagePath); err != nil && !errors.Is(err, ErrNotFound) {
		slog.Error("compensating blob delete failed, orphan blob remains", "path", storagePath, "err", err)
	}
}

// List returns the owner's gallery as display-ready entries, newest first.
// An owner with no images gets an empty slice. Records from other owners are
// never returned: the repo filters server-side and the result is filtered
// once more here before anything reaches the front end.
func (s *GalleryService) List(ctx context.Context, ownerID string) ([]GalleryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list gallery: %w", err)
	}

	if !IsValidOwnerID(ownerID) {
		return nil, fmt.Errorf("list gallery: %w: missing or invalid owner", ErrUnauthorized)
	}

	records, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list gallery for %s: %w", ownerID, err)
	}

	entries := make([]GalleryEntry, 0, len(records))
	for _, rec := range records {
		if rec.OwnerID != ownerID {
			slog.Warn("repo returned record for wrong owner, dropping", "record", rec.ID, "owner", rec.OwnerID)
			continue
		}
		entries = append(entries, entryFromRecord(rec))
	}

	return entries, nil
}

func entryFromRecord(rec ImageRecord) GalleryEntry {
	return GalleryEntry{
		ID:         rec.ID,
		Name:       rec.Filename,
		URL:        rec.PublicURL,
		Size:       FormatSize(rec.SizeBytes),
		UploadedAt: FormatUploadTime(rec.CreatedAt),
		SizeBytes:  rec.SizeBytes,
		CreatedAt:  rec.CreatedAt,
	}
}

// Delete removes one image after verifying the caller owns it. The blob is
// deleted before the record: a failure between the two steps leaves an inert
// orphan record rather than a public URL with no backing record. The record
// delete matches owner and filename so duplicate stale rows go with it.
//
// Outcomes: ErrNotFound when the reference resolves to nothing,
// ErrForbidden when the image belongs to someone else (nothing is touched),
// ErrStorageDelete and ErrMetadataDelete for the respective store failures.
func (s *GalleryService) Delete(ctx context.Context, ownerID string, ref ImageRef) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}

	if !IsValidOwnerID(ownerID) {
		return fmt.Errorf("delete image: %w: missing or invalid owner", ErrUnauthorized)
	}

	rec, err := s.resolve(ctx, ownerID, ref)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}

	if rec.OwnerID != ownerID {
		return fmt.Errorf("delete image %s: %w", rec.ID, ErrForbidden)
	}

	// Blob first. An already-missing blob is fine: the record is then the
	// only thing left to clean up.
	if delErr := s.blobs.Delete(ctx, rec.StoragePath); delErr != nil && !errors.Is(delErr, ErrNotFound) {
		return fmt.Errorf("delete image %s: %w: %w", rec.StoragePath, ErrStorageDelete, delErr)
	}

	if _, delErr := s.repo.DeleteByFilename(ctx, rec.OwnerID, rec.Filename); delErr != nil {
		return fmt.Errorf("delete image %s: %w: %w", rec.StoragePath, ErrMetadataDelete, delErr)
	}

	return nil
}

// resolve looks up the record an ImageRef addresses. Id and URL lookups are
// global so a cross-owner reference can be rejected as Forbidden rather than
// masked as NotFound; filename lookups are owner-scoped by construction.
func (s *GalleryService) resolve(ctx context.Context, ownerID string, ref ImageRef) (ImageRecord, error) {
	switch {
	case ref.ID != uuid.Nil:
		return s.repo.Get(ctx, ref.ID)
	case ref.URL != "":
		return s.repo.FindByURL(ctx, ref.URL)
	case ref.Filename != "":
		filename := SanitizeFilename(ref.Filename)
		if filename == "" {
			return ImageRecord{}, fmt.Errorf("%w: empty filename", ErrNotFound)
		}
		return s.repo.FindByFilename(ctx, ownerID, filename)
	default:
		return ImageRecord{}, fmt.Errorf("%w: no image reference given", ErrNotFound)
	}
}

// Reconcile sweeps blob storage and deletes every blob that has no metadata
// record. Such blobs are invisible to the gallery by invariant, so removing
// them is safe; it returns how many were removed. Intended for operational
// use (the reconcile command), not request handling.
func (s *GalleryService) Reconcile(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}

	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}

	known := make(map[string]struct{}, len(records))
	for _, rec := range records {
		known[rec.StoragePath] = struct{}{}
	}

	paths, err := s.blobs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}

	removed := 0
	for _, p := range paths {
		if _, ok := known[p]; ok {
			continue
		}

		delErr := s.blobs.Delete(ctx, p)
		if delErr != nil {
			// A blob already gone needs no removal and is not counted.
			if errors.Is(delErr, ErrNotFound) {
				continue
			}
			return removed, fmt.Errorf("reconcile '%s': %w", p, delErr)
		}

		removed++
		slog.Info("removed orphan blob", "path", p)
	}

	return removed, nil
}
