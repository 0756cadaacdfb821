package picshed

import "errors"

var (
	// ErrInvalidFile is returned when an upload has a missing, empty, or
	// disallowed filename.
	ErrInvalidFile = errors.New("invalid file")
	// ErrPayloadTooLarge is returned when an upload exceeds the configured
	// maximum size.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrUnauthorized is returned when no authenticated owner is present.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller does not own the image.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a record or blob does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStorageWrite is returned when writing a blob fails.
	ErrStorageWrite = errors.New("storage write failed")
	// ErrStorageDelete is returned when deleting a blob fails.
	ErrStorageDelete = errors.New("storage delete failed")
	// ErrMetadataWrite is returned when persisting an image record fails.
	ErrMetadataWrite = errors.New("metadata write failed")
	// ErrMetadataDelete is returned when removing an image record fails.
	ErrMetadataDelete = errors.New("metadata delete failed")
	// ErrDateParse is returned by the legacy date import when a stored
	// timestamp matches none of the known formats.
	ErrDateParse = errors.New("date parse failed")
)
