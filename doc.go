// Package picshed implements a multi-user photo gallery service backed by
// pluggable blob storage and metadata backends.
//
// The core of the package is GalleryService, which orchestrates uploads,
// listings, and deletions so that a stored blob, its public URL, and its
// metadata record stay consistent and remain scoped to their owner. The two
// stores are independent services with no shared transaction, so the service
// relies on strict step ordering plus compensating deletes: a blob is written
// before its record is created, and deleted before its record is removed.
// This bounds any partial failure to an inert orphan (a blob or record with
// no counterpart) rather than a dangling public URL visible to users.
//
// Storage backends live in the filesystem and s3store subpackages, metadata
// backends in database, token verification in identity, and the web surface
// in http.
package picshed
