// Package filesystem provides a local blob store backend for picshed.
// Writes are atomic (temp file plus rename) and sandboxed under an os.Root,
// and public URLs are issued from a configured base URL.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/picshed/picshed"
)

// Store provides blob storage on the local file system.
type Store struct {
	root    *os.Root
	baseURL string
}

// NewStore creates a Store rooted at root. The root provides sandboxed file
// operations preventing path traversal. baseURL is the externally reachable
// prefix under which stored blobs are served, e.g. "http://localhost:5708/media".
func NewStore(root *os.Root, baseURL string) *Store {
	return &Store{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// PublicURL returns the URL under which the blob at path is reachable.
// Each path segment is escaped individually so separators survive.
func (s *Store) PublicURL(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segments, "/")
}

// Get opens a blob for reading. Returns picshed.ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, picshed.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put atomically writes content to the given path using a temp file and
// rename, creating intermediate directories as needed. The byte count in the
// result comes from the copy itself; the public URL from the configured base
// URL. The operation respects context cancellation.
func (s *Store) Put(ctx context.Context, path string, content io.Reader, _ string) (picshed.PutResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return picshed.PutResult{}, ctxErr
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return picshed.PutResult{}, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(t.Name()); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	bytesWritten, err := io.Copy(t, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return picshed.PutResult{}, fmt.Errorf("could not copy file contents: %w", err)
	}

	err = t.Sync()
	if err != nil {
		return picshed.PutResult{}, fmt.Errorf("could not sync written file: %w", err)
	}

	destDir := filepath.Dir(path)
	if destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return picshed.PutResult{}, fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, path); renameErr != nil {
		return picshed.PutResult{}, fmt.Errorf("failed to rename file: %w", renameErr)
	}

	success = true

	return picshed.PutResult{URL: s.PublicURL(path), BytesWritten: bytesWritten}, nil
}

// Delete removes a blob. Returns picshed.ErrNotFound if it does not exist.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.root.Remove(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return picshed.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

// List recursively walks the root directory and returns the paths of all
// stored blobs. Intended for reconciliation sweeps, not request handling.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var paths []string

	err := s.walkDir(ctx, ".", &paths)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return paths, nil
}

func (s *Store) walkDir(ctx context.Context, dir string, paths *[]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirEntries, err := fs.ReadDir(s.root.FS(), dir)
	if err != nil {
		return err
	}

	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return err
		}

		entryPath := entry.Name()
		if dir != "." {
			entryPath = dir + "/" + entry.Name()
		}

		if entry.IsDir() {
			if err := s.walkDir(ctx, entryPath, paths); err != nil {
				return err
			}
			continue
		}

		// Skip in-flight temp files from concurrent writes.
		if strings.HasPrefix(entry.Name(), ".t") {
			continue
		}

		*paths = append(*paths, entryPath)
	}

	return nil
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
