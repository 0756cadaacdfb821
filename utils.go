package picshed

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// allowedExtensions is the upload allow-list. Matching is case-insensitive.
var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
}

// AllowedExtension reports whether the filename carries an extension from
// the upload allow-list. The check is case-insensitive, so "cat.JPG" passes.
func AllowedExtension(filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	_, ok := allowedExtensions[ext]
	return ok
}

// SanitizeFilename reduces a client-supplied filename to a safe display
// name: directory components are stripped (both separators), whitespace
// collapses to underscores, and anything outside [A-Za-z0-9._-] is dropped.
// Leading and trailing dots, dashes, and underscores are trimmed so the
// result can never be a hidden file or a traversal fragment. Returns "" when
// nothing safe remains.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		}
	}

	s := strings.Trim(b.String(), "._-")
	if s == "." || s == ".." {
		return ""
	}
	return s
}

// IsValidOwnerID validates an owner id for use as a storage namespace. It
// must be non-empty valid UTF-8 with no separators, traversal sequences,
// control characters, or whitespace.
func IsValidOwnerID(id string) bool {
	if id == "" || !utf8.ValidString(id) {
		return false
	}

	if strings.ContainsAny(id, `/\?#~`) {
		return false
	}

	if strings.Contains(id, "..") {
		return false
	}

	for _, r := range id {
		if r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// StoragePathFor derives the blob path for an owner's image. Images are
// namespaced by owner so the path itself encodes the authorization scope.
func StoragePathFor(ownerID, filename string) string {
	return ownerID + "/" + filename
}

// FormatSize renders a byte count as whole kilobytes, e.g. 500000 -> "488 KB".
func FormatSize(sizeBytes int64) string {
	return fmt.Sprintf("%.0f KB", float64(sizeBytes)/1024)
}

// FormatUploadTime renders a record timestamp for display. The zero time
// (legacy rows with unparseable dates) renders as "unknown".
func FormatUploadTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("2006-01-02 03:04:05 PM")
}
