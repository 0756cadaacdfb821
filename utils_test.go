package picshed_test

import (
	"testing"
	"time"
	"unicode/utf8"

	"github.com/picshed/picshed"
)

func TestAllowedExtension(t *testing.T) {
	tt := []struct {
		Name     string
		Filename string
		Want     bool
	}{
		{Name: "jpg lowercase", Filename: "cat.jpg", Want: true},
		{Name: "jpeg lowercase", Filename: "cat.jpeg", Want: true},
		{Name: "jpg uppercase", Filename: "CAT.JPG", Want: true},
		{Name: "jpeg mixed case", Filename: "cat.JpEg", Want: true},
		{Name: "png rejected", Filename: "cat.png", Want: false},
		{Name: "gif rejected", Filename: "cat.gif", Want: false},
		{Name: "pdf rejected", Filename: "report.pdf", Want: false},
		{Name: "no extension", Filename: "cat", Want: false},
		{Name: "empty", Filename: "", Want: false},
		{Name: "only last extension counts", Filename: "cat.jpg.exe", Want: false},
		{Name: "double extension ending jpg", Filename: "cat.exe.jpg", Want: true},
		{Name: "dotfile", Filename: ".jpg", Want: true},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			got := picshed.AllowedExtension(tc.Filename)
			if got != tc.Want {
				t.Errorf("expected AllowedExtension(%q) = %v, got %v", tc.Filename, tc.Want, got)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tt := []struct {
		Name string
		In   string
		Want string
	}{
		{Name: "plain name unchanged", In: "cat.jpg", Want: "cat.jpg"},
		{Name: "directory components stripped", In: "a/b/cat.jpg", Want: "cat.jpg"},
		{Name: "windows separators stripped", In: `C:\photos\cat.jpg`, Want: "cat.jpg"},
		{Name: "traversal reduced to basename", In: "../../etc/passwd", Want: "passwd"},
		{Name: "spaces become underscores", In: "my cat.jpg", Want: "my_cat.jpg"},
		{Name: "special characters dropped", In: "ca$t!*.jpg", Want: "cat.jpg"},
		{Name: "leading dots trimmed", In: "...cat.jpg", Want: "cat.jpg"},
		{Name: "trailing punctuation trimmed", In: "cat.jpg__", Want: "cat.jpg"},
		{Name: "single dot yields empty", In: ".", Want: ""},
		{Name: "double dot yields empty", In: "..", Want: ""},
		{Name: "only specials yields empty", In: "$$$", Want: ""},
		{Name: "empty yields empty", In: "", Want: ""},
		{Name: "unicode letters dropped", In: "котcat.jpg", Want: "cat.jpg"},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			got := picshed.SanitizeFilename(tc.In)
			if got != tc.Want {
				t.Errorf("expected SanitizeFilename(%q) = %q, got %q", tc.In, tc.Want, got)
			}
		})
	}
}

func TestIsValidOwnerID(t *testing.T) {
	invalidUTF8 := string([]byte{'a', 0xff, 'b'})

	tt := []struct {
		Name string
		ID   string
		Want bool
	}{
		{Name: "empty", ID: "", Want: false},
		{Name: "simple valid", ID: "alice", Want: true},
		{Name: "email-like valid", ID: "alice@example.com", Want: true},
		{Name: "uuid-like valid", ID: "7b3f0c2e-1a2b-4c3d-8e9f-0a1b2c3d4e5f", Want: true},
		{Name: "contains slash", ID: "a/b", Want: false},
		{Name: "contains backslash", ID: `a\b`, Want: false},
		{Name: "contains double dots", ID: "a..b", Want: false},
		{Name: "contains space", ID: "a b", Want: false},
		{Name: "contains tab", ID: "a\tb", Want: false},
		{Name: "contains NUL", ID: "a\x00b", Want: false},
		{Name: "contains DEL", ID: "a\x7fb", Want: false},
		{Name: "contains hash", ID: "a#b", Want: false},
		{Name: "contains question mark", ID: "a?b", Want: false},
		{Name: "contains tilde", ID: "~alice", Want: false},
		{Name: "invalid utf8", ID: invalidUTF8, Want: false},
		{Name: "unicode valid", ID: "алиса", Want: true},
	}

	if utf8.ValidString(invalidUTF8) {
		t.Fatalf("test setup error: invalidUTF8 is unexpectedly valid")
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			got := picshed.IsValidOwnerID(tc.ID)
			if got != tc.Want {
				t.Errorf("expected IsValidOwnerID(%q) = %v, got %v", tc.ID, tc.Want, got)
			}
		})
	}
}

func TestStoragePathFor(t *testing.T) {
	got := picshed.StoragePathFor("alice", "cat.jpg")
	if got != "alice/cat.jpg" {
		t.Errorf("expected alice/cat.jpg, got %q", got)
	}
}

func TestFormatSize(t *testing.T) {
	tt := []struct {
		Name  string
		Bytes int64
		Want  string
	}{
		{Name: "half megabyte", Bytes: 500000, Want: "488 KB"},
		{Name: "one kilobyte", Bytes: 1024, Want: "1 KB"},
		{Name: "zero", Bytes: 0, Want: "0 KB"},
		{Name: "sub kilobyte rounds", Bytes: 600, Want: "1 KB"},
		{Name: "sixteen megabytes", Bytes: 16_000_000, Want: "15625 KB"},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			got := picshed.FormatSize(tc.Bytes)
			if got != tc.Want {
				t.Errorf("expected FormatSize(%d) = %q, got %q", tc.Bytes, tc.Want, got)
			}
		})
	}
}

func TestFormatUploadTime(t *testing.T) {
	t.Run("zero time is unknown", func(t *testing.T) {
		if got := picshed.FormatUploadTime(time.Time{}); got != "unknown" {
			t.Errorf("expected unknown, got %q", got)
		}
	})

	t.Run("formats with 12-hour clock", func(t *testing.T) {
		ts := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
		if got := picshed.FormatUploadTime(ts); got != "2026-03-14 03:09:26 PM" {
			t.Errorf("expected 2026-03-14 03:09:26 PM, got %q", got)
		}
	})

	t.Run("morning keeps AM", func(t *testing.T) {
		ts := time.Date(2026, 3, 14, 9, 5, 0, 0, time.UTC)
		if got := picshed.FormatUploadTime(ts); got != "2026-03-14 09:05:00 AM" {
			t.Errorf("expected 2026-03-14 09:05:00 AM, got %q", got)
		}
	})
}
