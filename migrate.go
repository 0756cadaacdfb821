package picshed

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// legacyTimeLayouts are the timestamp formats observed in records imported
// from earlier deployments, tried in order. The serving path never consults
// these; it reads the canonical layout only.
var legacyTimeLayouts = []string{
	"2006-01-02 03:04:05 PM",
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC1123,
	"2006-01-02",
}

// ParseLegacyTime parses a legacy timestamp by trying each known layout.
// Returns ErrDateParse when none match. The result is normalized to UTC.
func ParseLegacyTime(s string) (time.Time, error) {
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse %q: %w", s, ErrDateParse)
}

// ImportLegacyDates rewrites every record whose stored created_at is not in
// the canonical layout, parsing the raw value with the legacy formats and
// persisting it canonically. Unparseable rows are logged and skipped; if any
// remain, the count is reported alongside ErrDateParse so the operator knows
// the migration is incomplete.
//
// This is a one-shot migration utility, deliberately kept off the hot read
// path: listings tolerate legacy rows by showing an unknown date.
func ImportLegacyDates(ctx context.Context, repo ImageRepo) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("import dates: %w", err)
	}

	records, err := repo.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("import dates: %w", err)
	}

	migrated := 0
	failed := 0

	for _, rec := range records {
		if rec.CreatedAtRaw == "" {
			continue
		}

		t, parseErr := ParseLegacyTime(rec.CreatedAtRaw)
		if parseErr != nil {
			slog.Warn("legacy date does not match any known format", "record", rec.ID, "created_at", rec.CreatedAtRaw)
			failed++
			continue
		}

		if updateErr := repo.UpdateCreatedAt(ctx, rec.ID, t); updateErr != nil {
			return migrated, fmt.Errorf("import dates '%s': %w", rec.ID, updateErr)
		}

		migrated++
	}

	if failed > 0 {
		return migrated, fmt.Errorf("import dates: %d records unparseable: %w", failed, ErrDateParse)
	}

	return migrated, nil
}
