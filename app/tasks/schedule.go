package tasks

import (
	"fmt"
	"time"
)

var runAtLayouts = []string{"15:04:05", "15:04"}

// NextRunAt resolves a HH:MM[:SS] time of day to its next occurrence after
// now, in now's location.
func NextRunAt(runAt string, now time.Time) (time.Time, error) {
	for _, layout := range runAtLayouts {
		clock, err := time.ParseInLocation(layout, runAt, now.Location())
		if err != nil {
			continue
		}

		next := time.Date(now.Year(), now.Month(), now.Day(),
			clock.Hour(), clock.Minute(), clock.Second(), 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next, nil
	}

	return time.Time{}, fmt.Errorf("invalid run_at %q, expected HH:MM or HH:MM:SS", runAt)
}
