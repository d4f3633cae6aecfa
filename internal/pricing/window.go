package pricing

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// Window is a validity interval. A nil bound is open.
type Window struct {
	From  *time.Time
	Until *time.Time
}

// ParseWindow parses both bounds. A plain date covers the whole UTC day: a
// lower bound starts at midnight, an upper bound ends just before the next
// midnight. Bounds that do not parse are left open.
func ParseWindow(from, until string) Window {
	var w Window
	if t, ok := parseBound(from, false); ok {
		w.From = &t
	}
	if t, ok := parseBound(until, true); ok {
		w.Until = &t
	}
	return w
}

// Declared reports whether at least one bound is set.
func (w Window) Declared() bool {
	return w.From != nil || w.Until != nil
}

// Contains reports whether at falls inside the window, bounds included.
func (w Window) Contains(at time.Time) bool {
	if w.From != nil && at.Before(*w.From) {
		return false
	}
	if w.Until != nil && at.After(*w.Until) {
		return false
	}
	return true
}

func parseBound(raw string, upper bool) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(dateLayout, raw, time.UTC); err == nil {
		if upper {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return t, true
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
