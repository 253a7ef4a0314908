package posting

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	dateLayout,
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate normalizes the date formats seen across ATS payloads to
// YYYY-MM-DD. Unparseable input yields an empty string.
func ParseDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if strings.HasSuffix(value, "Z") && !strings.Contains(value, "T") {
		value = strings.TrimSuffix(value, "Z")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(dateLayout)
		}
	}
	return ""
}

// AgeDays returns the number of whole days between the posting date and now
// in UTC. ok is false when the posting has no usable date.
func AgeDays(postingDate string, now time.Time) (days int, ok bool) {
	normalized := ParseDate(postingDate)
	if normalized == "" {
		return 0, false
	}
	posted, err := time.Parse(dateLayout, normalized)
	if err != nil {
		return 0, false
	}

	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(today.Sub(posted).Hours() / 24), true
}
