package utils

import (
	"net/url"
	"strings"
	"time"
)

func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

// Epoch returns t as epoch seconds, 0 for the zero time.
func Epoch(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// FromEpoch converts epoch seconds to a UTC time.
func FromEpoch(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// ComposeURL joins a base URL and path and encodes the query values. The base
// may already carry a path segment; double slashes are collapsed.
func ComposeURL(base, path string, values url.Values) string {
	u := strings.TrimRight(base, "/")
	if path != "" {
		u = u + "/" + strings.TrimLeft(path, "/")
	}
	if len(values) > 0 {
		u = u + "?" + values.Encode()
	}
	return u
}

// HoursToSeconds converts whole hours to seconds.
func HoursToSeconds(hours int) int64 {
	return int64(hours) * 3600
}

// MinutesToSeconds converts whole minutes to seconds.
func MinutesToSeconds(minutes int) int64 {
	return int64(minutes) * 60
}

// ParseRubyTime parses the "Mon Jan 02 15:04:05 -0700 2006" timestamp format
// used by older social APIs.
func ParseRubyTime(s string) (time.Time, error) {
	return time.Parse(time.RubyDate, s)
}

// Truncate shortens s to max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
