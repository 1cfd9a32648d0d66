// Package validate holds the pure input checks shared by the lifecycle managers.
// None of the functions touch storage or the clock; callers pass "now" explicitly.
package validate

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MinPasswordLength is the shortest accepted password, in characters.
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest password bcrypt will hash.
	MaxPasswordBytes = 72
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

var (
	// ErrInvalidDate is returned when a date cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")
	// ErrDateInPast is returned when a date lies before now.
	ErrDateInPast = errors.New("date is in the past")
)

// Email reports whether s looks like an email address.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Password reports whether s is long enough to be accepted as a password.
func Password(s string) bool {
	return utf8.RuneCountInString(s) >= MinPasswordLength
}

// PasswordTooLong reports whether s exceeds what bcrypt can hash.
func PasswordTooLong(s string) bool {
	return len(s) > MaxPasswordBytes
}

// MinLength reports whether s has at least n characters once surrounding
// whitespace is removed.
func MinLength(s string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= n
}

// Present reports whether every value is non-blank.
func Present(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate parses an RFC 3339 timestamp, a datetime-local value without zone, or a bare
// YYYY-MM-DD date. Values without a zone are read as UTC. The second result reports
// whether the value carried only a date.
func ParseDate(raw string) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, layout == "2006-01-02", nil
		}
	}
	return time.Time{}, false, ErrInvalidDate
}

// ParseFutureDate parses raw and rejects values before now. A bare date is compared
// with the start of the current UTC day, so today's date is accepted.
func ParseFutureDate(raw string, now time.Time) (time.Time, error) {
	t, dateOnly, err := ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	limit := now
	if dateOnly {
		now = now.UTC()
		limit = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if t.Before(limit) {
		return time.Time{}, ErrDateInPast
	}
	return t, nil
}

// HTTPURL reports whether s is an absolute http or https URL.
func HTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// HexColor reports whether s is a CSS hex color such as #f59e0b or #fff.
func HexColor(s string) bool {
	return colorPattern.MatchString(s)
}
