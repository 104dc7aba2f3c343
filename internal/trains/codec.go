package trains

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedField marks an upstream field that could not be decoded.
// Callers drop the offending record and keep going.
var ErrMalformedField = errors.New("malformed upstream field")

// ErrEncodeUnsupported is returned by encode paths that exist only to
// satisfy an interface: this client never writes upstream fields back.
var ErrEncodeUnsupported = errors.New("encoding not supported")

// ParseDuration decodes the upstream "HH:MM" elapsed-time format into
// minutes. The separator is skipped by position, not parsed: the hour
// is chars 0-1 and the minute chars 3-4, whatever sits between them.
func ParseDuration(raw string) (int, error) {
	if len(raw) < 5 {
		return 0, fmt.Errorf("duration %q too short: %w", raw, ErrMalformedField)
	}
	hours, err := atoi2(raw[0:2])
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", raw, ErrMalformedField)
	}
	minutes, err := atoi2(raw[3:5])
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", raw, ErrMalformedField)
	}
	return minutes + hours*60, nil
}

func atoi2(s string) (int, error) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, errors.New("not a two digit number")
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), nil
}

// PrettifyCategory maps the raw upstream vehicle category to the short
// label shown to users. Unknown categories pass through unchanged; the
// empty category is a walking leg.
func PrettifyCategory(category string) string {
	switch category {
	case "SFM":
		return "TI MET"
	case "Autobus":
		return "TI BUS"
	case "Regionale":
		return "TI REG"
	case "":
		return "Tratto A Piedi -"
	default:
		return category
	}
}

// TrainName builds the display name of a leg from its raw category and
// identifier. Walking legs have no identifier, so the joined name is
// re-trimmed.
func TrainName(category, identifier string) string {
	return strings.TrimSpace(PrettifyCategory(category) + " " + identifier)
}

// CoerceServiceHours clamps the hour of t into the 06:00-22:00 range.
// The upstream misbehaves outside normal service hours, so requests
// are built with the clamped time; result filtering must keep using
// the true requested time.
func CoerceServiceHours(t time.Time) time.Time {
	switch {
	case t.Hour() < 6:
		return time.Date(t.Year(), t.Month(), t.Day(), 6, t.Minute(), 0, 0, t.Location())
	case t.Hour() > 22:
		return time.Date(t.Year(), t.Month(), t.Day(), 22, t.Minute(), 0, 0, t.Location())
	default:
		return t
	}
}
