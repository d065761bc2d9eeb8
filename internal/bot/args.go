package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

const argSeparator = "|"

var errMissingArgs = errors.New("missing arguments")

// splitArgs splits "a | b | c" into trimmed parts. Empty parts are kept so
// positions stay stable ("/move a |" has an empty destination).
func splitArgs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, argSeparator)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// argAt returns the i-th argument or "" when absent.
func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// parseDeadline accepts RFC 3339 and the layouts jinzhu/now understands
// ("2025-12-31 18:00", "2025-12-31", "18:00"), interpreted in loc.
func parseDeadline(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	cfg := &now.Config{
		WeekStartDay: time.Monday,
		TimeLocation: loc,
		TimeFormats:  now.TimeFormats,
	}
	t, err := cfg.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse deadline %q: %w", raw, err)
	}
	return &t, nil
}

// parseHours parses a non-negative whole number of hours.
func parseHours(raw string) (int, error) {
	hours, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("hours must be a whole number: %q", raw)
	}
	if hours < 0 {
		return 0, fmt.Errorf("hours must not be negative: %d", hours)
	}
	return hours, nil
}

// parseReminderOverride reads "off" (clear the override) or a number of hours.
func parseReminderOverride(raw string) (*int, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "off", "none", "clear", "inherit":
		return nil, nil
	case "":
		return nil, errMissingArgs
	}
	hours, err := parseHours(raw)
	if err != nil {
		return nil, err
	}
	return &hours, nil
}
