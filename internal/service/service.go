package service

import (
	"fmt"
	"strings"
	"time"

	"taskboard/internal/domain/errors"
	"taskboard/internal/notify"
)

// Clock is the source of "now" for OTP expiry and overdue checks.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Dispatcher hands a message to the background notification sink. It must not block.
type Dispatcher interface {
	Dispatch(msg notify.Message)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// parseDate accepts YYYY-MM-DD or RFC 3339 and returns the calendar date as UTC midnight.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return dateOf(t), nil
		}
	}
	return time.Time{}, errors.Validation(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", value))
}

func optionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := parseDate(value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
