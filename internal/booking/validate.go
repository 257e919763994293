package booking

import (
	"errors"
	"time"
	"unicode/utf8"
)

// Validation failures are rejected before any store access and map to
// HTTP 400 at the handler layer.
var (
	ErrInvalidRange = errors.New("start time must be before end time")
	ErrStartInPast  = errors.New("start time is in the past")
	ErrTooLong      = errors.New("booking exceeds the maximum duration")
	ErrTitleTooLong = errors.New("title exceeds 255 characters")
	ErrEmptyTitle   = errors.New("title is required")
)

// MaxTitleLen bounds the booking title, matching the column width.
const MaxTitleLen = 255

// ValidateRange checks the interval invariants for a new or edited
// booking: start < end, start not in the past at the time of the call,
// and duration within the policy maximum.  One maximum applies to every
// caller; there is no separate slot-flow limit.
func ValidateRange(start, end, now time.Time, maxDuration time.Duration) error {
	if !start.Before(end) {
		return ErrInvalidRange
	}
	if start.Before(now) {
		return ErrStartInPast
	}
	if maxDuration > 0 && end.Sub(start) > maxDuration {
		return ErrTooLong
	}
	return nil
}

// ValidateTitle checks the booking title constraints.
func ValidateTitle(title string) error {
	if title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return ErrTitleTooLong
	}
	return nil
}
