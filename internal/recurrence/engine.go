package recurrence

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"
)

// DefaultMaxOccurrences caps series expansion when the caller supplies no
// limit. It matches the largest repetition preset offered to users.
const DefaultMaxOccurrences = 16

// weekCadence is the fixed spacing between occurrences.
const weekCadence = 7 * 24 * time.Hour

// Policy bounds a weekly series: exactly one of Count or Until must be set.
// Count fixes the number of occurrences; Until admits occurrences whose
// start instant is not after it.
type Policy struct {
	Count int
	Until *time.Time
}

// Occurrence is one generated instance of a weekly series. Index is
// 0-based; user-facing reporting adds one.
type Occurrence struct {
	Index int
	Start time.Time
	End   time.Time
}

var (
	// ErrInvalidDuration indicates the base window duration is not positive.
	ErrInvalidDuration = errors.New("recurrence: base window must end after it starts")
	// ErrDurationTooLong indicates the base window is at least as long as the
	// weekly cadence and would run into its own next occurrence.
	ErrDurationTooLong = errors.New("recurrence: base window must be shorter than one week")
	// ErrPolicyUnspecified indicates neither a count nor a stop date was given.
	ErrPolicyUnspecified = errors.New("recurrence: repetition policy requires a count or a stop date")
	// ErrPolicyAmbiguous indicates both a count and a stop date were given.
	ErrPolicyAmbiguous = errors.New("recurrence: count and stop date are mutually exclusive")
	// ErrUntilBeforeStart indicates the stop date precedes the first occurrence.
	ErrUntilBeforeStart = errors.New("recurrence: stop date is before the first occurrence")
	// ErrTooManyOccurrences indicates the expansion exceeds the configured cap.
	ErrTooManyOccurrences = errors.New("recurrence: series exceeds the occurrence limit")
)

// Engine expands a base window into weekly occurrence windows.
type Engine struct {
	maxOccurrences int
}

// NewEngine constructs an Engine limited to maxOccurrences per series.
// A non-positive limit falls back to DefaultMaxOccurrences.
func NewEngine(maxOccurrences int) *Engine {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	return &Engine{maxOccurrences: maxOccurrences}
}

// MaxOccurrences returns the per-series expansion limit.
func (e *Engine) MaxOccurrences() int {
	if e == nil {
		return DefaultMaxOccurrences
	}
	return e.maxOccurrences
}

// Expand generates the weekly occurrence windows for the base window
// [baseStart, baseEnd) under the given policy. Occurrence k covers
// [baseStart + 7k days, baseEnd + 7k days); the base window itself is always
// occurrence zero. The expansion is rejected when it would exceed the
// engine's occurrence limit.
func (e *Engine) Expand(baseStart, baseEnd time.Time, policy Policy) ([]Occurrence, error) {
	if e == nil {
		return nil, errors.New("recurrence: engine is nil")
	}
	if !baseEnd.After(baseStart) {
		return nil, ErrInvalidDuration
	}
	if baseEnd.Sub(baseStart) >= weekCadence {
		return nil, ErrDurationTooLong
	}

	hasCount := policy.Count > 0
	hasUntil := policy.Until != nil && !policy.Until.IsZero()
	switch {
	case !hasCount && !hasUntil:
		return nil, ErrPolicyUnspecified
	case hasCount && hasUntil:
		return nil, ErrPolicyAmbiguous
	}

	if hasCount && policy.Count > e.maxOccurrences {
		return nil, ErrTooManyOccurrences
	}
	if hasUntil && policy.Until.Before(baseStart) {
		return nil, ErrUntilBeforeStart
	}

	option := rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: baseStart,
	}
	if hasCount {
		option.Count = policy.Count
	} else {
		option.Until = *policy.Until
	}

	rule, err := rrule.NewRRule(option)
	if err != nil {
		return nil, err
	}

	starts := rule.All()
	if len(starts) > e.maxOccurrences {
		return nil, ErrTooManyOccurrences
	}

	duration := baseEnd.Sub(baseStart)
	occurrences := make([]Occurrence, 0, len(starts))
	for k, start := range starts {
		occurrences = append(occurrences, Occurrence{
			Index: k,
			Start: start,
			End:   start.Add(duration),
		})
	}
	return occurrences, nil
}
