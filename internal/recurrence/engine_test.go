package recurrence

import (
	"errors"
	"testing"
	"time"
)

var baseStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestEngine_Expand_CountYieldsWeeklyWindows(t *testing.T) {
	t.Parallel()

	engine := NewEngine(16)
	occurrences, err := engine.Expand(baseStart, baseStart.Add(90*time.Minute), Policy{Count: 4})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(occurrences) != 4 {
		t.Fatalf("expected 4 occurrences, got %d", len(occurrences))
	}

	for k, occ := range occurrences {
		wantStart := baseStart.AddDate(0, 0, 7*k)
		if occ.Index != k {
			t.Fatalf("occurrence %d has index %d", k, occ.Index)
		}
		if !occ.Start.Equal(wantStart) {
			t.Fatalf("occurrence %d starts at %v, want %v", k, occ.Start, wantStart)
		}
		if !occ.End.Equal(wantStart.Add(90 * time.Minute)) {
			t.Fatalf("occurrence %d ends at %v, want %v", k, occ.End, wantStart.Add(90*time.Minute))
		}
	}
}

func TestEngine_Expand_UntilIncludesBoundaryStart(t *testing.T) {
	t.Parallel()

	engine := NewEngine(16)
	until := baseStart.AddDate(0, 0, 14)
	occurrences, err := engine.Expand(baseStart, baseStart.Add(time.Hour), Policy{Until: &until})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	// Week 0, 1 and 2: the occurrence starting exactly at the stop date is
	// admitted.
	if len(occurrences) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occurrences))
	}
	if !occurrences[2].Start.Equal(until) {
		t.Fatalf("expected final occurrence to start at the stop date, got %v", occurrences[2].Start)
	}
}

func TestEngine_Expand_UntilJustBeforeSecondWeek(t *testing.T) {
	t.Parallel()

	engine := NewEngine(16)
	until := baseStart.AddDate(0, 0, 7).Add(-time.Minute)
	occurrences, err := engine.Expand(baseStart, baseStart.Add(time.Hour), Policy{Until: &until})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(occurrences) != 1 {
		t.Fatalf("expected only the base occurrence, got %d", len(occurrences))
	}
}

func TestEngine_Expand_PolicyValidation(t *testing.T) {
	t.Parallel()

	engine := NewEngine(16)
	until := baseStart.AddDate(0, 0, 7)
	early := baseStart.Add(-time.Hour)

	cases := []struct {
		name   string
		start  time.Time
		end    time.Time
		policy Policy
		want   error
	}{
		{"no bound", baseStart, baseStart.Add(time.Hour), Policy{}, ErrPolicyUnspecified},
		{"both bounds", baseStart, baseStart.Add(time.Hour), Policy{Count: 3, Until: &until}, ErrPolicyAmbiguous},
		{"stop date before start", baseStart, baseStart.Add(time.Hour), Policy{Until: &early}, ErrUntilBeforeStart},
		{"count above limit", baseStart, baseStart.Add(time.Hour), Policy{Count: 17}, ErrTooManyOccurrences},
		{"inverted base window", baseStart, baseStart.Add(-time.Hour), Policy{Count: 2}, ErrInvalidDuration},
		{"empty base window", baseStart, baseStart, Policy{Count: 2}, ErrInvalidDuration},
		{"window spanning a full week", baseStart, baseStart.AddDate(0, 0, 7), Policy{Count: 2}, ErrDurationTooLong},
		{"window beyond a week", baseStart, baseStart.AddDate(0, 0, 8), Policy{Count: 2}, ErrDurationTooLong},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := engine.Expand(tc.start, tc.end, tc.policy)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEngine_Expand_UntilBeyondLimit(t *testing.T) {
	t.Parallel()

	engine := NewEngine(4)
	until := baseStart.AddDate(0, 0, 7*10)
	_, err := engine.Expand(baseStart, baseStart.Add(time.Hour), Policy{Until: &until})
	if !errors.Is(err, ErrTooManyOccurrences) {
		t.Fatalf("expected ErrTooManyOccurrences, got %v", err)
	}
}

func TestEngine_Expand_CountAtLimitSucceeds(t *testing.T) {
	t.Parallel()

	engine := NewEngine(16)
	occurrences, err := engine.Expand(baseStart, baseStart.Add(time.Hour), Policy{Count: 16})
	if err != nil {
		t.Fatalf("expected success at the limit, got %v", err)
	}
	if len(occurrences) != 16 {
		t.Fatalf("expected 16 occurrences, got %d", len(occurrences))
	}
}

func TestNewEngine_DefaultsNonPositiveLimit(t *testing.T) {
	t.Parallel()

	if got := NewEngine(0).MaxOccurrences(); got != DefaultMaxOccurrences {
		t.Fatalf("expected default limit %d, got %d", DefaultMaxOccurrences, got)
	}
	if got := NewEngine(-3).MaxOccurrences(); got != DefaultMaxOccurrences {
		t.Fatalf("expected default limit %d, got %d", DefaultMaxOccurrences, got)
	}
}
