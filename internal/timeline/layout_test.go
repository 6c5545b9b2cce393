package timeline

import (
	"testing"
	"time"
)

func jst(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("failed to load JST location: %v", err)
	}
	return time.Date(2026, 3, 2, hour, minute, 0, 0, loc)
}

func TestLayout_PlacesBlockWithinRange(t *testing.T) {
	t.Parallel()

	block, ok := Layout(Range{StartHour: 6, EndHour: 22}, 60, jst(t, 9, 0), jst(t, 10, 30))
	if !ok {
		t.Fatal("expected a visible block")
	}
	if block.OffsetPx != 180 {
		t.Fatalf("expected offset 180px, got %v", block.OffsetPx)
	}
	if block.HeightPx != 90 {
		t.Fatalf("expected height 90px, got %v", block.HeightPx)
	}
}

func TestLayout_ClipsToRangeBounds(t *testing.T) {
	t.Parallel()

	// Starts before the visible range; only the 06:00-07:00 portion renders.
	block, ok := Layout(Range{StartHour: 6, EndHour: 22}, 60, jst(t, 5, 0), jst(t, 7, 0))
	if !ok {
		t.Fatal("expected a visible block")
	}
	if block.OffsetPx != 0 || block.HeightPx != 60 {
		t.Fatalf("expected clipped block at 0px/60px, got %+v", block)
	}

	// Ends after the visible range; clipped to the bottom.
	block, ok = Layout(Range{StartHour: 6, EndHour: 22}, 60, jst(t, 21, 30), jst(t, 23, 0))
	if !ok {
		t.Fatal("expected a visible block")
	}
	if block.OffsetPx != 930 || block.HeightPx != 30 {
		t.Fatalf("expected clipped block at 930px/30px, got %+v", block)
	}
}

func TestLayout_OmitsBlocksOutsideRange(t *testing.T) {
	t.Parallel()

	if _, ok := Layout(Range{StartHour: 6, EndHour: 22}, 60, jst(t, 4, 0), jst(t, 5, 30)); ok {
		t.Fatal("expected a block fully before the range to be omitted")
	}
	if _, ok := Layout(Range{StartHour: 6, EndHour: 22}, 60, jst(t, 22, 0), jst(t, 23, 0)); ok {
		t.Fatal("expected a block fully after the range to be omitted")
	}
}

func TestLayout_IntervalPastMidnightClipsToBottom(t *testing.T) {
	t.Parallel()

	start := jst(t, 21, 0)
	end := start.Add(4 * time.Hour)
	block, ok := Layout(Range{StartHour: 6, EndHour: 22}, 60, start, end)
	if !ok {
		t.Fatal("expected a visible block")
	}
	// 21:00 through the 22:00 bottom bound, not a wrap to the morning.
	if block.OffsetPx != 900 || block.HeightPx != 60 {
		t.Fatalf("expected block at 900px/60px, got %+v", block)
	}
}

func TestLayout_RejectsInvalidInputs(t *testing.T) {
	t.Parallel()

	if _, ok := Layout(Range{StartHour: 10, EndHour: 9}, 60, jst(t, 9, 0), jst(t, 10, 0)); ok {
		t.Fatal("expected an inverted range to be rejected")
	}
	if _, ok := Layout(Range{StartHour: 6, EndHour: 22}, 0, jst(t, 9, 0), jst(t, 10, 0)); ok {
		t.Fatal("expected a non-positive scale to be rejected")
	}
}

func TestRangeValid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		r    Range
		want bool
	}{
		{"business hours", Range{StartHour: 6, EndHour: 22}, true},
		{"full day", Range{StartHour: 0, EndHour: 24}, true},
		{"inverted", Range{StartHour: 22, EndHour: 6}, false},
		{"empty", Range{StartHour: 9, EndHour: 9}, false},
		{"negative start", Range{StartHour: -1, EndHour: 10}, false},
		{"end past midnight", Range{StartHour: 6, EndHour: 25}, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.r.Valid(); got != tc.want {
				t.Fatalf("Valid(%+v) = %v, want %v", tc.r, got, tc.want)
			}
		})
	}
}
