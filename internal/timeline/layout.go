package timeline

import "time"

// DefaultPixelsPerHour is the vertical scale applied when callers do not
// request one.
const DefaultPixelsPerHour = 60.0

// Range is the fixed hour-of-day span rendered on a day timeline, e.g.
// 6 through 22 for a 06:00-22:00 view.
type Range struct {
	StartHour int
	EndHour   int
}

// Valid reports whether the range covers at least one hour of a single day.
func (r Range) Valid() bool {
	return r.StartHour >= 0 && r.EndHour <= 24 && r.StartHour < r.EndHour
}

// Block is the vertical placement of one reservation on the timeline.
type Block struct {
	OffsetPx float64
	HeightPx float64
}

// Layout computes the vertical offset and height for a reservation covering
// [start, end), clipped to the display range. Both instants are interpreted
// in their own locations; callers convert to the display timezone first.
// The returned ok is false when the clipped interval has no positive height,
// in which case the block must be omitted.
func Layout(r Range, pixelsPerHour float64, start, end time.Time) (Block, bool) {
	if !r.Valid() || pixelsPerHour <= 0 {
		return Block{}, false
	}

	// The end bound is derived from the duration so an interval running past
	// midnight clips to the bottom of the range instead of wrapping.
	rawFrom := hourOfDay(start)
	rawTo := rawFrom + end.Sub(start).Hours()

	from := clamp(rawFrom, float64(r.StartHour), float64(r.EndHour))
	to := clamp(rawTo, float64(r.StartHour), float64(r.EndHour))
	if to <= from {
		return Block{}, false
	}

	return Block{
		OffsetPx: (from - float64(r.StartHour)) * pixelsPerHour,
		HeightPx: (to - from) * pixelsPerHour,
	}, true
}

func hourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
