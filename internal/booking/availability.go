package booking

import "time"

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Valid reports whether the window has positive duration. Callers must
// reject invalid windows before querying; an inverted or empty window is a
// precondition failure, not an availability outcome.
func (w Window) Valid() bool {
	return w.Start.Before(w.End)
}

// Reservation carries the slice of reservation state the engine inspects.
type Reservation struct {
	ID     string
	RoomID string
	Start  time.Time
	End    time.Time
}

// Room is a candidate entry in an availability query.
type Room struct {
	ID       string
	Capacity int
}

// Verdict reports whether a single room is free for the queried window.
// Conflict is nil when the room is available.
type Verdict struct {
	RoomID   string
	Conflict *Reservation
}

// Available reports whether no conflicting reservation was found.
func (v Verdict) Available() bool {
	return v.Conflict == nil
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// CheckAvailability evaluates every candidate room against the reservation
// snapshot. Rooms below minCapacity are excluded entirely when minCapacity is
// positive. The first overlapping reservation in snapshot order is reported
// as the conflict; rooms with no reservations are trivially available. An
// empty candidate list yields an empty result set.
func CheckAvailability(window Window, rooms []Room, minCapacity int, reservations []Reservation) []Verdict {
	verdicts := make([]Verdict, 0, len(rooms))
	for _, room := range rooms {
		if minCapacity > 0 && room.Capacity < minCapacity {
			continue
		}
		verdict := Verdict{RoomID: room.ID}
		for i := range reservations {
			if reservations[i].RoomID != room.ID {
				continue
			}
			if Overlaps(window.Start, window.End, reservations[i].Start, reservations[i].End) {
				conflict := reservations[i]
				verdict.Conflict = &conflict
				break
			}
		}
		verdicts = append(verdicts, verdict)
	}
	return verdicts
}
