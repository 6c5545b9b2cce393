package booking

import (
	"testing"
	"time"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		aStart time.Time
		aEnd   time.Time
		bStart time.Time
		bEnd   time.Time
		want   bool
	}{
		{"identical intervals", at(9, 0), at(10, 0), at(9, 0), at(10, 0), true},
		{"partial overlap at the front", at(9, 0), at(10, 0), at(9, 30), at(10, 30), true},
		{"partial overlap at the back", at(9, 30), at(10, 30), at(9, 0), at(10, 0), true},
		{"containment", at(9, 0), at(12, 0), at(10, 0), at(11, 0), true},
		{"adjacent, first ends where second starts", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"adjacent, second ends where first starts", at(10, 0), at(11, 0), at(9, 0), at(10, 0), false},
		{"disjoint", at(9, 0), at(10, 0), at(13, 0), at(14, 0), false},
		{"one minute of shared time", at(9, 0), at(10, 1), at(10, 0), at(11, 0), true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Fatalf("Overlaps(%v, %v, %v, %v) = %v, want %v", tc.aStart, tc.aEnd, tc.bStart, tc.bEnd, got, tc.want)
			}
		})
	}
}

func TestWindowValid(t *testing.T) {
	t.Parallel()

	if !(Window{Start: at(9, 0), End: at(10, 0)}).Valid() {
		t.Fatal("expected a forward window to be valid")
	}
	if (Window{Start: at(10, 0), End: at(9, 0)}).Valid() {
		t.Fatal("expected an inverted window to be invalid")
	}
	if (Window{Start: at(9, 0), End: at(9, 0)}).Valid() {
		t.Fatal("expected an empty window to be invalid")
	}
}

func TestCheckAvailability_ReportsFirstConflict(t *testing.T) {
	t.Parallel()

	rooms := []Room{
		{ID: "room-a", Capacity: 4},
		{ID: "room-b", Capacity: 10},
	}
	reservations := []Reservation{
		{ID: "r1", RoomID: "room-a", Start: at(9, 30), End: at(10, 30)},
		{ID: "r2", RoomID: "room-a", Start: at(9, 45), End: at(10, 15)},
		{ID: "r3", RoomID: "room-b", Start: at(12, 0), End: at(13, 0)},
	}

	verdicts := CheckAvailability(Window{Start: at(9, 0), End: at(10, 0)}, rooms, 0, reservations)
	if len(verdicts) != 2 {
		t.Fatalf("expected 2 verdicts, got %d", len(verdicts))
	}

	if verdicts[0].RoomID != "room-a" || verdicts[0].Available() {
		t.Fatalf("expected room-a to be busy, got %+v", verdicts[0])
	}
	if verdicts[0].Conflict.ID != "r1" {
		t.Fatalf("expected the first overlapping reservation to be reported, got %q", verdicts[0].Conflict.ID)
	}

	if verdicts[1].RoomID != "room-b" || !verdicts[1].Available() {
		t.Fatalf("expected room-b to be free, got %+v", verdicts[1])
	}
}

func TestCheckAvailability_AdjacentReservationDoesNotConflict(t *testing.T) {
	t.Parallel()

	rooms := []Room{{ID: "room-a", Capacity: 4}}
	reservations := []Reservation{
		{ID: "r1", RoomID: "room-a", Start: at(10, 0), End: at(11, 0)},
	}

	verdicts := CheckAvailability(Window{Start: at(9, 0), End: at(10, 0)}, rooms, 0, reservations)
	if len(verdicts) != 1 || !verdicts[0].Available() {
		t.Fatalf("expected a back-to-back reservation to leave the room free, got %+v", verdicts)
	}
}

func TestCheckAvailability_FiltersByCapacity(t *testing.T) {
	t.Parallel()

	rooms := []Room{
		{ID: "small", Capacity: 2},
		{ID: "large", Capacity: 12},
	}

	verdicts := CheckAvailability(Window{Start: at(9, 0), End: at(10, 0)}, rooms, 6, nil)
	if len(verdicts) != 1 {
		t.Fatalf("expected only the large room, got %d verdicts", len(verdicts))
	}
	if verdicts[0].RoomID != "large" {
		t.Fatalf("expected large room, got %q", verdicts[0].RoomID)
	}
}

func TestCheckAvailability_EmptyCandidates(t *testing.T) {
	t.Parallel()

	verdicts := CheckAvailability(Window{Start: base, End: base.Add(time.Hour)}, nil, 0, nil)
	if len(verdicts) != 0 {
		t.Fatalf("expected no verdicts, got %d", len(verdicts))
	}
}
