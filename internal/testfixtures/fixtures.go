package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

var (
	userCounter        uint64
	roomCounter        uint64
	reservationCounter uint64
)

var referenceTime = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// UserOption configures a generated user fixture.
type UserOption func(*persistence.User)

// NewUser returns a deterministic user record with optional overrides.
func NewUser(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	user := persistence.User{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("User %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		IsAdmin:      false,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) { u.ID = id }
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(u *persistence.User) { u.Email = email }
}

// WithUserAdmin sets the admin flag.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(u *persistence.User) { u.IsAdmin = isAdmin }
}

// RoomOption configures a generated room fixture.
type RoomOption func(*persistence.Room)

// NewRoom returns a deterministic room record with optional overrides.
func NewRoom(opts ...RoomOption) persistence.Room {
	idx := atomic.AddUint64(&roomCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	room := persistence.Room{
		ID:        fmt.Sprintf("room-%03d", idx),
		Name:      fmt.Sprintf("Room %03d", idx),
		Capacity:  8,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&room)
	}
	return room
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(r *persistence.Room) { r.ID = id }
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(r *persistence.Room) { r.Capacity = capacity }
}

// ReservationOption configures a generated reservation fixture.
type ReservationOption func(*persistence.Reservation)

// NewReservation returns a deterministic one hour reservation with optional
// overrides. Each fixture occupies its own hour so defaults never collide.
func NewReservation(opts ...ReservationOption) persistence.Reservation {
	idx := atomic.AddUint64(&reservationCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	reservation := persistence.Reservation{
		ID:        fmt.Sprintf("reservation-%03d", idx),
		RoomID:    "room-001",
		OwnerID:   "user-001",
		Start:     start,
		End:       start.Add(time.Hour),
		Purpose:   fmt.Sprintf("Meeting %03d", idx),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&reservation)
	}
	return reservation
}

// WithReservationRoom overrides the room the reservation occupies.
func WithReservationRoom(roomID string) ReservationOption {
	return func(r *persistence.Reservation) { r.RoomID = roomID }
}

// WithReservationOwner overrides the owning user.
func WithReservationOwner(ownerID string) ReservationOption {
	return func(r *persistence.Reservation) { r.OwnerID = ownerID }
}

// WithReservationInterval overrides the occupied interval.
func WithReservationInterval(start, end time.Time) ReservationOption {
	return func(r *persistence.Reservation) {
		r.Start = start
		r.End = end
	}
}
