package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// ReservationFilter narrows reservation queries. A nil bound leaves that
// side open; RoomID empty matches every room.
type ReservationFilter struct {
	RoomID      string
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

// ReservationRepository stores reservations. Inserts are checked: the
// implementation must reject a row whose interval overlaps a committed
// reservation for the same room with ErrOverlap, atomically with the write.
type ReservationRepository interface {
	// CreateReservations inserts the batch in a single transaction. Either
	// every row is committed or none are.
	CreateReservations(ctx context.Context, reservations []Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	// ListReservations returns reservations ordered by start time.
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	// ListReservationDetails returns reservations joined with room and owner
	// display attributes, ordered by start time.
	ListReservationDetails(ctx context.Context, filter ReservationFilter) ([]ReservationDetail, error)
	// ListConflicting returns committed reservations for the room whose
	// intervals overlap [start, end).
	ListConflicting(ctx context.Context, roomID string, start, end time.Time) ([]Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
}

// AllowlistRepository stores the email allow-list keyed by normalized email.
type AllowlistRepository interface {
	CreateEntry(ctx context.Context, entry AllowlistEntry) error
	GetEntry(ctx context.Context, email string) (AllowlistEntry, error)
	ListEntries(ctx context.Context) ([]AllowlistEntry, error)
	DeleteEntry(ctx context.Context, email string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// LoginTokenRepository stores single-use sign-in tokens.
type LoginTokenRepository interface {
	CreateLoginToken(ctx context.Context, token LoginToken) error
	// ConsumeLoginToken marks an unconsumed, unexpired token as consumed and
	// returns it. Expired or already consumed tokens yield ErrNotFound.
	ConsumeLoginToken(ctx context.Context, token string, consumedAt time.Time) (LoginToken, error)
	DeleteExpiredLoginTokens(ctx context.Context, reference time.Time) error
}
