package persistence

import "time"

// User represents an identity able to hold reservations. PasswordHash is
// empty for identities that only ever signed in through a login link.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room represents a bookable room catalog entry.
type Room struct {
	ID          string
	Name        string
	Capacity    int
	Location    *string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Reservation represents a claimed half-open interval [Start, End) on one
// room by one owner. Reservations are never updated in place.
type Reservation struct {
	ID        string
	RoomID    string
	OwnerID   string
	Start     time.Time
	End       time.Time
	Purpose   string
	CreatedAt time.Time
}

// ReservationDetail is a reservation joined with display attributes of its
// room and owner.
type ReservationDetail struct {
	Reservation
	RoomName   string
	OwnerEmail string
}

// AllowlistEntry marks an email as eligible for password sign-in. Email is
// stored normalized (trimmed, lowercase) and acts as the key.
type AllowlistEntry struct {
	Email     string
	Notes     *string
	CreatedAt time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// LoginToken is a single-use emailed sign-in token.
type LoginToken struct {
	ID         string
	Email      string
	Token      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	ConsumedAt *time.Time
}
