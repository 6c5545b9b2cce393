package application

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	Email   string
	IsAdmin bool
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name        string
	Capacity    int
	Location    *string
	Description *string
}

// Room represents a catalog entry for a bookable meeting room.
type Room struct {
	ID          string
	Name        string
	Capacity    int
	Location    *string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// ReservationInput captures caller provided reservation fields.
type ReservationInput struct {
	RoomID  string
	Start   time.Time
	End     time.Time
	Purpose string
}

// Reservation represents a persisted booking of a room for a half-open
// interval [Start, End).
type Reservation struct {
	ID        string
	RoomID    string
	OwnerID   string
	Start     time.Time
	End       time.Time
	Purpose   string
	CreatedAt time.Time
}

// ReservationDetail decorates a reservation with display attributes joined
// from the room catalog and user directory.
type ReservationDetail struct {
	Reservation
	RoomName   string
	OwnerEmail string
}

// CreateReservationParams wraps the data required to create a reservation.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// SeriesPolicy bounds a weekly recurrence. Exactly one of Count and Until
// must be set.
type SeriesPolicy struct {
	Count int
	Until *time.Time
}

// CreateSeriesParams wraps the data required to create a weekly series.
type CreateSeriesParams struct {
	Principal Principal
	Input     ReservationInput
	Policy    SeriesPolicy
}

// ListReservationsParams wraps the filters accepted when listing reservations.
type ListReservationsParams struct {
	Principal   Principal
	RoomID      string
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

// AvailabilityParams describes an availability query over the room catalog.
type AvailabilityParams struct {
	Start       time.Time
	End         time.Time
	MinCapacity int
}

// RoomAvailability reports the verdict for one room in an availability query.
type RoomAvailability struct {
	Room      Room
	Available bool
	Conflict  *Reservation
}

// TimelineParams describes a single-room, single-day timeline request.
type TimelineParams struct {
	RoomID string
	Day    time.Time
}

// TimelineEntry is a reservation positioned on the day grid. Reservations
// entirely outside the visible range are omitted from the timeline.
type TimelineEntry struct {
	Reservation ReservationDetail
	OffsetPx    float64
	HeightPx    float64
}

// Timeline is the rendered day view for one room.
type Timeline struct {
	Room          Room
	Day           time.Time
	StartHour     int
	EndHour       int
	PixelsPerHour float64
	Entries       []TimelineEntry
}

// AllowlistInput captures caller provided allow-list fields.
type AllowlistInput struct {
	Email string
	Notes *string
}

// AllowlistEntry represents an email permitted to sign in.
type AllowlistEntry struct {
	Email     string
	Notes     *string
	CreatedAt time.Time
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Email       string
	DisplayName string
	Password    string
	IsAdmin     bool
}

// User represents an account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate with a password.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}

// LoginToken represents a single-use emailed sign-in token.
type LoginToken struct {
	ID        string
	Email     string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
