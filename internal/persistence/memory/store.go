// Package memory provides an in-memory implementation of the persistence
// repositories. It mirrors the SQLite implementation's semantics, including
// checked reservation inserts, and backs the unit tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// Store holds every record set behind a single lock.
type Store struct {
	mu           sync.RWMutex
	users        map[string]persistence.User
	rooms        map[string]persistence.Room
	reservations map[string]persistence.Reservation
	allowlist    map[string]persistence.AllowlistEntry
	sessions     map[string]persistence.Session
	loginTokens  map[string]persistence.LoginToken
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		users:        make(map[string]persistence.User),
		rooms:        make(map[string]persistence.Room),
		reservations: make(map[string]persistence.Reservation),
		allowlist:    make(map[string]persistence.AllowlistEntry),
		sessions:     make(map[string]persistence.Session),
		loginTokens:  make(map[string]persistence.LoginToken),
	}
}

// --- UserRepository ---

func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" || user.Email == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.users[user.ID]; ok {
		return persistence.ErrDuplicate
	}
	lower := strings.ToLower(user.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == lower {
			return persistence.ErrDuplicate
		}
	}
	user.Email = lower
	s.users[user.ID] = user
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	lower := strings.ToLower(user.Email)
	for id, existing := range s.users {
		if id != user.ID && strings.ToLower(existing.Email) == lower {
			return persistence.ErrDuplicate
		}
	}
	user.Email = lower
	s.users[user.ID] = user
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(strings.TrimSpace(email))
	for _, user := range s.users {
		if strings.ToLower(user.Email) == lower {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return persistence.ErrNotFound
	}
	for _, reservation := range s.reservations {
		if reservation.OwnerID == id {
			return persistence.ErrForeignKeyViolation
		}
	}
	delete(s.users, id)
	return nil
}

// --- RoomRepository ---

func (s *Store) CreateRoom(ctx context.Context, room persistence.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if room.ID == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.rooms[room.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.rooms[room.ID] = room
	return nil
}

func (s *Store) UpdateRoom(ctx context.Context, room persistence.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.rooms[room.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.rooms[room.ID] = room
	return nil
}

func (s *Store) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return room, nil
}

func (s *Store) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]persistence.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Name == rooms[j].Name {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].Name < rooms[j].Name
	})
	return rooms, nil
}

func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[id]; !ok {
		return persistence.ErrNotFound
	}
	for _, reservation := range s.reservations {
		if reservation.RoomID == id {
			return persistence.ErrForeignKeyViolation
		}
	}
	delete(s.rooms, id)
	return nil
}

// --- ReservationRepository ---

func (s *Store) CreateReservations(ctx context.Context, reservations []persistence.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, reservation := range reservations {
		if reservation.ID == "" || reservation.RoomID == "" || reservation.OwnerID == "" {
			return persistence.ErrConstraintViolation
		}
		if !reservation.End.After(reservation.Start) {
			return persistence.ErrConstraintViolation
		}
		if _, ok := s.rooms[reservation.RoomID]; !ok {
			return persistence.ErrForeignKeyViolation
		}
		if _, ok := s.users[reservation.OwnerID]; !ok {
			return persistence.ErrForeignKeyViolation
		}
	}

	// Validate the whole batch against committed rows and against itself
	// before writing anything, matching the SQLite transaction semantics.
	pending := make([]persistence.Reservation, 0, len(reservations))
	for _, candidate := range reservations {
		for _, existing := range s.reservations {
			if existing.RoomID == candidate.RoomID && overlaps(candidate, existing) {
				return persistence.ErrOverlap
			}
		}
		for _, sibling := range pending {
			if sibling.RoomID == candidate.RoomID && overlaps(candidate, sibling) {
				return persistence.ErrOverlap
			}
		}
		pending = append(pending, candidate)
	}

	for _, reservation := range pending {
		s.reservations[reservation.ID] = reservation
	}
	return nil
}

func (s *Store) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return reservation, nil
}

func (s *Store) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterLocked(filter), nil
}

func (s *Store) ListReservationDetails(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.ReservationDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservations := s.filterLocked(filter)
	details := make([]persistence.ReservationDetail, 0, len(reservations))
	for _, reservation := range reservations {
		detail := persistence.ReservationDetail{Reservation: reservation}
		if room, ok := s.rooms[reservation.RoomID]; ok {
			detail.RoomName = room.Name
		}
		if owner, ok := s.users[reservation.OwnerID]; ok {
			detail.OwnerEmail = owner.Email
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *Store) ListConflicting(ctx context.Context, roomID string, start, end time.Time) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	probe := persistence.Reservation{Start: start, End: end}
	conflicts := make([]persistence.Reservation, 0)
	for _, reservation := range s.reservations {
		if reservation.RoomID == roomID && overlaps(probe, reservation) {
			conflicts = append(conflicts, reservation)
		}
	}
	sortReservations(conflicts)
	return conflicts, nil
}

func (s *Store) DeleteReservation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.reservations, id)
	return nil
}

func (s *Store) filterLocked(filter persistence.ReservationFilter) []persistence.Reservation {
	reservations := make([]persistence.Reservation, 0, len(s.reservations))
	for _, reservation := range s.reservations {
		if filter.RoomID != "" && reservation.RoomID != filter.RoomID {
			continue
		}
		if filter.StartsAfter != nil && reservation.Start.Before(*filter.StartsAfter) {
			continue
		}
		if filter.EndsBefore != nil && reservation.End.After(*filter.EndsBefore) {
			continue
		}
		reservations = append(reservations, reservation)
	}
	sortReservations(reservations)
	return reservations
}

// --- AllowlistRepository ---

func (s *Store) CreateEntry(ctx context.Context, entry persistence.AllowlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Email == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.allowlist[entry.Email]; ok {
		return persistence.ErrDuplicate
	}
	s.allowlist[entry.Email] = entry
	return nil
}

func (s *Store) GetEntry(ctx context.Context, email string) (persistence.AllowlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.allowlist[email]
	if !ok {
		return persistence.AllowlistEntry{}, persistence.ErrNotFound
	}
	return entry, nil
}

func (s *Store) ListEntries(ctx context.Context) ([]persistence.AllowlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]persistence.AllowlistEntry, 0, len(s.allowlist))
	for _, entry := range s.allowlist {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Email < entries[j].Email })
	return entries, nil
}

func (s *Store) DeleteEntry(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.allowlist[email]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.allowlist, email)
	return nil
}

// --- SessionRepository ---

func (s *Store) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == "" || session.UserID == "" || session.Token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	if _, ok := s.sessions[session.Token]; ok {
		return persistence.Session{}, persistence.ErrDuplicate
	}
	s.sessions[session.Token] = session
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	stamp := revokedAt
	session.RevokedAt = &stamp
	session.UpdatedAt = revokedAt
	s.sessions[token] = session
	return session, nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

// --- LoginTokenRepository ---

func (s *Store) CreateLoginToken(ctx context.Context, token persistence.LoginToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token.ID == "" || token.Email == "" || token.Token == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.loginTokens[token.Token]; ok {
		return persistence.ErrDuplicate
	}
	s.loginTokens[token.Token] = token
	return nil
}

func (s *Store) ConsumeLoginToken(ctx context.Context, token string, consumedAt time.Time) (persistence.LoginToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.loginTokens[token]
	if !ok || stored.ConsumedAt != nil || !stored.ExpiresAt.After(consumedAt) {
		return persistence.LoginToken{}, persistence.ErrNotFound
	}
	stamp := consumedAt
	stored.ConsumedAt = &stamp
	s.loginTokens[token] = stored
	return stored, nil
}

func (s *Store) DeleteExpiredLoginTokens(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, token := range s.loginTokens {
		if !token.ExpiresAt.After(reference) || token.ConsumedAt != nil {
			delete(s.loginTokens, key)
		}
	}
	return nil
}

func overlaps(a, b persistence.Reservation) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

func sortReservations(reservations []persistence.Reservation) {
	sort.Slice(reservations, func(i, j int) bool {
		if reservations[i].Start.Equal(reservations[j].Start) {
			return reservations[i].ID < reservations[j].ID
		}
		return reservations[i].Start.Before(reservations[j].Start)
	})
}
