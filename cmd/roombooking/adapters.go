package main

import (
	"context"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

// The adapters below translate between the application layer's models and the
// persistence records. Repository errors pass through untouched so the
// services can classify them with errors.Is.

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, credentials application.UserCredentials) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(credentials.User, credentials.PasswordHash)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, credentials.User.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, credentials application.UserCredentials) (application.User, error) {
	current, err := a.repo.GetUser(ctx, credentials.User.ID)
	if err != nil {
		return application.User{}, err
	}
	hash := credentials.PasswordHash
	if hash == "" {
		hash = current.PasswordHash
	}
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(credentials.User, hash)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, credentials.User.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

func (a *userRepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return a.repo.DeleteUser(ctx, id)
}

type roomRepositoryAdapter struct {
	repo persistence.RoomRepository
}

func newRoomRepositoryAdapter(repo persistence.RoomRepository) *roomRepositoryAdapter {
	return &roomRepositoryAdapter{repo: repo}
}

func (a *roomRepositoryAdapter) CreateRoom(ctx context.Context, room application.Room) error {
	return a.repo.CreateRoom(ctx, toPersistenceRoom(room))
}

func (a *roomRepositoryAdapter) UpdateRoom(ctx context.Context, room application.Room) error {
	return a.repo.UpdateRoom(ctx, toPersistenceRoom(room))
}

func (a *roomRepositoryAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms, nil
}

func (a *roomRepositoryAdapter) DeleteRoom(ctx context.Context, id string) error {
	return a.repo.DeleteRoom(ctx, id)
}

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) CreateReservations(ctx context.Context, reservations []application.Reservation) error {
	models := make([]persistence.Reservation, 0, len(reservations))
	for _, reservation := range reservations {
		models = append(models, toPersistenceReservation(reservation))
	}
	return a.repo.CreateReservations(ctx, models)
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context, filter application.ReservationRepositoryFilter) ([]application.Reservation, error) {
	models, err := a.repo.ListReservations(ctx, toPersistenceFilter(filter))
	if err != nil {
		return nil, err
	}
	reservations := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		reservations = append(reservations, toApplicationReservation(model))
	}
	return reservations, nil
}

func (a *reservationRepositoryAdapter) ListReservationDetails(ctx context.Context, filter application.ReservationRepositoryFilter) ([]application.ReservationDetail, error) {
	models, err := a.repo.ListReservationDetails(ctx, toPersistenceFilter(filter))
	if err != nil {
		return nil, err
	}
	details := make([]application.ReservationDetail, 0, len(models))
	for _, model := range models {
		details = append(details, application.ReservationDetail{
			Reservation: toApplicationReservation(model.Reservation),
			RoomName:    model.RoomName,
			OwnerEmail:  model.OwnerEmail,
		})
	}
	return details, nil
}

func (a *reservationRepositoryAdapter) ListConflicting(ctx context.Context, roomID string, start, end time.Time) ([]application.Reservation, error) {
	models, err := a.repo.ListConflicting(ctx, roomID, start, end)
	if err != nil {
		return nil, err
	}
	reservations := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		reservations = append(reservations, toApplicationReservation(model))
	}
	return reservations, nil
}

func (a *reservationRepositoryAdapter) DeleteReservation(ctx context.Context, id string) error {
	return a.repo.DeleteReservation(ctx, id)
}

type allowlistRepositoryAdapter struct {
	repo persistence.AllowlistRepository
}

func newAllowlistRepositoryAdapter(repo persistence.AllowlistRepository) *allowlistRepositoryAdapter {
	return &allowlistRepositoryAdapter{repo: repo}
}

func (a *allowlistRepositoryAdapter) CreateEntry(ctx context.Context, entry application.AllowlistEntry) error {
	return a.repo.CreateEntry(ctx, persistence.AllowlistEntry{
		Email:     entry.Email,
		Notes:     cloneString(entry.Notes),
		CreatedAt: entry.CreatedAt,
	})
}

func (a *allowlistRepositoryAdapter) GetEntry(ctx context.Context, email string) (application.AllowlistEntry, error) {
	stored, err := a.repo.GetEntry(ctx, email)
	if err != nil {
		return application.AllowlistEntry{}, err
	}
	return toApplicationAllowlistEntry(stored), nil
}

func (a *allowlistRepositoryAdapter) ListEntries(ctx context.Context) ([]application.AllowlistEntry, error) {
	models, err := a.repo.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]application.AllowlistEntry, 0, len(models))
	for _, model := range models {
		entries = append(entries, toApplicationAllowlistEntry(model))
	}
	return entries, nil
}

func (a *allowlistRepositoryAdapter) DeleteEntry(ctx context.Context, email string) error {
	return a.repo.DeleteEntry(ctx, email)
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

type loginTokenRepositoryAdapter struct {
	repo persistence.LoginTokenRepository
}

func newLoginTokenRepositoryAdapter(repo persistence.LoginTokenRepository) *loginTokenRepositoryAdapter {
	return &loginTokenRepositoryAdapter{repo: repo}
}

func (a *loginTokenRepositoryAdapter) CreateLoginToken(ctx context.Context, token application.LoginToken) error {
	return a.repo.CreateLoginToken(ctx, persistence.LoginToken{
		ID:        token.ID,
		Email:     token.Email,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
	})
}

func (a *loginTokenRepositoryAdapter) ConsumeLoginToken(ctx context.Context, token string, consumedAt time.Time) (application.LoginToken, error) {
	stored, err := a.repo.ConsumeLoginToken(ctx, token, consumedAt)
	if err != nil {
		return application.LoginToken{}, err
	}
	return application.LoginToken{
		ID:        stored.ID,
		Email:     stored.Email,
		Token:     stored.Token,
		ExpiresAt: stored.ExpiresAt,
		CreatedAt: stored.CreatedAt,
	}, nil
}

func (a *loginTokenRepositoryAdapter) DeleteExpiredLoginTokens(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredLoginTokens(ctx, reference)
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		IsAdmin:     model.IsAdmin,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PasswordHash: passwordHash,
		IsAdmin:      user.IsAdmin,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationRoom(model persistence.Room) application.Room {
	return application.Room{
		ID:          model.ID,
		Name:        model.Name,
		Capacity:    model.Capacity,
		Location:    cloneString(model.Location),
		Description: cloneString(model.Description),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:          room.ID,
		Name:        room.Name,
		Capacity:    room.Capacity,
		Location:    cloneString(room.Location),
		Description: cloneString(room.Description),
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}
}

func toApplicationReservation(model persistence.Reservation) application.Reservation {
	return application.Reservation{
		ID:        model.ID,
		RoomID:    model.RoomID,
		OwnerID:   model.OwnerID,
		Start:     model.Start,
		End:       model.End,
		Purpose:   model.Purpose,
		CreatedAt: model.CreatedAt,
	}
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:        reservation.ID,
		RoomID:    reservation.RoomID,
		OwnerID:   reservation.OwnerID,
		Start:     reservation.Start,
		End:       reservation.End,
		Purpose:   reservation.Purpose,
		CreatedAt: reservation.CreatedAt,
	}
}

func toPersistenceFilter(filter application.ReservationRepositoryFilter) persistence.ReservationFilter {
	return persistence.ReservationFilter{
		RoomID:      filter.RoomID,
		StartsAfter: cloneTime(filter.StartsAfter),
		EndsBefore:  cloneTime(filter.EndsBefore),
	}
}

func toApplicationAllowlistEntry(model persistence.AllowlistEntry) application.AllowlistEntry {
	return application.AllowlistEntry{
		Email:     model.Email,
		Notes:     cloneString(model.Notes),
		CreatedAt: model.CreatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
