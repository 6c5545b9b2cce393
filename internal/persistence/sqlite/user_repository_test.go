package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

func TestUserRepository_EmailsStoredLowercase(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	if err := repo.CreateUser(ctx, persistence.User{
		ID:        "user-1",
		Email:     "Taro@Example.COM",
		IsAdmin:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	user, err := repo.GetUserByEmail(ctx, "  taro@example.com ")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if user.Email != "taro@example.com" || !user.IsAdmin {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestUserRepository_DuplicateEmailMapped(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	first := persistence.User{ID: "user-1", Email: "taro@example.com", CreatedAt: now, UpdatedAt: now}
	if err := repo.CreateUser(ctx, first); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	// Case differences collapse to the same stored email.
	second := persistence.User{ID: "user-2", Email: "TARO@example.com", CreatedAt: now, UpdatedAt: now}
	if err := repo.CreateUser(ctx, second); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for a reused email, got %v", err)
	}
}

func TestUserRepository_DeleteBlockedByReservations(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	seedUser(t, db, "user-1", "owner@example.com")
	seedRoom(t, db, "room-1", "会議室A")
	ctx := context.Background()

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if err := NewReservationRepository(db).CreateReservations(ctx, []persistence.Reservation{{
		ID:        "res-1",
		RoomID:    "room-1",
		OwnerID:   "user-1",
		Start:     start,
		End:       start.Add(time.Hour),
		CreatedAt: start,
	}}); err != nil {
		t.Fatalf("failed to seed reservation: %v", err)
	}

	repo := NewUserRepository(db)
	if err := repo.DeleteUser(ctx, "user-1"); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation while reservations remain, got %v", err)
	}
}
