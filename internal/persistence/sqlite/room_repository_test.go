package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

func TestRoomRepository_CreateGetUpdate(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	location := "3F"
	if err := repo.CreateRoom(ctx, persistence.Room{
		ID:        "room-1",
		Name:      "会議室A",
		Capacity:  8,
		Location:  &location,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	room, err := repo.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room.Name != "会議室A" || room.Capacity != 8 {
		t.Fatalf("unexpected room %+v", room)
	}
	if room.Location == nil || *room.Location != "3F" {
		t.Fatalf("expected location 3F, got %v", room.Location)
	}
	if room.Description != nil {
		t.Fatalf("expected nil description, got %v", room.Description)
	}

	room.Capacity = 12
	room.Location = nil
	if err := repo.UpdateRoom(ctx, room); err != nil {
		t.Fatalf("UpdateRoom failed: %v", err)
	}
	updated, err := repo.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if updated.Capacity != 12 || updated.Location != nil {
		t.Fatalf("unexpected updated room %+v", updated)
	}
}

func TestRoomRepository_DeleteBlockedByReservations(t *testing.T) {
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

	repo := NewRoomRepository(db)
	if err := repo.DeleteRoom(ctx, "room-1"); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation while reservations remain, got %v", err)
	}

	if err := NewReservationRepository(db).DeleteReservation(ctx, "res-1"); err != nil {
		t.Fatalf("failed to remove reservation: %v", err)
	}
	if err := repo.DeleteRoom(ctx, "room-1"); err != nil {
		t.Fatalf("expected deletion to succeed once empty, got %v", err)
	}
	if err := repo.DeleteRoom(ctx, "room-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing room, got %v", err)
	}
}
