package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/room-booking/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository on SQLite.
type RoomRepository struct {
	db *DB
}

// NewRoomRepository constructs a RoomRepository.
func NewRoomRepository(db *DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// CreateRoom inserts a new room.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	_, err := r.db.db.ExecContext(ctx, `
		INSERT INTO rooms (id, name, capacity, location, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		room.ID,
		room.Name,
		room.Capacity,
		nullableString(room.Location),
		nullableString(room.Description),
		formatTime(room.CreatedAt),
		formatTime(room.UpdatedAt),
	)
	return mapError(err)
}

// UpdateRoom rewrites an existing room row.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	result, err := r.db.db.ExecContext(ctx, `
		UPDATE rooms
		SET name = ?, capacity = ?, location = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		room.Name,
		room.Capacity,
		nullableString(room.Location),
		nullableString(room.Description),
		formatTime(room.UpdatedAt),
		room.ID,
	)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetRoom retrieves a room by ID.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	row := r.db.db.QueryRowContext(ctx, `
		SELECT id, name, capacity, location, description, created_at, updated_at
		FROM rooms WHERE id = ?`, id)
	return scanRoom(row)
}

// ListRooms returns every room ordered by name, then ID.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := r.db.db.QueryContext(ctx, `
		SELECT id, name, capacity, location, description, created_at, updated_at
		FROM rooms ORDER BY name, id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	rooms := make([]persistence.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// DeleteRoom removes a room. Rooms still referenced by reservations are
// protected by the foreign key and surface ErrForeignKeyViolation.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) error {
	result, err := r.db.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(scanner rowScanner) (persistence.Room, error) {
	var (
		room                  persistence.Room
		location, description sql.NullString
		createdAt, updatedAt  string
	)
	if err := scanner.Scan(&room.ID, &room.Name, &room.Capacity, &location, &description, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Room{}, persistence.ErrNotFound
		}
		return persistence.Room{}, err
	}

	room.Location = stringPointer(location)
	room.Description = stringPointer(description)

	var err error
	if room.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}
