package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository on
// SQLite. Inserts re-validate room overlap inside the writing transaction,
// so a conflicting row can never be committed regardless of what earlier
// advisory probes observed.
type ReservationRepository struct {
	db *DB
}

// NewReservationRepository constructs a ReservationRepository.
func NewReservationRepository(db *DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// CreateReservations inserts the batch atomically. Any overlap with a
// committed reservation, or between two rows of the batch itself, aborts the
// whole transaction with ErrOverlap.
func (r *ReservationRepository) CreateReservations(ctx context.Context, reservations []persistence.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}
	for _, reservation := range reservations {
		if reservation.ID == "" || reservation.RoomID == "" || reservation.OwnerID == "" {
			return persistence.ErrConstraintViolation
		}
		if !reservation.End.After(reservation.Start) {
			return persistence.ErrConstraintViolation
		}
	}

	return r.db.withTransaction(ctx, func(tx *sql.Tx) error {
		for _, reservation := range reservations {
			var conflicts int
			err := tx.QueryRowContext(ctx, `
				SELECT COUNT(*) FROM reservations
				WHERE room_id = ? AND start_time < ? AND end_time > ?`,
				reservation.RoomID,
				formatTime(reservation.End),
				formatTime(reservation.Start),
			).Scan(&conflicts)
			if err != nil {
				return mapError(err)
			}
			if conflicts > 0 {
				return fmt.Errorf("%w: room %s at %s", persistence.ErrOverlap,
					reservation.RoomID, formatTime(reservation.Start))
			}

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO reservations (id, room_id, owner_id, start_time, end_time, purpose, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				reservation.ID,
				reservation.RoomID,
				reservation.OwnerID,
				formatTime(reservation.Start),
				formatTime(reservation.End),
				reservation.Purpose,
				formatTime(reservation.CreatedAt),
			); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// GetReservation retrieves a reservation by ID.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	row := r.db.db.QueryRowContext(ctx, `
		SELECT id, room_id, owner_id, start_time, end_time, purpose, created_at
		FROM reservations WHERE id = ?`, id)
	return scanReservation(row)
}

// ListReservations returns matching reservations ordered by start time.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, room_id, owner_id, start_time, end_time, purpose, created_at
		FROM reservations`)
	where, args := buildReservationFilter(filter, "")
	query.WriteString(where)
	query.WriteString(` ORDER BY start_time, id`)

	rows, err := r.db.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	reservations := make([]persistence.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, rows.Err()
}

// ListReservationDetails returns matching reservations joined with room and
// owner display attributes, ordered by start time.
func (r *ReservationRepository) ListReservationDetails(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.ReservationDetail, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT r.id, r.room_id, r.owner_id, r.start_time, r.end_time, r.purpose, r.created_at,
		       rooms.name, users.email
		FROM reservations r
		JOIN rooms ON rooms.id = r.room_id
		JOIN users ON users.id = r.owner_id`)
	where, args := buildReservationFilter(filter, "r.")
	query.WriteString(where)
	query.WriteString(` ORDER BY r.start_time, r.id`)

	rows, err := r.db.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	details := make([]persistence.ReservationDetail, 0)
	for rows.Next() {
		var (
			detail             persistence.ReservationDetail
			startRaw, endRaw   string
			createdRaw         string
			roomName, ownerEml string
		)
		if err := rows.Scan(&detail.ID, &detail.RoomID, &detail.OwnerID, &startRaw, &endRaw,
			&detail.Purpose, &createdRaw, &roomName, &ownerEml); err != nil {
			return nil, err
		}
		if detail.Start, err = parseTime(startRaw); err != nil {
			return nil, err
		}
		if detail.End, err = parseTime(endRaw); err != nil {
			return nil, err
		}
		if detail.CreatedAt, err = parseTime(createdRaw); err != nil {
			return nil, err
		}
		detail.RoomName = roomName
		detail.OwnerEmail = ownerEml
		details = append(details, detail)
	}
	return details, rows.Err()
}

// ListConflicting returns committed reservations for the room overlapping
// the half-open window [start, end).
func (r *ReservationRepository) ListConflicting(ctx context.Context, roomID string, start, end time.Time) ([]persistence.Reservation, error) {
	rows, err := r.db.db.QueryContext(ctx, `
		SELECT id, room_id, owner_id, start_time, end_time, purpose, created_at
		FROM reservations
		WHERE room_id = ? AND start_time < ? AND end_time > ?
		ORDER BY start_time, id`,
		roomID, formatTime(end), formatTime(start))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	reservations := make([]persistence.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, rows.Err()
}

// DeleteReservation removes a reservation by ID.
func (r *ReservationRepository) DeleteReservation(ctx context.Context, id string) error {
	result, err := r.db.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
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

func buildReservationFilter(filter persistence.ReservationFilter, prefix string) (string, []any) {
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if filter.RoomID != "" {
		clauses = append(clauses, prefix+"room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.StartsAfter != nil {
		clauses = append(clauses, prefix+"start_time >= ?")
		args = append(args, formatTime(*filter.StartsAfter))
	}
	if filter.EndsBefore != nil {
		clauses = append(clauses, prefix+"end_time <= ?")
		args = append(args, formatTime(*filter.EndsBefore))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanReservation(scanner rowScanner) (persistence.Reservation, error) {
	var (
		reservation      persistence.Reservation
		startRaw, endRaw string
		createdRaw       string
	)
	if err := scanner.Scan(&reservation.ID, &reservation.RoomID, &reservation.OwnerID,
		&startRaw, &endRaw, &reservation.Purpose, &createdRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, err
	}

	var err error
	if reservation.Start, err = parseTime(startRaw); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.End, err = parseTime(endRaw); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.CreatedAt, err = parseTime(createdRaw); err != nil {
		return persistence.Reservation{}, err
	}
	return reservation, nil
}
