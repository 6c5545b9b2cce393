package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/room-booking/internal/booking"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/recurrence"
	"github.com/example/room-booking/internal/timeline"
)

const maxPurposeLength = 500

// ReservationRepository captures the persistence interactions needed by the service.
type ReservationRepository interface {
	// CreateReservations commits the batch atomically. Implementations must
	// re-check overlap inside the write transaction and reject with
	// persistence.ErrOverlap.
	CreateReservations(ctx context.Context, reservations []Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationRepositoryFilter) ([]Reservation, error)
	ListReservationDetails(ctx context.Context, filter ReservationRepositoryFilter) ([]ReservationDetail, error)
	ListConflicting(ctx context.Context, roomID string, start, end time.Time) ([]Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
}

// ReservationRepositoryFilter narrows queries issued to the reservation repository.
type ReservationRepositoryFilter struct {
	RoomID      string
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

// RoomCatalog exposes room lookup operations.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// ReservationServiceOptions tunes timeouts and timeline rendering.
type ReservationServiceOptions struct {
	// StoreTimeout bounds read-only list loads. Zero disables the bound.
	StoreTimeout time.Duration
	// Day is the visible hour range rendered on timelines.
	Day timeline.Range
	// PixelsPerHour scales timeline blocks.
	PixelsPerHour float64
}

// ReservationService orchestrates validation, conflict checks and persistence
// for reservation operations.
type ReservationService struct {
	reservations ReservationRepository
	rooms        RoomCatalog
	engine       *recurrence.Engine
	idGenerator  func() string
	now          func() time.Time
	opts         ReservationServiceOptions
	logger       *slog.Logger
}

// NewReservationService wires dependencies for reservation operations.
func NewReservationService(reservations ReservationRepository, rooms RoomCatalog, engine *recurrence.Engine, idGenerator func() string, now func() time.Time, opts ReservationServiceOptions) *ReservationService {
	return NewReservationServiceWithLogger(reservations, rooms, engine, idGenerator, now, opts, nil)
}

// NewReservationServiceWithLogger constructs a ReservationService with a specified logger.
func NewReservationServiceWithLogger(reservations ReservationRepository, rooms RoomCatalog, engine *recurrence.Engine, idGenerator func() string, now func() time.Time, opts ReservationServiceOptions, logger *slog.Logger) *ReservationService {
	if engine == nil {
		engine = recurrence.NewEngine(recurrence.DefaultMaxOccurrences)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if !opts.Day.Valid() {
		opts.Day = timeline.Range{StartHour: 0, EndHour: 24}
	}
	if opts.PixelsPerHour <= 0 {
		opts.PixelsPerHour = timeline.DefaultPixelsPerHour
	}
	return &ReservationService{
		reservations: reservations,
		rooms:        rooms,
		engine:       engine,
		idGenerator:  idGenerator,
		now:          now,
		opts:         opts,
		logger:       defaultLogger(logger),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// CreateReservation validates the request, probes for conflicts and commits a
// single reservation. Overlapping requests are rejected, never queued.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateReservation",
		"room_id", input.RoomID,
		"user_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "reservation create failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "reservation created")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	validateReservationCore(input, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.ensureRoomExists(ctx, input.RoomID); err != nil {
		return
	}

	var conflicts []Reservation
	conflicts, err = s.reservations.ListConflicting(ctx, input.RoomID, input.Start, input.End)
	if err != nil {
		return
	}
	if len(conflicts) > 0 {
		err = &ConflictError{RoomID: input.RoomID, Conflicts: conflicts}
		return
	}

	reservation = Reservation{
		ID:        s.idGenerator(),
		RoomID:    input.RoomID,
		OwnerID:   params.Principal.UserID,
		Start:     input.Start,
		End:       input.End,
		Purpose:   strings.TrimSpace(input.Purpose),
		CreatedAt: s.now(),
	}

	if err = s.reservations.CreateReservations(ctx, []Reservation{reservation}); err != nil {
		err = s.mapCreateError(ctx, err, input)
		reservation = Reservation{}
		return
	}
	return
}

// CreateSeries expands a weekly recurrence and commits every occurrence or
// none. Conflicting occurrences are reported by week number so users can
// adjust the request.
func (s *ReservationService) CreateSeries(ctx context.Context, params CreateSeriesParams) (created []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateSeries",
		"room_id", input.RoomID,
		"user_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "series create failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("occurrences", len(created)).InfoContext(ctx, "series created")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	validateReservationCore(input, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.ensureRoomExists(ctx, input.RoomID); err != nil {
		return
	}

	var occurrences []recurrence.Occurrence
	occurrences, err = s.engine.Expand(input.Start, input.End, recurrence.Policy{
		Count: params.Policy.Count,
		Until: params.Policy.Until,
	})
	if err != nil {
		err = mapPolicyError(err, s.engine.MaxOccurrences())
		return
	}

	// Probe every occurrence before writing anything. A probe failure aborts
	// the whole series rather than risking a blind write.
	conflicting := make([]SeriesOccurrenceConflict, 0)
	for _, occurrence := range occurrences {
		var conflicts []Reservation
		conflicts, err = s.reservations.ListConflicting(ctx, input.RoomID, occurrence.Start, occurrence.End)
		if err != nil {
			return
		}
		if len(conflicts) > 0 {
			conflicting = append(conflicting, SeriesOccurrenceConflict{
				Week:  occurrence.Index + 1,
				Start: occurrence.Start,
			})
		}
	}
	if len(conflicting) > 0 {
		err = &SeriesConflictError{RoomID: input.RoomID, Occurrences: conflicting}
		return
	}

	now := s.now()
	purpose := strings.TrimSpace(input.Purpose)
	batch := make([]Reservation, 0, len(occurrences))
	for _, occurrence := range occurrences {
		batch = append(batch, Reservation{
			ID:        s.idGenerator(),
			RoomID:    input.RoomID,
			OwnerID:   params.Principal.UserID,
			Start:     occurrence.Start,
			End:       occurrence.End,
			Purpose:   fmt.Sprintf("%s (Week %d)", purpose, occurrence.Index+1),
			CreatedAt: now,
		})
	}

	if err = s.reservations.CreateReservations(ctx, batch); err != nil {
		if errors.Is(err, persistence.ErrOverlap) {
			err = s.seriesConflictAfterRace(ctx, input.RoomID, occurrences)
			return
		}
		err = mapReservationRepoError(err)
		return
	}

	created = batch
	return
}

// CancelReservation removes a reservation owned by the principal. Admins may
// cancel any reservation.
func (s *ReservationService) CancelReservation(ctx context.Context, principal Principal, reservationID string) error {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return fmt.Errorf("reservation repository not configured")
	}

	logger := s.loggerWith(ctx, "CancelReservation",
		"reservation_id", reservationID,
		"user_id", principal.UserID,
	)

	existing, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		err = mapReservationRepoError(err)
		logger.ErrorContext(ctx, "reservation cancel failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if existing.OwnerID != principal.UserID && !principal.IsAdmin {
		logger.ErrorContext(ctx, "reservation cancel failed", "error", ErrUnauthorized, "error_kind", ErrorKind(ErrUnauthorized))
		return ErrUnauthorized
	}

	if err := s.reservations.DeleteReservation(ctx, reservationID); err != nil {
		err = mapReservationRepoError(err)
		logger.ErrorContext(ctx, "reservation cancel failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "reservation cancelled")
	return nil
}

// GetReservation retrieves a single reservation.
func (s *ReservationService) GetReservation(ctx context.Context, id string) (Reservation, error) {
	if s == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return Reservation{}, fmt.Errorf("reservation repository not configured")
	}

	reservation, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, mapReservationRepoError(err)
	}
	return reservation, nil
}

// ListReservations enumerates reservations decorated with room and owner
// attributes. When the joined load fails the plain listing is served instead,
// and a store timeout degrades to an empty listing rather than an error page.
func (s *ReservationService) ListReservations(ctx context.Context, params ListReservationsParams) ([]ReservationDetail, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return nil, fmt.Errorf("reservation repository not configured")
	}

	logger := s.loggerWith(ctx, "ListReservations", "room_id", params.RoomID)

	loadCtx := ctx
	if s.opts.StoreTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, s.opts.StoreTimeout)
		defer cancel()
	}

	filter := ReservationRepositoryFilter{
		RoomID:      params.RoomID,
		StartsAfter: params.StartsAfter,
		EndsBefore:  params.EndsBefore,
	}

	details, err := s.reservations.ListReservationDetails(loadCtx, filter)
	if err == nil {
		return details, nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		logger.WarnContext(ctx, "reservation listing timed out, serving empty listing", "error", err)
		return []ReservationDetail{}, nil
	}

	logger.WarnContext(ctx, "joined reservation listing failed, falling back to plain listing", "error", err)

	plain, plainErr := s.reservations.ListReservations(loadCtx, filter)
	if plainErr != nil {
		if errors.Is(plainErr, context.DeadlineExceeded) {
			logger.WarnContext(ctx, "reservation listing timed out, serving empty listing", "error", plainErr)
			return []ReservationDetail{}, nil
		}
		return nil, plainErr
	}

	details = make([]ReservationDetail, 0, len(plain))
	for _, reservation := range plain {
		details = append(details, ReservationDetail{Reservation: reservation})
	}
	return details, nil
}

// CheckAvailability reports, per room meeting the capacity floor, whether the
// requested interval is free. The first overlapping reservation found is
// attached as evidence.
func (s *ReservationService) CheckAvailability(ctx context.Context, params AvailabilityParams) ([]RoomAvailability, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil || s.rooms == nil {
		return nil, fmt.Errorf("reservation repository not configured")
	}

	vErr := &ValidationError{}
	if params.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if params.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !params.Start.IsZero() && !params.End.IsZero() && !params.Start.Before(params.End) {
		vErr.add("time", "start must be before end")
	}
	if params.MinCapacity < 0 {
		vErr.add("min_capacity", "minimum capacity must not be negative")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	reservations, err := s.reservations.ListReservations(ctx, ReservationRepositoryFilter{})
	if err != nil {
		return nil, err
	}

	candidates := make([]booking.Room, 0, len(rooms))
	byID := make(map[string]Room, len(rooms))
	for _, room := range rooms {
		candidates = append(candidates, booking.Room{ID: room.ID, Capacity: room.Capacity})
		byID[room.ID] = room
	}

	snapshot := make([]booking.Reservation, 0, len(reservations))
	byReservationID := make(map[string]Reservation, len(reservations))
	for _, reservation := range reservations {
		snapshot = append(snapshot, booking.Reservation{
			ID:     reservation.ID,
			RoomID: reservation.RoomID,
			Start:  reservation.Start,
			End:    reservation.End,
		})
		byReservationID[reservation.ID] = reservation
	}

	window := booking.Window{Start: params.Start, End: params.End}
	verdicts := booking.CheckAvailability(window, candidates, params.MinCapacity, snapshot)

	results := make([]RoomAvailability, 0, len(verdicts))
	for _, verdict := range verdicts {
		result := RoomAvailability{
			Room:      byID[verdict.RoomID],
			Available: verdict.Available(),
		}
		if verdict.Conflict != nil {
			if reservation, ok := byReservationID[verdict.Conflict.ID]; ok {
				result.Conflict = &reservation
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// Timeline renders the day view for one room. Reservations crossing the day
// boundary are clipped to the visible range.
func (s *ReservationService) Timeline(ctx context.Context, params TimelineParams) (Timeline, error) {
	if s == nil {
		return Timeline{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil || s.rooms == nil {
		return Timeline{}, fmt.Errorf("reservation repository not configured")
	}

	room, err := s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		return Timeline{}, mapReservationRepoError(err)
	}

	day := params.Day
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	details, err := s.reservations.ListReservationDetails(ctx, ReservationRepositoryFilter{RoomID: params.RoomID})
	if err != nil {
		return Timeline{}, err
	}

	entries := make([]TimelineEntry, 0, len(details))
	for _, detail := range details {
		if !booking.Overlaps(detail.Start, detail.End, dayStart, dayEnd) {
			continue
		}
		start := detail.Start
		if start.Before(dayStart) {
			start = dayStart
		}
		end := detail.End
		if end.After(dayEnd) {
			end = dayEnd
		}
		block, visible := timeline.Layout(s.opts.Day, s.opts.PixelsPerHour, start, end)
		if !visible {
			continue
		}
		entries = append(entries, TimelineEntry{
			Reservation: detail,
			OffsetPx:    block.OffsetPx,
			HeightPx:    block.HeightPx,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Reservation.Start.Equal(entries[j].Reservation.Start) {
			return entries[i].Reservation.ID < entries[j].Reservation.ID
		}
		return entries[i].Reservation.Start.Before(entries[j].Reservation.Start)
	})

	return Timeline{
		Room:          room,
		Day:           dayStart,
		StartHour:     s.opts.Day.StartHour,
		EndHour:       s.opts.Day.EndHour,
		PixelsPerHour: s.opts.PixelsPerHour,
		Entries:       entries,
	}, nil
}

func (s *ReservationService) ensureRoomExists(ctx context.Context, roomID string) error {
	if s.rooms == nil {
		return nil
	}
	_, err := s.rooms.GetRoom(ctx, roomID)
	if err == nil {
		return nil
	}
	if isNotFoundError(err) {
		vErr := &ValidationError{}
		vErr.add("room_id", "room does not exist")
		return vErr
	}
	return err
}

// mapCreateError turns a checked-insert rejection into a ConflictError with
// the committed slots that blocked the write.
func (s *ReservationService) mapCreateError(ctx context.Context, err error, input ReservationInput) error {
	if !errors.Is(err, persistence.ErrOverlap) {
		return mapReservationRepoError(err)
	}
	conflicts, probeErr := s.reservations.ListConflicting(ctx, input.RoomID, input.Start, input.End)
	if probeErr != nil {
		conflicts = nil
	}
	return &ConflictError{RoomID: input.RoomID, Conflicts: conflicts}
}

// seriesConflictAfterRace re-probes the expanded occurrences after the write
// transaction rejected the batch, so the response still names the weeks that
// collided. The rejected rows were rolled back, so a re-probe against
// committed data can come up empty; that case degrades to a plain conflict
// rather than a series report with no occurrences.
func (s *ReservationService) seriesConflictAfterRace(ctx context.Context, roomID string, occurrences []recurrence.Occurrence) error {
	conflicting := make([]SeriesOccurrenceConflict, 0)
	for _, occurrence := range occurrences {
		conflicts, err := s.reservations.ListConflicting(ctx, roomID, occurrence.Start, occurrence.End)
		if err != nil {
			continue
		}
		if len(conflicts) > 0 {
			conflicting = append(conflicting, SeriesOccurrenceConflict{
				Week:  occurrence.Index + 1,
				Start: occurrence.Start,
			})
		}
	}
	if len(conflicting) == 0 {
		return &ConflictError{RoomID: roomID}
	}
	return &SeriesConflictError{RoomID: roomID, Occurrences: conflicting}
}

func validateReservationCore(input ReservationInput, vErr *ValidationError) {
	if strings.TrimSpace(input.RoomID) == "" {
		vErr.add("room_id", "room is required")
	}

	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("time", "start must be before end")
	}

	purpose := strings.TrimSpace(input.Purpose)
	if purpose == "" {
		vErr.add("purpose", "purpose is required")
	} else if len(purpose) > maxPurposeLength {
		vErr.add("purpose", "purpose is too long")
	}
}

func mapPolicyError(err error, maxOccurrences int) error {
	vErr := &ValidationError{}
	switch {
	case errors.Is(err, recurrence.ErrPolicyUnspecified):
		vErr.add("recurrence", "either count or until is required")
	case errors.Is(err, recurrence.ErrPolicyAmbiguous):
		vErr.add("recurrence", "count and until cannot both be set")
	case errors.Is(err, recurrence.ErrUntilBeforeStart):
		vErr.add("until", "until must not be before the first occurrence")
	case errors.Is(err, recurrence.ErrTooManyOccurrences):
		vErr.add("recurrence", fmt.Sprintf("series cannot exceed %d occurrences", maxOccurrences))
	case errors.Is(err, recurrence.ErrInvalidDuration):
		vErr.add("time", "start must be before end")
	case errors.Is(err, recurrence.ErrDurationTooLong):
		vErr.add("time", "window must be shorter than one week")
	default:
		return err
	}
	return vErr
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "start must be before end")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("room_id", "related records are missing")
		return vErr
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
