package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/example/room-booking/internal/application"
)

type reservationService interface {
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	CreateSeries(ctx context.Context, params application.CreateSeriesParams) ([]application.Reservation, error)
	CancelReservation(ctx context.Context, principal application.Principal, reservationID string) error
	GetReservation(ctx context.Context, id string) (application.Reservation, error)
	ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.ReservationDetail, error)
	CheckAvailability(ctx context.Context, params application.AvailabilityParams) ([]application.RoomAvailability, error)
}

type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

// List handles GET /reservations.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	params := application.ListReservationsParams{
		Principal: principal,
		RoomID:    r.URL.Query().Get("room_id"),
	}

	query := r.URL.Query()
	if raw := query.Get("starts_after"); raw != "" {
		parsed, err := parseTimestamp("starts_after", raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("starts_after は RFC3339 形式で指定してください。"))
			return
		}
		params.StartsAfter = &parsed
	}
	if raw := query.Get("ends_before"); raw != "" {
		parsed, err := parseTimestamp("ends_before", raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("ends_before は RFC3339 形式で指定してください。"))
			return
		}
		params.EndsBefore = &parsed
	}

	details, err := h.service.ListReservations(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list reservations", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]reservationDTO, 0, len(details))
	for _, detail := range details {
		dtos = append(dtos, toReservationDTO(detail))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationListResponse{Reservations: dtos})
}

// Get handles GET /reservations/{id}.
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ReservationIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	reservation, err := h.service.GetReservation(r.Context(), id)
	if err != nil {
		h.log(r.Context(), "Get", "reservation_id", id).ErrorContext(r.Context(), "failed to get reservation", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(application.ReservationDetail{Reservation: reservation}))
}

// Create handles POST /reservations.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create", "room_id", input.RoomID, "user_id", principal.UserID)

	reservation, err := h.service.CreateReservation(r.Context(), application.CreateReservationParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create reservation", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", reservation.ID).InfoContext(r.Context(), "reservation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toReservationDTO(application.ReservationDetail{Reservation: reservation}))
}

// CreateSeries handles POST /reservations/series.
func (h *ReservationHandler) CreateSeries(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	var req seriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateSeries", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode series request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	policy := application.SeriesPolicy{Count: req.Count}
	if req.Until != "" {
		until, err := parseTimestamp("until", req.Until)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("until は RFC3339 形式で指定してください。"))
			return
		}
		policy.Until = &until
	}

	logger := h.log(r.Context(), "CreateSeries", "room_id", input.RoomID, "user_id", principal.UserID)

	created, err := h.service.CreateSeries(r.Context(), application.CreateSeriesParams{
		Principal: principal,
		Input:     input,
		Policy:    policy,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create series", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]reservationDTO, 0, len(created))
	for _, reservation := range created {
		dtos = append(dtos, toReservationDTO(application.ReservationDetail{Reservation: reservation}))
	}

	logger.With("occurrences", len(created)).InfoContext(r.Context(), "series created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationListResponse{Reservations: dtos})
}

// Delete handles DELETE /reservations/{id}.
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	id, ok := ReservationIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	logger := h.log(r.Context(), "Delete", "reservation_id", id, "user_id", principal.UserID)

	if err := h.service.CancelReservation(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "failed to cancel reservation", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Availability handles GET /availability.
func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	params := application.AvailabilityParams{}

	if raw := query.Get("start"); raw != "" {
		parsed, err := parseTimestamp("start", raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("start は RFC3339 形式で指定してください。"))
			return
		}
		params.Start = parsed
	}
	if raw := query.Get("end"); raw != "" {
		parsed, err := parseTimestamp("end", raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("end は RFC3339 形式で指定してください。"))
			return
		}
		params.End = parsed
	}
	if raw := query.Get("min_capacity"); raw != "" {
		capacity, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("min_capacity は整数で指定してください。"))
			return
		}
		params.MinCapacity = capacity
	}

	results, err := h.service.CheckAvailability(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "Availability").ErrorContext(r.Context(), "failed to check availability", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]availabilityDTO, 0, len(results))
	for _, result := range results {
		dto := availabilityDTO{
			Room:      toRoomDTO(result.Room),
			Available: result.Available,
		}
		if result.Conflict != nil {
			conflict := toConflictDTOs([]application.Reservation{*result.Conflict})
			dto.Conflict = &conflict[0]
		}
		dtos = append(dtos, dto)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{Results: dtos})
}

type reservationRequest struct {
	RoomID  string `json:"room_id"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Purpose string `json:"purpose"`
}

func (r reservationRequest) toInput() (application.ReservationInput, error) {
	input := application.ReservationInput{
		RoomID:  r.RoomID,
		Purpose: r.Purpose,
	}
	if r.Start != "" {
		start, err := parseTimestamp("start", r.Start)
		if err != nil {
			return application.ReservationInput{}, errors.New("start は RFC3339 形式で指定してください。")
		}
		input.Start = start
	}
	if r.End != "" {
		end, err := parseTimestamp("end", r.End)
		if err != nil {
			return application.ReservationInput{}, errors.New("end は RFC3339 形式で指定してください。")
		}
		input.End = end
	}
	return input, nil
}

type seriesRequest struct {
	reservationRequest
	Count int    `json:"count,omitempty"`
	Until string `json:"until,omitempty"`
}

type reservationDTO struct {
	ID         string `json:"id"`
	RoomID     string `json:"room_id"`
	RoomName   string `json:"room_name,omitempty"`
	OwnerID    string `json:"owner_id"`
	OwnerEmail string `json:"owner_email,omitempty"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Purpose    string `json:"purpose"`
	CreatedAt  string `json:"created_at"`
}

type reservationListResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

func toReservationDTO(detail application.ReservationDetail) reservationDTO {
	return reservationDTO{
		ID:         detail.ID,
		RoomID:     detail.RoomID,
		RoomName:   detail.RoomName,
		OwnerID:    detail.OwnerID,
		OwnerEmail: detail.OwnerEmail,
		Start:      detail.Start.UTC().Format(time.RFC3339),
		End:        detail.End.UTC().Format(time.RFC3339),
		Purpose:    detail.Purpose,
		CreatedAt:  formatTimestamp(detail.CreatedAt),
	}
}

type availabilityDTO struct {
	Room      roomDTO      `json:"room"`
	Available bool         `json:"available"`
	Conflict  *conflictDTO `json:"conflict,omitempty"`
}

type availabilityResponse struct {
	Results []availabilityDTO `json:"results"`
}
