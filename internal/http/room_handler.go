package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/room-booking/internal/application"
)

type roomService interface {
	CreateRoom(ctx context.Context, params application.CreateRoomParams) (application.Room, error)
	UpdateRoom(ctx context.Context, params application.UpdateRoomParams) (application.Room, error)
	GetRoom(ctx context.Context, id string) (application.Room, error)
	ListRooms(ctx context.Context) ([]application.Room, error)
	DeleteRoom(ctx context.Context, principal application.Principal, roomID string) error
}

type timelineRenderer interface {
	Timeline(ctx context.Context, params application.TimelineParams) (application.Timeline, error)
}

type RoomHandler struct {
	service   roomService
	timelines timelineRenderer
	location  *time.Location
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

func NewRoomHandler(service roomService, timelines timelineRenderer, location *time.Location, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	if location == nil {
		location = time.UTC
	}
	return &RoomHandler{
		service:   service,
		timelines: timelines,
		location:  location,
		now:       time.Now,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

// List handles GET /rooms.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rooms, err := h.service.ListRooms(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list rooms", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		dtos = append(dtos, toRoomDTO(room))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomListResponse{Rooms: dtos})
}

// Get handles GET /rooms/{id}.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := RoomIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	room, err := h.service.GetRoom(r.Context(), id)
	if err != nil {
		h.log(r.Context(), "Get", "room_id", id).ErrorContext(r.Context(), "failed to get room", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDTO(room))
}

// Create handles POST /rooms.
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode room request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "user_id", principal.UserID)

	room, err := h.service.CreateRoom(r.Context(), application.CreateRoomParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create room", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("room_id", room.ID).InfoContext(r.Context(), "room created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toRoomDTO(room))
}

// Update handles PUT /rooms/{id}.
func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	id, ok := RoomIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode room request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "room_id", id, "user_id", principal.UserID)

	room, err := h.service.UpdateRoom(r.Context(), application.UpdateRoomParams{
		Principal: principal,
		RoomID:    id,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to update room", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "room updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDTO(room))
}

// Delete handles DELETE /rooms/{id}.
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	id, ok := RoomIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	logger := h.log(r.Context(), "Delete", "room_id", id, "user_id", principal.UserID)

	if err := h.service.DeleteRoom(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "failed to delete room", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "room deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Timeline handles GET /rooms/{id}/timeline. The date query parameter selects
// the day; it defaults to today in the configured timezone.
func (h *RoomHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.timelines == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := RoomIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	day := h.now().In(h.location)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.location)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("日付は YYYY-MM-DD 形式で指定してください。"))
			return
		}
		day = parsed
	}

	logger := h.log(r.Context(), "Timeline", "room_id", id, "date", day.Format("2006-01-02"))

	view, err := h.timelines.Timeline(r.Context(), application.TimelineParams{RoomID: id, Day: day})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to render timeline", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTimelineDTO(view))
}

type roomRequest struct {
	Name        string  `json:"name"`
	Capacity    int     `json:"capacity"`
	Location    *string `json:"location,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (r roomRequest) toInput() application.RoomInput {
	return application.RoomInput{
		Name:        r.Name,
		Capacity:    r.Capacity,
		Location:    r.Location,
		Description: r.Description,
	}
}

type roomDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Capacity    int     `json:"capacity"`
	Location    *string `json:"location,omitempty"`
	Description *string `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type roomListResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

func toRoomDTO(room application.Room) roomDTO {
	return roomDTO{
		ID:          room.ID,
		Name:        room.Name,
		Capacity:    room.Capacity,
		Location:    room.Location,
		Description: room.Description,
		CreatedAt:   formatTimestamp(room.CreatedAt),
		UpdatedAt:   formatTimestamp(room.UpdatedAt),
	}
}

type timelineEntryDTO struct {
	Reservation reservationDTO `json:"reservation"`
	OffsetPx    float64        `json:"offset_px"`
	HeightPx    float64        `json:"height_px"`
}

type timelineDTO struct {
	Room          roomDTO            `json:"room"`
	Date          string             `json:"date"`
	StartHour     int                `json:"start_hour"`
	EndHour       int                `json:"end_hour"`
	PixelsPerHour float64            `json:"pixels_per_hour"`
	Entries       []timelineEntryDTO `json:"entries"`
}

func toTimelineDTO(view application.Timeline) timelineDTO {
	entries := make([]timelineEntryDTO, 0, len(view.Entries))
	for _, entry := range view.Entries {
		entries = append(entries, timelineEntryDTO{
			Reservation: toReservationDTO(entry.Reservation),
			OffsetPx:    entry.OffsetPx,
			HeightPx:    entry.HeightPx,
		})
	}
	return timelineDTO{
		Room:          toRoomDTO(view.Room),
		Date:          view.Day.Format("2006-01-02"),
		StartHour:     view.StartHour,
		EndHour:       view.EndHour,
		PixelsPerHour: view.PixelsPerHour,
		Entries:       entries,
	}
}
