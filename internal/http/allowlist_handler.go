package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/room-booking/internal/application"
)

type allowlistService interface {
	AddEntry(ctx context.Context, principal application.Principal, input application.AllowlistInput) (application.AllowlistEntry, error)
	ListEntries(ctx context.Context, principal application.Principal) ([]application.AllowlistEntry, error)
	RemoveEntry(ctx context.Context, principal application.Principal, email string) error
}

type AllowlistHandler struct {
	service   allowlistService
	responder responder
	logger    *slog.Logger
}

func NewAllowlistHandler(service allowlistService, logger *slog.Logger) *AllowlistHandler {
	base := defaultLogger(logger)
	return &AllowlistHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AllowlistHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AllowlistHandler", operation, attrs...)
}

// List handles GET /allowlist.
func (h *AllowlistHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	entries, err := h.service.ListEntries(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list allowlist", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]allowlistEntryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, toAllowlistEntryDTO(entry))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, allowlistResponse{Entries: dtos})
}

// Create handles POST /allowlist.
func (h *AllowlistHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	var req allowlistEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode allowlist request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "user_id", principal.UserID)

	entry, err := h.service.AddEntry(r.Context(), principal, application.AllowlistInput{
		Email: req.Email,
		Notes: req.Notes,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to add allowlist entry", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("email", entry.Email).InfoContext(r.Context(), "allowlist entry added")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toAllowlistEntryDTO(entry))
}

// Delete handles DELETE /allowlist/{email}.
func (h *AllowlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	email, ok := EmailFromContext(r.Context())
	if !ok || email == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("削除対象のメールアドレスを指定してください。"))
		return
	}

	logger := h.log(r.Context(), "Delete", "email", email, "user_id", principal.UserID)

	if err := h.service.RemoveEntry(r.Context(), principal, email); err != nil {
		logger.ErrorContext(r.Context(), "failed to remove allowlist entry", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "allowlist entry removed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type allowlistEntryRequest struct {
	Email string  `json:"email"`
	Notes *string `json:"notes,omitempty"`
}

type allowlistEntryDTO struct {
	Email     string  `json:"email"`
	Notes     *string `json:"notes,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type allowlistResponse struct {
	Entries []allowlistEntryDTO `json:"entries"`
}

func toAllowlistEntryDTO(entry application.AllowlistEntry) allowlistEntryDTO {
	return allowlistEntryDTO{
		Email:     entry.Email,
		Notes:     entry.Notes,
		CreatedAt: formatTimestamp(entry.CreatedAt),
	}
}
