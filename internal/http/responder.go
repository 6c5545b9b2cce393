package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-booking/internal/application"
)

var (
	errBadRequestBody       = errors.New("無効なリクエスト形式です。")
	errInvalidRoomID        = errors.New("無効な会議室 ID です。")
	errInvalidReservationID = errors.New("無効な予約 ID です。")
	errInvalidUserID        = errors.New("無効なユーザー ID です。")
	errMissingSessionToken  = errors.New("認証トークンを指定してください")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "この操作を実行する権限がありません。",
		})
	case errors.Is(err, application.ErrNotAllowlisted):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_NOT_ALLOWLISTED",
			Message:   "このメールアドレスではサインインできません。",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"})
	case errors.Is(err, application.ErrSessionExpired):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   "セッションの有効期限が切れています。再度ログインしてください。",
		})
	case errors.Is(err, application.ErrSessionRevoked):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_REVOKED",
			Message:   "セッションは失効しています。再度ログインしてください。",
		})
	case errors.Is(err, application.ErrLoginLinkInvalid):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_LOGIN_LINK_INVALID",
			Message:   "ログインリンクが無効か、有効期限が切れています。",
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "同じリソースが既に存在します。"})
	default:
		var cErr *application.ConflictError
		if errors.As(err, &cErr) {
			r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
				ErrorCode: "RESERVATION_CONFLICT",
				Message:   "指定された時間帯は既に予約されています。",
				Conflicts: toConflictDTOs(cErr.Conflicts),
			})
			return
		}

		var sErr *application.SeriesConflictError
		if errors.As(err, &sErr) {
			r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
				ErrorCode:           "SERIES_CONFLICT",
				Message:             "繰り返し予約の一部の週が既存の予約と重複しています。",
				ConflictWeeks:       sErr.Weeks(),
				ConflictOccurrences: toSeriesConflictDTOs(sErr.Occurrences),
			})
			return
		}

		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			details := localizeValidationErrors(vErr)
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "入力内容に誤りがあります。",
				Errors:  details,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "email is required":
		return "メールアドレスは必須です。"
	case "must be a valid email address":
		return "メールアドレスの形式が不正です。"
	case "display name is required":
		return "表示名は必須です。"
	case "name is required":
		return "会議室名は必須です。"
	case "capacity must be a positive number":
		return "収容人数は正の整数で指定してください。"
	case "minimum capacity must not be negative":
		return "最小収容人数は 0 以上で指定してください。"
	case "room is required":
		return "会議室を指定してください。"
	case "room does not exist":
		return "指定された会議室は存在しません。"
	case "room still has reservations":
		return "予約が残っている会議室は削除できません。"
	case "start is required":
		return "開始日時は必須です。"
	case "end is required":
		return "終了日時は必須です。"
	case "start must be before end":
		return "終了日時は開始日時より後である必要があります。"
	case "purpose is required":
		return "利用目的は必須です。"
	case "purpose is too long":
		return "利用目的が長すぎます。"
	case "either count or until is required":
		return "繰り返し回数または終了日のいずれかを指定してください。"
	case "count and until cannot both be set":
		return "繰り返し回数と終了日は同時に指定できません。"
	case "until must not be before the first occurrence":
		return "終了日は初回の予約より前にできません。"
	case "window must be shorter than one week":
		return "予約時間は 1 週間未満で指定してください。"
	case "related records are missing":
		return "関連するレコードが存在しません。"
	case "user still owns reservations":
		return "予約を保有しているユーザーは削除できません。"
	case "cannot delete your own account":
		return "自分自身のアカウントは削除できません。"
	default:
		if strings.HasPrefix(message, "series cannot exceed") {
			return "繰り返し予約の回数が上限を超えています。"
		}
		if strings.HasPrefix(message, "password must be at least") {
			return "パスワードが短すぎます。"
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode           string              `json:"error_code,omitempty"`
	Message             string              `json:"message"`
	Errors              map[string]string   `json:"errors,omitempty"`
	Conflicts           []conflictDTO       `json:"conflicts,omitempty"`
	ConflictWeeks       []int               `json:"conflict_weeks,omitempty"`
	ConflictOccurrences []seriesConflictDTO `json:"conflict_occurrences,omitempty"`
}

type seriesConflictDTO struct {
	Week  int    `json:"week"`
	Start string `json:"start"`
}

func toSeriesConflictDTOs(occurrences []application.SeriesOccurrenceConflict) []seriesConflictDTO {
	if len(occurrences) == 0 {
		return nil
	}
	dtos := make([]seriesConflictDTO, 0, len(occurrences))
	for _, occurrence := range occurrences {
		dtos = append(dtos, seriesConflictDTO{
			Week:  occurrence.Week,
			Start: occurrence.Start.UTC().Format(time.RFC3339),
		})
	}
	return dtos
}

type conflictDTO struct {
	ReservationID string `json:"reservation_id"`
	RoomID        string `json:"room_id"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

func toConflictDTOs(conflicts []application.Reservation) []conflictDTO {
	if len(conflicts) == 0 {
		return nil
	}
	dtos := make([]conflictDTO, 0, len(conflicts))
	for _, conflict := range conflicts {
		dtos = append(dtos, conflictDTO{
			ReservationID: conflict.ID,
			RoomID:        conflict.RoomID,
			Start:         conflict.Start.UTC().Format(time.RFC3339),
			End:           conflict.End.UTC().Format(time.RFC3339),
		})
	}
	return dtos
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(field, value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s timestamp", field)
	}
	return parsed, nil
}
