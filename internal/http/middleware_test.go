package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/room-booking/internal/application"
)

type fakeSessionValidator struct {
	principal application.Principal
	err       error

	tokens []string
}

func (f *fakeSessionValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return application.Principal{}, f.err
	}
	return f.principal, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestRequireSession_MissingToken(t *testing.T) {
	t.Parallel()

	validator := &fakeSessionValidator{}
	guard := RequireSession(validator, discardLogger())
	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("expected the handler not to be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reservations", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if resp := decodeErrorResponse(t, rec); resp.Message != errMissingSessionToken.Error() {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if len(validator.tokens) != 0 {
		t.Fatalf("expected no validation attempt, got %v", validator.tokens)
	}
}

func TestRequireSession_AttachesPrincipal(t *testing.T) {
	t.Parallel()

	want := application.Principal{UserID: "user-1", Email: "alice@example.com", IsAdmin: true}
	validator := &fakeSessionValidator{principal: want}
	guard := RequireSession(validator, discardLogger())

	var got application.Principal
	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			t.Fatal("expected a principal in the request context")
		}
		got = principal
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/reservations", nil)
	req.Header.Set("Authorization", "Bearer session-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got != want {
		t.Fatalf("expected principal %+v, got %+v", want, got)
	}
	if len(validator.tokens) != 1 || validator.tokens[0] != "session-token" {
		t.Fatalf("expected the bearer token to be validated, got %v", validator.tokens)
	}
}

func TestRequireSession_CookieFallback(t *testing.T) {
	t.Parallel()

	validator := &fakeSessionValidator{principal: application.Principal{UserID: "user-1"}}
	guard := RequireSession(validator, discardLogger())
	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/reservations", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(validator.tokens) != 1 || validator.tokens[0] != "cookie-token" {
		t.Fatalf("expected the cookie token to be validated, got %v", validator.tokens)
	}
}

func TestRequireSession_BearerWinsOverCookie(t *testing.T) {
	t.Parallel()

	validator := &fakeSessionValidator{principal: application.Principal{UserID: "user-1"}}
	guard := RequireSession(validator, discardLogger())
	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/reservations", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if len(validator.tokens) != 1 || validator.tokens[0] != "header-token" {
		t.Fatalf("expected the bearer token to win, got %v", validator.tokens)
	}
}

func TestRequireSession_ValidationFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "expired session", err: application.ErrSessionExpired, wantStatus: http.StatusUnauthorized, wantCode: "AUTH_SESSION_EXPIRED"},
		{name: "revoked session", err: application.ErrSessionRevoked, wantStatus: http.StatusUnauthorized, wantCode: "AUTH_SESSION_REVOKED"},
		{name: "unknown token", err: application.ErrUnauthorized, wantStatus: http.StatusUnauthorized},
		{name: "invalid credentials", err: application.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized},
		{name: "missing session", err: application.ErrNotFound, wantStatus: http.StatusUnauthorized},
		{name: "store failure", err: errors.New("store unavailable"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			validator := &fakeSessionValidator{err: tc.err}
			guard := RequireSession(validator, discardLogger())
			handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("expected the handler not to be reached")
			}))

			req := httptest.NewRequest(http.MethodGet, "/reservations", nil)
			req.Header.Set("Authorization", "Bearer stale-token")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			if resp := decodeErrorResponse(t, rec); resp.ErrorCode != tc.wantCode {
				t.Fatalf("expected error code %q, got %q", tc.wantCode, resp.ErrorCode)
			}
		})
	}
}

func TestRequestLogger_PropagatesLogger(t *testing.T) {
	t.Parallel()

	middleware := RequestLogger(discardLogger())
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Fatal("expected a logger in the request context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
