package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/config"
	httptransport "github.com/example/room-booking/internal/http"
	"github.com/example/room-booking/internal/persistence/sqlite"
	"github.com/example/room-booking/internal/recurrence"
	"github.com/example/room-booking/internal/timeline"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := sqlite.Open(cfg.SQLiteDSN, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("failed to close database", slog.String("error", closeErr.Error()))
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	users := newUserRepositoryAdapter(sqlite.NewUserRepository(db))
	rooms := newRoomRepositoryAdapter(sqlite.NewRoomRepository(db))
	reservations := newReservationRepositoryAdapter(sqlite.NewReservationRepository(db))
	allowlist := newAllowlistRepositoryAdapter(sqlite.NewAllowlistRepository(db))
	sessions := newSessionRepositoryAdapter(sqlite.NewSessionRepository(db))
	loginTokens := newLoginTokenRepositoryAdapter(sqlite.NewLoginTokenRepository(db))

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	hashPassword := func(password string) (string, error) {
		return application.CreatePasswordHash(password, application.DefaultArgon2idParams)
	}

	allowlistService := application.NewAllowlistServiceWithLogger(allowlist, now, logger)
	userService := application.NewUserServiceWithLogger(users, hashPassword, idGenerator, now, logger)
	roomService := application.NewRoomServiceWithLogger(rooms, idGenerator, now, logger)

	engine := recurrence.NewEngine(cfg.MaxSeriesOccurrences)
	reservationService := application.NewReservationServiceWithLogger(
		reservations,
		rooms,
		engine,
		idGenerator,
		now,
		application.ReservationServiceOptions{
			StoreTimeout:  cfg.StoreTimeout,
			Day:           timeline.Range{StartHour: cfg.DayStartHour, EndHour: cfg.DayEndHour},
			PixelsPerHour: cfg.PixelsPerHour,
		},
		logger,
	)

	authService := application.NewAuthService(application.AuthServiceDeps{
		Credentials:    users,
		Sessions:       sessions,
		LoginTokens:    loginTokens,
		Allowlist:      allowlistService,
		Mailer:         application.NewLogMailer(logger),
		VerifyPassword: application.VerifyPassword,
		IDGenerator:    idGenerator,
		TokenGenerator: tokenGenerator,
		Now:            now,
		SessionTTL:     cfg.SessionTTL,
		LoginLinkTTL:   cfg.LoginLinkTTL,
		Logger:         logger,
	})

	requireSession := httptransport.RequireSession(authService, logger)
	sessionGate := func(next http.Handler) http.Handler {
		guarded := requireSession(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if httptransport.IsPublicRoute(r) {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(authService, logger),
		Users:        httptransport.NewUserHandler(userService, logger),
		Rooms:        httptransport.NewRoomHandler(roomService, reservationService, cfg.Location(), logger),
		Reservations: httptransport.NewReservationHandler(reservationService, logger),
		Allowlist:    httptransport.NewAllowlistHandler(allowlistService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			sessionGate,
		},
	})

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.PruneSchedule, func() {
		pruneCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := authService.PruneExpired(pruneCtx); err != nil {
			logger.Warn("failed to prune expired auth records", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule prune job: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// randomHex returns a hex string covering byteLen random bytes.
func randomHex(byteLen int) string {
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	return hex.EncodeToString(buf)
}
