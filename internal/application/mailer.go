package application

import (
	"context"
	"log/slog"
)

// Mailer delivers sign-in links to users. Implementations must not block on
// slow transports beyond the context deadline.
type Mailer interface {
	SendLoginLink(ctx context.Context, email, token string) error
}

// LogMailer writes login links to the log instead of sending mail. It backs
// local development and tests.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer constructs a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: defaultLogger(logger)}
}

// SendLoginLink logs the token instead of delivering it.
func (m *LogMailer) SendLoginLink(ctx context.Context, email, token string) error {
	m.logger.InfoContext(ctx, "login link issued",
		"email", email,
		"token", token,
	)
	return nil
}
