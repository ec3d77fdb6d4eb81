// AngelaMos | 2026
// mailer.go

package auth

import (
	"context"
	"log/slog"
	"time"
)

type Mailer interface {
	SendPasswordReset(ctx context.Context, to, code string, ttl time.Duration) error
}

// LogMailer writes reset codes to the log at debug level. It stands in for
// a delivery provider in development.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendPasswordReset(
	ctx context.Context,
	to, code string,
	ttl time.Duration,
) error {
	m.logger.DebugContext(ctx, "password reset code",
		"to", to,
		"code", code,
		"expires_in", ttl,
	)
	return nil
}
