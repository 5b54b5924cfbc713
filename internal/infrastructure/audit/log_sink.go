// Package audit holds session audit sinks that need no database.
package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// LogSink writes session events as structured log lines. It is used when the
// session store is not MongoDB.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "session_audit").Logger()}
}

func (s *LogSink) InsertEvent(_ context.Context, event domain.SessionEvent) error {
	s.log.Info().
		Str("user_id", event.UserID).
		Str("kind", string(event.Kind)).
		Time("at", event.At).
		Msg("session event")
	return nil
}
