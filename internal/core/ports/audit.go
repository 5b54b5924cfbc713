package ports

import "github.com/99minutos/auth-service/internal/core/domain"

// SessionRecorder accepts session lifecycle events for the audit trail.
// Record must not block the caller.
type SessionRecorder interface {
	Record(event domain.SessionEvent)
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) Record(domain.SessionEvent) {}
