package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// AuditRepository persists session events.
type AuditRepository interface {
	// InsertEvent appends an event to the session audit trail.
	InsertEvent(ctx context.Context, event domain.SessionEvent) error
}
