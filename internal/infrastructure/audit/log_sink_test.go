package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func TestLogSink_InsertEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, sink.InsertEvent(context.Background(), domain.SessionEvent{
		UserID: "u1",
		Kind:   domain.EventRefreshRevoked,
		At:     at,
	}))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "session_audit", line["component"])
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, "refresh_revoked", line["kind"])
	assert.Equal(t, "session event", line["message"])
}
