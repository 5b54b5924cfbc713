package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/auth-service/internal/core/domain"
)

type recordingSink struct {
	mu     sync.Mutex
	events []domain.SessionEvent
	err    error
	block  chan struct{}
}

func (s *recordingSink) InsertEvent(_ context.Context, e domain.SessionEvent) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) snapshot() []domain.SessionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SessionEvent(nil), s.events...)
}

func TestDispatcher_PreservesPerUserOrder(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(4, sink, zerolog.Nop())
	d.Start(context.Background())

	kinds := []domain.SessionEventKind{
		domain.EventRegistered, domain.EventRefreshed, domain.EventRefreshed, domain.EventLoggedOut,
	}
	for _, k := range kinds {
		d.Record(domain.SessionEvent{UserID: "u1", Kind: k, At: time.Now()})
		d.Record(domain.SessionEvent{UserID: "u2", Kind: k, At: time.Now()})
	}
	d.Close()

	var got []domain.SessionEventKind
	for _, e := range sink.snapshot() {
		if e.UserID == "u1" {
			got = append(got, e.Kind)
		}
	}
	assert.Equal(t, kinds, got)
	assert.Len(t, sink.snapshot(), 2*len(kinds))
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(3, &recordingSink{}, zerolog.Nop())
	for _, id := range []string{"", "u1", "507f1f77bcf86cd799439011"} {
		idx := d.shardIndex(id)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 3)
		assert.Equal(t, idx, d.shardIndex(id))
	}
}

func TestDispatcher_RecordNeverBlocks(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(1, sink, zerolog.Nop())
	d.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer*2; i++ {
			d.Record(domain.SessionEvent{UserID: "u1", Kind: domain.EventLoggedIn})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(sink.block)
	d.Close()
	assert.LessOrEqual(t, len(sink.snapshot()), channelBuffer+1)
}

func TestDispatcher_SinkErrorsDoNotStopWorker(t *testing.T) {
	sink := &recordingSink{err: errors.New("write failed")}
	d := NewDispatcher(1, sink, zerolog.Nop())
	d.Start(context.Background())

	d.Record(domain.SessionEvent{UserID: "u1", Kind: domain.EventLoggedIn})
	d.Record(domain.SessionEvent{UserID: "u1", Kind: domain.EventLoggedOut})
	d.Close()

	assert.Len(t, sink.snapshot(), 2)
}

func TestDispatcher_RecordAfterCloseIsDropped(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(2, sink, zerolog.Nop())
	d.Start(context.Background())
	d.Close()

	assert.NotPanics(t, func() {
		d.Record(domain.SessionEvent{UserID: "u1", Kind: domain.EventLoggedIn})
	})
	d.Close()
	assert.Empty(t, sink.snapshot())
}
