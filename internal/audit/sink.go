package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Sink decouples audit recording from the request path. Record hands the
// event to a buffered channel and returns immediately; a single worker
// goroutine drains the channel into the repository. When the buffer is full
// the event is dropped and counted rather than blocking the response.
type Sink struct {
	repo   Repository
	logger *slog.Logger

	events    chan *Event
	wg        sync.WaitGroup
	closeOnce sync.Once
	dropped   atomic.Int64
}

// recordTimeout bounds each repository write so a stalled store cannot wedge
// the worker indefinitely.
const recordTimeout = 5 * time.Second

// NewSink creates a Sink with the given buffer size and starts its worker.
func NewSink(repo Repository, logger *slog.Logger, buffer int) *Sink {
	if buffer <= 0 {
		buffer = 256
	}
	s := &Sink{
		repo:   repo,
		logger: logger,
		events: make(chan *Event, buffer),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Record enqueues the event without blocking. Safe to call from any
// goroutine; a full buffer drops the event.
func (s *Sink) Record(event *Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	select {
	case s.events <- event:
	default:
		s.dropped.Add(1)
		s.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit buffer full, event dropped",
			slog.String("principal_id", event.PrincipalID),
			slog.String("request_id", event.RequestID),
		)
	}
}

// Dropped returns the number of events discarded due to a full buffer.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops accepting events, drains the buffer, and waits for the worker.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		close(s.events)
	})
	s.wg.Wait()
}

func (s *Sink) run() {
	defer s.wg.Done()
	for event := range s.events {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := s.repo.Record(ctx, event); err != nil {
			// Best-effort: log and move on, never propagate.
			s.logger.LogAttrs(ctx, slog.LevelError, "failed to record audit event",
				slog.String("principal_id", event.PrincipalID),
				slog.String("request_id", event.RequestID),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}
}
