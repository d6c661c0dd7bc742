package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInMemoryRepository_RecordAndQuery(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	for _, e := range []*Event{
		{PrincipalID: "p1", Outcome: OutcomeSuccess, RowCount: 3},
		{PrincipalID: "p2", Outcome: OutcomeDenied},
		{PrincipalID: "p1", Outcome: OutcomeError, ErrorCode: "warehouse_unavailable"},
	} {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	events, err := repo.QueryByPrincipal(ctx, "p1", 0)
	if err != nil {
		t.Fatalf("QueryByPrincipal() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	// Newest first
	if events[0].Outcome != OutcomeError || events[1].Outcome != OutcomeSuccess {
		t.Errorf("order = [%s, %s], want newest first", events[0].Outcome, events[1].Outcome)
	}
	if events[0].ID == "" || events[0].CreatedAt.IsZero() {
		t.Error("ID and CreatedAt should be assigned on record")
	}

	limited, err := repo.QueryByPrincipal(ctx, "p1", 1)
	if err != nil {
		t.Fatalf("QueryByPrincipal() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("len(limited) = %d, want 1", len(limited))
	}
}

func TestSink_RecordsAsynchronously(t *testing.T) {
	repo := NewInMemoryRepository()
	sink := NewSink(repo, discardLogger(), 16)

	sink.Record(&Event{
		PrincipalID:     "p1",
		OrgIDs:          []string{"org-a"},
		RequestedAppIDs: []string{"app1", "app2"},
		DroppedAppIDs:   []string{"app2"},
		Outcome:         OutcomeSuccess,
	})
	sink.Close()

	if repo.Len() != 1 {
		t.Fatalf("repo.Len() = %d, want 1 after Close drains", repo.Len())
	}
	events, _ := repo.QueryByPrincipal(context.Background(), "p1", 0)
	if len(events[0].DroppedAppIDs) != 1 {
		t.Errorf("DroppedAppIDs = %v, want the over-asked app", events[0].DroppedAppIDs)
	}
}

type failingRepo struct{}

func (f *failingRepo) Record(context.Context, *Event) error {
	return errors.New("store down")
}

func (f *failingRepo) QueryByPrincipal(context.Context, string, int) ([]*Event, error) {
	return nil, nil
}

func TestSink_RepositoryFailureDoesNotPropagate(t *testing.T) {
	sink := NewSink(&failingRepo{}, discardLogger(), 4)

	// Must not panic or block.
	sink.Record(&Event{PrincipalID: "p1", Outcome: OutcomeError})
	sink.Close()
}

type slowRepo struct {
	release chan struct{}
	mu      sync.Mutex
	count   int
}

func (s *slowRepo) Record(ctx context.Context, _ *Event) error {
	<-s.release
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	return nil
}

func (s *slowRepo) QueryByPrincipal(context.Context, string, int) ([]*Event, error) {
	return nil, nil
}

func TestSink_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	repo := &slowRepo{release: make(chan struct{})}
	sink := NewSink(repo, discardLogger(), 1)

	// First event occupies the worker, second fills the buffer, the rest
	// must drop without blocking this goroutine.
	for i := 0; i < 5; i++ {
		sink.Record(&Event{PrincipalID: "p1"})
	}

	if sink.Dropped() == 0 {
		t.Error("Dropped() = 0, want drops with a full buffer")
	}

	close(repo.release)
	sink.Close()
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{name: "x-forwarded-for single", xff: "203.0.113.7", remote: "10.0.0.1:1234", want: "203.0.113.7"},
		{name: "x-forwarded-for chain", xff: "203.0.113.7, 10.0.0.2", remote: "10.0.0.1:1234", want: "203.0.113.7"},
		{name: "x-real-ip", xri: "203.0.113.9", remote: "10.0.0.1:1234", want: "203.0.113.9"},
		{name: "remote addr with port", remote: "203.0.113.11:4567", want: "203.0.113.11"},
		{name: "remote addr without port", remote: "203.0.113.11", want: "203.0.113.11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/v1/analytics/query", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
