package services_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
	"github.com/markjakearzadon/zapshift-gobackend/internal/testutil"
)

var trackingIDPattern = regexp.MustCompile(`^PKG-\d{8}-[0-9A-F]{8}$`)

func TestTrackingIDGenerator_Format(t *testing.T) {
	gen := services.TrackingIDGenerator{
		Now:  func() time.Time { return time.Date(2024, 3, 5, 23, 30, 0, 0, time.FixedZone("X", -5*3600)) },
		Rand: bytes.NewReader([]byte{0xde, 0xad, 0xbe, 0xef}),
	}

	id, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	// 23:30 at UTC-5 is already the next day in UTC.
	if id != "PKG-20240306-DEADBEEF" {
		t.Errorf("Generate() = %q, want %q", id, "PKG-20240306-DEADBEEF")
	}
}

func TestTrackingIDGenerator_EntropyFailure(t *testing.T) {
	gen := services.TrackingIDGenerator{Rand: bytes.NewReader([]byte{0x01})}
	if _, err := gen.Generate(); err == nil {
		t.Fatal("expected error when entropy source is short")
	}
}

func TestTrackingIDGenerator_Unique(t *testing.T) {
	gen := services.TrackingIDGenerator{}
	seen := make(map[string]bool, 10000)
	collisions := 0
	for i := 0; i < 10000; i++ {
		id, err := gen.Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if !trackingIDPattern.MatchString(id) {
			t.Fatalf("Generate() = %q, does not match %s", id, trackingIDPattern)
		}
		if seen[id] {
			collisions++
		}
		seen[id] = true
	}
	// 32 random bits give roughly a 1% chance of one collision in 10,000 draws.
	if collisions > 1 {
		t.Errorf("collisions = %d in 10000 ids, want at most 1", collisions)
	}
}

type fakeTrackingRepo struct {
	mu         sync.Mutex
	calls      int
	entries    []models.TrackingLog
	InsertFunc func(call int) error
}

func (r *fakeTrackingRepo) Insert(_ context.Context, entry *models.TrackingLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.InsertFunc != nil {
		if err := r.InsertFunc(r.calls); err != nil {
			return err
		}
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeTrackingRepo) ListByTrackingID(_ context.Context, trackingID string) ([]models.TrackingLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TrackingLog
	for _, e := range r.entries {
		if e.TrackingID == trackingID {
			out = append(out, e)
		}
	}
	return out, nil
}

func closeTracker(t *testing.T, l *services.TrackingLogger) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestTrackingLogger_RetriesFailedWrites(t *testing.T) {
	repo := &fakeTrackingRepo{InsertFunc: func(call int) error {
		if call < 3 {
			return errors.New("connection reset")
		}
		return nil
	}}
	l := services.NewTrackingLogger(repo, services.TrackingLoggerOptions{MaxAttempts: 3, Backoff: time.Millisecond})

	l.Append("PKG-20240101-00000001", models.StatusPendingPickup)
	closeTracker(t, l)

	if repo.calls != 3 {
		t.Errorf("insert calls = %d, want 3", repo.calls)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	got := repo.entries[0]
	if got.Status != models.StatusPendingPickup || got.Details != "pending pickup" {
		t.Errorf("entry = %+v, want pending-pickup with details %q", got, "pending pickup")
	}
}

func TestTrackingLogger_GivesUpAfterMaxAttempts(t *testing.T) {
	repo := &fakeTrackingRepo{InsertFunc: func(int) error { return errors.New("down") }}
	l := services.NewTrackingLogger(repo, services.TrackingLoggerOptions{MaxAttempts: 2, Backoff: time.Millisecond})

	l.Append("PKG-20240101-00000001", models.StatusDriverAssigned)
	closeTracker(t, l)

	if repo.calls != 2 {
		t.Errorf("insert calls = %d, want 2", repo.calls)
	}
	if len(repo.entries) != 0 {
		t.Errorf("entries = %d, want 0", len(repo.entries))
	}
}

func TestTrackingLogger_DrainsOnClose(t *testing.T) {
	mem := testutil.NewMemory()
	store := mem.Store()
	l := services.NewTrackingLogger(store.TrackingLogs, services.TrackingLoggerOptions{QueueSize: 4})

	for i := 0; i < 50; i++ {
		l.Append(fmt.Sprintf("PKG-20240101-%08X", i), models.StatusPendingPickup)
	}
	closeTracker(t, l)

	if got := len(mem.TrackingLogs()); got != 50 {
		t.Errorf("tracking logs = %d, want 50", got)
	}
}

func TestTrackingLogger_AppendAfterCloseWritesInline(t *testing.T) {
	repo := &fakeTrackingRepo{}
	l := services.NewTrackingLogger(repo, services.TrackingLoggerOptions{})
	closeTracker(t, l)

	l.Append("PKG-20240101-00000001", models.StatusParcelDelivered)

	logs, err := l.Logs(context.Background(), "PKG-20240101-00000001")
	if err != nil {
		t.Fatalf("Logs() error = %v", err)
	}
	if len(logs) != 1 || logs[0].Details != "parcel delivered" {
		t.Errorf("Logs() = %+v, want one parcel delivered entry", logs)
	}
}

func TestTrackingLogger_SkipsEmptyTrackingID(t *testing.T) {
	repo := &fakeTrackingRepo{}
	l := services.NewTrackingLogger(repo, services.TrackingLoggerOptions{})

	l.Append("", models.StatusPendingPickup)
	closeTracker(t, l)

	if repo.calls != 0 {
		t.Errorf("insert calls = %d, want 0", repo.calls)
	}
}
