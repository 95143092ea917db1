package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/markjakearzadon/zapshift-gobackend/internal/logger"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
)

const trackingPrefix = "PKG"

// TrackingIDGenerator builds ids of the form PKG-YYYYMMDD-XXXXXXXX.
type TrackingIDGenerator struct {
	Now  func() time.Time
	Rand io.Reader
}

func (g TrackingIDGenerator) Generate() (string, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	source := rand.Reader
	if g.Rand != nil {
		source = g.Rand
	}

	buf := make([]byte, 4)
	if _, err := io.ReadFull(source, buf); err != nil {
		return "", fmt.Errorf("failed to read tracking id entropy: %w", err)
	}
	date := now().UTC().Format("20060102")
	return trackingPrefix + "-" + date + "-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}

type TrackingLoggerOptions struct {
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
	Now         func() time.Time
}

// TrackingLogger writes tracking logs from a background worker so a slow or
// failing audit write never blocks or fails a lifecycle transition. Entries
// that exhaust their retries are reported on the error log.
type TrackingLogger struct {
	repo        TrackingLogRepository
	channel     chan models.TrackingLog
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewTrackingLogger(repo TrackingLogRepository, opts TrackingLoggerOptions) *TrackingLogger {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	l := &TrackingLogger{
		repo:        repo,
		channel:     make(chan models.TrackingLog, opts.QueueSize),
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		now:         opts.Now,
		done:        make(chan struct{}),
	}
	go l.process()
	return l
}

// Append queues a tracking log for trackingID. When the queue is full or the
// logger is closed the entry is written inline instead of being dropped.
func (l *TrackingLogger) Append(trackingID string, status models.DeliveryStatus) {
	if trackingID == "" {
		logger.Warning("skipping tracking log without tracking id", "status", status)
		return
	}
	entry := models.TrackingLog{
		TrackingID: trackingID,
		Status:     status,
		Details:    status.Details(),
		CreatedAt:  l.now(),
	}

	l.mu.RLock()
	if !l.closed {
		select {
		case l.channel <- entry:
			l.mu.RUnlock()
			return
		default:
			logger.Warning("tracking log queue full, writing inline", "trackingId", trackingID)
		}
	}
	l.mu.RUnlock()
	l.write(entry)
}

// Logs returns the history for trackingID, oldest first.
func (l *TrackingLogger) Logs(ctx context.Context, trackingID string) ([]models.TrackingLog, error) {
	return l.repo.ListByTrackingID(ctx, trackingID)
}

// Close stops accepting queued entries and waits for the worker to drain.
func (l *TrackingLogger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.channel)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("tracking logger did not drain: %w", ctx.Err())
	}
}

func (l *TrackingLogger) process() {
	defer close(l.done)
	for entry := range l.channel {
		l.write(entry)
	}
}

func (l *TrackingLogger) write(entry models.TrackingLog) {
	var err error
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		record := entry
		err = l.repo.Insert(ctx, &record)
		cancel()
		if err == nil {
			logger.Debug("tracking log written", "trackingId", entry.TrackingID, "status", entry.Status)
			return
		}
		if attempt < l.maxAttempts {
			time.Sleep(l.backoff * time.Duration(attempt))
		}
	}
	logger.Error("failed to write tracking log", err,
		"trackingId", entry.TrackingID, "status", entry.Status, "attempts", l.maxAttempts)
}
