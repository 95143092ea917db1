package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/auth"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

// FakeGateway is an in-memory checkout provider. Sessions start unpaid until
// Pay is called.
type FakeGateway struct {
	mu       sync.Mutex
	sessions map[string]*services.CheckoutSession
	Created  []services.CheckoutRequest

	CreateErr error
	GetErr    error
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{sessions: make(map[string]*services.CheckoutSession)}
}

func (g *FakeGateway) CreateSession(_ context.Context, req services.CheckoutRequest) (*services.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return nil, g.CreateErr
	}
	g.Created = append(g.Created, req)
	id := fmt.Sprintf("cs_test_%d", len(g.Created))
	sess := &services.CheckoutSession{
		ID:            id,
		URL:           "https://checkout.example.test/pay/" + id,
		PaymentStatus: "unpaid",
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		AmountTotal:   req.Amount,
		Metadata:      req.Metadata,
	}
	g.sessions[id] = sess
	out := *sess
	return &out, nil
}

func (g *FakeGateway) GetSession(_ context.Context, sessionID string) (*services.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.GetErr != nil {
		return nil, g.GetErr
	}
	sess, ok := g.sessions[sessionID]
	if !ok {
		return nil, apperror.NotFound("checkout session not found")
	}
	out := *sess
	return &out, nil
}

// LastSessionID returns the id of the most recently created session.
func (g *FakeGateway) LastSessionID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("cs_test_%d", len(g.Created))
}

// Pay completes sessionID with transactionID.
func (g *FakeGateway) Pay(sessionID, transactionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sess, ok := g.sessions[sessionID]; ok {
		sess.PaymentStatus = "paid"
		sess.TransactionID = transactionID
	}
}

// SyncTracker writes tracking logs immediately so tests can assert on them
// without waiting for a background worker.
type SyncTracker struct {
	Repo services.TrackingLogRepository
}

func (t SyncTracker) Append(trackingID string, status models.DeliveryStatus) {
	if trackingID == "" {
		return
	}
	_ = t.Repo.Insert(context.Background(), &models.TrackingLog{
		TrackingID: trackingID,
		Status:     status,
		Details:    status.Details(),
		CreatedAt:  time.Now().UTC(),
	})
}

// FakeVerifier accepts the tokens it was given, mapping each to an email.
type FakeVerifier struct {
	Tokens map[string]string
}

func (v FakeVerifier) Verify(_ context.Context, token string) (*auth.Identity, error) {
	email, ok := v.Tokens[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Identity{UID: "uid-" + email, Email: email}, nil
}

func (t SyncTracker) Logs(ctx context.Context, trackingID string) ([]models.TrackingLog, error) {
	return t.Repo.ListByTrackingID(ctx, trackingID)
}
