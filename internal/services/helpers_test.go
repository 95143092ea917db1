package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
	"github.com/markjakearzadon/zapshift-gobackend/internal/testutil"
)

type fixture struct {
	mem      *testutil.Memory
	store    services.Store
	gateway  *testutil.FakeGateway
	users    *services.UserService
	riders   *services.RiderService
	parcels  *services.ParcelService
	payments *services.PaymentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := testutil.NewMemory()
	store := mem.Store()
	tracker := testutil.SyncTracker{Repo: store.TrackingLogs}
	gateway := testutil.NewFakeGateway()
	return &fixture{
		mem:      mem,
		store:    store,
		gateway:  gateway,
		users:    services.NewUserService(store.Users),
		riders:   services.NewRiderService(store),
		parcels:  services.NewParcelService(store, tracker),
		payments: services.NewPaymentService(store, gateway, tracker, services.PaymentConfig{
			SiteDomain: "https://app.example.test/",
			Currency:   "usd",
		}),
	}
}

func (f *fixture) createParcel(t *testing.T, cost float64) *models.Parcel {
	t.Helper()
	p := &models.Parcel{
		ParcelName:      "Books",
		SenderName:      "Sam Sender",
		SenderEmail:     "sender@example.com",
		ReceiverName:    "Rae Receiver",
		ReceiverAddress: "12 Lake Road",
		Cost:            cost,
	}
	if err := f.parcels.Create(context.Background(), p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return p
}

// paidParcel runs the checkout flow for a new parcel and returns it reloaded.
func (f *fixture) paidParcel(t *testing.T, transactionID string) models.Parcel {
	t.Helper()
	p := f.createParcel(t, 150)
	if _, err := f.payments.CreateCheckoutSession(context.Background(), p.ID.Hex()); err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}
	sessionID := f.gateway.LastSessionID()
	f.gateway.Pay(sessionID, transactionID)
	if _, err := f.payments.ConfirmPayment(context.Background(), sessionID); err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}
	got, _ := f.mem.Parcel(p.ID)
	return got
}

func (f *fixture) approvedRider(t *testing.T, email string) models.Rider {
	t.Helper()
	now := time.Now().UTC()
	f.mem.AddUser(models.User{Email: email, Role: models.RoleRider, CreatedAt: now})
	return f.mem.AddRider(models.Rider{
		Name:       "Riley Rider",
		Email:      email,
		District:   "Dhaka",
		Status:     models.RiderApproved,
		WorkStatus: models.WorkAvailable,
		CreatedAt:  now,
	})
}

func assertKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind.Code())
	}
	if got := apperror.KindOf(err); got != kind {
		t.Fatalf("error kind = %s, want %s (err: %v)", got.Code(), kind.Code(), err)
	}
}

func logsFor(f *fixture, trackingID string) []models.TrackingLog {
	var out []models.TrackingLog
	for _, l := range f.mem.TrackingLogs() {
		if l.TrackingID == trackingID {
			out = append(out, l)
		}
	}
	return out
}
