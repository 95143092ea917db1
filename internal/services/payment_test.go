package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/models"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

func TestCreateCheckoutSession(t *testing.T) {
	f := newFixture(t)
	p := f.createParcel(t, 12.345)

	url, err := f.payments.CreateCheckoutSession(context.Background(), p.ID.Hex())
	if err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}
	if url == "" {
		t.Fatal("expected checkout url")
	}

	if len(f.gateway.Created) != 1 {
		t.Fatalf("sessions created = %d, want 1", len(f.gateway.Created))
	}
	req := f.gateway.Created[0]
	if req.Amount != 1235 {
		t.Errorf("Amount = %d, want 1235", req.Amount)
	}
	if req.ProductName != "Parcel Payment for Books" {
		t.Errorf("ProductName = %q", req.ProductName)
	}
	if req.CustomerEmail != "sender@example.com" {
		t.Errorf("CustomerEmail = %q", req.CustomerEmail)
	}
	if req.SuccessURL != "https://app.example.test/dashboard/payment-success?session_id={CHECKOUT_SESSION_ID}" {
		t.Errorf("SuccessURL = %q", req.SuccessURL)
	}
	if req.CancelURL != "https://app.example.test/dashboard/payment-cancelled" {
		t.Errorf("CancelURL = %q", req.CancelURL)
	}
	if req.Metadata["parcelId"] != p.ID.Hex() || req.Metadata["parcelName"] != "Books" || req.Metadata["senderName"] != "Sam Sender" {
		t.Errorf("Metadata = %v", req.Metadata)
	}
}

func TestCreateCheckoutSession_Errors(t *testing.T) {
	f := newFixture(t)
	paid := f.paidParcel(t, "pi_paid")

	_, err := f.payments.CreateCheckoutSession(context.Background(), paid.ID.Hex())
	assertKind(t, err, apperror.KindConflict)

	_, err = f.payments.CreateCheckoutSession(context.Background(), "64b7f0c2a1b2c3d4e5f60718")
	assertKind(t, err, apperror.KindNotFound)

	_, err = f.payments.CreateCheckoutSession(context.Background(), "not-an-id")
	assertKind(t, err, apperror.KindValidation)

	// Unpaid but already in the delivery lifecycle.
	stray := f.mem.AddParcel(models.Parcel{
		ParcelName:     "Stray",
		SenderEmail:    "sender@example.com",
		Cost:           20,
		PaymentStatus:  models.PaymentUnpaid,
		DeliveryStatus: models.StatusInTransit,
	})
	_, err = f.payments.CreateCheckoutSession(context.Background(), stray.ID.Hex())
	assertKind(t, err, apperror.KindConflict)
	if n := len(f.gateway.Created); n != 1 {
		t.Errorf("gateway sessions = %d, want 1", n)
	}

	p := f.createParcel(t, 10)
	f.gateway.CreateErr = apperror.New(apperror.KindUpstream, "gateway down")
	_, err = f.payments.CreateCheckoutSession(context.Background(), p.ID.Hex())
	assertKind(t, err, apperror.KindUpstream)
}

func TestConfirmPayment_CreateCheckoutConfirm(t *testing.T) {
	f := newFixture(t)
	p := f.createParcel(t, 150)

	if _, err := f.payments.CreateCheckoutSession(context.Background(), p.ID.Hex()); err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}
	sessionID := f.gateway.LastSessionID()
	f.gateway.Pay(sessionID, "pi_123")

	conf, err := f.payments.ConfirmPayment(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}
	if !conf.Success || conf.AlreadyProcessed {
		t.Fatalf("confirmation = %+v, want first successful confirmation", conf)
	}
	if !trackingIDPattern.MatchString(conf.TrackingID) {
		t.Errorf("TrackingID = %q, unexpected format", conf.TrackingID)
	}
	if conf.TransactionID != "pi_123" || conf.CustomerEmail != "sender@example.com" {
		t.Errorf("confirmation = %+v", conf)
	}

	got, _ := f.mem.Parcel(p.ID)
	if got.PaymentStatus != models.PaymentPaid || got.DeliveryStatus != models.StatusPendingPickup {
		t.Errorf("parcel = %s/%s, want paid/pending-pickup", got.PaymentStatus, got.DeliveryStatus)
	}
	if got.TrackingID != conf.TrackingID {
		t.Errorf("parcel tracking id = %q, want %q", got.TrackingID, conf.TrackingID)
	}

	payments := f.mem.Payments()
	if len(payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(payments))
	}
	if payments[0].Amount != 150 || payments[0].Currency != "usd" || payments[0].ParcelID != p.ID.Hex() {
		t.Errorf("payment = %+v", payments[0])
	}

	logs := logsFor(f, conf.TrackingID)
	if len(logs) != 1 || logs[0].Status != models.StatusPendingPickup {
		t.Errorf("tracking logs = %+v, want one pending-pickup entry", logs)
	}
}

func TestConfirmPayment_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	p := f.createParcel(t, 40)
	if _, err := f.payments.CreateCheckoutSession(context.Background(), p.ID.Hex()); err != nil {
		t.Fatal(err)
	}
	sessionID := f.gateway.LastSessionID()
	f.gateway.Pay(sessionID, "pi_twice")

	first, err := f.payments.ConfirmPayment(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("first ConfirmPayment() error = %v", err)
	}
	second, err := f.payments.ConfirmPayment(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("second ConfirmPayment() error = %v", err)
	}

	if !second.AlreadyProcessed {
		t.Error("second confirmation should report already processed")
	}
	if second.TrackingID != first.TrackingID {
		t.Errorf("second tracking id = %q, want %q", second.TrackingID, first.TrackingID)
	}
	if n := len(f.mem.Payments()); n != 1 {
		t.Errorf("payments = %d, want 1", n)
	}
	if n := len(logsFor(f, first.TrackingID)); n != 1 {
		t.Errorf("tracking logs = %d, want 1", n)
	}
}

func TestConfirmPayment_ConcurrentConfirmations(t *testing.T) {
	f := newFixture(t)
	p := f.createParcel(t, 75)
	if _, err := f.payments.CreateCheckoutSession(context.Background(), p.ID.Hex()); err != nil {
		t.Fatal(err)
	}
	sessionID := f.gateway.LastSessionID()
	f.gateway.Pay(sessionID, "pi_race")

	const workers = 16
	results := make([]*services.Confirmation, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.payments.ConfirmPayment(context.Background(), sessionID)
		}(i)
	}
	wg.Wait()

	got, _ := f.mem.Parcel(p.ID)
	processed := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("worker %d error = %v", i, errs[i])
		}
		if results[i].TrackingID != got.TrackingID {
			t.Errorf("worker %d tracking id = %q, want %q", i, results[i].TrackingID, got.TrackingID)
		}
		if !results[i].AlreadyProcessed {
			processed++
		}
	}
	if processed != 1 {
		t.Errorf("first-time confirmations = %d, want 1", processed)
	}
	if n := len(f.mem.Payments()); n != 1 {
		t.Errorf("payments = %d, want 1", n)
	}
	if n := len(logsFor(f, got.TrackingID)); n != 1 {
		t.Errorf("tracking logs = %d, want 1", n)
	}
}

func TestConfirmPayment_RepairsMissingTrackingLog(t *testing.T) {
	f := newFixture(t)
	p := f.createParcel(t, 20)
	if _, err := f.payments.CreateCheckoutSession(context.Background(), p.ID.Hex()); err != nil {
		t.Fatal(err)
	}
	sessionID := f.gateway.LastSessionID()
	f.gateway.Pay(sessionID, "pi_repair")

	// A payment recorded before its tracking log was written.
	err := f.store.Payments.Insert(context.Background(), &models.Payment{
		TransactionID: "pi_repair",
		ParcelID:      p.ID.Hex(),
		TrackingID:    "PKG-20240101-0000ABCD",
		PaidAt:        time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}

	conf, err := f.payments.ConfirmPayment(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}
	if !conf.AlreadyProcessed || conf.TrackingID != "PKG-20240101-0000ABCD" {
		t.Errorf("confirmation = %+v", conf)
	}
	logs := logsFor(f, "PKG-20240101-0000ABCD")
	if len(logs) != 1 || logs[0].Status != models.StatusPendingPickup {
		t.Errorf("tracking logs = %+v, want repaired pending-pickup entry", logs)
	}
	if n := len(f.mem.Payments()); n != 1 {
		t.Errorf("payments = %d, want 1", n)
	}
}

func TestConfirmPayment_UnpaidSession(t *testing.T) {
	f := newFixture(t)
	p := f.createParcel(t, 20)
	if _, err := f.payments.CreateCheckoutSession(context.Background(), p.ID.Hex()); err != nil {
		t.Fatal(err)
	}

	conf, err := f.payments.ConfirmPayment(context.Background(), f.gateway.LastSessionID())
	if err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}
	if !conf.Success || conf.AlreadyProcessed || conf.TrackingID != "" {
		t.Errorf("confirmation = %+v, want bare acknowledgement", conf)
	}
	got, _ := f.mem.Parcel(p.ID)
	if got.PaymentStatus != models.PaymentUnpaid || got.TrackingID != "" {
		t.Errorf("parcel = %+v, want untouched", got)
	}
	if n := len(f.mem.Payments()); n != 0 {
		t.Errorf("payments = %d, want 0", n)
	}
}

func TestConfirmPayment_GatewayErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.payments.ConfirmPayment(context.Background(), " ")
	assertKind(t, err, apperror.KindValidation)

	_, err = f.payments.ConfirmPayment(context.Background(), "cs_missing")
	assertKind(t, err, apperror.KindNotFound)

	f.gateway.GetErr = apperror.Wrap(apperror.KindUpstream, errors.New("timeout"), "failed to retrieve checkout session")
	_, err = f.payments.ConfirmPayment(context.Background(), "cs_any")
	assertKind(t, err, apperror.KindUpstream)
}

func TestNewPaymentFilter(t *testing.T) {
	filter, err := services.NewPaymentFilter("a@example.com", "2024-02-01", "2024-02-29")
	if err != nil {
		t.Fatalf("NewPaymentFilter() error = %v", err)
	}
	if want := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC); !filter.From.Equal(want) {
		t.Errorf("From = %v, want %v", filter.From, want)
	}
	if want := time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC); !filter.To.Equal(want) {
		t.Errorf("To = %v, want %v", filter.To, want)
	}

	tests := []struct {
		name       string
		start, end string
	}{
		{"bad start", "yesterday", ""},
		{"bad end", "", "31/01/2024"},
		{"reversed", "2024-03-02", "2024-03-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := services.NewPaymentFilter("a@example.com", tt.start, tt.end)
			assertKind(t, err, apperror.KindValidation)
		})
	}
}

func TestHistory_FiltersByEmailNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, email := range []string{"a@example.com", "b@example.com", "a@example.com"} {
		err := f.store.Payments.Insert(ctx, &models.Payment{
			TransactionID: "pi_" + email + string(rune('0'+i)),
			CustomerEmail: email,
			PaidAt:        base.AddDate(0, 0, i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := f.payments.History(ctx, services.PaymentFilter{CustomerEmail: "a@example.com"})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("History() returned %d payments, want 2", len(got))
	}
	if !got[0].PaidAt.After(got[1].PaidAt) {
		t.Error("History() should be newest first")
	}
}
