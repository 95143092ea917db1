package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stripe/stripe-go/v76"

	"github.com/markjakearzadon/zapshift-gobackend/internal/apperror"
	"github.com/markjakearzadon/zapshift-gobackend/internal/services"
)

func newStripeTestGateway(t *testing.T, handler http.HandlerFunc) *services.StripeGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return services.NewStripeGateway("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
}

func TestStripeGateway_CreateSession(t *testing.T) {
	gw := newStripeTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
			return
		}
		if got := r.PostForm.Get("mode"); got != "payment" {
			t.Errorf("mode = %q, want payment", got)
		}
		checks := map[string]string{
			"line_items[0][price_data][unit_amount]":        "1235",
			"line_items[0][price_data][currency]":           "usd",
			"line_items[0][price_data][product_data][name]": "Parcel Payment for Books",
			"line_items[0][quantity]":                       "1",
			"customer_email":                                "sender@example.com",
			"metadata[parcelId]":                            "parcel-1",
		}
		for key, want := range checks {
			if got := r.PostForm.Get(key); got != want {
				t.Errorf("form %s = %q, want %q", key, got, want)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.test/cs_test_1","payment_status":"unpaid"}`))
	})

	sess, err := gw.CreateSession(context.Background(), services.CheckoutRequest{
		ProductName:   "Parcel Payment for Books",
		Amount:        1235,
		Currency:      "usd",
		CustomerEmail: "sender@example.com",
		SuccessURL:    "https://app.example.test/ok",
		CancelURL:     "https://app.example.test/cancel",
		Metadata:      map[string]string{"parcelId": "parcel-1"},
	})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if sess.ID != "cs_test_1" || sess.URL != "https://checkout.stripe.test/cs_test_1" || sess.IsPaid() {
		t.Errorf("CreateSession() = %+v", sess)
	}
}

func TestStripeGateway_GetSession(t *testing.T) {
	gw := newStripeTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/checkout/sessions/cs_paid":
			_, _ = w.Write([]byte(`{
				"id": "cs_paid",
				"object": "checkout.session",
				"payment_status": "paid",
				"payment_intent": "pi_987",
				"amount_total": 15000,
				"currency": "usd",
				"customer_details": {"email": "buyer@example.com"},
				"metadata": {"parcelId": "parcel-1"}
			}`))
		case "/v1/checkout/sessions/cs_missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such checkout.session"}}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"boom"}}`))
		}
	})
	ctx := context.Background()

	sess, err := gw.GetSession(ctx, "cs_paid")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if !sess.IsPaid() || sess.TransactionID != "pi_987" || sess.AmountTotal != 15000 {
		t.Errorf("GetSession() = %+v", sess)
	}
	if sess.CustomerEmail != "buyer@example.com" {
		t.Errorf("CustomerEmail = %q, want customer details fallback", sess.CustomerEmail)
	}
	if sess.Metadata["parcelId"] != "parcel-1" {
		t.Errorf("Metadata = %v", sess.Metadata)
	}

	_, err = gw.GetSession(ctx, "cs_missing")
	assertKind(t, err, apperror.KindNotFound)

	_, err = gw.GetSession(ctx, "cs_broken")
	assertKind(t, err, apperror.KindUpstream)
}
