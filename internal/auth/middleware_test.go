package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubVerifier struct {
	VerifyFunc func(ctx context.Context, token string) (*Identity, error)
}

func (s stubVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	return s.VerifyFunc(ctx, token)
}

func TestMiddleware(t *testing.T) {
	verifier := stubVerifier{VerifyFunc: func(_ context.Context, token string) (*Identity, error) {
		if token == "good" {
			return &Identity{UID: "u1", Email: "user@example.com"}, nil
		}
		return nil, errors.New("bad token")
	}}
	var seen string
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = EmailFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusNoContent},
		{"lowercase scheme", "bearer good", http.StatusNoContent},
		{"uppercase scheme", "BEARER good", http.StatusNoContent},
		{"no separator", "Bearergood", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/parcels", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent {
				if seen != "user@example.com" {
					t.Errorf("context email = %q", seen)
				}
				return
			}
			var body map[string]interface{}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["message"] != "unauthorized access" || body["code"] != "unauthorized" || body["success"] != false {
				t.Errorf("body = %v", body)
			}
		})
	}
}
