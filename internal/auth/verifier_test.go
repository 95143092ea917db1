package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testProject = "zapshift-test"

type certServer struct {
	url   string
	hits  atomic.Int32
	key   *rsa.PrivateKey
	keyID string
}

func newCertServer(t *testing.T) *certServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken.system.gserviceaccount.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate() error = %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	cs := &certServer{key: key, keyID: "kid-1"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		json.NewEncoder(w).Encode(map[string]string{cs.keyID: string(certPEM)})
	}))
	t.Cleanup(srv.Close)
	cs.url = srv.URL
	return cs
}

func (cs *certServer) sign(t *testing.T, claims jwt.MapClaims, kid string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(cs.key)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return signed
}

func validClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":   "https://securetoken.google.com/" + testProject,
		"aud":   testProject,
		"sub":   "uid-123",
		"email": "sender@example.com",
		"iat":   now.Add(-time.Minute).Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
}

func TestFirebaseVerifier_ValidToken(t *testing.T) {
	cs := newCertServer(t)
	v := NewFirebaseVerifier(testProject, cs.url, nil)

	id, err := v.Verify(context.Background(), cs.sign(t, validClaims(), cs.keyID))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.Email != "sender@example.com" || id.UID != "uid-123" {
		t.Errorf("Verify() = %+v", id)
	}

	// Second verification is served from the certificate cache.
	if _, err := v.Verify(context.Background(), cs.sign(t, validClaims(), cs.keyID)); err != nil {
		t.Fatalf("second Verify() error = %v", err)
	}
	if hits := cs.hits.Load(); hits != 1 {
		t.Errorf("certificate fetches = %d, want 1", hits)
	}
}

func TestFirebaseVerifier_RejectsBadTokens(t *testing.T) {
	cs := newCertServer(t)

	tests := []struct {
		name   string
		mutate func(c jwt.MapClaims)
		kid    string
	}{
		{name: "wrong audience", mutate: func(c jwt.MapClaims) { c["aud"] = "other-project" }},
		{name: "wrong issuer", mutate: func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" }},
		{name: "expired", mutate: func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Minute).Unix() }},
		{name: "no expiry", mutate: func(c jwt.MapClaims) { delete(c, "exp") }},
		{name: "no email", mutate: func(c jwt.MapClaims) { delete(c, "email") }},
		{name: "no subject", mutate: func(c jwt.MapClaims) { delete(c, "sub") }},
		{name: "unknown key", mutate: func(jwt.MapClaims) {}, kid: "kid-unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewFirebaseVerifier(testProject, cs.url, nil)
			claims := validClaims()
			tt.mutate(claims)
			kid := tt.kid
			if kid == "" {
				kid = cs.keyID
			}

			_, err := v.Verify(context.Background(), cs.sign(t, claims, kid))
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestFirebaseVerifier_RejectsHMACTokens(t *testing.T) {
	cs := newCertServer(t)
	v := NewFirebaseVerifier(testProject, cs.url, nil)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
	token.Header["kid"] = cs.keyID
	signed, err := token.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := v.Verify(context.Background(), signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestFirebaseVerifier_RefetchesAfterExpiry(t *testing.T) {
	cs := newCertServer(t)
	v := NewFirebaseVerifier(testProject, cs.url, nil)
	clock := time.Now()
	v.now = func() time.Time { return clock }

	if _, err := v.Verify(context.Background(), cs.sign(t, validClaims(), cs.keyID)); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	clock = clock.Add(2 * time.Hour)
	claims := validClaims()
	claims["exp"] = clock.Add(time.Hour).Unix()
	if _, err := v.Verify(context.Background(), cs.sign(t, claims, cs.keyID)); err != nil {
		t.Fatalf("Verify() after expiry error = %v", err)
	}
	if hits := cs.hits.Load(); hits != 2 {
		t.Errorf("certificate fetches = %d, want 2", hits)
	}
}

func TestMaxAge(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"public, max-age=19302, must-revalidate, no-transform", 19302 * time.Second},
		{"max-age=60", time.Minute},
		{"no-cache", defaultKeyTTL},
		{"max-age=abc", defaultKeyTTL},
		{"", defaultKeyTTL},
	}
	for _, tt := range tests {
		if got := maxAge(tt.header); got != tt.want {
			t.Errorf("maxAge(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
