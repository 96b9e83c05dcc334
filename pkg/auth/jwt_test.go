package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rango-exchange/router-middleware/pkg/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	authority := auth.NewTokenAuthority("test-secret", "router-middleware", time.Hour)

	token, err := authority.IssueToken("ops@example.com", "admin")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := authority.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "ops@example.com" {
		t.Fatalf("subject = %s", claims.Subject)
	}
	if claims.Role != "admin" {
		t.Fatalf("role = %s", claims.Role)
	}
	if claims.Issuer != "router-middleware" {
		t.Fatalf("issuer = %s", claims.Issuer)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := auth.NewTokenAuthority("secret-a", "router-middleware", time.Hour)
	verifier := auth.NewTokenAuthority("secret-b", "router-middleware", time.Hour)

	token, err := issuer.IssueToken("ops", "admin")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := verifier.ValidateToken(token); err == nil {
		t.Fatal("token signed with a different secret was accepted")
	}
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	issuer := auth.NewTokenAuthority("secret", "other-service", time.Hour)
	verifier := auth.NewTokenAuthority("secret", "router-middleware", time.Hour)

	token, err := issuer.IssueToken("ops", "admin")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := verifier.ValidateToken(token); err == nil {
		t.Fatal("token with a different issuer was accepted")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	authority := auth.NewTokenAuthority("secret", "router-middleware", time.Hour)

	// The authority never issues dead tokens (a non-positive ttl falls back
	// to the default), so sign one directly with the right secret and
	// issuer but an expiry in the past.
	claims := auth.Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "router-middleware",
			Subject:   "ops",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := authority.ValidateToken(token); err == nil {
		t.Fatal("expired token was accepted")
	}
}

func TestNewTokenAuthorityDefaultsNonPositiveTTL(t *testing.T) {
	authority := auth.NewTokenAuthority("secret", "router-middleware", -time.Minute)

	token, err := authority.IssueToken("ops", "admin")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	claims, err := authority.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if !claims.ExpiresAt.After(time.Now()) {
		t.Fatal("token issued under the default ttl is already expired")
	}
}

func TestMiddleware(t *testing.T) {
	authority := auth.NewTokenAuthority("secret", "router-middleware", time.Hour)

	var gotSubject string
	handler := authority.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = auth.SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	// No token.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d", rec.Code)
	}

	// Garbage token.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with garbage token = %d", rec.Code)
	}

	// Valid token.
	token, err := authority.IssueToken("ops", "admin")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status with valid token = %d", rec.Code)
	}
	if gotSubject != "ops" {
		t.Fatalf("subject in context = %q", gotSubject)
	}
}
