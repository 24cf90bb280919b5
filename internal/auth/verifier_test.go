package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const testIssuer = "https://auth.example.com"

type testKeys struct {
	private jwk.Key
	server  *httptest.Server
}

func newTestKeys(t *testing.T) *testKeys {
	t.Helper()

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	private, err := jwk.FromRaw(rsaKey)
	if err != nil {
		t.Fatalf("wrap key: %v", err)
	}
	if err := private.Set(jwk.KeyIDKey, "test-key"); err != nil {
		t.Fatalf("set kid: %v", err)
	}
	if err := private.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		t.Fatalf("set alg: %v", err)
	}

	public, err := private.PublicKey()
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	set := jwk.NewSet()
	if err := set.AddKey(public); err != nil {
		t.Fatalf("add key: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(server.Close)

	return &testKeys{private: private, server: server}
}

func (k *testKeys) signToken(t *testing.T, issuer string, expiresIn time.Duration) string {
	t.Helper()

	token, err := jwt.NewBuilder().
		Issuer(issuer).
		Subject("user-123").
		Audience([]string{"sonna"}).
		Claim("email", "user@example.com").
		Claim("name", "Test User").
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(expiresIn)).
		Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, k.private))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func TestVerifyValidToken(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	verifier := NewVerifier(NewJWKSCache(keys.server.URL), testIssuer)

	claims, err := verifier.Verify(context.Background(), keys.signToken(t, testIssuer, time.Hour))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Sub != "user-123" {
		t.Errorf("Sub = %q, want user-123", claims.Sub)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Email = %q, want user@example.com", claims.Email)
	}
	if claims.Aud != "sonna" {
		t.Errorf("Aud = %q, want sonna", claims.Aud)
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	verifier := NewVerifier(NewJWKSCache(keys.server.URL), testIssuer)

	if _, err := verifier.Verify(context.Background(), keys.signToken(t, "https://evil.example.com", time.Hour)); err == nil {
		t.Error("expected error for wrong issuer")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	verifier := NewVerifier(NewJWKSCache(keys.server.URL), testIssuer)

	if _, err := verifier.Verify(context.Background(), keys.signToken(t, testIssuer, -time.Hour)); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	verifier := NewVerifier(NewJWKSCache(keys.server.URL), testIssuer)

	if _, err := verifier.Verify(context.Background(), "not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}
