package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sonna-ai/sonna/internal/models"
	"github.com/sonna-ai/sonna/internal/request"
)

type fakeVerifier struct {
	claims *models.JWTClaims
	err    error
}

func (f *fakeVerifier) Verify(context.Context, string) (*models.JWTClaims, error) {
	return f.claims, f.err
}

type fakeProvisioner struct {
	user *models.User
	err  error
}

func (f *fakeProvisioner) GetOrCreateByProviderID(context.Context, string, string, string) (*models.User, error) {
	return f.user, f.err
}

func TestAuthMissingHeader(t *testing.T) {
	t.Parallel()

	handler := Auth(&fakeVerifier{}, &fakeProvisioner{}, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/reminders", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMalformedHeader(t *testing.T) {
	t.Parallel()

	handler := Auth(&fakeVerifier{}, &fakeProvisioner{}, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/reminders", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthInvalidToken(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{err: errors.New("signature mismatch")}
	handler := Auth(verifier, &fakeProvisioner{}, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/reminders", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthAttachesUser(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: uuid.New(), Email: "user@example.com"}
	verifier := &fakeVerifier{claims: &models.JWTClaims{Sub: "provider-sub", Email: user.Email}}
	provisioner := &fakeProvisioner{user: user}

	var gotUser *models.User
	handler := Auth(verifier, provisioner, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = request.UserFromContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/reminders", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUser == nil || gotUser.ID != user.ID {
		t.Errorf("user in context = %v, want %v", gotUser, user)
	}
}

func TestAuthProvisioningFailure(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{claims: &models.JWTClaims{Sub: "provider-sub"}}
	provisioner := &fakeProvisioner{err: errors.New("db down")}
	handler := Auth(verifier, provisioner, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/reminders", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
