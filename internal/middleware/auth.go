package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sonna-ai/sonna/internal/models"
	"github.com/sonna-ai/sonna/internal/request"
)

// TokenVerifier checks a bearer token and returns its claims
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.JWTClaims, error)
}

// UserProvisioner resolves the identity-provider subject to a local user,
// creating one on first sight
type UserProvisioner interface {
	GetOrCreateByProviderID(ctx context.Context, providerID, email, name string) (*models.User, error)
}

// Auth creates authentication middleware that validates JWT bearer tokens
// and attaches the resolved user to the request context
func Auth(verifier TokenVerifier, users UserProvisioner, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			ctx := r.Context()
			claims, err := verifier.Verify(ctx, parts[1])
			if err != nil {
				logger.Warn("token verification failed", zap.Error(err))
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user, err := users.GetOrCreateByProviderID(ctx, claims.Sub, claims.Email, claims.Name)
			if err != nil {
				logger.Error("user provisioning failed", zap.Error(err))
				respondError(w, http.StatusInternalServerError, "Failed to resolve user")
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	_ = json.NewEncoder(w).Encode(response)
}
