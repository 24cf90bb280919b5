package auth

import (
	"context"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/sonna-ai/sonna/internal/models"
)

// Verifier verifies JWT bearer tokens against the identity provider's keys
type Verifier struct {
	jwks   *JWKSCache
	issuer string
}

// NewVerifier creates a new JWT verifier
func NewVerifier(jwks *JWKSCache, issuer string) *Verifier {
	return &Verifier{
		jwks:   jwks,
		issuer: issuer,
	}
}

// Verify checks the token's signature, validity window, and issuer, and
// extracts the claims the handlers need
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	keys, err := v.jwks.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	claims := &models.JWTClaims{
		Sub: token.Subject(),
		Iss: token.Issuer(),
		Exp: token.Expiration().Unix(),
		Iat: token.IssuedAt().Unix(),
	}
	if aud := token.Audience(); len(aud) > 0 {
		claims.Aud = aud[0]
	}
	if email, ok := token.Get("email"); ok {
		if s, ok := email.(string); ok {
			claims.Email = s
		}
	}
	if name, ok := token.Get("name"); ok {
		if s, ok := name.(string); ok {
			claims.Name = s
		}
	}

	return claims, nil
}
