// Package usertoken resolves the caller identity from a bearer token.
// A missing or invalid token is not an error: the caller resolves to the
// fixed development identity, so every request has a consistent owner id.
package usertoken

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"docforge/pkg/domain"
)

const (
	defaultAnonymousID = "test_user_123"
	defaultLeeway      = 30 * time.Second
)

// Config configures access-token verification.
type Config struct {
	Secret      string
	Issuer      string
	AnonymousID string
	Leeway      time.Duration
}

// Verifier validates HS256 user access tokens.
type Verifier struct {
	secret      []byte
	issuer      string
	anonymousID string
	leeway      time.Duration
}

type accessClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// NewVerifier creates a token verifier. An empty secret disables token
// verification entirely: every caller resolves to the anonymous identity.
func NewVerifier(cfg Config) *Verifier {
	anonymousID := strings.TrimSpace(cfg.AnonymousID)
	if anonymousID == "" {
		anonymousID = defaultAnonymousID
	}
	leeway := cfg.Leeway
	if leeway <= 0 {
		leeway = defaultLeeway
	}
	return &Verifier{
		secret:      []byte(strings.TrimSpace(cfg.Secret)),
		issuer:      strings.TrimSpace(cfg.Issuer),
		anonymousID: anonymousID,
		leeway:      leeway,
	}
}

// Resolve returns the caller identity for the request. Missing, malformed,
// or expired tokens resolve to the anonymous development identity.
func (v *Verifier) Resolve(r *http.Request) domain.Identity {
	token, ok := bearerToken(r)
	if !ok {
		return v.anonymous()
	}
	identity, err := v.Verify(token)
	if err != nil {
		return v.anonymous()
	}
	return identity
}

// Verify validates the token and returns the authenticated identity.
func (v *Verifier) Verify(token string) (domain.Identity, error) {
	if len(v.secret) == 0 {
		return domain.Identity{}, errors.New("token verification disabled")
	}
	claims := accessClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return domain.Identity{}, err
	}
	if !parsed.Valid {
		return domain.Identity{}, errors.New("invalid token")
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return domain.Identity{}, errors.New("token subject missing")
	}
	return domain.Identity{ID: subject, Email: claims.Email}, nil
}

func (v *Verifier) anonymous() domain.Identity {
	return domain.Identity{ID: v.anonymousID, Anonymous: true}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}
