// Package auth proves that a caller controls an identity. Callers present an
// HS256-signed JWT whose subject is the identity they act as.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/vadimbarashkov/url-registry/internal/entity"
)

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

type tokenCtxKey struct{}

// WithToken returns a copy of ctx carrying the caller's bearer token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenCtxKey{}, token)
}

// TokenFromContext returns the bearer token stored by WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenCtxKey{}).(string)
	return token, ok && token != ""
}

// Middleware copies the bearer token of the Authorization header into the request context.
// Requests without a token pass through untouched.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")

		if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
			r = r.WithContext(WithToken(r.Context(), token))
		}

		next.ServeHTTP(w, r)
	})
}

// Issuer signs tokens for identities.
type Issuer struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewIssuer(secretKey string, ttl time.Duration) *Issuer {
	return &Issuer{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Issue returns a token proving control of identity until the issuer's ttl elapses.
func (i *Issuer) Issue(identity string) (string, error) {
	const op = "adapter.auth.Issuer.Issue"

	if identity == "" {
		return "", fmt.Errorf("%s: empty identity", op)
	}

	now := i.now()
	claims := jwt.StandardClaims{
		Subject:   identity,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(i.ttl).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secretKey)
	if err != nil {
		return "", fmt.Errorf("%s: failed to sign token: %w", op, err)
	}

	return token, nil
}

// Verifier checks the token carried in the request context.
type Verifier struct {
	secretKey []byte
}

func NewVerifier(secretKey string) *Verifier {
	return &Verifier{secretKey: []byte(secretKey)}
}

// RequireAuth succeeds only if ctx carries a valid token whose subject is identity.
// Every failure wraps entity.ErrUnauthorized.
func (v *Verifier) RequireAuth(ctx context.Context, identity string) error {
	const op = "adapter.auth.Verifier.RequireAuth"

	if identity == "" {
		return fmt.Errorf("%s: empty identity: %w", op, entity.ErrUnauthorized)
	}

	tokenString, ok := TokenFromContext(ctx)
	if !ok {
		return fmt.Errorf("%s: missing token: %w", op, entity.ErrUnauthorized)
	}

	var claims jwt.StandardClaims

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigningMethod
		}
		return v.secretKey, nil
	})
	if err != nil {
		return fmt.Errorf("%s: %v: %w", op, err, entity.ErrUnauthorized)
	}

	if !token.Valid {
		return fmt.Errorf("%s: invalid token: %w", op, entity.ErrUnauthorized)
	}

	if claims.Subject != identity {
		return fmt.Errorf("%s: token subject does not match identity: %w", op, entity.ErrUnauthorized)
	}

	return nil
}
