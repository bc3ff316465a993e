// Package auth verifies bearer credentials and carries the caller's identity
// through the request context.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrMissingAuthorization = errors.New("no token, authorization denied")
	ErrBadAuthorization     = errors.New("bad auth header")
	ErrInvalidToken         = errors.New("token is not valid")
)

// Verifier validates HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
	leeway time.Duration
}

// NewVerifier creates a Verifier for the given secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation()),
		leeway: time.Minute,
	}
}

// OwnerFromHeader extracts the owner identity from an Authorization header value.
func (v *Verifier) OwnerFromHeader(h string) (string, error) {
	token, err := bearerToken(h)
	if err != nil {
		return "", err
	}
	return v.OwnerFromToken(token)
}

// OwnerFromToken validates a raw token and returns its subject.
func (v *Verifier) OwnerFromToken(tokenStr string) (string, error) {
	parsed, err := v.parser.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	now := time.Now()
	if !claims.VerifyExpiresAt(now.Add(-v.leeway).Unix(), false) {
		return "", errors.Join(ErrInvalidToken, errors.New("token expired"))
	}
	if !claims.VerifyNotBefore(now.Add(v.leeway).Unix(), false) {
		return "", errors.Join(ErrInvalidToken, errors.New("token not valid yet"))
	}

	owner := ownerClaim(claims)
	if owner == "" {
		return "", errors.Join(ErrInvalidToken, errors.New("missing subject"))
	}
	return owner, nil
}

// ownerClaim reads "sub", falling back to the {"user": {"id": ...}} and
// {"id": ...} payload shapes older tokens carry.
func ownerClaim(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if user, ok := claims["user"].(map[string]any); ok {
		if id, ok := user["id"].(string); ok && id != "" {
			return id
		}
	}
	if id, ok := claims["id"].(string); ok {
		return id
	}
	return ""
}

func bearerToken(h string) (string, error) {
	h = strings.TrimSpace(h)
	if h == "" {
		return "", ErrMissingAuthorization
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrBadAuthorization
	}
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return "", ErrBadAuthorization
	}
	return token, nil
}

type ownerKey struct{}

// WithOwner returns a context carrying owner.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFrom returns the owner stored by Middleware.
func OwnerFrom(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey{}).(string)
	return owner, ok && owner != ""
}

// Middleware rejects requests without a valid bearer credential and stores the
// caller's identity in the request context. onReject writes the 401 response.
func (v *Verifier) Middleware(onReject func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := v.OwnerFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				onReject(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}

// Sign issues a token for owner. Used by tests and local tooling; token
// issuance for real users happens elsewhere.
func Sign(secret, owner string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": owner,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
