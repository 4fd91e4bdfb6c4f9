package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/studymesh/studymesh/core"
)

// Identity is the authenticated caller derived from the session credential.
type Identity struct {
	UserID string
	OrgID  string
}

// sessionClaims is the expected JWT payload. The subject carries the user id;
// org is optional.
type sessionClaims struct {
	OrgID string `json:"orgId,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 session tokens.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an authenticator over the shared signing secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Verify parses and validates a raw token, returning the caller identity.
func (a *Authenticator) Verify(raw string) (Identity, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", core.ErrUnauthorized)
	}
	return Identity{UserID: claims.Subject, OrgID: claims.OrgID}, nil
}

type identityKey struct{}

// IdentityFromContext returns the identity the auth middleware attached.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// tokenFromRequest extracts the session credential: the Authorization bearer
// header, or the "token" query parameter for WebSocket upgrades where custom
// headers are unavailable to browser clients.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// RequireAuth rejects requests without a valid session credential before any
// session state is created or touched.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)
		if raw == "" {
			http.Error(w, "missing credential", http.StatusUnauthorized)
			return
		}
		id, err := a.Verify(raw)
		if err != nil {
			http.Error(w, "invalid credential", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
