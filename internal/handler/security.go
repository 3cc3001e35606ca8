package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/velano/storefront/internal/domain/user"
)

// ErrInvalidToken is returned for malformed, tampered or expired tokens.
var ErrInvalidToken = errors.New("invalid token")

// Principal is the authenticated caller resolved from a session token.
type Principal struct {
	UserID string
	Role   user.Role
}

// Admin reports whether the principal has the admin role.
func (p Principal) Admin() bool {
	return p.Role == user.RoleAdmin
}

// TokenIssuer mints and verifies opaque session tokens. A token is the
// base64url payload "userID:role:expiryUnix" plus a hex HMAC-SHA256 over
// the payload under a server-side secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration

	now func() time.Time
}

// NewTokenIssuer creates a TokenIssuer with the given secret and lifetime.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue mints a token for the user.
func (t *TokenIssuer) Issue(u *user.User) string {
	payload := fmt.Sprintf("%s:%s:%d", u.ID, u.Role, t.now().Add(t.ttl).Unix())
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return encoded + "." + t.sign(encoded)
}

// Verify checks a token's signature and expiry and returns its principal.
func (t *TokenIssuer) Verify(token string) (Principal, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok {
		return Principal{}, ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(t.sign(encoded)), []byte(sig)) != 1 {
		return Principal{}, ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	parts := strings.Split(string(payload), ":")
	if len(parts) != 3 {
		return Principal{}, ErrInvalidToken
	}
	exp, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || t.now().After(time.Unix(exp, 0)) {
		return Principal{}, ErrInvalidToken
	}

	return Principal{UserID: parts[0], Role: user.Role(parts[1])}, nil
}

func (t *TokenIssuer) sign(payload string) string {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// authenticate resolves the Bearer token on a request, or fails with 401.
func (h *Handler) authenticate(r *http.Request) (Principal, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return Principal{}, ErrInvalidToken
	}
	return h.tokens.Verify(token)
}

// withAuth wraps an authenticated endpoint.
func (h *Handler) withAuth(next func(w http.ResponseWriter, r *http.Request, p Principal)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := h.authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, p)
	}
}

// withAdmin wraps an admin-only endpoint.
func (h *Handler) withAdmin(next func(w http.ResponseWriter, r *http.Request, p Principal)) http.HandlerFunc {
	return h.withAuth(func(w http.ResponseWriter, r *http.Request, p Principal) {
		if !p.Admin() {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r, p)
	})
}
