// Package auth identifies the calling user from a signed bearer token.
//
// Tokens are HS256 JWTs whose subject is the user id. They are minted by the
// identity provider in front of this service (or by Issue, for tests and
// local tools). Browsers that cannot set headers on a websocket upgrade may
// pass the token as the "token" query parameter instead.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/campuslink/internal/app/system/pairkey"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// TokenParam is the query parameter checked when no Authorization header is
// present.
const TokenParam = "token"

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// ErrNoToken is returned when the request carries no token at all.
var ErrNoToken = errors.New("auth: no token")

// Claims carried in a campuslink token.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier checks tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	log    *zap.Logger
}

// NewVerifier returns a Verifier for secret. Secrets shorter than 32 bytes
// are accepted with a warning.
func NewVerifier(secret string, logger *zap.Logger) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty; provide ≥32 random chars")
	}
	if len(secret) < 32 {
		logger.Warn("jwt secret is short; 32+ chars recommended",
			zap.Int("length", len(secret)))
	}
	return &Verifier{secret: []byte(secret), log: logger}, nil
}

// Issue signs a token for userID that expires after ttl.
func Issue(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse validates a token string and returns its subject.
func (v *Verifier) Parse(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("auth: token has no subject")
	}
	if err := pairkey.Check(claims.Subject); err != nil {
		return "", fmt.Errorf("auth: token subject: %w", err)
	}
	return claims.Subject, nil
}

// LoadUser puts the token's user id into the request context when a valid
// token is present. Requests without one pass through unchanged.
func (v *Verifier) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := tokenFrom(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := v.Parse(raw)
		if err != nil {
			v.log.Debug("rejected token", zap.Error(err), zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, withUser(r, userID))
	})
}

// RequireUser answers 401 unless LoadUser (or WithTestUser) identified the
// caller.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUserID(r); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CurrentUserID returns the caller's user id and whether one is present.
func CurrentUserID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(currentUserKey).(string)
	return id, ok && id != ""
}

// WithTestUser returns r with userID as the current user. For tests.
func WithTestUser(r *http.Request, userID string) *http.Request {
	return withUser(r, userID)
}

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, userID))
}

func tokenFrom(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(tok) != "" {
			return strings.TrimSpace(tok), nil
		}
		return "", ErrNoToken
	}
	if tok := r.URL.Query().Get(TokenParam); tok != "" {
		return tok, nil
	}
	return "", ErrNoToken
}
