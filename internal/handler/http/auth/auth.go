// Package auth guards admin endpoints with HS256 bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"historia-diaria/internal/config"
	"historia-diaria/internal/handler/http/respond"
	envcfg "historia-diaria/pkg/config"
)

// RoleAdmin is the only role allowed through RequireAdmin.
const RoleAdmin = "admin"

// MinSecretLength is the shortest accepted JWT_SECRET.
const MinSecretLength = 32

var (
	ErrMissingToken   = errors.New("missing bearer token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrWeakSecret     = fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLength)
	errInvalidSubject = errors.New("invalid sub claim")
)

type ctxKey string

const ctxUser ctxKey = "user"

// Claims are the token claims issued and accepted by this package.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Config holds the signing secret.
type Config struct {
	Secret   []byte
	TokenTTL time.Duration
}

// LoadConfig reads JWT_SECRET and JWT_TTL (default 24h).
func LoadConfig() (Config, error) {
	secret := envcfg.GetEnvString("JWT_SECRET", "")
	if secret == "" {
		return Config{}, fmt.Errorf("%w: JWT_SECRET", config.ErrConfigurationMissing)
	}
	if len(secret) < MinSecretLength {
		return Config{}, ErrWeakSecret
	}
	return Config{
		Secret:   []byte(secret),
		TokenTTL: envcfg.GetEnvDuration("JWT_TTL", 24*time.Hour),
	}, nil
}

// UserFromContext returns the subject stored by RequireAdmin.
func UserFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(ctxUser).(string)
	return user, ok
}

// RequireAdmin answers 401 for a missing or invalid token and 403 for a
// valid token without the admin role.
func RequireAdmin(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := ValidateToken(r.Header.Get("Authorization"), secret)
			if err != nil {
				recordAuth("unauthorized")
				respond.SafeError(w, http.StatusUnauthorized, fmt.Errorf("unauthorized: %w", ErrInvalidToken))
				return
			}
			if claims.Role != RoleAdmin {
				recordAuth("forbidden")
				respond.SafeError(w, http.StatusForbidden, errors.New("forbidden: admin role required"))
				return
			}
			recordAuth("ok")
			ctx := context.WithValue(r.Context(), ctxUser, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidateToken parses an "Authorization: Bearer" value. Only HS256 tokens
// with an expiry and a subject are accepted.
func ValidateToken(authz string, secret []byte) (*Claims, error) {
	tokenString, ok := strings.CutPrefix(authz, "Bearer ")
	if !ok || tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, errInvalidSubject
	}
	return claims, nil
}

// IssueToken signs a token for subject with role that expires after ttl.
func IssueToken(secret []byte, subject, role string, ttl time.Duration) (string, error) {
	if len(secret) < MinSecretLength {
		return "", ErrWeakSecret
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "historia-diaria",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
