package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"historia-diaria/internal/config"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestRequireAdmin(t *testing.T) {
	admin, err := IssueToken(testSecret, "ops@example.com", RoleAdmin, time.Hour)
	require.NoError(t, err)
	viewer, err := IssueToken(testSecret, "viewer@example.com", "viewer", time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, "ops@example.com", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueToken([]byte("ffffffffffffffffffffffffffffffff"), "ops@example.com", RoleAdmin, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "ops", "role": RoleAdmin, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"admin", "Bearer " + admin, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong role", "Bearer " + viewer, http.StatusForbidden},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"other secret", "Bearer " + foreign, http.StatusUnauthorized},
		{"alg none", "Bearer " + none, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var user string
			h := RequireAdmin(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user, _ = UserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodPost, "/api/admin/generate", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "ops@example.com", user)
			}
		})
	}
}

func TestValidateToken_Errors(t *testing.T) {
	_, err := ValidateToken("", testSecret)
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = ValidateToken("Bearer not.a.jwt", testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSub, err := IssueToken(testSecret, "", RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken("Bearer "+noSub, testSecret)
	assert.Error(t, err)
}

func TestIssueToken_WeakSecret(t *testing.T) {
	_, err := IssueToken([]byte("short"), "ops", RoleAdmin, time.Hour)
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := LoadConfig()
		assert.True(t, errors.Is(err, config.ErrConfigurationMissing))
	})
	t.Run("weak", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "tooshort")
		_, err := LoadConfig()
		assert.ErrorIs(t, err, ErrWeakSecret)
	})
	t.Run("ok", func(t *testing.T) {
		t.Setenv("JWT_SECRET", string(testSecret))
		t.Setenv("JWT_TTL", "2h")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, testSecret, cfg.Secret)
		assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	})
}
