package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/sports-registration/models"
	"github.com/Dosada05/sports-registration/sessions"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, sub, email string, expiresIn time.Duration) string {
	t.Helper()
	claims := IdentityClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// Helper: protected handler that echoes the identity from context
func identityEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := GetIdentityFromContext(r.Context())
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(identity)
	})
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, false, body["success"])
	code, _ := body["error_code"].(string)
	return code
}

func TestAuthenticate_ValidToken(t *testing.T) {
	registry := sessions.NewMemoryRegistry(time.Hour, time.Hour)
	auth := NewAuthenticator(testSecret, registry, testLogger())
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/registrations/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.SigningMethodHS256, userID.String(), "user@example.com", time.Hour))
	rec := httptest.NewRecorder()

	auth.Authenticate(identityEcho(t)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var identity models.Identity
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&identity))
	assert.Equal(t, userID, identity.ID)
	assert.Equal(t, "user@example.com", identity.Email)

	active, err := registry.Active(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{userID}, active)
}

func TestAuthenticate_QueryTokenForWebsocket(t *testing.T) {
	auth := NewAuthenticator(testSecret, sessions.NewMemoryRegistry(time.Hour, time.Hour), testLogger())
	token := signToken(t, testSecret, jwt.SigningMethodHS256, uuid.NewString(), "ws@example.com", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/ws/session?access_token="+token, nil)
	rec := httptest.NewRecorder()
	auth.Authenticate(identityEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_Rejections(t *testing.T) {
	auth := NewAuthenticator(testSecret, sessions.NewMemoryRegistry(time.Hour, time.Hour), testLogger())
	userID := uuid.NewString()

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"expired", "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, userID, "a@example.com", -time.Minute)},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", jwt.SigningMethodHS256, userID, "a@example.com", time.Hour)},
		{"subject not a uuid", "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, "42", "a@example.com", time.Hour)},
		{"garbage", "Bearer not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/registrations/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			auth.Authenticate(identityEcho(t)).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, codeUnauthorized, decodeErrorCode(t, rec))
		})
	}
}

func TestAuthenticate_RevokedAccount(t *testing.T) {
	registry := sessions.NewMemoryRegistry(time.Hour, time.Hour)
	auth := NewAuthenticator(testSecret, registry, testLogger())
	userID := uuid.New()
	require.NoError(t, registry.Revoke(context.Background(), userID))

	req := httptest.NewRequest(http.MethodGet, "/registrations/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.SigningMethodHS256, userID.String(), "gone@example.com", time.Hour))
	rec := httptest.NewRecorder()
	auth.Authenticate(identityEcho(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, codeAccountDeleted, decodeErrorCode(t, rec))
}

type adminCheckerFunc func(ctx context.Context, userID uuid.UUID) (bool, error)

func (f adminCheckerFunc) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	return f(ctx, userID)
}

func TestRequireAdmin(t *testing.T) {
	adminID := uuid.New()
	checker := adminCheckerFunc(func(ctx context.Context, userID uuid.UUID) (bool, error) {
		if userID == uuid.Nil {
			return false, errors.New("lookup failed")
		}
		return userID == adminID, nil
	})
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := RequireAdmin(checker, testLogger())(ok)

	tests := []struct {
		name     string
		identity *models.Identity
		status   int
		code     string
	}{
		{"admin", &models.Identity{ID: adminID}, http.StatusNoContent, ""},
		{"regular user", &models.Identity{ID: uuid.New()}, http.StatusForbidden, codeForbidden},
		{"lookup failure", &models.Identity{ID: uuid.Nil}, http.StatusInternalServerError, codeInternal},
		{"no identity", nil, http.StatusUnauthorized, codeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tt.identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), *tt.identity))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeErrorCode(t, rec))
			}
		})
	}
}
