package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/sports-registration/models"
	"github.com/Dosada05/sports-registration/sessions"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// IdentityClaims are the claims issued by the identity provider's access tokens.
type IdentityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AdminChecker reports whether a user holds the admin role.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

type Authenticator struct {
	secret   []byte
	registry sessions.Registry
	logger   *slog.Logger
}

func NewAuthenticator(secret string, registry sessions.Registry, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		secret:   []byte(secret),
		registry: registry,
		logger:   logger,
	}
}

func (a *Authenticator) ParseToken(tokenString string) (models.Identity, error) {
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return models.Identity{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Identity{}, ErrInvalidToken
	}
	return models.Identity{ID: userID, Email: claims.Email}, nil
}

// tokenFromRequest reads the Authorization header, falling back to the
// access_token query parameter for websocket upgrades.
func tokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", ErrMissingToken
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

// Authenticate puts the caller's models.Identity into the request context,
// rejects revoked accounts and records the session as active.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := tokenFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required", codeUnauthorized)
			return
		}

		identity, err := a.ParseToken(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error(), codeUnauthorized)
			return
		}

		revoked, err := a.registry.IsRevoked(r.Context(), identity.ID)
		if err != nil {
			a.logger.ErrorContext(r.Context(), "Failed to check session revocation",
				slog.String("user_id", identity.ID.String()),
				slog.Any("error", err),
			)
			writeError(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request", codeInternal)
			return
		}
		if revoked {
			writeError(w, http.StatusUnauthorized, "account no longer exists", codeAccountDeleted)
			return
		}

		if err := a.registry.Touch(r.Context(), identity.ID); err != nil {
			a.logger.WarnContext(r.Context(), "Failed to record active session",
				slog.String("user_id", identity.ID.String()),
				slog.Any("error", err),
			)
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(checker AdminChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := GetIdentityFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "authentication required", codeUnauthorized)
				return
			}

			isAdmin, err := checker.IsAdmin(r.Context(), identity.ID)
			if err != nil {
				logger.ErrorContext(r.Context(), "Failed to check admin role",
					slog.String("user_id", identity.ID.String()),
					slog.Any("error", err),
				)
				writeError(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request", codeInternal)
				return
			}
			if !isAdmin {
				writeError(w, http.StatusForbidden, "admin role required", codeForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
