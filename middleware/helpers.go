package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Dosada05/sports-registration/models"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Коды совпадают с services.Code; middleware не зависит от services.
const (
	codeUnauthorized   = "UNAUTHORIZED"
	codeAccountDeleted = "ACCOUNT_DELETED"
	codeForbidden      = "FORBIDDEN"
	codeInternal       = "INTERNAL_ERROR"
)

var ErrNoIdentity = errors.New("identity not found in context")

func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

func GetIdentityFromContext(ctx context.Context) (models.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(models.Identity)
	if !ok {
		return models.Identity{}, ErrNoIdentity
	}
	return identity, nil
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    false,
		"error":      message,
		"error_code": code,
	})
}
