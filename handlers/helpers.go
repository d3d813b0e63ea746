package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/Dosada05/sports-registration/middleware"
	"github.com/Dosada05/sports-registration/models"
	"github.com/Dosada05/sports-registration/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type jsonResponse map[string]interface{}

const internalErrorMessage = "the server encountered a problem and could not process your request"

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // Паника, т.к. это ошибка программиста (передан не указатель)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func writeSuccess(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, payload jsonResponse) {
	if payload == nil {
		payload = jsonResponse{}
	}
	payload["success"] = true
	if err := writeJSON(w, status, payload, nil); err != nil {
		logger.ErrorContext(r.Context(), "Failed to write JSON response", slog.Any("error", err))
	}
}

func writePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func errorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, message string, code services.Code, extra jsonResponse) {
	env := jsonResponse{
		"success":    false,
		"error":      message,
		"error_code": code,
	}
	for k, v := range extra {
		env[k] = v
	}
	if err := writeJSON(w, status, env, nil); err != nil {
		logger.ErrorContext(r.Context(), "Failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.ErrorContext(r.Context(), "Internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	errorResponse(w, r, logger, http.StatusInternalServerError, internalErrorMessage, services.CodeInternal, nil)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	errorResponse(w, r, logger, http.StatusBadRequest, err.Error(), services.CodeValidationFailed, nil)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	errorResponse(w, r, logger, http.StatusUnauthorized, services.ErrUnauthorized.Message, services.CodeUnauthorized, nil)
}

var statusByCode = map[services.Code]int{
	services.CodeValidationFailed:      http.StatusUnprocessableEntity,
	services.CodeEventNotFound:         http.StatusNotFound,
	services.CodeTeamNotFound:          http.StatusNotFound,
	services.CodeMemberNotFound:        http.StatusNotFound,
	services.CodeSportNotFound:         http.StatusNotFound,
	services.CodeUserNotFound:          http.StatusNotFound,
	services.CodeInvalidCode:           http.StatusNotFound,
	services.CodeDuplicateRegistration: http.StatusConflict,
	services.CodeDuplicateTeamName:     http.StatusConflict,
	services.CodeAlreadyRegistered:     http.StatusConflict,
	services.CodeTeamFull:              http.StatusConflict,
	services.CodeEventInUse:            http.StatusConflict,
	services.CodeRegistrationClosed:    http.StatusForbidden,
	services.CodeNotATeamMember:        http.StatusForbidden,
	services.CodeCannotExitAsLeader:    http.StatusForbidden,
	services.CodeForbidden:             http.StatusForbidden,
	services.CodeCannotRemoveLeader:    http.StatusForbidden,
	services.CodeAccessDenied:          http.StatusForbidden,
	services.CodeUnauthorized:          http.StatusUnauthorized,
	services.CodeAccountDeleted:        http.StatusUnauthorized,
	services.CodeDocumentInvalid:       http.StatusBadRequest,
	services.CodeStorageUnavailable:    http.StatusServiceUnavailable,
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := services.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		serverErrorResponse(w, r, logger, err)
		return
	}

	var extra jsonResponse
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		extra = jsonResponse{"fields": validationErr.Fields}
	}
	errorResponse(w, r, logger, status, err.Error(), code, extra)
}

func getUUIDFromURL(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s in URL path", param)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s format", param)
	}
	return id, nil
}

func identityFromRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (models.Identity, bool) {
	identity, err := middleware.GetIdentityFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, logger)
		return models.Identity{}, false
	}
	return identity, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func errInvalidQueryParam(name string) error {
	return fmt.Errorf("invalid %s query parameter", name)
}
