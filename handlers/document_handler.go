package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Dosada05/sports-registration/services"
)

// Запас на заголовки multipart поверх лимита на сам файл.
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	documents services.DocumentService
	logger    *slog.Logger
}

func NewDocumentHandler(documents services.DocumentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{documents: documents, logger: logger}
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	registrationID, err := getUUIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxDocumentSize+multipartOverhead)
	if err := r.ParseMultipartForm(services.MaxDocumentSize + multipartOverhead); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			mapServiceErrorToHTTP(w, r, h.logger, services.ErrDocumentTooLarge)
			return
		}
		badRequestResponse(w, r, h.logger, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequestResponse(w, r, h.logger, fmt.Errorf("failed to get file from form: %w", err))
		return
	}
	defer file.Close()

	doc, err := h.documents.Upload(r.Context(), registrationID, identity, header.Filename, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	writeSuccess(w, r, h.logger, http.StatusCreated, jsonResponse{"document": doc})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	registrationID, err := getUUIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	docs, err := h.documents.List(r.Context(), registrationID, identity)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"documents": docs})
}
