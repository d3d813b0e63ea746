package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/sports-registration/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CatalogHandler struct {
	catalog services.CatalogService
	logger  *slog.Logger
}

func NewCatalogHandler(catalog services.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

func (h *CatalogHandler) ListSports(w http.ResponseWriter, r *http.Request) {
	sports, err := h.catalog.ListSports(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"sports": sports})
}

func (h *CatalogHandler) GetSport(w http.ResponseWriter, r *http.Request) {
	sport, err := h.catalog.GetSportBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"sport": sport})
}

// ListEvents принимает фильтры sport_id, date, location, registration_type.
func (h *CatalogHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.EventListFilter{
		Date:             q.Get("date"),
		Location:         q.Get("location"),
		RegistrationType: q.Get("registration_type"),
	}
	if raw := q.Get("sport_id"); raw != "" {
		sportID, err := uuid.Parse(raw)
		if err != nil {
			badRequestResponse(w, r, h.logger, errInvalidQueryParam("sport_id"))
			return
		}
		filter.SportID = &sportID
	}

	events, err := h.catalog.ListEvents(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"events": events})
}

func (h *CatalogHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := getUUIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	event, err := h.catalog.GetEvent(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"event": event})
}
