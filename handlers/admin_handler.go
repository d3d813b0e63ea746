package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Dosada05/sports-registration/services"
	"github.com/google/uuid"
)

type AdminHandler struct {
	admin  services.AdminService
	logger *slog.Logger
}

func NewAdminHandler(admin services.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

func (h *AdminHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	var input services.EventInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	event, err := h.admin.CreateEvent(r.Context(), identity, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writeSuccess(w, r, h.logger, http.StatusCreated, jsonResponse{"event": event})
}

func (h *AdminHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := getUUIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	var input services.EventInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	event, err := h.admin.UpdateEvent(r.Context(), eventID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"event": event})
}

func (h *AdminHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := getUUIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	if err := h.admin.DeleteEvent(r.Context(), eventID, force); err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"message": "event deleted"})
}

// ListRegistrations: sport_id, search, sort_by, order, page, limit.
func (h *AdminHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := services.AdminRegistrationQuery{
		Search: q.Get("search"),
		SortBy: q.Get("sort_by"),
		Order:  q.Get("order"),
	}
	if raw := q.Get("sport_id"); raw != "" {
		sportID, err := uuid.Parse(raw)
		if err != nil {
			badRequestResponse(w, r, h.logger, errInvalidQueryParam("sport_id"))
			return
		}
		query.SportID = &sportID
	}
	for name, dst := range map[string]*int{"page": &query.Page, "limit": &query.Limit} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequestResponse(w, r, h.logger, errInvalidQueryParam(name))
			return
		}
		*dst = n
	}

	page, err := h.admin.ListRegistrations(r.Context(), query)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{
		"registrations": page.Registrations,
		"total":         page.Total,
		"page":          page.Page,
		"limit":         page.Limit,
	})
}

func (h *AdminHandler) TeamsByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := getUUIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	teams, err := h.admin.TeamsByEvent(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"teams": teams})
}

func (h *AdminHandler) GetTeamDetails(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getUUIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	team, err := h.admin.GetTeamDetails(r.Context(), registrationID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"team": team})
}

func (h *AdminHandler) DeleteRegistration(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getUUIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	if err := h.admin.DeleteRegistration(r.Context(), registrationID); err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"message": "registration deleted"})
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.admin.ListProfiles(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"users": profiles})
}

func (h *AdminHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	userID, err := getUUIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	var input services.UpdateRoleInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	profile, err := h.admin.UpdateUserRole(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"user": profile})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	userID, err := getUUIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	result, err := h.admin.DeleteUser(r.Context(), identity, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"deleted": result})
}
