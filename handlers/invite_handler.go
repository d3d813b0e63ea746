package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/sports-registration/services"
	"github.com/go-chi/chi/v5"
)

type InviteHandler struct {
	teamService  services.TeamService
	queryService services.RegistrationQueryService
	qrCodes      services.QRCodeService
	logger       *slog.Logger
}

func NewInviteHandler(
	teamService services.TeamService,
	queryService services.RegistrationQueryService,
	qrCodes services.QRCodeService,
	logger *slog.Logger,
) *InviteHandler {
	return &InviteHandler{
		teamService:  teamService,
		queryService: queryService,
		qrCodes:      qrCodes,
		logger:       logger,
	}
}

// Preview отдаёт публичную информацию о команде по коду приглашения.
func (h *InviteHandler) Preview(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	preview, err := h.queryService.GetInvitePreview(r.Context(), code)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"invite": preview})
}

func (h *InviteHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	png, err := h.qrCodes.InviteQRCode(r.Context(), code)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writePNG(w, png)
}

func (h *InviteHandler) Join(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	code := chi.URLParam(r, "code")

	var input services.JoinTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	result, err := h.teamService.JoinViaInvite(r.Context(), identity, code, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	writeSuccess(w, r, h.logger, http.StatusCreated, jsonResponse{
		"message":           "successfully joined the team",
		"member":            result.Member,
		"registration_id":   result.RegistrationID,
		"team_name":         result.TeamName,
		"current_team_size": result.CurrentTeamSize,
	})
}
