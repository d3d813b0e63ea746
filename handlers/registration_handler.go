package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/sports-registration/services"
)

type RegistrationHandler struct {
	teamService  services.TeamService
	queryService services.RegistrationQueryService
	access       services.AccessService
	qrCodes      services.QRCodeService
	logger       *slog.Logger
}

func NewRegistrationHandler(
	teamService services.TeamService,
	queryService services.RegistrationQueryService,
	access services.AccessService,
	qrCodes services.QRCodeService,
	logger *slog.Logger,
) *RegistrationHandler {
	return &RegistrationHandler{
		teamService:  teamService,
		queryService: queryService,
		access:       access,
		qrCodes:      qrCodes,
		logger:       logger,
	}
}

func (h *RegistrationHandler) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	var input services.CreateRegistrationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}
	input.IPAddress = clientIP(r)
	input.UserAgent = r.UserAgent()

	reg, err := h.teamService.CreateRegistration(r.Context(), identity, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	writeSuccess(w, r, h.logger, http.StatusCreated, jsonResponse{
		"registration":    reg,
		"registration_id": reg.ID,
		"invite_code":     reg.TeamInviteCode,
	})
}

func (h *RegistrationHandler) ListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	regs, err := h.queryService.GetUserRegistrations(r.Context(), identity)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"registrations": regs})
}

func (h *RegistrationHandler) CheckEventRegistration(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	eventID, err := getUUIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	registered, err := h.queryService.CheckUserRegistration(r.Context(), identity.ID, eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"is_registered": registered})
}

func (h *RegistrationHandler) GetTeamDetails(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	registrationID, err := getUUIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	details, err := h.queryService.GetTeamDetails(r.Context(), registrationID, identity)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"team": details})
}

func (h *RegistrationHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	registrationID, err := getUUIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	access, err := h.access.CheckAccess(r.Context(), registrationID, identity)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{
		"access_granted": access.Granted,
		"role":           access.Role,
		"is_leader":      access.IsLeader,
		"is_member":      access.IsMember,
	})
}

func (h *RegistrationHandler) GetInviteCode(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	registrationID, err := getUUIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	invite, err := h.queryService.GetTeamInviteCode(r.Context(), registrationID, identity)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{
		"invite_code": invite.Code,
		"join_url":    invite.JoinURL,
	})
}

func (h *RegistrationHandler) CanAddMember(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	registrationID, err := getUUIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	capacity, err := h.queryService.CanAddTeamMember(r.Context(), registrationID, identity)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"capacity": capacity})
}

func (h *RegistrationHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	registrationID, err := getUUIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	png, err := h.qrCodes.RegistrationQRCode(r.Context(), registrationID, identity)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}
	writePNG(w, png)
}

func (h *RegistrationHandler) ExitTeam(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	registrationID, err := getUUIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	if err := h.teamService.ExitTeam(r.Context(), registrationID, identity); err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"message": "you have left the team"})
}

func (h *RegistrationHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	registrationID, err := getUUIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	if err := h.teamService.DeleteTeam(r.Context(), registrationID, identity); err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{"message": "team deleted"})
}

func (h *RegistrationHandler) RemoveTeamMember(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	memberID, err := getUUIDFromURL(r, "memberID")
	if err != nil {
		badRequestResponse(w, r, h.logger, err)
		return
	}

	removed, err := h.teamService.RemoveTeamMember(r.Context(), memberID, identity)
	if err != nil {
		mapServiceErrorToHTTP(w, r, h.logger, err)
		return
	}

	writeSuccess(w, r, h.logger, http.StatusOK, jsonResponse{
		"message":        "member removed",
		"removed_member": removed,
	})
}
