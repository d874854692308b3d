package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/casanoova/compass/internal/middleware"
)

type inviteRequest struct {
	Email string `json:"email"`
}

func (h *Handler) myTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.svc.Teams.ListMyTeams(r.Context(), caller(r))
	if err != nil {
		writeMappedError(r.Context(), w, "list_my_teams", err)
		return
	}
	writeSuccess(w, http.StatusOK, teams)
}

func (h *Handler) teamStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Results.TeamStats(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), w, "team_stats", err)
		return
	}
	writeSuccess(w, http.StatusOK, st)
}

func (h *Handler) teamResults(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Results.GetTeamResults(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), w, "team_results", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) myInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Teams.MyInvitation(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), w, "my_invitation", err)
		return
	}
	writeSuccess(w, http.StatusOK, inv)
}

func (h *Handler) inviteMember(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeValidationError(r.Context(), w, "invite_member", err)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	inv, err := h.svc.Teams.InviteMember(r.Context(), caller(r), chi.URLParam(r, "id"), req.Email, locale)
	if err != nil {
		writeMappedError(r.Context(), w, "invite_member", err)
		return
	}
	writeSuccess(w, http.StatusCreated, inv)
}
