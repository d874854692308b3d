package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/casanoova/compass/internal/middleware"
	"github.com/casanoova/compass/internal/services"
)

func (h *Handler) adminListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.svc.Admin.ListTeams(r.Context(), caller(r))
	if err != nil {
		writeMappedError(r.Context(), w, "admin_list_teams", err)
		return
	}
	writeSuccess(w, http.StatusOK, teams)
}

func (h *Handler) adminCreateTeam(w http.ResponseWriter, r *http.Request) {
	var in services.CreateTeamInput
	if err := decodeBody(w, r, &in); err != nil {
		writeValidationError(r.Context(), w, "admin_create_team", err)
		return
	}
	if in.Locale == "" {
		in.Locale = middleware.LocaleFromContext(r.Context())
	}
	d, err := h.svc.Teams.CreateTeam(r.Context(), caller(r), in)
	if err != nil {
		writeMappedError(r.Context(), w, "admin_create_team", err)
		return
	}
	writeSuccess(w, http.StatusCreated, d)
}

func (h *Handler) adminTeamDetails(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Admin.TeamDetails(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), w, "admin_team_details", err)
		return
	}
	writeSuccess(w, http.StatusOK, d)
}

func (h *Handler) adminDeleteTeam(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Admin.DeleteTeam(r.Context(), caller(r), id); err != nil {
		writeMappedError(r.Context(), w, "admin_delete_team", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (h *Handler) adminReleaseResults(w http.ResponseWriter, r *http.Request) {
	ov, err := h.svc.Admin.ReleaseTeamResults(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), w, "admin_release_results", err)
		return
	}
	writeSuccess(w, http.StatusOK, ov)
}

func (h *Handler) adminTeamResults(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Admin.TeamResults(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), w, "admin_team_results", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

// adminExport streams CSV rather than the JSON envelope.
func (h *Handler) adminExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "answers"
	}
	res, err := h.svc.Admin.ExportTeamCSV(r.Context(), caller(r), chi.URLParam(r, "id"), format)
	if err != nil {
		writeMappedError(r.Context(), w, "admin_export", err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(res.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

func (h *Handler) adminAudit(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
	entries, err := h.svc.Admin.AuditLog(r.Context(), caller(r), limit)
	if err != nil {
		writeMappedError(r.Context(), w, "admin_audit", err)
		return
	}
	writeSuccess(w, http.StatusOK, entries)
}
