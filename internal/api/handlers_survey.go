package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/casanoova/compass/internal/middleware"
	"github.com/casanoova/compass/internal/services"
)

type submitRequest struct {
	Responses []services.ResponseInput `json:"responses"`
}

func (h *Handler) adjectives(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	views, err := h.svc.Survey.GetAdjectives(r.Context(), locale, chi.URLParam(r, "token"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_adjectives", err)
		return
	}
	writeSuccess(w, http.StatusOK, views)
}

func (h *Handler) surveyStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Survey.GetSurveyStatus(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_survey_status", err)
		return
	}
	writeSuccess(w, http.StatusOK, st)
}

func (h *Handler) submitSurvey(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeValidationError(r.Context(), w, "submit_survey", err)
		return
	}
	res, err := h.svc.Survey.SubmitSurvey(r.Context(), chi.URLParam(r, "token"), req.Responses)
	if err != nil {
		writeMappedError(r.Context(), w, "submit_survey", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) isLeader(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.Survey.IsLeader(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeMappedError(r.Context(), w, "is_leader", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]bool{"is_leader": ok})
}

func (h *Handler) peerResults(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Results.GetPeerResults(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeMappedError(r.Context(), w, "peer_results", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
