package api

import (
	"net/http"

	"github.com/casanoova/compass/internal/middleware"
	"github.com/casanoova/compass/internal/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type magicLinkRequest struct {
	Email    string `json:"email"`
	Redirect string `json:"redirect,omitempty"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}
	res, err := h.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

// requestMagicLink answers 202 whether or not the address is known.
func (h *Handler) requestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeValidationError(r.Context(), w, "request_magic_link", err)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	if err := h.svc.Auth.RequestMagicLink(r.Context(), req.Email, req.Redirect, locale); err != nil {
		writeMappedError(r.Context(), w, "request_magic_link", err)
		return
	}
	writeSuccess(w, http.StatusAccepted, map[string]string{"message": "if the address is registered, a login link is on its way"})
}

func (h *Handler) verifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeValidationError(r.Context(), w, "verify_magic_link", err)
		return
	}
	res, err := h.svc.Auth.VerifyMagicLink(r.Context(), req.Token)
	if err != nil {
		writeMappedError(r.Context(), w, "verify_magic_link", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var in services.SignupInput
	if err := decodeBody(w, r, &in); err != nil {
		writeValidationError(r.Context(), w, "signup", err)
		return
	}
	if in.Locale == "" {
		in.Locale = middleware.LocaleFromContext(r.Context())
	}
	res, err := h.svc.Teams.SelfSignup(r.Context(), in)
	if err != nil {
		writeMappedError(r.Context(), w, "signup", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	writeSuccess(w, http.StatusOK, map[string]string{
		"user_id": c.UserID,
		"email":   c.Email,
		"role":    string(c.Role),
	})
}
