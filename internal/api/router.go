package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/casanoova/compass/internal/middleware"
	"github.com/casanoova/compass/internal/services"
)

// Services bundles the use cases the HTTP layer exposes.
type Services struct {
	Survey    *services.SurveyService
	Results   *services.ResultsService
	Teams     *services.TeamService
	Admin     *services.AdminService
	Auth      *services.AuthService
	Reminders *services.ReminderService
}

type VersionInfo struct {
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// Handler is the HTTP adapter over Services.
type Handler struct {
	svc     Services
	version VersionInfo
}

func NewHandler(svc Services, version VersionInfo) *Handler {
	return &Handler{svc: svc, version: version}
}

type RouterConfig struct {
	Tokens      *middleware.Tokens
	CronSecret  string
	CORSOrigins []string
	// Observe receives one call per request; nil disables it.
	Observe middleware.RequestObserver
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// NewRouter registers every route and the middleware stack.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover)
	r.Use(middleware.Logger(cfg.Observe))
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.LocaleMiddleware)

	r.Get("/health", h.health)
	r.Get("/version", h.versionInfo)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.WithAuth(cfg.Tokens))

		r.Post("/auth/login", h.login)
		r.Post("/auth/magic-link", h.requestMagicLink)
		r.Post("/auth/magic-link/verify", h.verifyMagicLink)
		r.Post("/signup", h.signup)

		r.Route("/survey/{token}", func(r chi.Router) {
			r.Get("/adjectives", h.adjectives)
			r.Get("/status", h.surveyStatus)
			r.Post("/submit", h.submitSurvey)
			r.Get("/leader", h.isLeader)
			r.Get("/results", h.peerResults)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/auth/me", h.me)
			r.Get("/teams", h.myTeams)
			r.Get("/teams/{id}/stats", h.teamStats)
			r.Get("/teams/{id}/results", h.teamResults)
			r.Get("/teams/{id}/invitation", h.myInvitation)
			r.Post("/teams/{id}/invitations", h.inviteMember)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/teams", h.adminListTeams)
				r.Post("/teams", h.adminCreateTeam)
				r.Get("/teams/{id}", h.adminTeamDetails)
				r.Delete("/teams/{id}", h.adminDeleteTeam)
				r.Post("/teams/{id}/release", h.adminReleaseResults)
				r.Get("/teams/{id}/results", h.adminTeamResults)
				r.Get("/teams/{id}/export", h.adminExport)
				r.Get("/audit", h.adminAudit)
			})
		})

		r.With(middleware.RequireBearer(cfg.CronSecret)).Post("/cron/reminder", h.cronReminder)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}
