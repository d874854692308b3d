package api

import (
	"net/http"

	"github.com/casanoova/compass/internal/middleware"
	"github.com/casanoova/compass/internal/utils"
)

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"name":       "Compass API",
		"locale":     locale,
		"msg":        utils.T(locale, "health.ok"),
		"commit":     h.version.Commit,
		"build_time": h.version.BuildTime,
	})
}

func (h *Handler) versionInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.version)
}

func (h *Handler) cronReminder(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Reminders.RunReminders(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "cron_reminder", err)
		return
	}
	writeSuccess(w, http.StatusOK, sum)
}
