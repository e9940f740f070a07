package api

import (
	"errors"
	"net/http"

	"github.com/umerali06/primarily-backend-sub001/internal/apperr"
	"github.com/umerali06/primarily-backend-sub001/internal/events"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
	"github.com/umerali06/primarily-backend-sub001/internal/settings"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

// SettingsHandler serves per-user settings. Responses always carry the
// stored values merged over the defaults.
type SettingsHandler struct {
	*Deps
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stored, err := store.GetUserSettings(r.Context(), h.DB, claims(r).UserID)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to load settings"))
		return
	}
	jsonResponse(w, http.StatusOK, "settings retrieved", settings.Effective(stored))
}

// Update handles PUT /api/settings. The body is a partial document merged
// into the stored one.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch settings.Document
	if err := decodeJSON(w, r, &patch); err != nil {
		jsonError(w, r, err)
		return
	}
	if len(patch) == 0 {
		jsonError(w, r, apperr.BadRequestf("settings patch is empty"))
		return
	}
	if err := settings.Validate(patch); err != nil {
		var verr *settings.ValidationError
		if errors.As(err, &verr) {
			jsonError(w, r, apperr.BadRequestf("invalid settings").WithDetails(map[string]any{"fields": verr.Fields}))
			return
		}
		jsonError(w, r, apperr.BadRequestf("invalid settings"))
		return
	}

	userID := claims(r).UserID
	stored, err := store.GetUserSettings(r.Context(), h.DB, userID)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to load settings"))
		return
	}
	merged := settings.Merge(stored, patch)
	if err := store.PutUserSettings(r.Context(), h.DB, userID, merged); err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to save settings"))
		return
	}

	h.publish(events.SettingsChanged{
		Header:  events.NewHeader(actor(r)),
		Action:  model.ActionSettingsUpdate,
		Changes: patch,
	})
	jsonResponse(w, http.StatusOK, "settings updated", settings.Effective(merged))
}

// Reset handles POST /api/settings/reset.
func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := store.DeleteUserSettings(r.Context(), h.DB, claims(r).UserID); err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to reset settings"))
		return
	}
	h.publish(events.SettingsChanged{
		Header: events.NewHeader(actor(r)),
		Action: model.ActionSettingsReset,
	})
	jsonResponse(w, http.StatusOK, "settings reset", settings.Defaults())
}

// Defaults handles GET /api/settings/defaults.
func (h *SettingsHandler) Defaults(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, "default settings retrieved", settings.Defaults())
}
