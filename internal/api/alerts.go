package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/umerali06/primarily-backend-sub001/internal/access"
	"github.com/umerali06/primarily-backend-sub001/internal/apperr"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

// AlertsHandler serves the caller's alerts.
type AlertsHandler struct {
	*Deps
}

type alertList struct {
	Alerts     []model.Alert `json:"alerts"`
	Pagination pageMeta      `json:"pagination"`
}

// List handles GET /api/alerts.
func (h *AlertsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.AlertFilter{
		UserID:     claims(r).UserID,
		Status:     q.Get("status"),
		Kind:       q.Get("kind"),
		ItemID:     q.Get("itemId"),
		Pagination: pagination(r),
	}
	if f.Status != "" && !model.ValidAlertStatus(f.Status) {
		jsonError(w, r, apperr.BadRequestf("unknown alert status %q", f.Status))
		return
	}
	if f.Kind != "" && !model.ValidAlertKind(f.Kind) {
		jsonError(w, r, apperr.BadRequestf("unknown alert kind %q", f.Kind))
		return
	}

	list, total, err := store.ListAlerts(r.Context(), h.DB, f)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to list alerts"))
		return
	}
	jsonResponse(w, http.StatusOK, "alerts retrieved", alertList{
		Alerts:     list,
		Pagination: newPageMeta(f.Pagination, total),
	})
}

// UnreadCount handles GET /api/alerts/unread-count.
func (h *AlertsHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := store.CountUnreadAlerts(r.Context(), h.DB, claims(r).UserID)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to count alerts"))
		return
	}
	jsonResponse(w, http.StatusOK, "unread count retrieved", map[string]int{"count": n})
}

// ReadAll handles PATCH /api/alerts/read-all.
func (h *AlertsHandler) ReadAll(w http.ResponseWriter, r *http.Request) {
	n, err := store.MarkAllAlertsRead(r.Context(), h.DB, claims(r).UserID)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to update alerts"))
		return
	}
	jsonResponse(w, http.StatusOK, "alerts marked read", map[string]int64{"updated": n})
}

// owned loads the alert named by the URL. Missing and foreign alerts are
// refused alike.
func (h *AlertsHandler) owned(w http.ResponseWriter, r *http.Request) *model.Alert {
	alert, err := store.GetAlert(r.Context(), h.DB, chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to get alert"))
		return nil
	}
	if alert == nil || alert.UserID != claims(r).UserID {
		jsonError(w, r, apperr.Forbiddenf(access.DeniedMessage))
		return nil
	}
	return alert
}

func (h *AlertsHandler) reload(w http.ResponseWriter, r *http.Request, id, message string) {
	alert, err := store.GetAlert(r.Context(), h.DB, id)
	if err != nil || alert == nil {
		jsonError(w, r, apperr.Internal(err, "failed to get alert"))
		return
	}
	jsonResponse(w, http.StatusOK, message, alert)
}

// Read handles PATCH /api/alerts/{id}/read.
func (h *AlertsHandler) Read(w http.ResponseWriter, r *http.Request) {
	alert := h.owned(w, r)
	if alert == nil {
		return
	}
	if err := store.MarkAlertRead(r.Context(), h.DB, alert.ID); err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to update alert"))
		return
	}
	h.reload(w, r, alert.ID, "alert marked read")
}

// Dismiss handles PATCH /api/alerts/{id}/dismiss.
func (h *AlertsHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, model.AlertDismissed, "alert dismissed")
}

// Resolve handles PATCH /api/alerts/{id}/resolve.
func (h *AlertsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, model.AlertResolved, "alert resolved")
}

func (h *AlertsHandler) close(w http.ResponseWriter, r *http.Request, status, message string) {
	alert := h.owned(w, r)
	if alert == nil {
		return
	}
	closed, err := store.CloseAlert(r.Context(), h.DB, alert.ID, status)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to update alert"))
		return
	}
	if !closed {
		jsonError(w, r, apperr.Conflictf("alert is already %s", alert.Status))
		return
	}
	h.reload(w, r, alert.ID, message)
}

// Delete handles DELETE /api/alerts/{id}.
func (h *AlertsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	alert := h.owned(w, r)
	if alert == nil {
		return
	}
	if err := store.DeleteAlert(r.Context(), h.DB, alert.ID); err != nil {
		jsonError(w, r, storeError(err, "alert"))
		return
	}
	jsonResponse(w, http.StatusOK, "alert deleted", map[string]string{"id": alert.ID})
}
