package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/umerali06/primarily-backend-sub001/internal/apperr"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

// ActivitiesHandler serves the caller's activity log.
type ActivitiesHandler struct {
	*Deps
}

type activityList struct {
	Activities []model.Activity `json:"activities"`
	Pagination pageMeta         `json:"pagination"`
}

// List handles GET /api/activities. from and to accept RFC 3339 times or
// YYYY-MM-DD dates.
func (h *ActivitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ActivityFilter{
		UserID:       claims(r).UserID,
		ResourceType: q.Get("resourceType"),
		ResourceID:   q.Get("resourceId"),
		Action:       q.Get("action"),
		Pagination:   pagination(r),
	}
	var err error
	if f.From, err = parseTimeParam(q.Get("from")); err != nil {
		jsonError(w, r, apperr.BadRequestf("from must be a date or RFC 3339 time"))
		return
	}
	if f.To, err = parseTimeParam(q.Get("to")); err != nil {
		jsonError(w, r, apperr.BadRequestf("to must be a date or RFC 3339 time"))
		return
	}

	list, total, err := store.ListActivities(r.Context(), h.DB, f)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to list activities"))
		return
	}
	jsonResponse(w, http.StatusOK, "activities retrieved", activityList{
		Activities: list,
		Pagination: newPageMeta(f.Pagination, total),
	})
}

// Stats handles GET /api/activities/stats?days=N.
func (h *ActivitiesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			jsonError(w, r, apperr.BadRequestf("days must be between 1 and 365"))
			return
		}
		days = n
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	stats, err := store.GetActivityStats(r.Context(), h.DB, claims(r).UserID, since)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to aggregate activities"))
		return
	}
	jsonResponse(w, http.StatusOK, "activity statistics retrieved", stats)
}

func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
