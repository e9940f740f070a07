package api

import (
	"net/http"
	"strings"

	"github.com/umerali06/primarily-backend-sub001/internal/apperr"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

// NewsletterHandler handles newsletter subscriptions. Subscribing and
// unsubscribing need no account.
type NewsletterHandler struct {
	*Deps
}

type subscribeRequest struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

type unsubscribeRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type subscriptionList struct {
	Subscribers []model.Subscription `json:"subscribers"`
	Pagination  pageMeta             `json:"pagination"`
}

// Subscribe handles POST /api/newsletter/subscribe.
func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	if !validEmail(req.Email) {
		jsonError(w, r, apperr.BadRequestf("a valid email is required"))
		return
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "website"
	}

	sub, already, err := store.Subscribe(r.Context(), h.DB, req.Email, strings.TrimSpace(req.Name), source)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to subscribe"))
		return
	}
	if already {
		jsonResponse(w, http.StatusOK, "already subscribed", sub)
		return
	}
	jsonResponse(w, http.StatusCreated, "subscribed", sub)
}

// Unsubscribe handles POST /api/newsletter/unsubscribe with an email or an
// unsubscribe token.
func (h *NewsletterHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	if req.Email == "" && req.Token == "" {
		jsonError(w, r, apperr.BadRequestf("email or token is required"))
		return
	}

	sub, err := store.Unsubscribe(r.Context(), h.DB, req.Email, req.Token)
	if err != nil {
		jsonError(w, r, storeError(err, "subscription"))
		return
	}
	jsonResponse(w, http.StatusOK, "unsubscribed", sub)
}

// List handles GET /api/newsletter/subscribers.
func (h *NewsletterHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != model.SubscriptionSubscribed && status != model.SubscriptionUnsubscribed {
		jsonError(w, r, apperr.BadRequestf("unknown subscription status %q", status))
		return
	}
	page := pagination(r)
	subs, total, err := store.ListSubscriptions(r.Context(), h.DB, status, page)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to list subscribers"))
		return
	}
	jsonResponse(w, http.StatusOK, "subscribers retrieved", subscriptionList{
		Subscribers: subs,
		Pagination:  newPageMeta(page, total),
	})
}

// Stats handles GET /api/newsletter/stats.
func (h *NewsletterHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := store.GetSubscriptionStats(r.Context(), h.DB)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to count subscribers"))
		return
	}
	jsonResponse(w, http.StatusOK, "subscriber statistics retrieved", stats)
}
