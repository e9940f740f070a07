package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/umerali06/primarily-backend-sub001/internal/apperr"
	"github.com/umerali06/primarily-backend-sub001/internal/logger"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

// UsersHandler handles user management endpoints (admin only).
type UsersHandler struct {
	*Deps
}

type userList struct {
	Users      []model.User `json:"users"`
	Pagination pageMeta     `json:"pagination"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type roleRequest struct {
	Role string `json:"role"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination(r)
	users, total, err := store.ListUsers(r.Context(), h.DB, page)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to list users"))
		return
	}
	jsonResponse(w, http.StatusOK, "users retrieved", userList{Users: users, Pagination: newPageMeta(page, total)})
}

// target loads the user named by the URL and refuses changes to the
// caller's own account.
func (h *UsersHandler) target(w http.ResponseWriter, r *http.Request) *model.User {
	id := chi.URLParam(r, "id")
	if id == claims(r).UserID {
		jsonError(w, r, apperr.BadRequestf("you cannot change your own account here"))
		return nil
	}
	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to get user"))
		return nil
	}
	if user == nil {
		jsonError(w, r, apperr.NotFoundf("user not found"))
		return nil
	}
	return user
}

// SetStatus handles PATCH /api/users/{id}/status.
func (h *UsersHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	if req.Status != model.UserStatusActive && req.Status != model.UserStatusDeactivated {
		jsonError(w, r, apperr.BadRequestf("status must be %q or %q", model.UserStatusActive, model.UserStatusDeactivated))
		return
	}
	user := h.target(w, r)
	if user == nil {
		return
	}

	if err := store.SetUserStatus(r.Context(), h.DB, user.ID, req.Status); err != nil {
		jsonError(w, r, storeError(err, "user"))
		return
	}
	user.Status = req.Status

	logger.FromContext(r.Context()).Info("user status changed",
		zap.String("target_user", user.ID), zap.String("status", req.Status))
	jsonResponse(w, http.StatusOK, "user status updated", user)
}

// SetRole handles PATCH /api/users/{id}/role.
func (h *UsersHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, r, apperr.BadRequestf("invalid role"))
		return
	}
	user := h.target(w, r)
	if user == nil {
		return
	}

	if err := store.SetUserRole(r.Context(), h.DB, user.ID, req.Role); err != nil {
		jsonError(w, r, storeError(err, "user"))
		return
	}
	user.Role = req.Role

	logger.FromContext(r.Context()).Info("user role changed",
		zap.String("target_user", user.ID), zap.String("role", req.Role))
	jsonResponse(w, http.StatusOK, "user role updated", user)
}
