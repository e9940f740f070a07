package api

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/umerali06/primarily-backend-sub001/internal/apperr"
	"github.com/umerali06/primarily-backend-sub001/internal/auth"
	"github.com/umerali06/primarily-backend-sub001/internal/events"
	"github.com/umerali06/primarily-backend-sub001/internal/logger"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

// AuthHandler handles account and session endpoints.
type AuthHandler struct {
	*Deps
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type profileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type sessionResponse struct {
	User   *model.User     `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	fields := map[string]string{}
	if !validEmail(req.Email) {
		fields["email"] = "a valid email is required"
	}
	if req.Name == "" {
		fields["name"] = "name is required"
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		fields["password"] = err.Error()
	}
	if len(fields) > 0 {
		jsonError(w, r, apperr.BadRequestf("validation failed").WithDetails(fields))
		return
	}

	hash, err := auth.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to hash password"))
		return
	}

	user, err := store.RegisterUser(r.Context(), h.DB, req.Email, req.Name, hash)
	if errors.Is(err, store.ErrDuplicate) {
		jsonError(w, r, apperr.Conflictf("email is already registered"))
		return
	}
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to create account"))
		return
	}

	tokens, err := h.Tokens.IssuePair(user.ID, user.Email, user.Role)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to issue tokens"))
		return
	}

	h.publish(events.UserEvent{
		Header:  events.NewHeader(h.actorFor(r, user.ID)),
		Action:  model.ActionRegister,
		User:    user,
		Details: map[string]any{"email": user.Email, "role": user.Role},
	})
	logger.FromContext(r.Context()).Info("user registered", zap.String("user_id", user.ID), zap.String("role", user.Role))
	jsonResponse(w, http.StatusCreated, "account created", sessionResponse{User: user, Tokens: tokens})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		jsonError(w, r, apperr.BadRequestf("email and password are required"))
		return
	}

	user, err := store.GetUserByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to sign in"))
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		logger.FromContext(r.Context()).Warn("login failed", zap.String("remote", r.RemoteAddr))
		jsonError(w, r, apperr.Unauthorizedf("invalid credentials"))
		return
	}
	if !user.Active() {
		jsonError(w, r, apperr.Forbiddenf("account is deactivated"))
		return
	}

	at := time.Now().UTC()
	if err := store.TouchLastLogin(r.Context(), h.DB, user.ID, at); err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to sign in"))
		return
	}
	user.LastLoginAt = &at

	tokens, err := h.Tokens.IssuePair(user.ID, user.Email, user.Role)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to issue tokens"))
		return
	}

	h.publish(events.UserEvent{
		Header: events.NewHeader(h.actorFor(r, user.ID)),
		Action: model.ActionLogin,
		User:   user,
	})
	logger.FromContext(r.Context()).Info("user logged in", zap.String("user_id", user.ID))
	jsonResponse(w, http.StatusOK, "logged in", sessionResponse{User: user, Tokens: tokens})
}

// Refresh handles POST /api/auth/refresh. The presented refresh token is
// revoked and a new pair is issued.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	if req.RefreshToken == "" {
		jsonError(w, r, apperr.BadRequestf("refreshToken is required"))
		return
	}

	c, err := h.Tokens.Validate(req.RefreshToken, auth.TypeRefresh)
	if err != nil {
		jsonError(w, r, apperr.Unauthorizedf("invalid or expired refresh token"))
		return
	}
	revoked, err := store.IsTokenRevoked(r.Context(), h.DB, c.ID)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to verify token"))
		return
	}
	if revoked {
		jsonError(w, r, apperr.Unauthorizedf("refresh token has been revoked"))
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, c.UserID)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to refresh session"))
		return
	}
	if user == nil || !user.Active() {
		jsonError(w, r, apperr.Unauthorizedf("account is not available"))
		return
	}

	if err := store.RevokeToken(r.Context(), h.DB, c.ID, c.ExpiresAt.Time); err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to refresh session"))
		return
	}
	tokens, err := h.Tokens.IssuePair(user.ID, user.Email, user.Role)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to issue tokens"))
		return
	}
	jsonResponse(w, http.StatusOK, "token refreshed", tokens)
}

// Logout handles POST /api/auth/logout. The access token, and the refresh
// token when one is supplied, stop working immediately.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	c := claims(r)

	var req refreshRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			jsonError(w, r, err)
			return
		}
	}

	if err := store.RevokeToken(r.Context(), h.DB, c.ID, c.ExpiresAt.Time); err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to log out"))
		return
	}
	if req.RefreshToken != "" {
		if rc, err := h.Tokens.Validate(req.RefreshToken, auth.TypeRefresh); err == nil && rc.UserID == c.UserID {
			if err := store.RevokeToken(r.Context(), h.DB, rc.ID, rc.ExpiresAt.Time); err != nil {
				jsonError(w, r, apperr.Internal(err, "failed to log out"))
				return
			}
		}
	}

	h.publish(events.UserEvent{
		Header: events.NewHeader(actor(r)),
		Action: model.ActionLogout,
		User:   &model.User{ID: c.UserID, Email: c.Email, Role: c.Role},
	})
	jsonResponse(w, http.StatusOK, "logged out", nil)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := store.GetUser(r.Context(), h.DB, claims(r).UserID)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to get account"))
		return
	}
	if user == nil {
		jsonError(w, r, apperr.NotFoundf("account not found"))
		return
	}
	jsonResponse(w, http.StatusOK, "account retrieved", user)
}

// UpdateProfile handles PUT /api/auth/profile.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims(r).UserID)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to get account"))
		return
	}
	if user == nil {
		jsonError(w, r, apperr.NotFoundf("account not found"))
		return
	}

	changes := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			jsonError(w, r, apperr.BadRequestf("name cannot be empty"))
			return
		}
		if name != user.Name {
			changes["name"] = map[string]any{"from": user.Name, "to": name}
			user.Name = name
		}
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if !validEmail(email) {
			jsonError(w, r, apperr.BadRequestf("a valid email is required"))
			return
		}
		if email != user.Email {
			changes["email"] = map[string]any{"from": user.Email, "to": email}
			user.Email = email
		}
	}

	if len(changes) > 0 {
		err := store.UpdateUserProfile(r.Context(), h.DB, user.ID, user.Name, user.Email)
		if err != nil {
			jsonError(w, r, storeError(err, "account"))
			return
		}
		h.publish(events.UserEvent{
			Header:  events.NewHeader(actor(r)),
			Action:  model.ActionProfileUpdate,
			User:    user,
			Details: map[string]any{"changes": changes},
		})
	}
	jsonResponse(w, http.StatusOK, "profile updated", user)
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, r, err)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, r, apperr.BadRequestf("current and new password are required"))
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonError(w, r, apperr.BadRequestf("%s", err.Error()))
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims(r).UserID)
	if err != nil || user == nil {
		jsonError(w, r, apperr.Internal(err, "failed to get account"))
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		jsonError(w, r, apperr.Unauthorizedf("current password is incorrect"))
		return
	}

	hash, err := auth.HashPassword(req.NewPassword, h.BcryptCost)
	if err != nil {
		jsonError(w, r, apperr.Internal(err, "failed to hash password"))
		return
	}
	if err := store.UpdateUserPassword(r.Context(), h.DB, user.ID, hash); err != nil {
		jsonError(w, r, storeError(err, "account"))
		return
	}

	h.publish(events.UserEvent{
		Header: events.NewHeader(actor(r)),
		Action: model.ActionPasswordChange,
		User:   user,
	})
	logger.FromContext(r.Context()).Info("user changed password", zap.String("user_id", user.ID))
	jsonResponse(w, http.StatusOK, "password updated", nil)
}

// actorFor is actor(r) for requests that are not yet authenticated.
func (h *AuthHandler) actorFor(r *http.Request, userID string) events.Actor {
	a := actor(r)
	a.UserID = userID
	return a
}
