package api

import (
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/umerali06/primarily-backend-sub001/internal/apperr"
	"github.com/umerali06/primarily-backend-sub001/internal/auth"
	"github.com/umerali06/primarily-backend-sub001/internal/logger"
	"github.com/umerali06/primarily-backend-sub001/internal/model"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

// bearerToken extracts the token from an Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// AuthMiddleware validates the access token, rejects revoked tokens and
// adds the claims to the request context.
func AuthMiddleware(tokens *auth.TokenService, db sqlx.QueryerContext) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				jsonError(w, r, apperr.Unauthorizedf("missing or invalid authorization header"))
				return
			}

			c, err := tokens.Validate(tokenStr, auth.TypeAccess)
			if err != nil {
				jsonError(w, r, apperr.Unauthorizedf("invalid or expired token"))
				return
			}

			revoked, err := store.IsTokenRevoked(r.Context(), db, c.ID)
			if err != nil {
				jsonError(w, r, apperr.Internal(err, "failed to verify token"))
				return
			}
			if revoked {
				jsonError(w, r, apperr.Unauthorizedf("token has been revoked"))
				return
			}

			ctx := auth.WithClaims(r.Context(), c)
			ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.String("user_id", c.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin admits only administrators.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := auth.ClaimsFrom(r.Context())
		if c == nil {
			jsonError(w, r, apperr.Unauthorizedf("authentication required"))
			return
		}
		if c.Role != model.RoleAdmin {
			jsonError(w, r, apperr.Forbiddenf("administrator access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
