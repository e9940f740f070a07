package api

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/umerali06/primarily-backend-sub001/internal/apperr"
	"github.com/umerali06/primarily-backend-sub001/internal/auth"
	"github.com/umerali06/primarily-backend-sub001/internal/events"
	"github.com/umerali06/primarily-backend-sub001/internal/logger"
	"github.com/umerali06/primarily-backend-sub001/internal/store"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

type envelope struct {
	Status  int    `json:"status"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// pageMeta accompanies paginated listings.
type pageMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func newPageMeta(p store.Pagination, total int) pageMeta {
	p = p.Normalize()
	return pageMeta{
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
		Pages: int(math.Ceil(float64(total) / float64(p.Limit))),
	}
}

// jsonResponse writes a success envelope.
func jsonResponse(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Status: status, Success: true, Message: message, Data: data})
}

// jsonError writes a failure envelope for err. Unclassified errors are
// logged and reported with a generic message.
func jsonError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.As(err)
	status := e.Kind.Status()
	if e.Kind == apperr.ServerError {
		logger.FromContext(r.Context()).Error("request failed", zap.Error(err))
		if e.Message == "" {
			e.Message = "internal server error"
		}
	}
	writeJSON(w, status, envelope{
		Status:  status,
		Success: false,
		Message: e.Message,
		Code:    string(e.Kind),
		Details: e.Details,
	})
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("encoding response", zap.Error(err))
	}
}

// decodeJSON decodes a bounded JSON request body into target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.BadRequestf("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.BadRequestf("request body is too large")
		}
		return apperr.BadRequestf("invalid request body")
	}
	return nil
}

// pagination reads page and limit query parameters.
func pagination(r *http.Request) store.Pagination {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return store.Pagination{Page: page, Limit: limit}.Normalize()
}

// claims returns the authenticated caller. Routes using it sit behind
// the authentication middleware.
func claims(r *http.Request) *auth.Claims {
	return auth.ClaimsFrom(r.Context())
}

// actor describes the caller for event headers.
func actor(r *http.Request) events.Actor {
	a := events.Actor{UserAgent: r.UserAgent()}
	if c := auth.ClaimsFrom(r.Context()); c != nil {
		a.UserID = c.UserID
	}
	a.IP = r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		a.IP = host
	}
	return a
}

// storeError maps store sentinels onto the error taxonomy.
func storeError(err error, what string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFoundf("%s not found", what)
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Conflictf("%s already exists", what)
	case errors.Is(err, store.ErrVersionConflict):
		return apperr.Conflictf("%s was modified concurrently, please retry", what)
	case errors.Is(err, store.ErrNegativeQuantity):
		return apperr.BadRequestf("quantity cannot be negative")
	}
	return apperr.Internal(err, "failed to save "+what)
}
