package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/umerali06/primarily-backend-sub001/internal/access"
	"github.com/umerali06/primarily-backend-sub001/internal/apperr"
	"github.com/umerali06/primarily-backend-sub001/internal/auth"
	"github.com/umerali06/primarily-backend-sub001/internal/blob"
	"github.com/umerali06/primarily-backend-sub001/internal/events"
	"github.com/umerali06/primarily-backend-sub001/internal/imaging"
	"github.com/umerali06/primarily-backend-sub001/internal/logger"
	"github.com/umerali06/primarily-backend-sub001/internal/metrics"
)

// Deps are the collaborators shared by every handler.
type Deps struct {
	DB         *sqlx.DB
	Log        *zap.Logger
	Tokens     *auth.TokenService
	BcryptCost int
	Events     *events.Dispatcher
	Metrics    *metrics.Metrics

	Blobs          *blob.Store
	Images         imaging.Processor
	MaxUploadBytes int64

	CORSOrigins []string
}

// publish hands ev to the dispatcher. Without one, events are dropped.
func (d *Deps) publish(ev events.Event) {
	if d.Events != nil {
		d.Events.Publish(ev)
	}
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d *Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	authHandler := &AuthHandler{d}
	itemsHandler := &ItemsHandler{d}
	foldersHandler := &FoldersHandler{d}
	tagsHandler := &TagsHandler{d}
	activitiesHandler := &ActivitiesHandler{d}
	alertsHandler := &AlertsHandler{d}
	settingsHandler := &SettingsHandler{d}
	newsletterHandler := &NewsletterHandler{d}
	usersHandler := &UsersHandler{d}

	gate := access.NewGate(access.NewResolver(d.DB, d.Log), jsonError)
	authMW := AuthMiddleware(d.Tokens, d.DB)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(d.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", logger.RequestIDHeader},
		ExposedHeaders:   []string{logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, r, apperr.NotFoundf("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, r, &apperr.Error{Kind: apperr.BadRequest, Message: "method not allowed"})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.PingContext(r.Context()); err != nil {
			jsonError(w, r, apperr.Internal(err, "database unavailable"))
			return
		}
		jsonResponse(w, http.StatusOK, "ok", map[string]string{"status": "healthy"})
	})
	r.Handle("/metrics", d.Metrics.Handler())
	if d.Blobs != nil {
		r.Handle(d.Blobs.Prefix()+"/*", d.Blobs.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(authMW)
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
				r.Put("/profile", authHandler.UpdateProfile)
				r.Put("/password", authHandler.ChangePassword)
			})
		})

		r.Route("/newsletter", func(r chi.Router) {
			r.Post("/subscribe", newsletterHandler.Subscribe)
			r.Post("/unsubscribe", newsletterHandler.Unsubscribe)

			r.Group(func(r chi.Router) {
				r.Use(authMW, RequireAdmin)
				r.Get("/subscribers", newsletterHandler.List)
				r.Get("/stats", newsletterHandler.Stats)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authMW)

			r.Route("/items", func(r chi.Router) {
				r.Get("/", itemsHandler.List)
				r.Post("/", itemsHandler.Create)
				r.Get("/stats", itemsHandler.Stats)
				r.Get("/low-stock", itemsHandler.LowStock)
				r.Get("/barcode/{code}", itemsHandler.ByBarcode)
				r.Post("/bulk-delete", itemsHandler.BulkDelete)
				r.Post("/bulk-move", itemsHandler.BulkMove)

				r.Route("/{id}", func(r chi.Router) {
					r.Use(gate.Guard(access.Item, "id"))
					r.Get("/", itemsHandler.Get)
					r.Put("/", itemsHandler.Update)
					r.Delete("/", itemsHandler.Delete)
					r.Patch("/quantity", itemsHandler.UpdateQuantity)
					r.Post("/images", itemsHandler.AddImage)
					r.Delete("/images", itemsHandler.RemoveImage)
					r.Patch("/move", itemsHandler.Move)
					r.Put("/barcode", itemsHandler.SetBarcode)
					r.Get("/activities", itemsHandler.Activities)
				})
			})

			r.Route("/folders", func(r chi.Router) {
				r.Get("/", foldersHandler.List)
				r.Get("/tree", foldersHandler.Tree)
				r.Post("/", foldersHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Use(gate.Guard(access.Folder, "id"))
					r.Get("/", foldersHandler.Get)
					r.Put("/", foldersHandler.Update)
					r.Delete("/", foldersHandler.Delete)
					r.Get("/items", foldersHandler.Items)
				})
			})

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", tagsHandler.List)
				r.Post("/", tagsHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Use(gate.Guard(access.Tag, "id"))
					r.Get("/", tagsHandler.Get)
					r.Put("/", tagsHandler.Update)
					r.Delete("/", tagsHandler.Delete)
				})
			})

			r.Route("/activities", func(r chi.Router) {
				r.Get("/", activitiesHandler.List)
				r.Get("/stats", activitiesHandler.Stats)
			})

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", alertsHandler.List)
				r.Get("/unread-count", alertsHandler.UnreadCount)
				r.Patch("/read-all", alertsHandler.ReadAll)
				r.Patch("/{id}/read", alertsHandler.Read)
				r.Patch("/{id}/dismiss", alertsHandler.Dismiss)
				r.Patch("/{id}/resolve", alertsHandler.Resolve)
				r.Delete("/{id}", alertsHandler.Delete)
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", settingsHandler.Get)
				r.Put("/", settingsHandler.Update)
				r.Post("/reset", settingsHandler.Reset)
				r.Get("/defaults", settingsHandler.Defaults)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/", usersHandler.List)
				r.Patch("/{id}/status", usersHandler.SetStatus)
				r.Patch("/{id}/role", usersHandler.SetRole)
			})
		})
	})

	return r
}
