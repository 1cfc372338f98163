package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/unistudious/backend/app"
	"github.com/unistudious/backend/middleware"
	"github.com/unistudious/backend/services/authz"
	"github.com/unistudious/backend/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.AuditMeta)
	r.Use(chimw.Recoverer)
	if deps.Config.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(deps.Config.Server.RequestTimeout))
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	auth := deps.AuthMiddleware
	can := auth.RequirePermission

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", deps.AuthHandler.HandleRegister)
			r.Post("/login", deps.AuthHandler.HandleLogin)
			r.Post("/logout", deps.AuthHandler.HandleLogout)
			r.With(auth.RequireAuth).Get("/me", deps.AuthHandler.HandleMe)
		})

		// Everything below needs a session
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)

			r.Route("/courses", func(r chi.Router) {
				h := deps.CourseHandler
				r.With(can(authz.ResourceCourse, authz.OpRead)).Get("/", h.HandleList)
				r.With(can(authz.ResourceCourse, authz.OpCreate)).Post("/", h.HandleCreate)
				r.With(can(authz.ResourceCourse, authz.OpRead)).Get("/{id}", h.HandleGet)
				r.With(can(authz.ResourceCourse, authz.OpUpdate)).Put("/{id}", h.HandleUpdate)
				r.With(can(authz.ResourceCourse, authz.OpDelete)).Delete("/{id}", h.HandleDelete)
				r.With(can(authz.ResourceCourse, authz.OpUpdate)).Post("/{id}/students", h.HandleAssignStudents)
				r.With(can(authz.ResourceCourse, authz.OpUpdate)).Delete("/{id}/students/{studentId}", h.HandleRemoveStudent)
			})

			r.Route("/calendrier", func(r chi.Router) {
				h := deps.CalendarHandler
				r.With(can(authz.ResourceEvent, authz.OpRead)).Get("/", h.HandleList)
				r.With(can(authz.ResourceEvent, authz.OpCreate)).Post("/", h.HandleCreate)
				r.With(can(authz.ResourceEvent, authz.OpRead)).Get("/{id}", h.HandleGet)
				r.With(can(authz.ResourceEvent, authz.OpUpdate)).Put("/{id}", h.HandleUpdate)
				r.With(can(authz.ResourceEvent, authz.OpDelete)).Delete("/{id}", h.HandleDelete)
			})

			r.Route("/ressources", func(r chi.Router) {
				h := deps.ResourceHandler
				r.With(can(authz.ResourceResource, authz.OpRead)).Get("/", h.HandleList)
				r.With(can(authz.ResourceResource, authz.OpCreate)).Post("/", h.HandleCreate)
				r.With(can(authz.ResourceResource, authz.OpRead)).Get("/{id}", h.HandleGet)
				r.With(can(authz.ResourceResource, authz.OpUpdate)).Put("/{id}", h.HandleUpdate)
				r.With(can(authz.ResourceResource, authz.OpDelete)).Delete("/{id}", h.HandleDelete)
			})

			r.Route("/notifications", func(r chi.Router) {
				h := deps.NotificationHandler
				r.With(can(authz.ResourceNotification, authz.OpRead)).Get("/", h.HandleList)
				r.With(can(authz.ResourceNotification, authz.OpCreate)).Post("/", h.HandleSend)
				r.With(can(authz.ResourceNotification, authz.OpUpdate)).Patch("/read-all", h.HandleMarkAllRead)
				r.With(can(authz.ResourceNotification, authz.OpRead)).Get("/{id}", h.HandleGet)
				r.With(can(authz.ResourceNotification, authz.OpUpdate)).Patch("/{id}/read", h.HandleMarkRead)
				r.With(can(authz.ResourceNotification, authz.OpDelete)).Delete("/{id}", h.HandleDelete)
			})

			r.Route("/users", func(r chi.Router) {
				h := deps.UserHandler
				r.With(can(authz.ResourceUser, authz.OpRead)).Get("/", h.HandleList)
				r.With(can(authz.ResourceUser, authz.OpCreate)).Post("/", h.HandleCreate)
				r.With(can(authz.ResourceUser, authz.OpRead)).Get("/{id}", h.HandleGet)
				r.With(can(authz.ResourceUser, authz.OpUpdate)).Put("/{id}", h.HandleUpdate)
				r.With(can(authz.ResourceUser, authz.OpDelete)).Delete("/{id}", h.HandleDelete)
			})

			r.Route("/profs", func(r chi.Router) {
				h := deps.UserHandler
				r.With(can(authz.ResourceUser, authz.OpRead)).Get("/", h.HandleListProfessors)
				r.With(can(authz.ResourceUser, authz.OpCreate)).Post("/", h.HandleCreateProfessor)
			})

			// Audit logs (admin only)
			r.With(can(authz.ResourceAudit, authz.OpRead)).Get("/audit/logs", deps.AuditHandler.HandleList)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "", "method not allowed", nil)
	})

	return r
}
