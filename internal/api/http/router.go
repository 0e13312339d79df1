package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/civic-desk/complaint-service/internal/api/http/handlers"
	"github.com/civic-desk/complaint-service/internal/auth"
	"github.com/civic-desk/complaint-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Complaints     *handlers.ComplaintsHandler
	Admin          *handlers.AdminHandler
	Departments    *handlers.DepartmentsHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginLimiter   *auth.LoginLimiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Admin routes carry no role checks of
// their own; the workflow service consults the authorization guard.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")
	requireAuth := cfg.AuthMiddleware.Handle

	authGroup := api.Group("/auth")
	throttle := cfg.LoginLimiter.Handle
	authGroup.Post("/register", throttle, cfg.Auth.Register)
	authGroup.Post("/register/admin", throttle, cfg.Auth.RegisterAdmin)
	authGroup.Post("/login", throttle, cfg.Auth.Login)
	authGroup.Post("/password/reset/request", throttle, cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", throttle, cfg.Auth.ConfirmPasswordReset)

	authGroup.Post("/logout", requireAuth, cfg.Auth.Logout)
	authGroup.Post("/password/change", requireAuth, cfg.Auth.ChangePassword)
	authGroup.Post("/upload-profile-picture", requireAuth, cfg.Auth.UploadProfilePicture)
	authGroup.Get("/me", requireAuth, cfg.Auth.Me)
	authGroup.Put("/me", requireAuth, cfg.Auth.UpdateMe)

	api.Get("/departments", cfg.Departments.List)
	api.Post("/departments", requireAuth, cfg.Departments.Create)

	complaints := api.Group("/complaints")
	complaints.Get("/", cfg.Complaints.List)
	complaints.Post("/", requireAuth, cfg.Complaints.Create)
	complaints.Get("/me", requireAuth, cfg.Complaints.Mine)
	complaints.Get("/:id", cfg.Complaints.Get)
	complaints.Put("/:id", requireAuth, cfg.Complaints.Update)
	complaints.Delete("/:id", requireAuth, cfg.Complaints.Delete)
	complaints.Get("/:id/messages", requireAuth, cfg.Complaints.ListMessages)
	complaints.Post("/:id/messages", requireAuth, cfg.Complaints.PostMessage)
	complaints.Get("/:id/history", requireAuth, cfg.Complaints.History)

	admin := api.Group("/admin", requireAuth)
	admin.Get("/stats", cfg.Admin.Stats)
	admin.Post("/complaints/:id/responses", cfg.Admin.Respond)

	intake := admin.Group("/c-admin")
	intake.Get("/complaints", cfg.Admin.List)
	intake.Get("/complaints/:id", cfg.Admin.Get)
	intake.Put("/complaints/:id", cfg.Admin.Update)
	intake.Put("/complaints/:id/solve", cfg.Admin.Solve)
	intake.Get("/complaints/:id/messages", cfg.Complaints.ListMessages)

	dept := admin.Group("/cm-admin")
	dept.Get("/stats", cfg.Admin.Stats)
	dept.Get("/complaints", cfg.Admin.List)
	dept.Get("/complaints/:id", cfg.Admin.Get)
	dept.Put("/complaints/:id", cfg.Admin.Update)
	dept.Put("/complaints/:id/in-progress", cfg.Admin.MarkInProgress)
	dept.Post("/complaints/:id/messages", cfg.Complaints.PostMessage)
}
