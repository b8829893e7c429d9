package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/invest-access/internal/api/http/handlers"
	"github.com/spec-kit/invest-access/internal/auth"
	"github.com/spec-kit/invest-access/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Admin          *handlers.AdminHandler
	Sync           *handlers.SyncHandler
	AuthMiddleware *auth.AuthMiddleware
	Guard          *auth.Guard
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	guard := cfg.Guard
	if guard == nil {
		guard = auth.NewGuard(nil)
	}
	capability := func(floor domain.Role, c domain.Capability) fiber.Handler {
		return auth.RequireCapability(guard, floor, c)
	}

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/challenge", cfg.Auth.Challenge)
	authGroup.Post("/connect", cfg.Auth.Connect)
	authGroup.Get("/session", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(guard), cfg.Auth.Session)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(guard))
	protected.Get("/users/:address", cfg.Users.Profile)
	protected.Get("/projects", cfg.Users.Marketplace)

	admin := protected.Group("/admin", auth.RequireRoleFloor(guard, domain.RoleAdmin))
	admin.Get("/users", capability(domain.RoleAdmin, domain.CapViewUsers), cfg.Admin.ListUsers)
	admin.Put("/users/:address/role", capability(domain.RoleSuperAdmin, domain.CapManageRoles), cfg.Admin.UpdateRole)
	admin.Get("/projects", capability(domain.RoleAdmin, domain.CapManageProjects), cfg.Admin.ListProjects)
	admin.Post("/projects/:id/approve", capability(domain.RoleAdmin, domain.CapApproveProject), cfg.Admin.ApproveProject)
	admin.Post("/projects/:id/reject", capability(domain.RoleAdmin, domain.CapApproveProject), cfg.Admin.RejectProject)
	admin.Get("/kyc", capability(domain.RoleAdmin, domain.CapManageKYC), cfg.Admin.KYCQueue)
	admin.Post("/kyc/:address", capability(domain.RoleAdmin, domain.CapManageKYC), cfg.Admin.DecideKYC)
	admin.Get("/contracts", capability(domain.RoleSuperAdmin, domain.CapManageContracts), cfg.Admin.ListContracts)
	admin.Post("/contracts/:name/pause", capability(domain.RoleSuperAdmin, domain.CapManageContracts), cfg.Admin.PauseContract)
	admin.Post("/contracts/:name/resume", capability(domain.RoleSuperAdmin, domain.CapManageContracts), cfg.Admin.ResumeContract)
	admin.Post("/sessions/force-logout", capability(domain.RoleSuperAdmin, domain.CapForceLogout), cfg.Admin.ForceLogout)
	admin.Get("/stats", capability(domain.RoleAdmin, domain.CapViewAnalytics), cfg.Admin.Stats)
	admin.Get("/activity", capability(domain.RoleAdmin, domain.CapViewAnalytics), cfg.Admin.Activity)

	protected.Post("/sync/events", cfg.Sync.TriggerUpdate)
	protected.Post("/sync/dashboards/:userId", cfg.Sync.SyncDashboard)
	protected.Post("/notifications", cfg.Sync.SendNotification)
	protected.Get("/notifications", cfg.Sync.Notifications)
}
