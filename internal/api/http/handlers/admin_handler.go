package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/invest-access/internal/api/dto"
	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/service"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

// AdminHandler exposes admin mutations and views. Route middleware enforces
// the role floor and capability of each endpoint.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListUsers handles GET /admin/users?role=.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	var roles []domain.Role
	if raw := c.Query("role"); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid role", map[string]any{"role": raw})
		}
		roles = append(roles, role)
	}
	users, err := h.admin.ListUsers(c.UserContext(), roles...)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, nonNil(users))
}

// UpdateRole handles PUT /admin/users/:address/role.
func (h *AdminHandler) UpdateRole(c *fiber.Ctx) error {
	var req dto.UpdateRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.admin.UpdateRole(c.UserContext(), c.Params("address"), domain.Role(req.Role))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user)
}

// ListProjects handles GET /admin/projects?status=.
func (h *AdminHandler) ListProjects(c *fiber.Ctx) error {
	status := domain.ProjectStatus(c.Query("status"))
	switch status {
	case "", domain.ProjectPending, domain.ProjectApproved, domain.ProjectRejected:
	default:
		return apperrors.NewValidationError("invalid project status", map[string]any{"status": string(status)})
	}
	projects, err := h.admin.ListProjects(c.UserContext(), status)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, nonNil(projects))
}

// ApproveProject handles POST /admin/projects/:id/approve.
func (h *AdminHandler) ApproveProject(c *fiber.Ctx) error {
	return h.decideProject(c, domain.ProjectApproved)
}

// RejectProject handles POST /admin/projects/:id/reject.
func (h *AdminHandler) RejectProject(c *fiber.Ctx) error {
	return h.decideProject(c, domain.ProjectRejected)
}

func (h *AdminHandler) decideProject(c *fiber.Ctx, status domain.ProjectStatus) error {
	project, err := h.admin.DecideProject(c.UserContext(), c.Params("id"), status)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, project)
}

// KYCQueue handles GET /admin/kyc.
func (h *AdminHandler) KYCQueue(c *fiber.Ctx) error {
	users, err := h.admin.KYCQueue(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, nonNil(users))
}

// DecideKYC handles POST /admin/kyc/:address.
func (h *AdminHandler) DecideKYC(c *fiber.Ctx) error {
	var req dto.KYCDecisionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.admin.DecideKYC(c.UserContext(), c.Params("address"), domain.KYCStatus(req.Status))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user)
}

// ListContracts handles GET /admin/contracts.
func (h *AdminHandler) ListContracts(c *fiber.Ctx) error {
	contracts, err := h.admin.ListContracts(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, nonNil(contracts))
}

// PauseContract handles POST /admin/contracts/:name/pause.
func (h *AdminHandler) PauseContract(c *fiber.Ctx) error {
	return h.setContract(c, domain.ContractPaused)
}

// ResumeContract handles POST /admin/contracts/:name/resume.
func (h *AdminHandler) ResumeContract(c *fiber.Ctx) error {
	return h.setContract(c, domain.ContractActive)
}

func (h *AdminHandler) setContract(c *fiber.Ctx, status domain.ContractStatus) error {
	contract, err := h.admin.SetContractStatus(c.UserContext(), c.Params("name"), status)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, contract)
}

// ForceLogout handles POST /admin/sessions/force-logout.
func (h *AdminHandler) ForceLogout(c *fiber.Ctx) error {
	if err := h.admin.ForceLogoutAll(c.UserContext()); err != nil {
		return err
	}
	return respond(c, http.StatusAccepted, fiber.Map{"status": "revoked"})
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.admin.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, stats)
}

// Activity handles GET /admin/activity.
func (h *AdminHandler) Activity(c *fiber.Ctx) error {
	recent, err := h.admin.Activity(c.UserContext(), limitQuery(c, 50))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, nonNil(recent))
}
