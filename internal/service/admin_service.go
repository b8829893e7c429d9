package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/events"
	"github.com/spec-kit/invest-access/internal/repository"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

// OriginAPI marks events the gateway itself publishes.
const OriginAPI = "api"

// EventForwarder publishes an event to every connected console.
type EventForwarder interface {
	Forward(ctx context.Context, e events.Event) error
}

// AdminService performs administrative mutations and serves admin views.
// Capability checks happen in the route middleware.
type AdminService struct {
	accounts    repository.AccountRepository
	projects    repository.ProjectRepository
	contracts   repository.ContractRepository
	generations repository.GenerationRepository
	activity    repository.ActivityRepository
	forwarder   EventForwarder
	logger      *zap.Logger
	now         func() time.Time
}

// AdminDependencies encapsulates repositories required by AdminService.
type AdminDependencies struct {
	AccountRepo    repository.AccountRepository
	ProjectRepo    repository.ProjectRepository
	ContractRepo   repository.ContractRepository
	GenerationRepo repository.GenerationRepository
	ActivityRepo   repository.ActivityRepository
	Forwarder      EventForwarder
	Logger         *zap.Logger
}

// NewAdminService constructs the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		accounts:    deps.AccountRepo,
		projects:    deps.ProjectRepo,
		contracts:   deps.ContractRepo,
		generations: deps.GenerationRepo,
		activity:    deps.ActivityRepo,
		forwarder:   deps.Forwarder,
		logger:      logger,
		now:         time.Now,
	}
}

func notFound(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return err
}

func normalizeAddress(address string) (string, error) {
	normalized, err := domain.NormalizeAddress(address)
	if err != nil {
		return "", apperrors.NewValidationError("invalid wallet address", map[string]any{"address": address})
	}
	return normalized, nil
}

// UpdateRole assigns role to the account at address.
func (s *AdminService) UpdateRole(ctx context.Context, address string, role domain.Role) (*domain.User, error) {
	normalized, err := normalizeAddress(address)
	if err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(role)})
	}
	user, err := s.accounts.UpdateRole(ctx, normalized, role)
	if err != nil {
		return nil, notFound(err, "account", map[string]any{"address": normalized})
	}
	return user, nil
}

// DecideProject records an approval decision.
func (s *AdminService) DecideProject(ctx context.Context, id string, status domain.ProjectStatus) (*domain.Project, error) {
	if status != domain.ProjectApproved && status != domain.ProjectRejected {
		return nil, apperrors.NewValidationError("project status must be approved or rejected", map[string]any{"status": string(status)})
	}
	project, err := s.projects.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, notFound(err, "project", map[string]any{"id": id})
	}
	return project, nil
}

// DecideKYC records a KYC decision for the account at address.
func (s *AdminService) DecideKYC(ctx context.Context, address string, status domain.KYCStatus) (*domain.User, error) {
	normalized, err := normalizeAddress(address)
	if err != nil {
		return nil, err
	}
	if !status.IsDecision() {
		return nil, apperrors.NewValidationError("kyc status must be approved or rejected", map[string]any{"status": string(status)})
	}
	user, err := s.accounts.UpdateKYC(ctx, normalized, status)
	if err != nil {
		return nil, notFound(err, "account", map[string]any{"address": normalized})
	}
	return user, nil
}

// SetContractStatus pauses or resumes the named contract.
func (s *AdminService) SetContractStatus(ctx context.Context, name string, status domain.ContractStatus) (*domain.Contract, error) {
	contract, err := s.contracts.SetStatus(ctx, name, status)
	if err != nil {
		return nil, notFound(err, "contract", map[string]any{"name": name})
	}
	return contract, nil
}

// ForceLogoutAll revokes every issued token and tells every console to
// re-authenticate. The caller's own token is revoked too, so the event is
// published here rather than by the caller.
func (s *AdminService) ForceLogoutAll(ctx context.Context) error {
	generation, err := s.generations.Bump(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("sessions revoked", zap.Int64("generation", generation))

	e := events.ForceLogout()
	e.Origin = OriginAPI
	e.Timestamp = s.now()
	if err := s.activity.Record(ctx, e); err != nil {
		s.logger.Warn("record activity failed", zap.String("event_id", e.ID), zap.Error(err))
	}
	if s.forwarder != nil {
		if err := s.forwarder.Forward(ctx, e); err != nil {
			s.logger.Warn("force logout broadcast failed", zap.String("event_id", e.ID), zap.Error(err))
		}
	}
	return nil
}

// Profile returns the account at address.
func (s *AdminService) Profile(ctx context.Context, address string) (*domain.User, error) {
	normalized, err := normalizeAddress(address)
	if err != nil {
		return nil, err
	}
	user, err := s.accounts.GetByAddress(ctx, normalized)
	if err != nil {
		return nil, notFound(err, "account", map[string]any{"address": normalized})
	}
	return user, nil
}

// Marketplace lists approved projects.
func (s *AdminService) Marketplace(ctx context.Context) ([]domain.Project, error) {
	return s.projects.List(ctx, domain.ProjectApproved)
}

// ListUsers lists accounts holding one of roles, or every account.
func (s *AdminService) ListUsers(ctx context.Context, roles ...domain.Role) ([]domain.User, error) {
	return s.accounts.List(ctx, repository.AccountFilter{Roles: roles})
}

// ListProjects lists projects in status, or every project.
func (s *AdminService) ListProjects(ctx context.Context, status domain.ProjectStatus) ([]domain.Project, error) {
	return s.projects.List(ctx, status)
}

// KYCQueue lists accounts awaiting a KYC decision.
func (s *AdminService) KYCQueue(ctx context.Context) ([]domain.User, error) {
	return s.accounts.List(ctx, repository.AccountFilter{KYCStatus: domain.KYCPending})
}

func (s *AdminService) ListContracts(ctx context.Context) ([]domain.Contract, error) {
	return s.contracts.List(ctx)
}

// Activity returns recent sync events, newest first.
func (s *AdminService) Activity(ctx context.Context, limit int) ([]events.Event, error) {
	return s.activity.Recent(ctx, limit)
}

// Stats aggregates platform counters for the admin overview.
func (s *AdminService) Stats(ctx context.Context) (domain.PlatformStats, error) {
	var stats domain.PlatformStats

	accounts, err := s.accounts.List(ctx, repository.AccountFilter{})
	if err != nil {
		return stats, err
	}
	for _, a := range accounts {
		switch a.Role {
		case domain.RoleUser:
			stats.Users++
		case domain.RoleAdmin, domain.RoleSuperAdmin:
			stats.Admins++
		}
		if a.KYCStatus == domain.KYCPending {
			stats.PendingKYC++
		}
	}

	pending, err := s.projects.List(ctx, domain.ProjectPending)
	if err != nil {
		return stats, err
	}
	stats.PendingProjects = len(pending)

	contracts, err := s.contracts.List(ctx)
	if err != nil {
		return stats, err
	}
	for _, c := range contracts {
		if c.Status == domain.ContractPaused {
			stats.PausedContracts++
		}
	}
	return stats, nil
}
