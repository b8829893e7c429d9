// Package admin runs administrative mutations from a dashboard session.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/invest-access/internal/auth"
	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/events"
	"github.com/spec-kit/invest-access/internal/observability"
	"github.com/spec-kit/invest-access/internal/syncer"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

// API is the admin mutation surface of the platform API.
type API interface {
	UpdateRole(ctx context.Context, address string, role domain.Role) (domain.User, error)
	DecideProject(ctx context.Context, projectID string, status domain.ProjectStatus) (domain.Project, error)
	DecideKYC(ctx context.Context, address string, status domain.KYCStatus) (domain.User, error)
	SetContractStatus(ctx context.Context, name string, status domain.ContractStatus) (domain.Contract, error)
	ForceLogoutAll(ctx context.Context) error
}

// Session is what actions need from the session store.
type Session interface {
	Identity() domain.Identity
	HandleAPIError(ctx context.Context, err error) bool
}

// Bus is the sync bus actions announce on.
type Bus interface {
	Publish(ctx context.Context, e events.Event) events.Event
	Deliver(ctx context.Context, e events.Event)
}

// Options wires Actions.
type Options struct {
	Guard      *auth.Guard
	API        API
	Session    Session
	Bus        Bus
	Propagator *syncer.Propagator
	Logger     *zap.Logger
	Now        func() time.Time
}

// Actions gates each mutation on the current identity, performs it through
// the API and, only once it succeeded, announces it on the sync bus.
type Actions struct {
	guard      *auth.Guard
	api        API
	session    Session
	bus        Bus
	propagator *syncer.Propagator
	logger     *zap.Logger
	now        func() time.Time
}

// New builds Actions.
func New(opts Options) *Actions {
	a := &Actions{
		guard:      opts.Guard,
		api:        opts.API,
		session:    opts.Session,
		bus:        opts.Bus,
		propagator: opts.Propagator,
		logger:     observability.OrNop(opts.Logger),
		now:        opts.Now,
	}
	if a.guard == nil {
		a.guard = auth.NewGuard(nil)
	}
	if a.propagator == nil {
		a.propagator = syncer.NewPropagator(nil, nil, nil)
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

func (a *Actions) authorize(floor domain.Role, capability domain.Capability) error {
	return a.guard.EvaluateCapability(a.session.Identity(), floor, capability).Err()
}

func (a *Actions) failed(ctx context.Context, action string, err error) error {
	if a.session.HandleAPIError(ctx, err) {
		a.logger.Warn("admin action rejected credential, session ended", zap.String("action", action))
	}
	return fmt.Errorf("%s: %w", action, err)
}

func (a *Actions) announce(ctx context.Context, e events.Event, recipient string, n *domain.Notification) events.Event {
	published := a.bus.Publish(ctx, e)
	a.propagator.TriggerSync(ctx, published)
	if n != nil && recipient != "" {
		n.ID = uuid.NewString()
		n.Recipient = recipient
		n.EventType = string(e.Type)
		n.CreatedAt = a.now()
		a.propagator.SendNotification(ctx, *n)
	}
	return published
}

// UpdateRole assigns role to the account at address.
func (a *Actions) UpdateRole(ctx context.Context, address string, role domain.Role) (domain.User, error) {
	if err := a.authorize(domain.RoleSuperAdmin, domain.CapManageRoles); err != nil {
		return domain.User{}, err
	}
	normalized, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.User{}, apperrors.NewValidationError("invalid wallet address", map[string]any{"address": address})
	}
	if !role.Valid() {
		return domain.User{}, apperrors.NewValidationError("invalid role", map[string]any{"role": string(role)})
	}

	user, err := a.api.UpdateRole(ctx, normalized, role)
	if err != nil {
		return domain.User{}, a.failed(ctx, "update role", err)
	}

	target := user.ID
	if target == "" {
		target = normalized
	}
	a.announce(ctx, events.RoleUpdated(target, role), target, &domain.Notification{
		Level:   domain.LevelInfo,
		Title:   "Role updated",
		Message: fmt.Sprintf("Your role is now %s. Please connect again.", role),
	})
	return user, nil
}

// ApproveProject approves a pending project.
func (a *Actions) ApproveProject(ctx context.Context, projectID string) (domain.Project, error) {
	return a.decideProject(ctx, projectID, domain.ProjectApproved)
}

// RejectProject rejects a pending project.
func (a *Actions) RejectProject(ctx context.Context, projectID string) (domain.Project, error) {
	return a.decideProject(ctx, projectID, domain.ProjectRejected)
}

func (a *Actions) decideProject(ctx context.Context, projectID string, status domain.ProjectStatus) (domain.Project, error) {
	if err := a.authorize(domain.RoleAdmin, domain.CapApproveProject); err != nil {
		return domain.Project{}, err
	}
	if projectID == "" {
		return domain.Project{}, apperrors.NewValidationError("project id required", nil)
	}

	project, err := a.api.DecideProject(ctx, projectID, status)
	if err != nil {
		return domain.Project{}, a.failed(ctx, "decide project", err)
	}

	level := domain.LevelSuccess
	if status == domain.ProjectRejected {
		level = domain.LevelWarning
	}
	a.announce(ctx, events.ProjectDecided(projectID, status), project.Owner, &domain.Notification{
		Level:   level,
		Title:   "Project " + string(status),
		Message: fmt.Sprintf("Your project %s was %s.", projectID, status),
	})
	return project, nil
}

// DecideKYC records a KYC decision.
func (a *Actions) DecideKYC(ctx context.Context, address string, status domain.KYCStatus) (domain.User, error) {
	if err := a.authorize(domain.RoleAdmin, domain.CapManageKYC); err != nil {
		return domain.User{}, err
	}
	if !status.IsDecision() {
		return domain.User{}, apperrors.NewValidationError("kyc status must be approved or rejected", map[string]any{"status": string(status)})
	}
	normalized, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.User{}, apperrors.NewValidationError("invalid wallet address", map[string]any{"address": address})
	}

	user, err := a.api.DecideKYC(ctx, normalized, status)
	if err != nil {
		return domain.User{}, a.failed(ctx, "decide kyc", err)
	}

	target := user.ID
	if target == "" {
		target = normalized
	}
	a.announce(ctx, events.KYCDecided(target, status), target, &domain.Notification{
		Level:   domain.LevelInfo,
		Title:   "KYC " + string(status),
		Message: fmt.Sprintf("Your identity verification was %s.", status),
	})
	return user, nil
}

// PauseContract pauses a platform contract.
func (a *Actions) PauseContract(ctx context.Context, name string) (domain.Contract, error) {
	return a.setContract(ctx, name, domain.ContractPaused)
}

// ResumeContract resumes a paused contract.
func (a *Actions) ResumeContract(ctx context.Context, name string) (domain.Contract, error) {
	return a.setContract(ctx, name, domain.ContractActive)
}

func (a *Actions) setContract(ctx context.Context, name string, status domain.ContractStatus) (domain.Contract, error) {
	if err := a.authorize(domain.RoleSuperAdmin, domain.CapManageContracts); err != nil {
		return domain.Contract{}, err
	}
	if name == "" {
		return domain.Contract{}, apperrors.NewValidationError("contract name required", nil)
	}

	contract, err := a.api.SetContractStatus(ctx, name, status)
	if err != nil {
		return domain.Contract{}, a.failed(ctx, "set contract status", err)
	}
	a.announce(ctx, events.ContractStatusChanged(name, status), "", nil)
	return contract, nil
}

// ForceLogoutAll revokes every session, this one included. The API fans the
// logout out to other consoles itself, since this console's credential is
// already revoked once the call returns; here it is only delivered locally.
func (a *Actions) ForceLogoutAll(ctx context.Context) error {
	if err := a.authorize(domain.RoleSuperAdmin, domain.CapForceLogout); err != nil {
		return err
	}
	if err := a.api.ForceLogoutAll(ctx); err != nil {
		return a.failed(ctx, "force logout", err)
	}
	a.bus.Deliver(ctx, events.ForceLogout())
	return nil
}
