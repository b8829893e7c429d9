package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/events"
	"github.com/spec-kit/invest-access/internal/repository"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

type adminFixture struct {
	svc         *AdminService
	forwarder   *recordingForwarder
	generations repository.GenerationRepository
	activity    repository.ActivityRepository
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	client := newRedis(t)
	f := &adminFixture{
		forwarder:   &recordingForwarder{},
		generations: repository.NewGenerationRepository(client),
		activity:    repository.NewActivityRepository(client, 0),
	}
	f.svc = NewAdminService(AdminDependencies{
		AccountRepo: newMemAccounts(
			domain.User{ID: "u-1", Address: alice, Role: domain.RoleSuperAdmin, KYCStatus: domain.KYCApproved},
			domain.User{ID: "u-2", Address: bob, Role: domain.RoleUser, KYCStatus: domain.KYCPending},
		),
		ProjectRepo: &memProjects{projects: map[string]*domain.Project{
			"p-1": {ID: "p-1", Name: "Solar", Owner: "u-2", Status: domain.ProjectPending},
			"p-2": {ID: "p-2", Name: "Wind", Owner: "u-2", Status: domain.ProjectApproved},
		}},
		ContractRepo: &memContracts{contracts: []domain.Contract{
			{Name: "Vault", Status: domain.ContractActive},
			{Name: "Escrow", Status: domain.ContractPaused},
		}},
		GenerationRepo: f.generations,
		ActivityRepo:   f.activity,
		Forwarder:      f.forwarder,
	})
	return f
}

func TestStatsAggregatesAcrossRepositories(t *testing.T) {
	f := newAdminFixture(t)

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformStats{
		Users:           1,
		Admins:          1,
		PendingProjects: 1,
		PendingKYC:      1,
		PausedContracts: 1,
	}, stats)
}

func TestAdminMutations(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	user, err := f.svc.UpdateRole(ctx, "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)

	_, err = f.svc.UpdateRole(ctx, bob, domain.Role("owner"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	project, err := f.svc.DecideProject(ctx, "p-1", domain.ProjectRejected)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectRejected, project.Status)

	_, err = f.svc.DecideProject(ctx, "p-404", domain.ProjectApproved)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	user, err = f.svc.DecideKYC(ctx, bob, domain.KYCApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.KYCApproved, user.KYCStatus)

	queue, err := f.svc.KYCQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	contract, err := f.svc.SetContractStatus(ctx, "Vault", domain.ContractPaused)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractPaused, contract.Status)

	_, err = f.svc.SetContractStatus(ctx, "Missing", domain.ContractPaused)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	market, err := f.svc.Marketplace(ctx)
	require.NoError(t, err)
	require.Len(t, market, 1)
	assert.Equal(t, "p-2", market[0].ID)

	// Mutations themselves publish nothing; consoles announce them.
	assert.Empty(t, f.forwarder.events)
}

func TestForceLogoutBumpsGenerationAndBroadcasts(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.ForceLogoutAll(ctx))

	gen, err := f.generations.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	require.Len(t, f.forwarder.events, 1)
	e := f.forwarder.events[0]
	assert.Equal(t, events.EventRoleUpdate, e.Type)
	assert.True(t, e.TargetsAll())
	assert.Equal(t, OriginAPI, e.Origin)
	assert.False(t, e.Timestamp.IsZero())

	recent, err := f.svc.Activity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, e.ID, recent[0].ID)
}

func TestForceLogoutSurvivesBroadcastFailure(t *testing.T) {
	f := newAdminFixture(t)
	f.forwarder.err = errors.New("redis down")

	require.NoError(t, f.svc.ForceLogoutAll(context.Background()))
	gen, err := f.generations.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}
