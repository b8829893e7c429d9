package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/invest-access/internal/admin"
	"github.com/spec-kit/invest-access/internal/dashboard"
	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/events"
	"github.com/spec-kit/invest-access/internal/session"
	"github.com/spec-kit/invest-access/internal/syncer"
	"github.com/spec-kit/invest-access/internal/views"
)

const alice = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

type fakeWallet struct {
	role domain.Role
}

func (f *fakeWallet) Challenge(_ context.Context, address string) (domain.Challenge, error) {
	normalized, err := domain.NormalizeAddress(address)
	return domain.Challenge{Address: normalized, Message: "sign " + normalized}, err
}

func (f *fakeWallet) Notifications(context.Context) ([]domain.Notification, error) {
	return []domain.Notification{{Title: "hello"}}, nil
}

func (f *fakeWallet) Connect(_ context.Context, address, _, _ string) (domain.AuthResult, error) {
	return domain.AuthResult{Token: "tok", User: domain.User{ID: "u-1", Address: address, Role: f.role}}, nil
}

func (f *fakeWallet) Resume(context.Context, string) (domain.User, error) {
	return domain.User{}, nil
}

type nopAdminAPI struct{}

func (nopAdminAPI) UpdateRole(_ context.Context, address string, role domain.Role) (domain.User, error) {
	return domain.User{ID: "u-2", Address: address, Role: role}, nil
}
func (nopAdminAPI) DecideProject(_ context.Context, id string, status domain.ProjectStatus) (domain.Project, error) {
	return domain.Project{ID: id, Status: status}, nil
}
func (nopAdminAPI) DecideKYC(_ context.Context, address string, status domain.KYCStatus) (domain.User, error) {
	return domain.User{Address: address, KYCStatus: status}, nil
}
func (nopAdminAPI) SetContractStatus(_ context.Context, name string, status domain.ContractStatus) (domain.Contract, error) {
	return domain.Contract{Name: name, Status: status}, nil
}
func (nopAdminAPI) ForceLogoutAll(context.Context) error { return nil }

func newShell(t *testing.T, role domain.Role, kind syncer.Kind) (*shell, *bytes.Buffer) {
	sh, buf, _ := newShellWithWallet(t, role, kind)
	return sh, buf
}

func newShellWithWallet(t *testing.T, role domain.Role, kind syncer.Kind) (*shell, *bytes.Buffer, *fakeWallet) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	wallet := &fakeWallet{role: role}
	store := session.NewStore(wallet, session.NewRedisCredentialStore(client, ""), nil)
	bus := events.NewBus(events.BusOptions{})
	t.Cleanup(bus.Close)

	buf := &bytes.Buffer{}
	sh := &shell{store: store, api: wallet, kind: kind, out: &syncWriter{w: buf}}
	sh.core = dashboard.New(dashboard.Options{Store: store, Bus: bus, Notifier: syncer.NotifierFunc(sh.notify)})
	t.Cleanup(sh.core.Close)
	sh.newCache = func() *views.Cache {
		cache := views.New(views.Options{})
		for _, key := range kind.Views() {
			key := key
			cache.Register(key, func(context.Context) (any, error) { return string(key) + "-data", nil })
		}
		return cache
	}
	sh.actions = admin.New(admin.Options{API: nopAdminAPI{}, Session: store, Bus: bus})
	return sh, buf, wallet
}

func TestShellSession(t *testing.T) {
	sh, buf := newShell(t, domain.RoleAdmin, syncer.KindAdmin)

	script := strings.Join([]string{
		"whoami",
		"connect " + strings.ToLower(alice),
		"whoami",
		"can approve_project",
		"can manage_contracts",
		"access superadmin",
		"view admin_stats",
		"approve p-1",
		"pause Vault",
		"disconnect",
		"whoami",
		"bogus",
		"exit",
	}, "\n")
	sh.run(context.Background(), strings.NewReader(script))

	out := buf.String()
	assert.Contains(t, out, "not connected")
	assert.Contains(t, out, "Connected as "+alice+" (admin)")
	assert.Contains(t, out, "u-1 "+alice+" role=admin")
	assert.Contains(t, out, "true\n")
	assert.Contains(t, out, "false\n")
	assert.Contains(t, out, "deny_forbidden")
	assert.Contains(t, out, `"admin_stats-data"`)
	assert.Contains(t, out, "Project approved")
	assert.Contains(t, out, "error: insufficient privileges")
	assert.Contains(t, out, "Unknown command")
	assert.Contains(t, out, "Bye")
	assert.Nil(t, sh.mount)
}

func TestShellRefusesDashboardAboveRole(t *testing.T) {
	sh, buf := newShell(t, domain.RoleUser, syncer.KindSuperAdmin)

	sh.run(context.Background(), strings.NewReader("connect "+alice+"\nview admin_contracts\nexit"))

	out := buf.String()
	assert.Contains(t, out, "superadmin dashboard unavailable")
	assert.Contains(t, out, "no dashboard mounted")
	require.Nil(t, sh.mount)
}

func TestShellSwitchingAccountsDropsPrivilegedViews(t *testing.T) {
	sh, buf, wallet := newShellWithWallet(t, domain.RoleSuperAdmin, syncer.KindSuperAdmin)
	ctx := context.Background()

	sh.run(ctx, strings.NewReader("connect "+alice+"\nview admin_users\nexit"))
	require.NotNil(t, sh.mount)
	first := sh.mount
	assert.Contains(t, buf.String(), `"admin_users-data"`)

	buf.Reset()
	wallet.role = domain.RoleUser
	sh.run(ctx, strings.NewReader("connect "+alice+"\nview admin_users\nexit"))

	out := buf.String()
	assert.False(t, first.Active())
	assert.Nil(t, sh.mount)
	assert.Contains(t, out, "Connected as "+alice+" (user)")
	assert.Contains(t, out, "superadmin dashboard unavailable")
	assert.Contains(t, out, "no dashboard mounted")
	assert.NotContains(t, out, `"admin_users-data"`)
}
