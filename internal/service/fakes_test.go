package service

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/events"
	"github.com/spec-kit/invest-access/internal/repository"
)

const (
	alice = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	bob   = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type memAccounts struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemAccounts(users ...domain.User) *memAccounts {
	m := &memAccounts{users: map[string]*domain.User{}}
	for i := range users {
		u := users[i]
		m.users[u.Address] = &u
	}
	return m
}

func (m *memAccounts) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Address] = user
	return nil
}

func (m *memAccounts) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			out := *u
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memAccounts) GetByAddress(_ context.Context, address string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[address]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *u
	return &out, nil
}

func (m *memAccounts) List(_ context.Context, filter repository.AccountFilter) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		if filter.KYCStatus != "" && u.KYCStatus != filter.KYCStatus {
			continue
		}
		if len(filter.Roles) > 0 {
			match := false
			for _, r := range filter.Roles {
				match = match || u.Role == r
			}
			if !match {
				continue
			}
		}
		out = append(out, *u)
	}
	return out, nil
}

func (m *memAccounts) update(address string, fn func(*domain.User)) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[address]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	fn(u)
	out := *u
	return &out, nil
}

func (m *memAccounts) UpdateRole(_ context.Context, address string, role domain.Role) (*domain.User, error) {
	return m.update(address, func(u *domain.User) { u.Role = role })
}

func (m *memAccounts) UpdateKYC(_ context.Context, address string, status domain.KYCStatus) (*domain.User, error) {
	return m.update(address, func(u *domain.User) { u.KYCStatus = status })
}

type memProjects struct {
	projects map[string]*domain.Project
}

func (m *memProjects) GetByID(_ context.Context, id string) (*domain.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *p
	return &out, nil
}

func (m *memProjects) List(_ context.Context, status domain.ProjectStatus) ([]domain.Project, error) {
	var out []domain.Project
	for _, p := range m.projects {
		if status == "" || p.Status == status {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProjects) UpdateStatus(_ context.Context, id string, status domain.ProjectStatus) (*domain.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	p.Status = status
	out := *p
	return &out, nil
}

type memContracts struct {
	contracts []domain.Contract
}

func (m *memContracts) List(context.Context) ([]domain.Contract, error) {
	return append([]domain.Contract(nil), m.contracts...), nil
}

func (m *memContracts) SetStatus(_ context.Context, name string, status domain.ContractStatus) (*domain.Contract, error) {
	for i := range m.contracts {
		if m.contracts[i].Name == name {
			m.contracts[i].Status = status
			out := m.contracts[i]
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type recordingForwarder struct {
	mu     sync.Mutex
	err    error
	events []events.Event
}

func (f *recordingForwarder) Forward(_ context.Context, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}
