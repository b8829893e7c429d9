package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/events"
)

// Challenge requests a sign-in message for address.
func (c *Client) Challenge(ctx context.Context, address string) (domain.Challenge, error) {
	var out domain.Challenge
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/challenge",
		body:   map[string]string{"address": address},
		token:  noToken(),
	}, &out)
	return out, err
}

// Connect exchanges a signed challenge for a session.
func (c *Client) Connect(ctx context.Context, address, signature, message string) (domain.AuthResult, error) {
	var out domain.AuthResult
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/connect",
		body: map[string]string{
			"address":   address,
			"signature": signature,
			"message":   message,
		},
		token: noToken(),
	}, &out)
	return out, err
}

// Resume loads the account behind token.
func (c *Client) Resume(ctx context.Context, token string) (domain.User, error) {
	var out domain.User
	err := c.do(ctx, request{method: http.MethodGet, path: "/auth/session", token: &token}, &out)
	return out, err
}

// GetProfile loads the account at address.
func (c *Client) GetProfile(ctx context.Context, address string) (domain.User, error) {
	var out domain.User
	err := c.do(ctx, request{method: http.MethodGet, path: "/users/" + url.PathEscape(address)}, &out)
	return out, err
}

// ListMarketplace lists approved projects.
func (c *Client) ListMarketplace(ctx context.Context) ([]domain.Project, error) {
	var out []domain.Project
	err := c.do(ctx, request{method: http.MethodGet, path: "/projects"}, &out)
	return out, err
}

// ListUsers lists accounts, optionally filtered by role.
func (c *Client) ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var out []domain.User
	q := url.Values{}
	if role != domain.RoleNone {
		q.Set("role", string(role))
	}
	err := c.do(ctx, request{method: http.MethodGet, path: "/admin/users", query: q}, &out)
	return out, err
}

// ListProjects lists projects in status, or all when status is empty.
func (c *Client) ListProjects(ctx context.Context, status domain.ProjectStatus) ([]domain.Project, error) {
	var out []domain.Project
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	err := c.do(ctx, request{method: http.MethodGet, path: "/admin/projects", query: q}, &out)
	return out, err
}

// ListKYCQueue lists accounts awaiting a KYC decision.
func (c *Client) ListKYCQueue(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := c.do(ctx, request{method: http.MethodGet, path: "/admin/kyc"}, &out)
	return out, err
}

// ListContracts lists platform contracts.
func (c *Client) ListContracts(ctx context.Context) ([]domain.Contract, error) {
	var out []domain.Contract
	err := c.do(ctx, request{method: http.MethodGet, path: "/admin/contracts"}, &out)
	return out, err
}

// Stats loads admin aggregate counters.
func (c *Client) Stats(ctx context.Context) (domain.PlatformStats, error) {
	var out domain.PlatformStats
	err := c.do(ctx, request{method: http.MethodGet, path: "/admin/stats"}, &out)
	return out, err
}

// Activity lists the most recent sync events seen by the API.
func (c *Client) Activity(ctx context.Context) ([]events.Event, error) {
	var out []events.Event
	err := c.do(ctx, request{method: http.MethodGet, path: "/admin/activity"}, &out)
	return out, err
}

// UpdateRole assigns role to the account at address.
func (c *Client) UpdateRole(ctx context.Context, address string, role domain.Role) (domain.User, error) {
	var out domain.User
	err := c.do(ctx, request{
		method: http.MethodPut,
		path:   "/admin/users/" + url.PathEscape(address) + "/role",
		body:   map[string]string{"role": string(role)},
	}, &out)
	return out, err
}

// DecideProject approves or rejects a pending project.
func (c *Client) DecideProject(ctx context.Context, projectID string, status domain.ProjectStatus) (domain.Project, error) {
	action := "approve"
	if status == domain.ProjectRejected {
		action = "reject"
	}
	var out domain.Project
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/admin/projects/" + url.PathEscape(projectID) + "/" + action,
	}, &out)
	return out, err
}

// DecideKYC records a KYC decision for the account at address.
func (c *Client) DecideKYC(ctx context.Context, address string, status domain.KYCStatus) (domain.User, error) {
	var out domain.User
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/admin/kyc/" + url.PathEscape(address),
		body:   map[string]string{"status": string(status)},
	}, &out)
	return out, err
}

// SetContractStatus pauses or resumes a contract.
func (c *Client) SetContractStatus(ctx context.Context, name string, status domain.ContractStatus) (domain.Contract, error) {
	action := "resume"
	if status == domain.ContractPaused {
		action = "pause"
	}
	var out domain.Contract
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/admin/contracts/" + url.PathEscape(name) + "/" + action,
	}, &out)
	return out, err
}

// ForceLogoutAll revokes every issued session token.
func (c *Client) ForceLogoutAll(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/admin/sessions/force-logout"}, nil)
}

// SendNotification delivers n to its recipient's inbox.
func (c *Client) SendNotification(ctx context.Context, n domain.Notification) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/notifications", body: n}, nil)
}

// Notifications lists the caller's inbox, newest first.
func (c *Client) Notifications(ctx context.Context) ([]domain.Notification, error) {
	var out []domain.Notification
	err := c.do(ctx, request{method: http.MethodGet, path: "/notifications"}, &out)
	return out, err
}

// TriggerUpdate hands e to the API for fan-out to other sessions.
func (c *Client) TriggerUpdate(ctx context.Context, e events.Event) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/sync/events", body: e}, nil)
}

// SyncDashboard asks every session of userID to refresh its views.
func (c *Client) SyncDashboard(ctx context.Context, userID string) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/sync/dashboards/" + url.PathEscape(userID)}, nil)
}

func noToken() *string {
	empty := ""
	return &empty
}
