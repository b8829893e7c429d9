package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/events"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func writeData(t *testing.T, w http.ResponseWriter, status int, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"data": data}))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": code, "message": message}})
}

func TestConnectSendsNoBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/connect", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sig", body["signature"])

		writeData(t, w, http.StatusOK, domain.AuthResult{
			Token: "tok-1",
			User:  domain.User{ID: "u-1", Address: body["address"], Role: domain.RoleAdmin},
		})
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Token: func() string { return "stale" }})
	res, err := c.Connect(context.Background(), "0xabc", "sig", "msg")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)
	assert.Equal(t, domain.RoleAdmin, res.User.Role)
}

func TestBearerFromTokenSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "pending", r.URL.Query().Get("status"))
		writeData(t, w, http.StatusOK, []domain.Project{{ID: "p-1", Status: domain.ProjectPending}})
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL + "/", Token: func() string { return "tok-1" }})
	projects, err := c.ListProjects(context.Background(), domain.ProjectPending)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "p-1", projects[0].ID)
}

func TestResumeUsesExplicitToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stored", r.Header.Get("Authorization"))
		writeData(t, w, http.StatusOK, domain.User{ID: "u-1", Role: domain.RoleUser})
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL})
	user, err := c.Resume(context.Background(), "stored")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		code   string
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, apperrors.CodeAuthentication, func(t *testing.T, err error) {
			assert.True(t, apperrors.IsAuthentication(err))
		}},
		{"forbidden hides detail", http.StatusForbidden, apperrors.CodeAuthorization, func(t *testing.T, err error) {
			assert.True(t, apperrors.IsAuthorization(err))
			assert.Equal(t, "insufficient privileges", err.Error())
		}},
		{"server error is transient", http.StatusBadGateway, apperrors.CodeInternal, func(t *testing.T, err error) {
			assert.True(t, apperrors.IsTransient(err))
		}},
		{"conflict keeps code", http.StatusConflict, apperrors.CodeConflict, func(t *testing.T, err error) {
			assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, tc.status, tc.code, "requires manage_contracts")
			}))
			defer srv.Close()

			_, err := New(Options{BaseURL: srv.URL}).SetContractStatus(context.Background(), "Vault", domain.ContractPaused)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestNetworkFailureIsTransient(t *testing.T) {
	hc := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})}
	c := New(Options{BaseURL: "http://api.invalid", HTTPClient: hc})

	err := c.TriggerUpdate(context.Background(), events.ForceLogout())
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
}

func TestTimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Timeout: 10 * time.Millisecond})
	err := c.ForceLogoutAll(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
}

func TestTriggerUpdateCarriesEvent(t *testing.T) {
	var got events.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sync/events", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	e := events.ContractStatusChanged("Vault", domain.ContractPaused)
	require.NoError(t, New(Options{BaseURL: srv.URL}).TriggerUpdate(context.Background(), e))
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "paused", got.Meta(events.MetaStatus))
}

func TestDecisionPaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		writeData(t, w, http.StatusOK, map[string]any{})
	}))
	defer srv.Close()
	c := New(Options{BaseURL: srv.URL})
	ctx := context.Background()

	_, err := c.DecideProject(ctx, "p-1", domain.ProjectRejected)
	require.NoError(t, err)
	_, err = c.SetContractStatus(ctx, "Vault", domain.ContractActive)
	require.NoError(t, err)
	_, err = c.UpdateRole(ctx, "0xabc", domain.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, c.SyncDashboard(ctx, "u-2"))

	assert.Equal(t, []string{
		"POST /admin/projects/p-1/reject",
		"POST /admin/contracts/Vault/resume",
		"PUT /admin/users/0xabc/role",
		"POST /sync/dashboards/u-2",
	}, paths)
}
