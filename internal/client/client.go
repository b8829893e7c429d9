// Package client talks to the platform API on behalf of a dashboard session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/invest-access/internal/observability"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

// TokenSource returns the credential to send, or "" for none.
type TokenSource func() string

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Token      TokenSource
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is a thin JSON client for the platform API. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
	logger  *zap.Logger
}

// New builds a client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	token := opts.Token
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		token:   token,
		logger:  observability.OrNop(opts.Logger),
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	token  *string
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	token := c.token()
	if req.token != nil {
		token = *req.token
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return apperrors.NewTransientNetworkError(fmt.Sprintf("%s %s failed", req.method, req.path), err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= http.StatusInternalServerError {
			return apperrors.NewTransientNetworkError("api unavailable", fmt.Errorf("status %d", resp.StatusCode))
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return c.classify(req, resp.StatusCode, env)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func (c *Client) classify(req request, status int, env envelope) error {
	message := http.StatusText(status)
	code := ""
	var details map[string]any
	if env.Error != nil {
		if env.Error.Message != "" {
			message = env.Error.Message
		}
		code = env.Error.Code
		details = env.Error.Details
	}

	c.logger.Debug("api call rejected",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", status),
		zap.String("code", code))

	switch {
	case status == http.StatusUnauthorized:
		return apperrors.NewAuthenticationError(message)
	case status == http.StatusForbidden:
		return apperrors.NewAuthorizationError("insufficient privileges")
	case status >= http.StatusInternalServerError:
		return apperrors.NewTransientNetworkError("api unavailable", fmt.Errorf("status %d: %s", status, message))
	default:
		if code == "" {
			code = apperrors.CodeValidation
		}
		return apperrors.NewDomainError(code, message, status, details)
	}
}
