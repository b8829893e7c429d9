package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/invest-access/internal/config"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

// ErrInvalidSignature is returned when a verifier rejects a signature.
var ErrInvalidSignature = errors.New("invalid signature")

// HTTPVerifier delegates signature checks to an external verification
// service.
type HTTPVerifier struct {
	url    string
	client *http.Client
}

// NewHTTPVerifier builds a verifier posting to url.
func NewHTTPVerifier(url string, timeout time.Duration) *HTTPVerifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPVerifier{url: url, client: &http.Client{Timeout: timeout}}
}

type verifyRequest struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, address, message, signature string) error {
	body, err := json.Marshal(verifyRequest{Address: address, Message: message, Signature: signature})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return apperrors.NewTransientNetworkError("signature verifier unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return apperrors.NewTransientNetworkError("signature verifier failed", errors.New(resp.Status))
	}
	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || !out.Valid {
		return ErrInvalidSignature
	}
	return nil
}

// AcceptAllVerifier accepts every signature. Development only.
type AcceptAllVerifier struct {
	logger *zap.Logger
}

// NewAcceptAllVerifier builds the development verifier.
func NewAcceptAllVerifier(logger *zap.Logger) *AcceptAllVerifier {
	return &AcceptAllVerifier{logger: logger}
}

func (v *AcceptAllVerifier) Verify(_ context.Context, address, _, _ string) error {
	if v.logger != nil {
		v.logger.Warn("signature accepted without verification", zap.String("address", address))
	}
	return nil
}

// ErrVerifierRequired is returned by NewSignatureVerifier when no verifier is
// configured and skipping verification was not explicitly allowed.
var ErrVerifierRequired = errors.New("AUTH_VERIFIER_URL is required unless AUTH_ACCEPT_ANY_SIGNATURE is set in development")

// NewSignatureVerifier picks the verifier for cfg. Without a verifier URL it
// accepts every signature only when the app runs in development and
// AUTH_ACCEPT_ANY_SIGNATURE is set; otherwise it fails.
func NewSignatureVerifier(cfg config.Config, logger *zap.Logger) (SignatureVerifier, error) {
	if cfg.Auth.VerifierURL != "" {
		return NewHTTPVerifier(cfg.Auth.VerifierURL, cfg.Sync.RequestTimeout()), nil
	}
	if !cfg.Auth.AcceptAnySignature || !cfg.App.IsDevelopment() {
		return nil, ErrVerifierRequired
	}
	if logger != nil {
		logger.Warn("signature verification disabled; accepting every signature")
	}
	return NewAcceptAllVerifier(logger), nil
}
