package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/invest-access/internal/auth"
	"github.com/spec-kit/invest-access/internal/config"
	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/repository"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

// SignatureVerifier checks that signature over message was produced by the
// wallet at address.
type SignatureVerifier interface {
	Verify(ctx context.Context, address, message, signature string) error
}

// AuthService coordinates the wallet sign-in exchange.
type AuthService struct {
	accounts     repository.AccountRepository
	challenges   repository.ChallengeRepository
	generations  repository.GenerationRepository
	verifier     SignatureVerifier
	tokenMgr     *auth.TokenManager
	challengeTTL time.Duration
	now          func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	AccountRepo    repository.AccountRepository
	ChallengeRepo  repository.ChallengeRepository
	GenerationRepo repository.GenerationRepository
	Verifier       SignatureVerifier
	TokenManager   *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	tokens := deps.TokenManager
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	}
	return &AuthService{
		accounts:     deps.AccountRepo,
		challenges:   deps.ChallengeRepo,
		generations:  deps.GenerationRepo,
		verifier:     deps.Verifier,
		tokenMgr:     tokens,
		challengeTTL: cfg.Auth.ChallengeTTL(),
		now:          time.Now,
	}
}

func challengeMessage(address, nonce string, issued time.Time) string {
	return fmt.Sprintf("Sign in to Invest Access\nAddress: %s\nNonce: %s\nIssued: %s",
		address, nonce, issued.UTC().Format(time.RFC3339))
}

// IssueChallenge creates a single-use message for address to sign. A newer
// challenge replaces an outstanding one.
func (s *AuthService) IssueChallenge(ctx context.Context, address string) (domain.Challenge, error) {
	normalized, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.Challenge{}, apperrors.NewValidationError("invalid wallet address", map[string]any{"address": address})
	}
	now := s.now()
	challenge := domain.Challenge{
		Address:   normalized,
		Message:   challengeMessage(normalized, uuid.NewString(), now),
		ExpiresAt: now.Add(s.challengeTTL),
	}
	if err := s.challenges.Create(ctx, challenge); err != nil {
		return domain.Challenge{}, err
	}
	return challenge, nil
}

// Connect redeems the outstanding challenge for address and issues a token.
func (s *AuthService) Connect(ctx context.Context, address, signature, message string) (domain.AuthResult, error) {
	normalized, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.AuthResult{}, apperrors.NewValidationError("invalid wallet address", map[string]any{"address": address})
	}

	challenge, err := s.challenges.Consume(ctx, normalized)
	if errors.Is(err, repository.ErrChallengeNotFound) {
		return domain.AuthResult{}, apperrors.NewUnauthorized("unknown or used challenge")
	}
	if err != nil {
		return domain.AuthResult{}, err
	}
	if challenge.Message != message {
		return domain.AuthResult{}, apperrors.NewUnauthorized("challenge mismatch")
	}
	if s.verifier != nil {
		if err := s.verifier.Verify(ctx, normalized, message, signature); err != nil {
			if apperrors.IsTransient(err) {
				return domain.AuthResult{}, err
			}
			return domain.AuthResult{}, apperrors.NewUnauthorized("invalid signature")
		}
	}

	user, err := s.accounts.GetByAddress(ctx, normalized)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AuthResult{}, apperrors.NewUnauthorized("unknown account")
	}
	if err != nil {
		return domain.AuthResult{}, err
	}
	if user.Status == domain.UserStatusSuspended {
		return domain.AuthResult{}, apperrors.NewUnauthorized("account suspended")
	}

	generation, err := s.generations.Current(ctx)
	if err != nil {
		return domain.AuthResult{}, err
	}
	token, expiresAt, err := s.tokenMgr.GenerateToken(*user, generation)
	if err != nil {
		return domain.AuthResult{}, apperrors.NewInternalError(err)
	}
	return domain.AuthResult{Token: token, ExpiresAt: expiresAt, User: *user}, nil
}
