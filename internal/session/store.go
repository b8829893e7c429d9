// Package session owns the client's only mutable identity.
//
// Readers always receive snapshots. Every change goes through one of the
// Store's operations and is published as a fully built value, so no reader
// ever sees a half-applied identity.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/observability"
	"github.com/spec-kit/invest-access/internal/preview"
	apperrors "github.com/spec-kit/invest-access/pkg/util/errorutil"
)

// ErrPreviewDisabled is returned by EnterPreview in regular builds.
var ErrPreviewDisabled = errors.New("preview sessions are not available in this build")

var errConnectAbandoned = apperrors.NewAuthenticationError("connect abandoned by a concurrent sign-out")

// Authenticator is the remote auth exchange the store relies on.
type Authenticator interface {
	Connect(ctx context.Context, address, signature, message string) (domain.AuthResult, error)
	Resume(ctx context.Context, token string) (domain.User, error)
}

// ChangeFunc observes identity transitions. It runs after the change is
// visible and must not call back into a blocking store operation.
type ChangeFunc func(prev, next domain.Identity)

type watcher struct {
	id uint64
	fn ChangeFunc
}

// Store holds the current identity.
type Store struct {
	connectMu sync.Mutex

	mu       sync.RWMutex
	identity domain.Identity
	// epoch advances on every teardown; a connect that started in an older
	// epoch is abandoned instead of committed.
	epoch uint64

	watchMu  sync.Mutex
	watchers []watcher
	nextID   uint64

	auth   Authenticator
	creds  CredentialStore
	logger *zap.Logger
}

// NewStore builds an unauthenticated store.
func NewStore(auth Authenticator, creds CredentialStore, logger *zap.Logger) *Store {
	return &Store{auth: auth, creds: creds, logger: observability.OrNop(logger)}
}

// Identity returns a snapshot of the current identity.
func (s *Store) Identity() domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.Clone()
}

// IsAuthenticated reports whether a credential and a role are present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.Authenticated()
}

// IsDemoOrPreviewIdentity reports whether the current credential is a
// preview or demo sentinel honored by this build. Always false otherwise.
func (s *Store) IsDemoOrPreviewIdentity() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return preview.IsCredential(s.identity.Token)
}

// OnChange registers fn for identity transitions and returns its remover.
func (s *Store) OnChange(fn ChangeFunc) func() {
	s.watchMu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers = append(s.watchers, watcher{id: id, fn: fn})
	s.watchMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.watchMu.Lock()
			defer s.watchMu.Unlock()
			kept := s.watchers[:0:0]
			for _, w := range s.watchers {
				if w.id != id {
					kept = append(kept, w)
				}
			}
			s.watchers = kept
		})
	}
}

// Connect exchanges a signed message for a session. On any failure,
// including cancellation of ctx, the store is left exactly as it was. A
// successful connect over an active session ends that session first, so
// watchers observe it going unauthenticated before the new one appears.
func (s *Store) Connect(ctx context.Context, address, signature, message string) (domain.Identity, error) {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	normalized, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.Identity{}, apperrors.NewValidationError("invalid wallet address", map[string]any{"address": address})
	}

	s.mu.RLock()
	startEpoch := s.epoch
	s.mu.RUnlock()

	result, err := s.auth.Connect(ctx, normalized, signature, message)
	if err != nil {
		if apperrors.IsAuthentication(err) || apperrors.IsTransient(err) {
			return domain.Identity{}, err
		}
		return domain.Identity{}, fmt.Errorf("connect: %w", err)
	}
	next, err := identityFromResult(normalized, result)
	if err != nil {
		return domain.Identity{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, err
	}

	if err := s.creds.Save(ctx, next.Token); err != nil {
		return domain.Identity{}, fmt.Errorf("persist credential: %w", err)
	}

	s.mu.Lock()
	if s.epoch != startEpoch {
		s.mu.Unlock()
		s.removeCredential(context.WithoutCancel(ctx))
		return domain.Identity{}, errConnectAbandoned
	}
	prev := s.identity
	if prev.Token != "" {
		// An active session always passes through the unauthenticated state
		// before another one is committed.
		s.epoch++
		startEpoch = s.epoch
		s.identity = domain.Identity{}
		s.mu.Unlock()

		s.logger.Info("ending active session before connect",
			zap.String("address", prev.Address),
			zap.String("role", string(prev.Role)))
		s.notify(prev, domain.Identity{})

		s.mu.Lock()
		if s.epoch != startEpoch {
			s.mu.Unlock()
			s.removeCredential(context.WithoutCancel(ctx))
			return domain.Identity{}, errConnectAbandoned
		}
		prev = s.identity
	}
	s.identity = next
	s.mu.Unlock()

	s.logger.Info("session connected",
		zap.String("address", next.Address),
		zap.String("role", string(next.Role)))
	s.notify(prev, next)
	return next.Clone(), nil
}

func identityFromResult(address string, result domain.AuthResult) (domain.Identity, error) {
	if strings.TrimSpace(result.Token) == "" || !result.User.Role.Valid() {
		return domain.Identity{}, apperrors.NewAuthenticationError("auth exchange returned an incomplete session")
	}
	if result.User.Address != "" && !domain.SameAddress(result.User.Address, address) {
		return domain.Identity{}, apperrors.NewAuthenticationError("auth exchange returned a different account")
	}
	user := result.User
	user.Address = address
	return domain.IdentityFromUser(user, result.Token), nil
}

// Restore rebuilds the session from the persisted credential. A credential
// the API rejects is removed; a transient failure keeps it for the next try.
func (s *Store) Restore(ctx context.Context) (domain.Identity, error) {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	token, err := s.creds.Load(ctx)
	if err != nil {
		return domain.Identity{}, err
	}
	if token == "" {
		return domain.Identity{}, nil
	}

	if preview.HasSentinelShape(token) {
		next, ok := previewIdentity(token)
		if !ok {
			s.logger.Warn("discarding sentinel credential this build does not honor")
			s.removeCredential(ctx)
			return domain.Identity{}, nil
		}
		s.commit(next)
		return next.Clone(), nil
	}

	user, err := s.auth.Resume(ctx, token)
	if err != nil {
		if apperrors.IsAuthentication(err) {
			s.logger.Info("stored credential rejected, clearing", zap.Error(err))
			s.removeCredential(ctx)
			return domain.Identity{}, nil
		}
		return domain.Identity{}, err
	}
	if !user.Role.Valid() {
		s.removeCredential(ctx)
		return domain.Identity{}, nil
	}
	if normalized, err := domain.NormalizeAddress(user.Address); err == nil {
		user.Address = normalized
	}

	next := domain.IdentityFromUser(user, token)
	s.commit(next)
	return next.Clone(), nil
}

// EnterPreview starts a sentinel session at role without any exchange.
func (s *Store) EnterPreview(ctx context.Context, role domain.Role) (domain.Identity, error) {
	if !preview.Enabled {
		return domain.Identity{}, ErrPreviewDisabled
	}
	if !role.Valid() {
		return domain.Identity{}, apperrors.NewValidationError("invalid role", map[string]any{"role": string(role)})
	}
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	token := preview.PreviewPrefix + string(role)
	next, _ := previewIdentity(token)
	if s.Identity().Token != "" {
		s.teardown(ctx)
	}
	if err := s.creds.Save(ctx, token); err != nil {
		return domain.Identity{}, fmt.Errorf("persist credential: %w", err)
	}
	s.logger.Warn("preview session started", zap.String("role", string(role)))
	s.commit(next)
	return next.Clone(), nil
}

func previewIdentity(token string) (domain.Identity, bool) {
	if !preview.IsCredential(token) {
		return domain.Identity{}, false
	}
	suffix := strings.TrimPrefix(strings.TrimPrefix(token, preview.PreviewPrefix), preview.DemoPrefix)
	role, err := domain.ParseRole(suffix)
	if err != nil {
		role = domain.RoleUser
	}
	return domain.Identity{
		UserID:  token,
		Address: domain.ZeroAddress,
		Token:   token,
		Role:    role,
	}, true
}

// Disconnect clears the identity and the persisted credential. It is
// idempotent and never fails; storage errors are logged.
func (s *Store) Disconnect(ctx context.Context) {
	if s.teardown(ctx) {
		s.logger.Info("session disconnected")
	}
}

// ForceReauthentication tears the session down so it must be rebuilt from a
// fresh connect. It reports whether a session was torn down.
func (s *Store) ForceReauthentication(ctx context.Context, reason string) bool {
	if !s.teardown(ctx) {
		return false
	}
	s.logger.Warn("session torn down, re-authentication required", zap.String("reason", reason))
	return true
}

// HandleAPIError tears the session down when err is an authentication
// failure and reports whether it did. Authorization failures never do.
func (s *Store) HandleAPIError(ctx context.Context, err error) bool {
	if err == nil || !apperrors.IsAuthentication(err) {
		return false
	}
	return s.ForceReauthentication(ctx, "credential rejected by api")
}

// SetUser refreshes profile data for the current account. The token is never
// touched. A user carrying a different role forces re-authentication instead.
func (s *Store) SetUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	current := s.identity
	if !current.Authenticated() {
		s.mu.Unlock()
		return apperrors.NewAuthenticationError("no active session")
	}
	if (user.ID != "" && current.UserID != "" && user.ID != current.UserID) ||
		(user.Address != "" && !domain.SameAddress(user.Address, current.Address)) {
		s.mu.Unlock()
		return apperrors.NewValidationError("user does not belong to the current session", nil)
	}
	if user.Role != "" && user.Role != current.Role {
		s.mu.Unlock()
		s.ForceReauthentication(ctx, "role changed")
		return nil
	}

	next := current.Clone()
	next.Profile = user.Profile
	next.PermissionOverrides = append([]domain.Capability(nil), user.Permissions...)
	if next.UserID == "" {
		next.UserID = user.ID
	}
	s.identity = next
	s.mu.Unlock()

	s.notify(current, next)
	return nil
}

// SetRole never applies a role in place: an unchanged role is a no-op and a
// different one forces re-authentication.
func (s *Store) SetRole(ctx context.Context, role domain.Role) error {
	s.mu.RLock()
	current := s.identity
	s.mu.RUnlock()

	if !current.Authenticated() {
		return apperrors.NewAuthenticationError("no active session")
	}
	if role == current.Role {
		return nil
	}
	s.ForceReauthentication(ctx, "role changed")
	return nil
}

func (s *Store) commit(next domain.Identity) {
	s.mu.Lock()
	prev := s.identity
	s.identity = next
	s.mu.Unlock()
	s.notify(prev, next)
}

func (s *Store) teardown(ctx context.Context) bool {
	s.mu.Lock()
	s.epoch++
	prev := s.identity
	s.identity = domain.Identity{}
	s.mu.Unlock()

	s.removeCredential(context.WithoutCancel(ctx))
	if !prev.Authenticated() && prev.Token == "" {
		return false
	}
	s.notify(prev, domain.Identity{})
	return true
}

func (s *Store) removeCredential(ctx context.Context) {
	if err := s.creds.Remove(ctx); err != nil {
		s.logger.Warn("failed to remove persisted credential", zap.Error(err))
	}
}

func (s *Store) notify(prev, next domain.Identity) {
	s.watchMu.Lock()
	ws := make([]watcher, len(s.watchers))
	copy(ws, s.watchers)
	s.watchMu.Unlock()

	for _, w := range ws {
		w.fn(prev.Clone(), next.Clone())
	}
}
