package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spec-kit/invest-access/internal/admin"
	"github.com/spec-kit/invest-access/internal/dashboard"
	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/session"
	"github.com/spec-kit/invest-access/internal/syncer"
	"github.com/spec-kit/invest-access/internal/views"
)

const helpText = `Commands:
  connect <address> [signature]   sign in with a wallet
  preview <role>                  enter a preview session (preview builds only)
  disconnect                      end the session
  whoami                          show the current identity
  can <capability>                check a capability
  access <user|admin|superadmin>  evaluate a dashboard floor
  view <key>                      show a dashboard view
  notifications                   show your inbox
  role <address> <role>           change an account role
  approve <project> | reject <project>
  kyc <address> <approved|rejected>
  pause <contract> | resume <contract>
  force-logout                    revoke every session
  exit`

// walletAPI is the part of the API the shell calls directly.
type walletAPI interface {
	Challenge(ctx context.Context, address string) (domain.Challenge, error)
	Notifications(ctx context.Context) ([]domain.Notification, error)
}

// syncWriter serializes writes from the shell and from notification
// delivery on the ingress goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type shell struct {
	core     *dashboard.Core
	store    *session.Store
	actions  *admin.Actions
	api      walletAPI
	kind     syncer.Kind
	newCache func() *views.Cache
	out      io.Writer

	mount *dashboard.Mount
}

func (s *shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *shell) notify(_ context.Context, n domain.Notification) {
	s.printf("[%s] %s: %s", n.Level, n.Title, n.Message)
}

// reconcile keeps the mounted dashboard in line with the session. A mount the
// core detached, because the session ended or a different account connected,
// is dropped and the dashboard is mounted again only if the current identity
// may enter it.
func (s *shell) reconcile() {
	authenticated := s.core.IsAuthenticated()
	if s.mount != nil && (!authenticated || !s.mount.Active()) {
		s.mount.Unmount()
		s.mount = nil
	}
	if !authenticated || s.mount != nil {
		return
	}
	mount, err := s.core.Mount(s.kind, s.newCache())
	if err != nil {
		s.printf("%s dashboard unavailable: %v", s.kind, err)
		return
	}
	s.mount = mount
}

func (s *shell) run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for {
		s.reconcile()
		fmt.Fprint(s.out, "invest> ")
		if !scanner.Scan() {
			return
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			s.printf("Bye")
			return
		}
		s.exec(ctx, args)
	}
}

func (s *shell) exec(ctx context.Context, args []string) {
	need := func(n int, usage string) bool {
		if len(args) < n+1 {
			s.printf("Usage: %s", usage)
			return false
		}
		return true
	}
	report := func(err error, okMsg string) {
		if err != nil {
			s.printf("error: %v", err)
			return
		}
		s.printf("%s", okMsg)
	}

	switch args[0] {
	case "help":
		s.printf("%s", helpText)
	case "connect":
		if need(1, "connect <address> [signature]") {
			s.connect(ctx, args[1:])
		}
	case "preview":
		if need(1, "preview <role>") {
			role, err := domain.ParseRole(args[1])
			if err != nil {
				s.printf("error: %v", err)
				return
			}
			identity, err := s.store.EnterPreview(ctx, role)
			report(err, "Previewing as "+string(identity.Role))
		}
	case "disconnect":
		s.store.Disconnect(ctx)
		s.printf("Disconnected")
	case "whoami":
		s.whoami()
	case "can":
		if need(1, "can <capability>") {
			c, ok := domain.ParseCapability(args[1])
			if !ok {
				s.printf("unknown capability %q", args[1])
				return
			}
			s.printf("%t", s.core.Can(c))
		}
	case "access":
		if need(1, "access <role>") {
			role, err := domain.ParseRole(args[1])
			if err != nil {
				s.printf("error: %v", err)
				return
			}
			s.printf("%s", s.core.EvaluateAccess(role))
		}
	case "view":
		if need(1, "view <key>") {
			s.view(ctx, views.Key(args[1]))
		}
	case "notifications":
		items, err := s.api.Notifications(ctx)
		if err != nil {
			s.store.HandleAPIError(ctx, err)
			s.printf("error: %v", err)
			return
		}
		s.dump(items)
	case "role":
		if need(2, "role <address> <role>") {
			_, err := s.actions.UpdateRole(ctx, args[1], domain.Role(args[2]))
			report(err, "Role updated")
		}
	case "approve":
		if need(1, "approve <project>") {
			_, err := s.actions.ApproveProject(ctx, args[1])
			report(err, "Project approved")
		}
	case "reject":
		if need(1, "reject <project>") {
			_, err := s.actions.RejectProject(ctx, args[1])
			report(err, "Project rejected")
		}
	case "kyc":
		if need(2, "kyc <address> <approved|rejected>") {
			_, err := s.actions.DecideKYC(ctx, args[1], domain.KYCStatus(args[2]))
			report(err, "KYC decision recorded")
		}
	case "pause":
		if need(1, "pause <contract>") {
			_, err := s.actions.PauseContract(ctx, args[1])
			report(err, "Contract paused")
		}
	case "resume":
		if need(1, "resume <contract>") {
			_, err := s.actions.ResumeContract(ctx, args[1])
			report(err, "Contract resumed")
		}
	case "force-logout":
		report(s.actions.ForceLogoutAll(ctx), "All sessions revoked")
	default:
		s.printf("Unknown command. Type 'help' for a list of commands.")
	}
}

func (s *shell) connect(ctx context.Context, args []string) {
	challenge, err := s.api.Challenge(ctx, args[0])
	if err != nil {
		s.printf("error: %v", err)
		return
	}
	signature := "0x"
	if len(args) > 1 {
		signature = args[1]
	}
	identity, err := s.store.Connect(ctx, challenge.Address, signature, challenge.Message)
	if err != nil {
		s.printf("error: %v", err)
		return
	}
	s.printf("Connected as %s (%s)", identity.Address, identity.Role)
}

func (s *shell) whoami() {
	identity := s.core.Identity()
	if !identity.Authenticated() {
		s.printf("not connected")
		return
	}
	s.printf("%s %s role=%s", identity.UserID, identity.Address, identity.Role)
	if identity.Profile.Name != "" {
		s.printf("name=%s", identity.Profile.Name)
	}
}

func (s *shell) view(ctx context.Context, key views.Key) {
	if s.mount == nil {
		s.printf("no dashboard mounted")
		return
	}
	cache := s.mount.Consumer().Cache()
	if !cache.Watches(key) {
		s.printf("%s dashboard has no %q view; try one of %v", s.kind, key, cache.Keys())
		return
	}
	v, err := cache.Get(ctx, key)
	if err != nil {
		s.printf("error: %v", err)
		return
	}
	s.dump(v)
}

func (s *shell) dump(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.printf("error: %v", err)
		return
	}
	s.printf("%s", b)
}
