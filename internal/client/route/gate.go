package route

import (
	"context"
	"time"

	"github.com/dmitrijs2005/invkeeper/internal/client/models"
	"github.com/dmitrijs2005/invkeeper/internal/client/token"
)

// Session is the view of the authentication state a gate decides on.
type Session struct {
	Authenticated bool
	Identity      models.Identity
	Token         string
	Generation    uint64
}

// SessionReader returns a consistent view of the current session.
type SessionReader interface {
	View() Session
}

// SessionExpirer tears down the session of the given generation. It reports
// false when a newer session has replaced it in the meantime.
type SessionExpirer interface {
	ExpireIfCurrent(ctx context.Context, generation uint64, returnTo string) bool
}

// Decision is the outcome of a gate: either allowed, or a redirect.
type Decision struct {
	Allowed  bool
	Redirect *Target
}

func Allow() Decision { return Decision{Allowed: true} }

func RedirectTo(t Target) Decision { return Decision{Redirect: &t} }

// Gate inspects a navigation to target under session s.
type Gate func(ctx context.Context, s Session, target Target) Decision

// Check evaluates g against a fresh view from reader.
func (g Gate) Check(ctx context.Context, reader SessionReader, target Target) Decision {
	return g(ctx, reader.View(), target)
}

// RequireAuthenticated admits authenticated sessions with an unexpired token.
// Everyone else is sent to the login page carrying the requested destination;
// an expired session is torn down first.
func RequireAuthenticated(paths Paths, expirer SessionExpirer, clock func() time.Time) Gate {
	if clock == nil {
		clock = time.Now
	}
	return func(ctx context.Context, s Session, target Target) Decision {
		if !s.Authenticated {
			return RedirectTo(paths.LoginRedirect(target.String()))
		}
		if token.IsExpired(s.Token, clock()) {
			expirer.ExpireIfCurrent(ctx, s.Generation, target.String())
			return RedirectTo(paths.LoginRedirect(target.String()))
		}
		return Allow()
	}
}

// RequireRole admits sessions whose identity has one of roles. Anonymous
// sessions go to the login page, others to the access-denied page.
func RequireRole(paths Paths, roles ...string) Gate {
	return func(_ context.Context, s Session, _ Target) Decision {
		if !s.Authenticated {
			return RedirectTo(Target{Path: paths.Login})
		}
		if !s.Identity.HasRole(roles...) {
			return RedirectTo(Target{Path: paths.AccessDenied})
		}
		return Allow()
	}
}

// RequireAnonymous keeps authenticated sessions away from login and register
// pages by sending them to the default destination.
func RequireAnonymous(paths Paths) Gate {
	return func(_ context.Context, s Session, _ Target) Decision {
		if s.Authenticated {
			return RedirectTo(Target{Path: paths.Default})
		}
		return Allow()
	}
}

// Chain evaluates gates in order against the same session; the first redirect wins.
func Chain(gates ...Gate) Gate {
	return func(ctx context.Context, s Session, target Target) Decision {
		for _, g := range gates {
			if d := g(ctx, s, target); !d.Allowed {
				return d
			}
		}
		return Allow()
	}
}
