// Package services contains application services for the invkeeper client.
// This file defines the session manager: login, register, logout, expiry and
// the restoration of a persisted session at startup.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/invkeeper/internal/client/client"
	"github.com/dmitrijs2005/invkeeper/internal/client/models"
	"github.com/dmitrijs2005/invkeeper/internal/client/observable"
	"github.com/dmitrijs2005/invkeeper/internal/client/route"
	"github.com/dmitrijs2005/invkeeper/internal/client/session"
	"github.com/dmitrijs2005/invkeeper/internal/client/token"
	"github.com/dmitrijs2005/invkeeper/internal/common"
	"github.com/dmitrijs2005/invkeeper/internal/logging"
)

// Session is the current authenticated session.
type Session struct {
	Identity  models.Identity
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// State is either anonymous (Session == nil) or authenticated. Generation
// increases on every transition and identifies which session a response or
// a 401 belongs to.
type State struct {
	Authenticated bool
	Session       *Session
	Generation    uint64
}

// AuthService is the process-wide session manager.
//
// Contract:
//   - Login/Register: authenticate against the server, persist the record,
//     become Authenticated and navigate to the return path or the default page.
//   - Logout: always ends Anonymous with the record cleared, then navigates to login.
//   - ExpireSession/ExpireIfCurrent: as Logout, but the login page carries
//     the destination the user was heading to.
//   - Subscribe: observe transitions; callbacks run synchronously.
//
// All methods are safe for concurrent use.
type AuthService interface {
	Login(ctx context.Context, creds models.Credentials) (models.Identity, error)
	Register(ctx context.Context, req models.RegisterRequest) (models.Identity, error)
	Logout(ctx context.Context)
	ExpireSession(ctx context.Context, returnTo string)
	ExpireIfCurrent(ctx context.Context, generation uint64, returnTo string) bool

	IsAuthenticated() bool
	CurrentIdentity() (models.Identity, bool)
	Token() (string, bool)
	Snapshot() State
	View() route.Session
	Subscribe(fn func(State)) (cancel func())
}

// AuthDeps wires an AuthService. Client, Store and Navigator are required.
type AuthDeps struct {
	Client    client.Client
	Store     *session.Store
	Navigator route.Navigator
	Log       logging.Logger
	Paths     route.Paths
	Clock     func() time.Time

	// RemoteLogout makes Logout notify the backend. Its outcome is ignored.
	RemoteLogout bool
}

type authService struct {
	client       client.Client
	store        *session.Store
	nav          route.Navigator
	log          logging.Logger
	paths        route.Paths
	now          func() time.Time
	remoteLogout bool

	mu    sync.Mutex
	state State
	cell  *observable.Cell[State]
}

// NewAuthService builds the session manager and restores a persisted session
// before returning, so callers never observe an undecided state. A stored
// token that is expired or unreadable is discarded and the record cleared.
func NewAuthService(ctx context.Context, deps AuthDeps) (AuthService, error) {
	if deps.Client == nil || deps.Store == nil || deps.Navigator == nil {
		return nil, errors.New("auth service requires client, store and navigator")
	}
	if deps.Log == nil {
		deps.Log = logging.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Paths == (route.Paths{}) {
		deps.Paths = route.DefaultPaths()
	}

	a := &authService{
		client:       deps.Client,
		store:        deps.Store,
		nav:          deps.Navigator,
		log:          deps.Log.With("component", "auth"),
		paths:        deps.Paths,
		now:          deps.Clock,
		remoteLogout: deps.RemoteLogout,
	}
	a.state = a.restore(ctx)
	a.cell = observable.NewCell(a.state)
	return a, nil
}

func (a *authService) restore(ctx context.Context) State {
	rec, ok := a.store.Load(ctx)
	if ok {
		claims, err := token.Decode(rec.Token)
		switch {
		case err != nil:
			a.log.Warn(ctx, "stored token unreadable", "error", err)
		case claims.Expired(a.now()):
			a.log.Info(ctx, "stored session expired", "email", rec.Identity.Email, "expired_at", claims.Expiry())
		default:
			a.log.Info(ctx, "session restored", "email", rec.Identity.Email)
			return State{Authenticated: true, Session: newSession(rec.Identity, rec.Token, claims), Generation: 1}
		}
	}

	if err := a.store.Clear(ctx); err != nil {
		a.log.Warn(ctx, "clearing stale session failed", "error", err)
	}
	return State{Generation: 1}
}

func newSession(id models.Identity, raw string, claims *token.Claims) *Session {
	s := &Session{Identity: id, Token: raw, ExpiresAt: claims.Expiry()}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	return s
}

func (a *authService) Login(ctx context.Context, creds models.Credentials) (models.Identity, error) {
	gen := a.Snapshot().Generation

	resp, err := a.client.Login(ctx, creds)
	if err != nil {
		a.log.Warn(ctx, "login rejected", "email", creds.Email, "error", err)
		return models.Identity{}, fmt.Errorf("login: %w", classifyAuthError(err))
	}
	return a.establish(ctx, gen, resp)
}

func (a *authService) Register(ctx context.Context, req models.RegisterRequest) (models.Identity, error) {
	gen := a.Snapshot().Generation

	resp, err := a.client.Register(ctx, req)
	if err != nil {
		a.log.Warn(ctx, "registration rejected", "email", req.Email, "error", err)
		return models.Identity{}, fmt.Errorf("register: %w", classifyAuthError(err))
	}
	return a.establish(ctx, gen, resp)
}

// establish turns an accepted auth response into the current session, unless
// the state moved on while the request was in flight.
func (a *authService) establish(ctx context.Context, gen uint64, resp *models.AuthResponse) (models.Identity, error) {
	claims, err := token.Decode(resp.Token)
	if err != nil {
		return models.Identity{}, &common.APIError{Kind: common.ErrUnknown, Message: "server returned an unusable token: " + err.Error()}
	}
	if claims.Expired(a.now()) {
		return models.Identity{}, &common.APIError{Kind: common.ErrUnknown, Message: "server returned an already expired token"}
	}

	a.mu.Lock()
	if a.state.Generation != gen {
		a.mu.Unlock()
		a.log.Info(ctx, "discarding stale auth response", "email", resp.User.Email)
		return models.Identity{}, common.ErrStaleResponse
	}

	if err := a.store.Save(ctx, session.Record{Token: resp.Token, Identity: resp.User}); err != nil {
		if cerr := a.store.Clear(ctx); cerr != nil {
			a.log.Warn(ctx, "clearing after failed save failed", "error", cerr)
		}
		a.mu.Unlock()
		a.log.Error(ctx, "persisting session failed", "error", err)
		return models.Identity{}, fmt.Errorf("persist session: %w", err)
	}

	next := State{
		Authenticated: true,
		Session:       newSession(resp.User, resp.Token, claims),
		Generation:    gen + 1,
	}
	a.state = next
	a.mu.Unlock()

	a.log.Info(ctx, "authenticated", "email", resp.User.Email, "role", resp.User.Role)
	a.cell.Set(next)
	a.nav.Navigate(a.afterLogin())
	return resp.User, nil
}

// afterLogin picks the pending return path carried by the login page, or the
// default destination.
func (a *authService) afterLogin() route.Target {
	cur := a.nav.Current()
	if cur.Path == a.paths.Login {
		if rp, ok := route.SafeReturnPath(cur.Param(common.ReturnURLParam)); ok {
			return route.ParseTarget(rp)
		}
	}
	return route.Target{Path: a.paths.Default}
}

func (a *authService) Logout(ctx context.Context) {
	if a.remoteLogout && a.IsAuthenticated() {
		if err := a.client.Logout(ctx); err != nil {
			a.log.Warn(ctx, "remote logout failed", "error", err)
		}
	}

	a.end(ctx, "logout", nil)
	a.nav.Navigate(route.Target{Path: a.paths.Login})
}

func (a *authService) ExpireSession(ctx context.Context, returnTo string) {
	a.end(ctx, "expired", nil)
	a.nav.Navigate(a.paths.LoginRedirect(returnTo))
}

func (a *authService) ExpireIfCurrent(ctx context.Context, generation uint64, returnTo string) bool {
	if !a.end(ctx, "expired", &generation) {
		a.log.Debug(ctx, "ignoring expiry of a superseded session", "generation", generation)
		return false
	}
	a.nav.Navigate(a.paths.LoginRedirect(returnTo))
	return true
}

// end moves to Anonymous and clears the store. With onlyGen set, nothing
// happens unless the current generation matches. It reports whether it acted.
func (a *authService) end(ctx context.Context, reason string, onlyGen *uint64) bool {
	a.mu.Lock()
	if onlyGen != nil && *onlyGen != a.state.Generation {
		a.mu.Unlock()
		return false
	}

	if err := a.store.Clear(ctx); err != nil {
		a.log.Warn(ctx, "clearing session failed", "error", err)
	}

	wasAuthenticated := a.state.Authenticated
	if !wasAuthenticated {
		a.mu.Unlock()
		return true
	}

	email := a.state.Session.Identity.Email
	next := State{Generation: a.state.Generation + 1}
	a.state = next
	a.mu.Unlock()

	a.log.Info(ctx, "session ended", "reason", reason, "email", email)
	a.cell.Set(next)
	return true
}

func (a *authService) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *authService) View() route.Session {
	s := a.Snapshot()
	v := route.Session{Authenticated: s.Authenticated, Generation: s.Generation}
	if s.Session != nil {
		v.Identity = s.Session.Identity
		v.Token = s.Session.Token
	}
	return v
}

func (a *authService) IsAuthenticated() bool {
	return a.Snapshot().Authenticated
}

func (a *authService) CurrentIdentity() (models.Identity, bool) {
	s := a.Snapshot()
	if !s.Authenticated {
		return models.Identity{}, false
	}
	return s.Session.Identity, true
}

func (a *authService) Token() (string, bool) {
	s := a.Snapshot()
	if !s.Authenticated {
		return "", false
	}
	return s.Session.Token, true
}

// Subscribe registers fn for every later transition. When transitions race,
// notifications may arrive out of order; Generation tells them apart.
func (a *authService) Subscribe(fn func(State)) (cancel func()) {
	return a.cell.Subscribe(fn)
}

var authKinds = []error{
	common.ErrAuthRejected,
	common.ErrAuthForbidden,
	common.ErrNotFound,
	common.ErrServerError,
	common.ErrNetworkUnavailable,
}

// classifyAuthError narrows transport errors to the categories a login or
// registration can fail with; anything else becomes ErrUnknown.
func classifyAuthError(err error) error {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &common.APIError{Kind: common.ErrUnknown, Message: err.Error()}
	}
	for _, k := range authKinds {
		if errors.Is(apiErr.Kind, k) {
			return err
		}
	}
	return &common.APIError{Kind: common.ErrUnknown, Status: apiErr.Status, Message: apiErr.Message}
}
