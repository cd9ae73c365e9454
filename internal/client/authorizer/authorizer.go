// Package authorizer attaches the session credential to outbound REST calls
// and reacts to the server's 401 and 403 answers:
//
//   - calls to public endpoints pass through untouched;
//   - other calls carry "Authorization: Bearer <token>" when a session exists;
//   - a token that has already expired is never sent: the session is ended
//     and the call fails with common.ErrSessionExpired;
//   - a 401 ends the session that was current when the call was dispatched and
//     sends the user to the login page with the destination they were on;
//   - a 403 sends the user to the access-denied page and keeps the session.
//
// Responses are always handed back to the caller. Nothing is retried.
package authorizer

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/invkeeper/internal/client/route"
	"github.com/dmitrijs2005/invkeeper/internal/client/token"
	"github.com/dmitrijs2005/invkeeper/internal/common"
	"github.com/dmitrijs2005/invkeeper/internal/logging"
	"golang.org/x/oauth2"
)

// Session is the part of the session manager the authorizer needs.
type Session interface {
	route.SessionReader
	route.SessionExpirer
}

type Options struct {
	Session   Session
	Navigator route.Navigator
	Paths     route.Paths
	Log       logging.Logger
	// Clock decides token expiry. Defaults to time.Now.
	Clock func() time.Time

	// PublicEndpoints are matched as substrings of the request path, so they
	// hold under any API prefix. Defaults to the login and register endpoints.
	PublicEndpoints []string
}

type Authorizer struct {
	session Session
	nav     route.Navigator
	paths   route.Paths
	log     logging.Logger
	now     func() time.Time
	public  []string
}

func New(opts Options) *Authorizer {
	if opts.Log == nil {
		opts.Log = logging.NewNop()
	}
	if opts.Paths == (route.Paths{}) {
		opts.Paths = route.DefaultPaths()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.PublicEndpoints == nil {
		opts.PublicEndpoints = []string{common.LoginEndpoint, common.RegisterEndpoint}
	}

	return &Authorizer{
		session: opts.Session,
		nav:     opts.Navigator,
		paths:   opts.Paths,
		log:     opts.Log.With("component", "authorizer"),
		now:     opts.Clock,
		public:  opts.PublicEndpoints,
	}
}

// IsPublic reports whether path is served without credentials.
func (a *Authorizer) IsPublic(path string) bool {
	for _, p := range a.public {
		if p != "" && strings.Contains(path, p) {
			return true
		}
	}
	return false
}

type destinationKey struct{}

// WithDestination records the navigation target a call is made on behalf of.
// After a 401 the user is brought back there once logged in again.
func WithDestination(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, destinationKey{}, path)
}

func (a *Authorizer) destination(ctx context.Context) string {
	if d, ok := ctx.Value(destinationKey{}).(string); ok && d != "" {
		return d
	}
	return a.nav.Current().String()
}

// bearer returns the credential for s, or nil for an anonymous session.
func bearer(s route.Session) *oauth2.Token {
	if !s.Authenticated || s.Token == "" {
		return nil
	}
	return &oauth2.Token{AccessToken: s.Token, TokenType: common.BearerTokenType}
}

func (a *Authorizer) expire(ctx context.Context, reason string, generation uint64, dest string) {
	if a.session.ExpireIfCurrent(ctx, generation, dest) {
		a.log.Info(ctx, "session ended", "reason", reason, "generation", generation, "return_to", dest)
		return
	}
	a.log.Debug(ctx, "expiry of a superseded session ignored", "reason", reason, "generation", generation)
}

func (a *Authorizer) forbidden(ctx context.Context, what string) {
	a.log.Warn(ctx, "access denied by server", "call", what)
	a.nav.Navigate(route.Target{Path: a.paths.AccessDenied})
}

// RoundTripper wraps next (http.DefaultTransport when nil).
func (a *Authorizer) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &roundTripper{a: a, next: next}
}

type roundTripper struct {
	a    *Authorizer
	next http.RoundTripper
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	a := rt.a
	if a.IsPublic(req.URL.Path) {
		return rt.next.RoundTrip(req)
	}

	ctx := req.Context()
	dest := a.destination(ctx)
	view := a.session.View()

	out := req
	if tok := bearer(view); tok != nil {
		if token.IsExpired(view.Token, a.now()) {
			if req.Body != nil {
				_ = req.Body.Close()
			}
			a.expire(ctx, "token expired", view.Generation, dest)
			return nil, common.NewSessionExpiredError(0, "")
		}
		out = req.Clone(ctx)
		tok.SetAuthHeader(out)
	}

	resp, err := rt.next.RoundTrip(out)
	if err != nil {
		return resp, err
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		a.expire(ctx, "rejected by server", view.Generation, dest)
	case http.StatusForbidden:
		a.forbidden(ctx, req.Method+" "+req.URL.Path)
	}
	return resp, nil
}
