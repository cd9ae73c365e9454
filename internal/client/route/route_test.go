package route

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/dmitrijs2005/invkeeper/internal/client/models"
	"github.com/dmitrijs2005/invkeeper/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Unix(1_700_000_000, 0)

func clock() time.Time { return now }

func tokenExpiringAt(t *testing.T, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ada@example.com", "exp": exp.Unix()}).
		SignedString([]byte("k"))
	require.NoError(t, err)
	return raw
}

type fakeReader struct{ s Session }

func (f *fakeReader) View() Session { return f.s }

type fakeExpirer struct {
	calls    int
	gen      uint64
	returnTo string
	result   bool
}

func (f *fakeExpirer) ExpireIfCurrent(_ context.Context, gen uint64, returnTo string) bool {
	f.calls++
	f.gen, f.returnTo = gen, returnTo
	return f.result
}

func TestTarget_String(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{name: "path only", target: Target{Path: "/dashboard"}, want: "/dashboard"},
		{name: "return url keeps slashes", target: Target{Path: "/login", Query: url.Values{"returnUrl": {"/dashboard"}}}, want: "/login?returnUrl=/dashboard"},
		{name: "nested query escaped", target: Target{Path: "/login", Query: url.Values{"returnUrl": {"/products?page=2"}}}, want: "/login?returnUrl=/products%3Fpage%3D2"},
		{name: "keys sorted", target: Target{Path: "/p", Query: url.Values{"b": {"2"}, "a": {"1"}}}, want: "/p?a=1&b=2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.target.String())
		})
	}
}

func TestParseTarget_RoundTrip(t *testing.T) {
	tg := ParseTarget("/login?returnUrl=/products%3Fpage%3D2")
	assert.Equal(t, "/login", tg.Path)
	assert.Equal(t, "/products?page=2", tg.Param("returnUrl"))
	assert.Equal(t, "/login?returnUrl=/products%3Fpage%3D2", tg.String())

	assert.Equal(t, Target{Path: "/x"}, ParseTarget("/x"))
}

func TestTarget_WithDoesNotMutate(t *testing.T) {
	orig := Target{Path: "/p", Query: url.Values{"a": {"1"}}}
	_ = orig.With("a", "2")
	assert.Equal(t, "1", orig.Param("a"))
}

func TestSafeReturnPath(t *testing.T) {
	for _, ok := range []string{"/dashboard", "/products/7", "/"} {
		_, got := SafeReturnPath(ok)
		assert.True(t, got, ok)
	}
	for _, bad := range []string{"", "dashboard", "//evil.example", `/\evil`, "https://evil.example/"} {
		_, got := SafeReturnPath(bad)
		assert.False(t, got, bad)
	}
}

func TestPaths_LoginRedirect(t *testing.T) {
	p := DefaultPaths()
	assert.Equal(t, "/login?returnUrl=/dashboard", p.LoginRedirect("/dashboard").String())
	assert.Equal(t, "/login", p.LoginRedirect("").String())
	assert.Equal(t, "/login", p.LoginRedirect("//evil.example").String())
	assert.Equal(t, "/login", p.LoginRedirect("/login?returnUrl=/x").String())
}

func TestRequireAuthenticated(t *testing.T) {
	paths := DefaultPaths()

	t.Run("anonymous redirected with return url", func(t *testing.T) {
		exp := &fakeExpirer{}
		g := RequireAuthenticated(paths, exp, clock)

		d := g.Check(context.Background(), &fakeReader{}, Target{Path: "/dashboard"})
		assert.False(t, d.Allowed)
		require.NotNil(t, d.Redirect)
		assert.Equal(t, "/login?returnUrl=/dashboard", d.Redirect.String())
		assert.Zero(t, exp.calls)
	})

	t.Run("valid session allowed", func(t *testing.T) {
		exp := &fakeExpirer{}
		g := RequireAuthenticated(paths, exp, clock)
		s := Session{Authenticated: true, Token: tokenExpiringAt(t, now.Add(time.Hour)), Generation: 3}

		d := g(context.Background(), s, Target{Path: "/dashboard"})
		assert.True(t, d.Allowed)
		assert.Nil(t, d.Redirect)
		assert.Zero(t, exp.calls)
	})

	t.Run("expired session torn down then redirected", func(t *testing.T) {
		exp := &fakeExpirer{result: true}
		g := RequireAuthenticated(paths, exp, clock)
		s := Session{Authenticated: true, Token: tokenExpiringAt(t, now), Generation: 3}

		d := g(context.Background(), s, Target{Path: "/products"})
		assert.False(t, d.Allowed)
		assert.Equal(t, "/login?returnUrl=/products", d.Redirect.String())
		assert.Equal(t, 1, exp.calls)
		assert.EqualValues(t, 3, exp.gen)
		assert.Equal(t, "/products", exp.returnTo)
	})

	t.Run("malformed token treated as expired", func(t *testing.T) {
		exp := &fakeExpirer{}
		g := RequireAuthenticated(paths, exp, clock)

		d := g(context.Background(), Session{Authenticated: true, Token: "junk"}, Target{Path: "/dashboard"})
		assert.False(t, d.Allowed)
		assert.Equal(t, 1, exp.calls)
	})
}

func TestRequireRole(t *testing.T) {
	paths := DefaultPaths()
	g := RequireRole(paths, "ADMIN")
	ctx := context.Background()

	d := g(ctx, Session{}, Target{Path: "/admin"})
	assert.Equal(t, "/login", d.Redirect.String())

	d = g(ctx, Session{Authenticated: true, Identity: models.Identity{Role: "USER"}}, Target{Path: "/admin"})
	assert.Equal(t, "/access-denied", d.Redirect.String())

	d = g(ctx, Session{Authenticated: true, Identity: models.Identity{Role: "ADMIN"}}, Target{Path: "/admin"})
	assert.True(t, d.Allowed)
}

func TestRequireAnonymous(t *testing.T) {
	g := RequireAnonymous(DefaultPaths())
	ctx := context.Background()

	assert.True(t, g(ctx, Session{}, Target{Path: "/login"}).Allowed)

	d := g(ctx, Session{Authenticated: true}, Target{Path: "/login"})
	assert.Equal(t, "/dashboard", d.Redirect.String())
}

func TestChain_FirstRedirectWins(t *testing.T) {
	paths := DefaultPaths()
	g := Chain(RequireAuthenticated(paths, &fakeExpirer{}, clock), RequireRole(paths, "ADMIN"))
	ctx := context.Background()

	d := g(ctx, Session{}, Target{Path: "/admin"})
	assert.Equal(t, "/login?returnUrl=/admin", d.Redirect.String())

	user := Session{Authenticated: true, Token: tokenExpiringAt(t, now.Add(time.Hour)), Identity: models.Identity{Role: "USER"}}
	d = g(ctx, user, Target{Path: "/admin"})
	assert.Equal(t, "/access-denied", d.Redirect.String())

	assert.True(t, Chain()(ctx, Session{}, Target{Path: "/"}).Allowed)
}

func TestHistory(t *testing.T) {
	h := NewHistory(Target{Path: "/login"})
	h.Navigate(Target{Path: "/dashboard"})
	h.Navigate(Target{Path: "/dashboard"})
	h.Navigate(Target{Path: "/products"})

	assert.Equal(t, "/products", h.Current().Path)
	assert.Len(t, h.Entries(), 3)

	prev, ok := h.Back()
	assert.True(t, ok)
	assert.Equal(t, "/dashboard", prev.Path)

	_, _ = h.Back()
	_, ok = h.Back()
	assert.False(t, ok)
	assert.Equal(t, "/login", h.Current().Path)
}

func TestRouter_Navigate(t *testing.T) {
	paths := DefaultPaths()
	reader := &fakeReader{}
	h := NewHistory(Target{Path: "/"})
	r := NewRouter(reader, h, logging.NewNop())
	r.Handle("/dashboard", RequireAuthenticated(paths, &fakeExpirer{}, clock))
	r.Handle("/login", RequireAnonymous(paths))
	ctx := context.Background()

	got, ok := r.Navigate(ctx, Target{Path: "/dashboard"})
	assert.False(t, ok)
	assert.Equal(t, "/login?returnUrl=/dashboard", got.String())
	assert.Equal(t, got, r.Current())

	reader.s = Session{Authenticated: true, Token: tokenExpiringAt(t, now.Add(time.Hour))}
	got, ok = r.Navigate(ctx, Target{Path: "/dashboard"})
	assert.True(t, ok)
	assert.Equal(t, "/dashboard", got.String())

	got, ok = r.Navigate(ctx, Target{Path: "/login"})
	assert.False(t, ok)
	assert.Equal(t, "/dashboard", got.String())

	got, ok = r.Navigate(ctx, Target{Path: "/unguarded"})
	assert.True(t, ok)
	assert.Equal(t, "/unguarded", got.Path)
}

func redirectGate(to string) Gate {
	return func(context.Context, Session, Target) Decision { return RedirectTo(Target{Path: to}) }
}

func TestRouter_NavigateGatesRedirectTargets(t *testing.T) {
	paths := DefaultPaths()
	reader := &fakeReader{s: Session{Authenticated: true, Identity: models.Identity{Role: "USER"}}}
	h := NewHistory(Target{Path: "/"})
	r := NewRouter(reader, h, logging.NewNop())
	r.Handle("/old-admin", redirectGate("/admin"))
	r.Handle("/admin", RequireRole(paths, "ADMIN"))
	ctx := context.Background()

	got, ok := r.Navigate(ctx, Target{Path: "/old-admin"})
	assert.False(t, ok)
	assert.Equal(t, "/access-denied", got.String())
	assert.Equal(t, []Target{{Path: "/"}, {Path: "/access-denied"}}, h.Entries(), "only the final stop is visited")
}

func TestRouter_NavigateStopsRedirectLoops(t *testing.T) {
	h := NewHistory(Target{Path: "/"})
	r := NewRouter(&fakeReader{}, h, logging.NewNop())
	r.Handle("/ping", redirectGate("/pong"))
	r.Handle("/pong", redirectGate("/ping"))

	got, ok := r.Navigate(context.Background(), Target{Path: "/ping"})
	assert.False(t, ok)
	assert.Contains(t, []string{"/ping", "/pong"}, got.Path)
	assert.Len(t, h.Entries(), 2)
}
