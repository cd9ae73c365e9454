package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/invkeeper/internal/client/client"
	"github.com/dmitrijs2005/invkeeper/internal/client/models"
	"github.com/dmitrijs2005/invkeeper/internal/client/route"
	"github.com/dmitrijs2005/invkeeper/internal/client/session"
	"github.com/dmitrijs2005/invkeeper/internal/common"
	"github.com/dmitrijs2005/invkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ada = models.Identity{ID: "1", Email: "ada@example.com", Name: "Ada", Role: "ADMIN"}

type authFixture struct {
	svc     AuthService
	client  *fakeClient
	backend *recordingBackend
	store   *session.Store
	nav     *route.History
}

func newAuthFixture(t *testing.T, seed *session.Record, opts ...func(*AuthDeps)) *authFixture {
	t.Helper()
	ctx := context.Background()

	f := &authFixture{
		client:  &fakeClient{},
		backend: newRecordingBackend(),
		nav:     route.NewHistory(route.Target{Path: "/"}),
	}
	f.store = session.NewStore(f.backend, logging.NewNop())
	if seed != nil {
		require.NoError(t, f.store.Save(ctx, *seed))
		f.backend.writes = 0
	}

	deps := AuthDeps{
		Client:    f.client,
		Store:     f.store,
		Navigator: f.nav,
		Log:       logging.NewNop(),
		Clock:     testClock,
	}
	for _, o := range opts {
		o(&deps)
	}

	svc, err := NewAuthService(ctx, deps)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *authFixture) persisted(t *testing.T) (session.Record, bool) {
	t.Helper()
	return f.store.Load(context.Background())
}

func TestNewAuthService_RequiresDeps(t *testing.T) {
	_, err := NewAuthService(context.Background(), AuthDeps{})
	require.Error(t, err)
}

func TestRestore_ValidRecord(t *testing.T) {
	tok := signToken(t, ada.Email, testNow.Add(time.Hour))
	f := newAuthFixture(t, &session.Record{Token: tok, Identity: ada})

	assert.True(t, f.svc.IsAuthenticated())
	id, ok := f.svc.CurrentIdentity()
	require.True(t, ok)
	assert.Equal(t, ada, id)

	got, ok := f.svc.Token()
	require.True(t, ok)
	assert.Equal(t, tok, got)

	s := f.svc.Snapshot()
	assert.Equal(t, testNow.Add(time.Hour).Unix(), s.Session.ExpiresAt.Unix())
	assert.Equal(t, testNow.Unix(), s.Session.IssuedAt.Unix())
	assert.Zero(t, f.backend.Writes(), "restore does not write")
}

func TestRestore_ExpiredRecordClearsStore(t *testing.T) {
	tok := signToken(t, ada.Email, testNow)
	f := newAuthFixture(t, &session.Record{Token: tok, Identity: ada})

	assert.False(t, f.svc.IsAuthenticated())
	_, ok := f.persisted(t)
	assert.False(t, ok, "expired record must be cleared")
}

func TestRestore_MalformedTokenClearsStore(t *testing.T) {
	f := newAuthFixture(t, &session.Record{Token: "not-a-jwt", Identity: ada})

	assert.False(t, f.svc.IsAuthenticated())
	_, ok := f.persisted(t)
	assert.False(t, ok)
}

func TestRestore_CorruptIdentityClearsStore(t *testing.T) {
	ctx := context.Background()
	backend := newRecordingBackend()
	require.NoError(t, backend.Write(ctx, map[string][]byte{
		common.TokenStorageKey:    []byte(signToken(t, "x", testNow.Add(time.Hour))),
		common.IdentityStorageKey: []byte("{broken"),
	}))

	svc, err := NewAuthService(ctx, AuthDeps{
		Client:    &fakeClient{},
		Store:     session.NewStore(backend, logging.NewNop()),
		Navigator: route.NewHistory(route.Target{Path: "/"}),
		Clock:     testClock,
	})
	require.NoError(t, err)
	assert.False(t, svc.IsAuthenticated())

	raw, err := backend.Read(ctx, []string{common.TokenStorageKey, common.IdentityStorageKey})
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestRestore_NothingStored(t *testing.T) {
	f := newAuthFixture(t, nil)
	assert.False(t, f.svc.IsAuthenticated())
	_, ok := f.svc.CurrentIdentity()
	assert.False(t, ok)
	_, ok = f.svc.Token()
	assert.False(t, ok)
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t, nil)
	tok := signToken(t, ada.Email, testNow.Add(time.Hour))
	f.client.LoginResp = &models.AuthResponse{Token: tok, User: ada}

	var notified []State
	f.svc.Subscribe(func(s State) { notified = append(notified, s) })

	before := f.svc.Snapshot().Generation
	id, err := f.svc.Login(context.Background(), models.Credentials{Email: ada.Email, Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, ada, id)

	assert.True(t, f.svc.IsAuthenticated())
	cur, ok := f.svc.CurrentIdentity()
	require.True(t, ok)
	assert.Equal(t, ada, cur)

	assert.Equal(t, 1, f.backend.Writes(), "exactly one persisted write")
	rec, ok := f.persisted(t)
	require.True(t, ok)
	assert.Equal(t, session.Record{Token: tok, Identity: ada}, rec)

	require.Len(t, notified, 1)
	assert.True(t, notified[0].Authenticated)
	assert.Equal(t, before+1, notified[0].Generation)

	assert.Equal(t, "/dashboard", f.nav.Current().String())
}

func TestLogin_ResumesReturnPath(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.client.LoginResp = &models.AuthResponse{Token: signToken(t, ada.Email, testNow.Add(time.Hour)), User: ada}
	f.nav.Navigate(route.ParseTarget("/login?returnUrl=/products"))

	_, err := f.svc.Login(context.Background(), models.Credentials{Email: ada.Email})
	require.NoError(t, err)
	assert.Equal(t, "/products", f.nav.Current().String())
}

func TestLogin_IgnoresForeignReturnPath(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.client.LoginResp = &models.AuthResponse{Token: signToken(t, ada.Email, testNow.Add(time.Hour)), User: ada}
	f.nav.Navigate(route.ParseTarget("/login?returnUrl=//evil.example"))

	_, err := f.svc.Login(context.Background(), models.Credentials{Email: ada.Email})
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", f.nav.Current().String())
}

func responseErr(status int, msg string) error {
	return &client.ResponseError{Err: common.NewAPIError(status, msg), Body: models.ErrorResponse{Message: msg}}
}

func TestLogin_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind error
	}{
		{name: "401", err: responseErr(http.StatusUnauthorized, ""), wantKind: common.ErrAuthRejected},
		{name: "403", err: responseErr(http.StatusForbidden, ""), wantKind: common.ErrAuthForbidden},
		{name: "404", err: responseErr(http.StatusNotFound, ""), wantKind: common.ErrNotFound},
		{name: "500", err: responseErr(http.StatusInternalServerError, ""), wantKind: common.ErrServerError},
		{name: "network", err: &common.APIError{Kind: common.ErrNetworkUnavailable}, wantKind: common.ErrNetworkUnavailable},
		{name: "409 is unknown", err: responseErr(http.StatusConflict, "Duplicate"), wantKind: common.ErrUnknown},
		{name: "plain error is unknown", err: errors.New("weird"), wantKind: common.ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t, nil)
			f.client.LoginErr = tt.err

			_, err := f.svc.Login(context.Background(), models.Credentials{Email: "x@y.z"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)

			var apiErr *common.APIError
			assert.ErrorAs(t, err, &apiErr)

			assert.False(t, f.svc.IsAuthenticated())
			assert.Zero(t, f.backend.Writes())
			assert.Equal(t, "/", f.nav.Current().String())
		})
	}
}

func TestLogin_CanceledContextPassesThrough(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.client.LoginErr = context.Canceled

	_, err := f.svc.Login(context.Background(), models.Credentials{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogin_UnusableTokenFromServer(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.client.LoginResp = &models.AuthResponse{Token: "garbage", User: ada}

	_, err := f.svc.Login(context.Background(), models.Credentials{})
	assert.ErrorIs(t, err, common.ErrUnknown)
	assert.False(t, f.svc.IsAuthenticated())

	f.client.LoginResp = &models.AuthResponse{Token: signToken(t, ada.Email, testNow.Add(-time.Second)), User: ada}
	_, err = f.svc.Login(context.Background(), models.Credentials{})
	assert.ErrorIs(t, err, common.ErrUnknown)
	assert.Zero(t, f.backend.Writes())
}

func TestLogin_StaleResponseDiscarded(t *testing.T) {
	old := signToken(t, ada.Email, testNow.Add(time.Hour))
	f := newAuthFixture(t, &session.Record{Token: old, Identity: ada})
	require.True(t, f.svc.IsAuthenticated())

	bob := models.Identity{ID: "2", Email: "bob@example.com"}
	f.client.LoginResp = &models.AuthResponse{Token: signToken(t, bob.Email, testNow.Add(time.Hour)), User: bob}
	f.client.onLogin = func() {
		// the session ends while the login request is in flight
		f.svc.ExpireSession(context.Background(), "/dashboard")
	}

	_, err := f.svc.Login(context.Background(), models.Credentials{Email: bob.Email})
	require.ErrorIs(t, err, common.ErrStaleResponse)
	assert.False(t, f.svc.IsAuthenticated())
	_, ok := f.persisted(t)
	assert.False(t, ok)
}

func TestLogin_SaveFailure(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.client.LoginResp = &models.AuthResponse{Token: signToken(t, ada.Email, testNow.Add(time.Hour)), User: ada}
	f.backend.writeErr = errors.New("read-only filesystem")

	_, err := f.svc.Login(context.Background(), models.Credentials{})
	require.ErrorContains(t, err, "read-only filesystem")
	assert.False(t, f.svc.IsAuthenticated())
	assert.Equal(t, "/", f.nav.Current().String())
}

func TestLogin_SaveFailureKeepsConcurrentSession(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.client.LoginResp = &models.AuthResponse{Token: signToken(t, ada.Email, testNow.Add(time.Hour)), User: ada}
	bob := models.Identity{ID: "2", Email: "bob@example.com"}
	bobTok := signToken(t, bob.Email, testNow.Add(time.Hour))
	f.client.RegisterResp = &models.AuthResponse{Token: bobTok, User: bob}
	f.backend.setWriteErr(errors.New("disk full"))

	registered := make(chan error, 1)
	var once sync.Once
	f.backend.onErase = func() {
		once.Do(func() {
			// a registration races the cleanup of the failed save
			f.backend.setWriteErr(nil)
			go func() {
				_, err := f.svc.Register(context.Background(), models.RegisterRequest{Email: bob.Email})
				registered <- err
			}()
			select {
			case err := <-registered:
				registered <- err
			case <-time.After(100 * time.Millisecond):
			}
		})
	}

	_, err := f.svc.Login(context.Background(), models.Credentials{Email: ada.Email})
	require.ErrorContains(t, err, "disk full")

	select {
	case err := <-registered:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("registration did not finish")
	}

	id, ok := f.svc.CurrentIdentity()
	require.True(t, ok)
	assert.Equal(t, bob, id)

	rec, ok := f.persisted(t)
	require.True(t, ok, "the cleanup must not wipe the newer record")
	assert.Equal(t, bobTok, rec.Token)
}

func TestRegister_BehavesLikeLogin(t *testing.T) {
	f := newAuthFixture(t, nil)
	tok := signToken(t, ada.Email, testNow.Add(time.Hour))
	f.client.RegisterResp = &models.AuthResponse{Token: tok, User: ada}

	id, err := f.svc.Register(context.Background(), models.RegisterRequest{Name: "Ada", Email: ada.Email, Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, ada, id)
	assert.True(t, f.svc.IsAuthenticated())
	assert.Equal(t, 1, f.backend.Writes())
	assert.Equal(t, "/dashboard", f.nav.Current().String())

	f2 := newAuthFixture(t, nil)
	f2.client.RegisterErr = responseErr(http.StatusServiceUnavailable, "")
	_, err = f2.svc.Register(context.Background(), models.RegisterRequest{})
	assert.ErrorIs(t, err, common.ErrServerError)
}

func TestLogout(t *testing.T) {
	tests := []struct {
		name        string
		remote      bool
		remoteErr   error
		wantRemotes int
	}{
		{name: "local only", wantRemotes: 0},
		{name: "remote ok", remote: true, wantRemotes: 1},
		{name: "remote fails", remote: true, remoteErr: errors.New("503"), wantRemotes: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := signToken(t, ada.Email, testNow.Add(time.Hour))
			f := newAuthFixture(t, &session.Record{Token: tok, Identity: ada}, func(d *AuthDeps) {
				d.RemoteLogout = tt.remote
			})
			f.client.LogoutErr = tt.remoteErr

			var notified []State
			f.svc.Subscribe(func(s State) { notified = append(notified, s) })

			f.svc.Logout(context.Background())

			assert.False(t, f.svc.IsAuthenticated())
			_, ok := f.persisted(t)
			assert.False(t, ok)
			assert.Equal(t, tt.wantRemotes, f.client.LogoutCalls)
			assert.Equal(t, "/login", f.nav.Current().String())
			require.Len(t, notified, 1)
			assert.False(t, notified[0].Authenticated)
		})
	}
}

func TestLogout_WhenAnonymous(t *testing.T) {
	f := newAuthFixture(t, nil, func(d *AuthDeps) { d.RemoteLogout = true })
	gen := f.svc.Snapshot().Generation

	f.svc.Logout(context.Background())

	assert.False(t, f.svc.IsAuthenticated())
	assert.Zero(t, f.client.LogoutCalls, "no remote call without a session")
	assert.Equal(t, gen, f.svc.Snapshot().Generation)
	assert.Equal(t, "/login", f.nav.Current().String())
}

func TestExpireSession_CarriesReturnPath(t *testing.T) {
	f := newAuthFixture(t, &session.Record{Token: signToken(t, ada.Email, testNow.Add(time.Hour)), Identity: ada})

	f.svc.ExpireSession(context.Background(), "/products")

	assert.False(t, f.svc.IsAuthenticated())
	assert.Equal(t, "/login?returnUrl=/products", f.nav.Current().String())
}

func TestExpireIfCurrent(t *testing.T) {
	f := newAuthFixture(t, &session.Record{Token: signToken(t, ada.Email, testNow.Add(time.Hour)), Identity: ada})
	ctx := context.Background()
	gen := f.svc.Snapshot().Generation

	assert.False(t, f.svc.ExpireIfCurrent(ctx, gen-1, "/dashboard"), "older generation ignored")
	assert.True(t, f.svc.IsAuthenticated())
	assert.Equal(t, "/", f.nav.Current().String())

	assert.True(t, f.svc.ExpireIfCurrent(ctx, gen, "/dashboard"))
	assert.False(t, f.svc.IsAuthenticated())
	assert.Equal(t, "/login?returnUrl=/dashboard", f.nav.Current().String())
}

func TestExpireIfCurrent_NewerSessionSurvives(t *testing.T) {
	f := newAuthFixture(t, nil)
	ctx := context.Background()
	anonGen := f.svc.Snapshot().Generation

	f.client.LoginResp = &models.AuthResponse{Token: signToken(t, ada.Email, testNow.Add(time.Hour)), User: ada}
	_, err := f.svc.Login(ctx, models.Credentials{})
	require.NoError(t, err)

	// a 401 for a request dispatched before the login must not end the new session
	assert.False(t, f.svc.ExpireIfCurrent(ctx, anonGen, "/dashboard"))
	assert.True(t, f.svc.IsAuthenticated())
}

func TestView(t *testing.T) {
	tok := signToken(t, ada.Email, testNow.Add(time.Hour))
	f := newAuthFixture(t, &session.Record{Token: tok, Identity: ada})

	v := f.svc.View()
	assert.True(t, v.Authenticated)
	assert.Equal(t, tok, v.Token)
	assert.Equal(t, ada, v.Identity)
	assert.Equal(t, f.svc.Snapshot().Generation, v.Generation)
}

func TestSubscribe_Cancel(t *testing.T) {
	f := newAuthFixture(t, &session.Record{Token: signToken(t, ada.Email, testNow.Add(time.Hour)), Identity: ada})
	calls := 0
	cancel := f.svc.Subscribe(func(State) { calls++ })
	cancel()

	f.svc.Logout(context.Background())
	assert.Zero(t, calls)
}
