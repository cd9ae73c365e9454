package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/invkeeper/internal/client/models"
	"github.com/dmitrijs2005/invkeeper/internal/client/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testNow = time.Unix(1_700_000_000, 0)

func testClock() time.Time { return testNow }

func signToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
		"iat": exp.Add(-time.Hour).Unix(),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return raw
}

// fakeClient implements client.Client for service tests.
type fakeClient struct {
	mu sync.Mutex

	LoginResp    *models.AuthResponse
	LoginErr     error
	RegisterResp *models.AuthResponse
	RegisterErr  error
	LogoutErr    error

	// onLogin runs inside Login before it returns, to simulate races.
	onLogin func()

	Product   *models.Product
	GetErr    error
	Page      *models.Page[models.Product]
	ListErr   error
	UpdateErr error
	Updated   *models.Product

	LoginCalls  int
	LogoutCalls int
	LastUpdate  *models.ProductUpdate
	LastQty     *models.QuantityUpdate
	LastFilter  models.ProductFilter
}

func (f *fakeClient) Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error) {
	f.mu.Lock()
	f.LoginCalls++
	hook := f.onLogin
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return f.LoginResp, f.LoginErr
}

func (f *fakeClient) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	return f.RegisterResp, f.RegisterErr
}

func (f *fakeClient) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LogoutCalls++
	return f.LogoutErr
}

func (f *fakeClient) ListProducts(ctx context.Context, filter models.ProductFilter) (*models.Page[models.Product], error) {
	f.LastFilter = filter
	return f.Page, f.ListErr
}

func (f *fakeClient) GetProduct(ctx context.Context, id models.ID) (*models.Product, error) {
	return f.Product, f.GetErr
}

func (f *fakeClient) UpdateProduct(ctx context.Context, id models.ID, upd models.ProductUpdate) (*models.Product, error) {
	f.LastUpdate = &upd
	return f.Updated, f.UpdateErr
}

func (f *fakeClient) UpdateQuantity(ctx context.Context, id models.ID, upd models.QuantityUpdate) (*models.Product, error) {
	f.LastQty = &upd
	return f.Updated, f.UpdateErr
}

// recordingBackend counts writes on top of a MemoryBackend.
type recordingBackend struct {
	*session.MemoryBackend
	mu       sync.Mutex
	writes   int
	erases   int
	writeErr error

	// onErase runs before each erase, outside the backend lock.
	onErase func()
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{MemoryBackend: session.NewMemoryBackend()}
}

func (r *recordingBackend) Write(ctx context.Context, e map[string][]byte) error {
	r.mu.Lock()
	r.writes++
	err := r.writeErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.MemoryBackend.Write(ctx, e)
}

func (r *recordingBackend) Erase(ctx context.Context, keys []string) error {
	r.mu.Lock()
	r.erases++
	hook := r.onErase
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return r.MemoryBackend.Erase(ctx, keys)
}

func (r *recordingBackend) setWriteErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeErr = err
}

func (r *recordingBackend) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}
