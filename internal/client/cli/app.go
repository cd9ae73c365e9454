package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/invkeeper/internal/client/authorizer"
	"github.com/dmitrijs2005/invkeeper/internal/client/client"
	"github.com/dmitrijs2005/invkeeper/internal/client/config"
	"github.com/dmitrijs2005/invkeeper/internal/client/route"
	"github.com/dmitrijs2005/invkeeper/internal/client/services"
	"github.com/dmitrijs2005/invkeeper/internal/client/session"
	"github.com/dmitrijs2005/invkeeper/internal/common"
	"github.com/dmitrijs2005/invkeeper/internal/logging"
)

// Application pages besides the ones configured in route.Paths.
const (
	pathProducts = "/products"
	pathProduct  = "/product"
	pathQuantity = "/product/quantity"
	pathEdit     = "/product/edit"
	pathAdmin    = "/admin"
)

// AdminRole is the role required by the admin page.
const AdminRole = "ADMIN"

// page renders the location t. Pages report their own failures to the user
// and return them for the caller's information.
type page func(ctx context.Context, t route.Target) error

type App struct {
	auth   services.AuthService
	inv    services.InventoryService
	nav    *route.History
	router *route.Router
	paths  route.Paths
	log    logging.Logger
	reader *bufio.Reader
	out    printer
	w      io.Writer
	pages  map[string]page

	closeFn func() error
}

// Deps are the collaborators of an App. NewApp builds them from config.
type Deps struct {
	Auth      services.AuthService
	Inventory services.InventoryService
	Navigator *route.History
	Paths     route.Paths
	Log       logging.Logger
	In        io.Reader
	Out       io.Writer
	Clock     func() time.Time
}

// NewApp wires the session store, the REST client with its authorizer, and the
// services for cfg. The session is restored before NewApp returns.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	backend, closeFn, err := session.Open(ctx, cfg.SessionOptions())
	if err != nil {
		return nil, err
	}

	store := session.NewStore(backend, log)
	nav := route.NewHistory(route.Target{Path: cfg.DefaultPath})
	paths := cfg.Paths()

	// the transport is installed once the session manager exists
	hc := &http.Client{Timeout: cfg.RequestTimeout}
	api, err := client.NewHTTPClient(cfg.ServerURL, cfg.APIPrefix, hc, log)
	if err != nil {
		_ = closeFn()
		return nil, err
	}

	auth, err := services.NewAuthService(ctx, services.AuthDeps{
		Client:       api,
		Store:        store,
		Navigator:    nav,
		Log:          log,
		Paths:        paths,
		RemoteLogout: cfg.RemoteLogout,
	})
	if err != nil {
		_ = closeFn()
		return nil, err
	}

	hc.Transport = authorizer.New(authorizer.Options{
		Session:         auth,
		Navigator:       nav,
		Paths:           paths,
		Log:             log,
		PublicEndpoints: cfg.PublicEndpoints,
	}).RoundTripper(nil)

	a := newApp(Deps{
		Auth:      auth,
		Inventory: services.NewInventoryService(api, log),
		Navigator: nav,
		Paths:     paths,
		Log:       log,
		In:        os.Stdin,
		Out:       os.Stdout,
	})
	a.closeFn = closeFn
	return a, nil
}

func newApp(d Deps) *App {
	if d.Log == nil {
		d.Log = logging.NewNop()
	}
	if d.Paths == (route.Paths{}) {
		d.Paths = route.DefaultPaths()
	}

	a := &App{
		auth:   d.Auth,
		inv:    d.Inventory,
		nav:    d.Navigator,
		paths:  d.Paths,
		log:    d.Log.With("component", "cli"),
		reader: bufio.NewReader(d.In),
		out:    printer{w: d.Out},
		w:      d.Out,
	}
	a.router = route.NewRouter(d.Auth, d.Navigator, d.Log)

	signedIn := route.RequireAuthenticated(d.Paths, d.Auth, d.Clock)
	anonymous := route.RequireAnonymous(d.Paths)

	a.pages = map[string]page{}
	a.handle(d.Paths.Login, a.loginPage, anonymous)
	a.handle(common.RegisterPath, a.registerPage, anonymous)
	a.handle(d.Paths.AccessDenied, a.accessDeniedPage)
	a.handle(d.Paths.Default, a.dashboardPage, signedIn)
	a.handle(pathProducts, a.productsPage, signedIn)
	a.handle(pathProduct, a.productPage, signedIn)
	a.handle(pathQuantity, a.quantityPage, signedIn)
	a.handle(pathEdit, a.editPage, signedIn)
	a.handle(pathAdmin, a.adminPage, signedIn, route.RequireRole(d.Paths, AdminRole))
	return a
}

func (a *App) handle(path string, p page, gates ...route.Gate) {
	a.pages[path] = p
	a.router.Handle(path, gates...)
}

// open navigates to t through the gates and renders wherever the user lands.
func (a *App) open(ctx context.Context, t route.Target) error {
	landed, admitted := a.router.Navigate(ctx, t)
	if !admitted {
		a.explainRedirect(landed)
	}
	return a.render(ctx, landed)
}

func (a *App) render(ctx context.Context, t route.Target) error {
	p, ok := a.pages[t.Path]
	if !ok {
		return nil
	}
	return p(authorizer.WithDestination(ctx, t.String()), t)
}

func (a *App) explainRedirect(to route.Target) {
	switch to.Path {
	case a.paths.Login:
		a.out.info("Please sign in to continue.")
	case a.paths.Default:
		a.out.info("You are already signed in.")
	}
}

func (a *App) isLoggedIn() bool {
	return a.auth.IsAuthenticated()
}

func (a *App) status() string {
	where := a.nav.Current().Path
	if id, ok := a.auth.CurrentIdentity(); ok {
		return fmt.Sprintf("(%s %s)", id.Email, where)
	}
	return fmt.Sprintf("(anonymous %s)", where)
}

// Run starts the REPL and blocks until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	cancel := a.auth.Subscribe(func(s services.State) {
		if !s.Authenticated {
			a.out.warning("Signed out.")
		}
	})
	defer cancel()

	a.out.info("Welcome to invkeeper (type 'help' for commands)")
	if a.isLoggedIn() {
		_ = a.open(ctx, a.nav.Current())
	}

	runREPL(ctx, a, a.status, a.reader)
}

// Close releases the session backend.
func (a *App) Close() error {
	if a.closeFn == nil {
		return nil
	}
	return a.closeFn()
}
