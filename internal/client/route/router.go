package route

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/invkeeper/internal/logging"
)

// Router maps paths to gates and drives a Navigator.
type Router struct {
	reader SessionReader
	nav    Navigator
	log    logging.Logger

	mu    sync.RWMutex
	gates map[string]Gate
}

func NewRouter(reader SessionReader, nav Navigator, log logging.Logger) *Router {
	return &Router{
		reader: reader,
		nav:    nav,
		log:    log.With("component", "router"),
		gates:  make(map[string]Gate),
	}
}

// Handle guards path with the chain of gates. Paths without gates are open.
func (r *Router) Handle(path string, gates ...Gate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gates[path] = Chain(gates...)
}

// Resolve evaluates the gates of target against one session view, without navigating.
func (r *Router) Resolve(ctx context.Context, target Target) Decision {
	r.mu.RLock()
	g, ok := r.gates[target.Path]
	r.mu.RUnlock()
	if !ok {
		return Allow()
	}
	return g.Check(ctx, r.reader, target)
}

// MaxRedirects bounds how many redirects one navigation follows.
const MaxRedirects = 4

// Navigate resolves target and moves the navigator to it or to where its
// gates send the user. Redirect targets are gated too, up to MaxRedirects
// hops; past that the last redirect is taken as is. It returns where the
// navigator ended up and whether target itself was admitted.
func (r *Router) Navigate(ctx context.Context, target Target) (Target, bool) {
	at := target
	for hop := 0; ; hop++ {
		d := r.Resolve(ctx, at)
		if d.Allowed {
			r.nav.Navigate(at)
			return at, hop == 0
		}

		r.log.Debug(ctx, "navigation redirected", "from", at.Path, "to", d.Redirect.Path)
		at = *d.Redirect
		if hop+1 == MaxRedirects {
			r.log.Warn(ctx, "too many redirects", "from", target.Path, "to", at.Path)
			r.nav.Navigate(at)
			return at, false
		}
	}
}

// Current returns the navigator's location.
func (r *Router) Current() Target {
	return r.nav.Current()
}
