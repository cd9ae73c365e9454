package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/invkeeper/internal/client/models"
	"github.com/dmitrijs2005/invkeeper/internal/client/route"
	"github.com/dmitrijs2005/invkeeper/internal/common"
)

// Login opens the login page. When a gate sent the user there, the pending
// return path is kept so a successful login resumes it.
func (a *App) Login(ctx context.Context) error {
	t := route.Target{Path: a.paths.Login}
	if cur := a.nav.Current(); cur.Path == a.paths.Login {
		t = cur
	}
	return a.open(ctx, t)
}

func (a *App) Register(ctx context.Context) error {
	return a.open(ctx, route.Target{Path: common.RegisterPath})
}

// Logout ends the session. The session manager moves to the login page.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		a.out.info("You are not signed in.")
		return nil
	}
	a.auth.Logout(ctx)
	return nil
}

func (a *App) WhoAmI(_ context.Context) error {
	s := a.auth.Snapshot()
	if !s.Authenticated {
		a.out.info("Not signed in.")
		return nil
	}
	id := s.Session.Identity
	a.out.info("Signed in as %s (%s), role %s", id.Email, id.Name, roleOrNone(id.Role))
	a.out.info("Session expires at %s", s.Session.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func roleOrNone(r string) string {
	if r == "" {
		return "none"
	}
	return r
}

func (a *App) loginPage(ctx context.Context, _ route.Target) error {
	email, err := getSimpleText(a.reader, "Enter email", a.w)
	if err != nil {
		return err
	}
	password, err := getPassword(a.w)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	id, err := a.auth.Login(ctx, models.Credentials{Email: email, Password: string(password)})
	if err != nil {
		a.out.failure(err)
		return err
	}

	a.out.success("Signed in as %s", id.Email)
	return a.open(ctx, a.nav.Current())
}

func (a *App) registerPage(ctx context.Context, _ route.Target) error {
	name, err := getSimpleText(a.reader, "Enter your name", a.w)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.w)
	if err != nil {
		return err
	}
	password, err := getPassword(a.w)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	id, err := a.auth.Register(ctx, models.RegisterRequest{Name: name, Email: email, Password: string(password)})
	if err != nil {
		a.out.failure(err)
		return err
	}

	a.out.success("Account created, signed in as %s", id.Email)
	return a.open(ctx, a.nav.Current())
}
