package cli

import (
	"context"

	"github.com/dmitrijs2005/invkeeper/internal/client/models"
	"github.com/dmitrijs2005/invkeeper/internal/client/route"
)

func (a *App) Dashboard(ctx context.Context) error {
	return a.open(ctx, route.Target{Path: a.paths.Default})
}

func (a *App) Admin(ctx context.Context) error {
	return a.open(ctx, route.Target{Path: pathAdmin})
}

// Back returns to the previous location, through its gates again.
func (a *App) Back(ctx context.Context) error {
	t, ok := a.nav.Back()
	if !ok {
		a.out.info("Nothing to go back to.")
		return nil
	}
	return a.open(ctx, t)
}

func (a *App) dashboardPage(ctx context.Context, _ route.Target) error {
	id, _ := a.auth.CurrentIdentity()
	a.out.section("Dashboard")
	a.out.info("Hello, %s!", displayName(id))

	page, err := a.inv.ListProducts(ctx, models.ProductFilter{Size: 1})
	if err != nil {
		a.out.failure(err)
		return err
	}
	a.out.info("%d products in the inventory. Type 'list' to browse them.", page.Total())
	return nil
}

func (a *App) adminPage(ctx context.Context, _ route.Target) error {
	a.out.section("Administration")

	zero := 0.0
	page, err := a.inv.ListProducts(ctx, models.ProductFilter{Size: 1, MaxQuantity: &zero})
	if err != nil {
		a.out.failure(err)
		return err
	}
	a.out.info("%d products are out of stock.", page.Total())
	return nil
}

func (a *App) accessDeniedPage(_ context.Context, _ route.Target) error {
	a.out.error("Access denied: you do not have permission to open this page.")
	return nil
}

func displayName(id models.Identity) string {
	if id.Name != "" {
		return id.Name
	}
	return id.Email
}
