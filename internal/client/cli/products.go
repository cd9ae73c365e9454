package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/invkeeper/internal/client/models"
	"github.com/dmitrijs2005/invkeeper/internal/client/route"
	"github.com/pterm/pterm"
)

const listPageSize = 20

var errUsage = errors.New("usage")

func (a *App) usage(text string) error {
	a.out.warning("Usage: %s", text)
	return errUsage
}

// Products lists products: "list [name] [page]".
func (a *App) Products(ctx context.Context, args []string) error {
	t := route.Target{Path: pathProducts}
	if n := len(args); n > 0 {
		if _, err := strconv.Atoi(args[n-1]); err == nil {
			t = t.With("page", args[n-1])
			args = args[:n-1]
		}
	}
	if len(args) > 0 {
		t = t.With("name", strings.Join(args, " "))
	}
	return a.open(ctx, t)
}

func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("show <id>")
	}
	return a.open(ctx, route.Target{Path: pathProduct}.With("id", args[0]))
}

func (a *App) SetQuantity(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return a.usage("setqty <id> <quantity> <version>")
	}
	t := route.Target{Path: pathQuantity}.
		With("id", args[0]).
		With("quantity", args[1]).
		With("version", args[2])
	return a.open(ctx, t)
}

// Edit changes product fields: "edit <id> <field=value>... <version>".
func (a *App) Edit(ctx context.Context, args []string) error {
	const text = "edit <id> <field=value>... <version>  (fields: name, sku, price, quantity, description, uom, active)"
	if len(args) < 3 {
		return a.usage(text)
	}

	t := route.Target{Path: pathEdit}.
		With("id", args[0]).
		With("version", args[len(args)-1])
	for _, kv := range args[1 : len(args)-1] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return a.usage(text)
		}
		t = t.With(k, v)
	}
	return a.open(ctx, t)
}

func (a *App) productsPage(ctx context.Context, t route.Target) error {
	filter := models.ProductFilter{Name: t.Param("name"), Size: listPageSize}
	if p := t.Param("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return a.usage("list [name] [page]")
		}
		filter.Page = n
	}

	page, err := a.inv.ListProducts(ctx, filter)
	if err != nil {
		a.out.failure(err)
		return err
	}

	if len(page.Content) == 0 {
		a.out.info("No products found.")
		return nil
	}

	rows := pterm.TableData{{"ID", "Name", "SKU", "Quantity", "UOM", "Price", "Version"}}
	for _, p := range page.Content {
		rows = append(rows, []string{
			p.ID.String(), p.Name, p.SKU, formatNumber(p.Quantity), string(p.UOM), formatNumber(p.Price),
			strconv.FormatInt(p.Version, 10),
		})
	}
	if err := a.out.table(rows); err != nil {
		return err
	}

	pages := page.TotalPages
	if pages == 0 {
		pages = 1
	}
	a.out.info("Page %d of %d, %d products in total.", page.Number+1, pages, page.Total())
	return nil
}

func (a *App) productPage(ctx context.Context, t route.Target) error {
	p, err := a.inv.Refresh(ctx, models.ID(t.Param("id")))
	if err != nil {
		a.out.failure(err)
		return err
	}
	a.printProduct(p)
	return nil
}

func (a *App) printProduct(p *models.Product) {
	a.out.section(p.Name)
	_ = a.out.table(pterm.TableData{
		{"Field", "Value"},
		{"ID", p.ID.String()},
		{"SKU", p.SKU},
		{"Quantity", formatNumber(p.Quantity) + " " + string(p.UOM)},
		{"Price", formatNumber(p.Price)},
		{"Active", strconv.FormatBool(p.Active)},
		{"Description", p.Description},
		{"Version", strconv.FormatInt(p.Version, 10)},
	})
}

func (a *App) quantityPage(ctx context.Context, t route.Target) error {
	id := models.ID(t.Param("id"))
	qty, err := strconv.ParseFloat(t.Param("quantity"), 64)
	if err != nil {
		return a.usage("setqty <id> <quantity> <version>")
	}
	version, err := strconv.ParseInt(t.Param("version"), 10, 64)
	if err != nil {
		return a.usage("setqty <id> <quantity> <version>")
	}

	p, err := a.inv.UpdateQuantity(ctx, id, qty, version)
	return a.reportUpdate(p, err)
}

func (a *App) editPage(ctx context.Context, t route.Target) error {
	id := models.ID(t.Param("id"))
	version, err := strconv.ParseInt(t.Param("version"), 10, 64)
	if err != nil {
		return a.usage("edit <id> <field=value>... <version>")
	}

	upd, err := parseUpdate(t.Query)
	if err != nil {
		a.out.error("%v", err)
		return err
	}

	p, err := a.inv.SubmitUpdate(ctx, id, upd, version)
	return a.reportUpdate(p, err)
}

func (a *App) reportUpdate(p *models.Product, err error) error {
	if p != nil {
		a.out.success("Saved %s, now at version %d", p.Name, p.Version)
	}
	if err != nil {
		a.out.failure(err)
	}
	return err
}

// parseUpdate reads product fields from q. The id and version keys are
// routing parameters and are skipped.
func parseUpdate(q url.Values) (models.ProductUpdate, error) {
	var upd models.ProductUpdate
	for k := range q {
		v := q.Get(k)
		switch k {
		case "id", "version":
		case "name":
			upd.Name = &v
		case "sku":
			upd.SKU = &v
		case "description":
			upd.Description = &v
		case "uom":
			u := models.UnitOfMeasure(strings.ToUpper(v))
			upd.UOM = &u
		case "price", "quantity":
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return upd, fmt.Errorf("%s: %q is not a number", k, v)
			}
			if k == "price" {
				upd.Price = &f
			} else {
				upd.Quantity = &f
			}
		case "active":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return upd, fmt.Errorf("active: %q is not true or false", v)
			}
			upd.Active = &b
		default:
			return upd, fmt.Errorf("unknown field %q", k)
		}
	}
	return upd, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
