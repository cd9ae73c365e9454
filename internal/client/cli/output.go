package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/invkeeper/internal/client/services"
	"github.com/dmitrijs2005/invkeeper/internal/common"
	"github.com/pterm/pterm"
)

// printer renders user-facing output with pterm onto a fixed writer.
type printer struct {
	w io.Writer
}

func (p printer) info(format string, args ...any) {
	pterm.Info.WithWriter(p.w).Printfln(format, args...)
}

func (p printer) success(format string, args ...any) {
	pterm.Success.WithWriter(p.w).Printfln(format, args...)
}

func (p printer) warning(format string, args ...any) {
	pterm.Warning.WithWriter(p.w).Printfln(format, args...)
}

func (p printer) error(format string, args ...any) {
	pterm.Error.WithWriter(p.w).Printfln(format, args...)
}

func (p printer) section(title string) {
	pterm.DefaultSection.WithWriter(p.w).Println(title)
}

func (p printer) table(rows pterm.TableData) error {
	return pterm.DefaultTable.WithHasHeader().WithWriter(p.w).WithData(rows).Render()
}

// failure explains err to the user in terms of what they can do next.
func (p printer) failure(err error) {
	var (
		conflict   *services.ConflictError
		validation *services.ValidationError
		apiErr     *common.APIError
	)
	switch {
	case errors.As(err, &conflict):
		msg := "Someone else changed this product first"
		if conflict.CurrentVersion != nil {
			msg += fmt.Sprintf(" (now at version %d)", *conflict.CurrentVersion)
		}
		p.warning("%s. Run 'show %s' to see the latest data, then retry.", msg, conflict.ID)
	case errors.As(err, &validation):
		p.error("%s", validation.Error())
	case errors.Is(err, common.ErrUnexpectedVersion):
		p.warning("%v. Run 'show' before the next change.", err)
	case errors.Is(err, common.ErrStaleResponse):
		p.warning("The session changed while the request was running; nothing was applied.")
	case errors.Is(err, common.ErrNetworkUnavailable):
		p.error("Server unreachable. Check your connection and try again.")
	case errors.As(err, &apiErr) && apiErr.Message != "":
		p.error("%s", apiErr.Message)
	default:
		p.error("%v", err)
	}
}
