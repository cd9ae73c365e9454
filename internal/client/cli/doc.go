// Package cli provides the interactive invkeeper command-line client.
//
// Every command that shows or changes data is a route: the command is turned
// into a route.Target, the router runs its gates against the current session
// and either opens the page or redirects (to the login page, the
// access-denied page or the dashboard). Signing in from a redirect brings the
// user back to the page they asked for.
//
// Commands:
//   - login, register, logout, whoami
//   - dashboard, admin
//   - products [name] [page], show <id>
//   - setqty <id> <quantity> <version>
//   - edit <id> <field=value>... <version>
//   - back, help, exit
//
// Updates carry the version the user last saw. When someone else changed the
// product first the update is refused; the user re-reads it with show and
// decides again.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
