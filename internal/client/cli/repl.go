package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Dashboard(ctx context.Context) error
	Admin(ctx context.Context) error
	Products(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	SetQuantity(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Back(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the invkeeper CLI.
//
// It reads a line from in, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF, when ctx is done, or when the user types
// "exit" or "quit".
//
// Prompts for credentials read from the same reader, so a scripted session
// can answer them inline.
//
// Any errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader) {
	for ctx.Err() == nil {
		printlnFn(fmt.Sprintf("ik %s > ", statusFn()))
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: dashboard, (l)ist [name] [page], show <id>, setqty <id> <qty> <version>, edit <id> <field=value>... <version>, admin, whoami, back, logout, exit")
			} else {
				printlnFn("Available commands: register, login, whoami, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "dashboard":
			_ = a.Dashboard(ctx)

		case "admin":
			_ = a.Admin(ctx)

		case "l", "list", "products":
			_ = a.Products(ctx, args)

		case "show":
			_ = a.Show(ctx, args)

		case "setqty":
			_ = a.SetQuantity(ctx, args)

		case "edit":
			_ = a.Edit(ctx, args)

		case "back":
			_ = a.Back(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
