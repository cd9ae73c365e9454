package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/invkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Note: args are filtered with flagx.FilterArgs first, so flags owned by other
// components (such as -c) do not make parsing fail.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-s", "-d", "-l"})

	fs := flag.NewFlagSet("invkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the inventory API")
	fs.StringVar(&cfg.SessionBackend, "s", cfg.SessionBackend, "session backend (memory, file, sqlite, postgres, redis)")
	fs.StringVar(&cfg.SessionDSN, "d", cfg.SessionDSN, "DSN of the SQL session backend")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
