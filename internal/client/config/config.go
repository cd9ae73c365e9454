package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/invkeeper/internal/client/route"
	"github.com/dmitrijs2005/invkeeper/internal/client/session"
	"github.com/dmitrijs2005/invkeeper/internal/common"
)

// Config holds runtime settings for the invkeeper CLI.
type Config struct {
	ServerURL      string        `env:"SERVER_URL"`
	APIPrefix      string        `env:"API_PREFIX"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	SessionBackend string        `env:"SESSION_BACKEND"`
	SessionDSN     string        `env:"SESSION_DSN"`
	SessionFile    string        `env:"SESSION_FILE"`
	RedisURL       string        `env:"REDIS_URL"`
	RedisKeyPrefix string        `env:"REDIS_KEY_PREFIX"`
	RedisTTL       time.Duration `env:"REDIS_TTL"`
	SealPassphrase string        `env:"SEAL_PASSPHRASE"`

	PublicEndpoints  []string `env:"PUBLIC_ENDPOINTS" envSeparator:","`
	LoginPath        string   `env:"LOGIN_PATH"`
	AccessDeniedPath string   `env:"ACCESS_DENIED_PATH"`
	DefaultPath      string   `env:"DEFAULT_PATH"`

	RemoteLogout bool   `env:"REMOTE_LOGOUT"`
	LogLevel     string `env:"LOG_LEVEL"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8080"
	c.APIPrefix = "/api/v1"
	c.RequestTimeout = 10 * time.Second

	c.SessionBackend = session.KindSQLite
	c.SessionDSN = "file:" + filepath.Join(defaultDataDir(), "session.db")
	c.SessionFile = filepath.Join(defaultDataDir(), "session.json")
	c.RedisKeyPrefix = "invkeeper:session:"

	c.PublicEndpoints = []string{common.LoginEndpoint, common.RegisterEndpoint}
	c.LoginPath = common.LoginPath
	c.AccessDeniedPath = common.AccessDeniedPath
	c.DefaultPath = common.DefaultPath

	c.LogLevel = "info"
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "invkeeper")
	}
	return ".invkeeper"
}

// Load builds a Config from defaults, the JSON file, the environment and the
// given command-line arguments (without the program name), in that order.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, dotEnvFile); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is Load over os.Args that panics on error, for use in main.
func MustLoad() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}

var logLevels = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "warning": {}, "error": {}}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server url %q must be an absolute URL", c.ServerURL)
	}
	if c.RequestTimeout < 0 {
		return errors.New("request timeout must not be negative")
	}

	switch c.SessionBackend {
	case session.KindMemory:
	case session.KindFile:
		if c.SessionFile == "" {
			return errors.New("file session backend requires session_file")
		}
	case session.KindSQLite, session.KindPostgres:
		if c.SessionDSN == "" {
			return fmt.Errorf("%s session backend requires session_dsn", c.SessionBackend)
		}
	case session.KindRedis:
		if c.RedisURL == "" {
			return errors.New("redis session backend requires redis_url")
		}
	default:
		return fmt.Errorf("%w: %q", session.ErrUnknownBackend, c.SessionBackend)
	}

	for name, p := range map[string]string{"login": c.LoginPath, "access denied": c.AccessDeniedPath, "default": c.DefaultPath} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s path %q must start with /", name, p)
		}
	}

	if _, ok := logLevels[strings.ToLower(c.LogLevel)]; !ok {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// Paths returns the navigation targets the session layer redirects to.
func (c *Config) Paths() route.Paths {
	return route.Paths{Login: c.LoginPath, AccessDenied: c.AccessDeniedPath, Default: c.DefaultPath}
}

// SessionOptions returns the settings for session.Open.
func (c *Config) SessionOptions() session.Options {
	return session.Options{
		Kind:           c.SessionBackend,
		DSN:            c.SessionDSN,
		File:           c.SessionFile,
		RedisURL:       c.RedisURL,
		RedisKeyPrefix: c.RedisKeyPrefix,
		RedisTTL:       c.RedisTTL,
		SealPassphrase: c.SealPassphrase,
	}
}
