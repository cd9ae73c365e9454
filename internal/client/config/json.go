package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/invkeeper/internal/flagx"
	"github.com/dmitrijs2005/invkeeper/internal/timex"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. It is seeded
// from the current Config, so keys absent from the file keep their values.
type jsonConfig struct {
	ServerURL      string         `json:"server_url"`
	APIPrefix      string         `json:"api_prefix"`
	RequestTimeout timex.Duration `json:"request_timeout"`

	SessionBackend string         `json:"session_backend"`
	SessionDSN     string         `json:"session_dsn"`
	SessionFile    string         `json:"session_file"`
	RedisURL       string         `json:"redis_url"`
	RedisKeyPrefix string         `json:"redis_key_prefix"`
	RedisTTL       timex.Duration `json:"redis_ttl"`
	SealPassphrase string         `json:"seal_passphrase"`

	PublicEndpoints  []string `json:"public_endpoints"`
	LoginPath        string   `json:"login_path"`
	AccessDeniedPath string   `json:"access_denied_path"`
	DefaultPath      string   `json:"default_path"`

	RemoteLogout bool   `json:"remote_logout"`
	LogLevel     string `json:"log_level"`
}

// parseJSON overlays cfg with the file named by -c/-config (or the
// INVKEEPER_CONFIG variable). Without a file it does nothing.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	jc := jsonConfig{
		ServerURL:        cfg.ServerURL,
		APIPrefix:        cfg.APIPrefix,
		RequestTimeout:   timex.Duration{Duration: cfg.RequestTimeout},
		SessionBackend:   cfg.SessionBackend,
		SessionDSN:       cfg.SessionDSN,
		SessionFile:      cfg.SessionFile,
		RedisURL:         cfg.RedisURL,
		RedisKeyPrefix:   cfg.RedisKeyPrefix,
		RedisTTL:         timex.Duration{Duration: cfg.RedisTTL},
		SealPassphrase:   cfg.SealPassphrase,
		PublicEndpoints:  cfg.PublicEndpoints,
		LoginPath:        cfg.LoginPath,
		AccessDeniedPath: cfg.AccessDeniedPath,
		DefaultPath:      cfg.DefaultPath,
		RemoteLogout:     cfg.RemoteLogout,
		LogLevel:         cfg.LogLevel,
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg.ServerURL = jc.ServerURL
	cfg.APIPrefix = jc.APIPrefix
	cfg.RequestTimeout = jc.RequestTimeout.Duration
	cfg.SessionBackend = jc.SessionBackend
	cfg.SessionDSN = jc.SessionDSN
	cfg.SessionFile = jc.SessionFile
	cfg.RedisURL = jc.RedisURL
	cfg.RedisKeyPrefix = jc.RedisKeyPrefix
	cfg.RedisTTL = jc.RedisTTL.Duration
	cfg.SealPassphrase = jc.SealPassphrase
	cfg.PublicEndpoints = jc.PublicEndpoints
	cfg.LoginPath = jc.LoginPath
	cfg.AccessDeniedPath = jc.AccessDeniedPath
	cfg.DefaultPath = jc.DefaultPath
	cfg.RemoteLogout = jc.RemoteLogout
	cfg.LogLevel = jc.LogLevel
	return nil
}
