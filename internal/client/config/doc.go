// Package config loads runtime configuration for the invkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c / -config, or INVKEEPER_CONFIG.
//  3. Environment variables with the INVKEEPER_ prefix. A .env file in the
//     working directory is read first; variables already set win over it.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   base URL of the inventory API
//	-s string   session backend: memory, file, sqlite, postgres or redis
//	-d string   DSN of the sqlite/postgres session backend
//	-l string   log level: debug, info, warn or error
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "10s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://localhost:8080",
//	  "api_prefix": "/api/v1",
//	  "request_timeout": "10s",
//	  "session_backend": "sqlite",
//	  "session_dsn": "file:invkeeper.db",
//	  "remote_logout": true
//	}
package config
