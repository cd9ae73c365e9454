package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/invkeeper/internal/dbx"
	"github.com/redis/go-redis/v9"
)

// Backend kinds accepted by Open.
const (
	KindMemory   = "memory"
	KindFile     = "file"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
	KindRedis    = "redis"
)

var ErrUnknownBackend = errors.New("unknown session backend")

// Options selects and configures a backend.
type Options struct {
	Kind           string
	DSN            string
	File           string
	RedisURL       string
	RedisKeyPrefix string
	RedisTTL       time.Duration

	// SealPassphrase, when set, wraps the backend in a SealedBackend.
	SealPassphrase string
}

// Open builds the backend described by opts. The returned close function
// releases connections and is never nil.
func Open(ctx context.Context, opts Options) (Backend, func() error, error) {
	var (
		backend Backend
		closeFn = func() error { return nil }
	)

	switch opts.Kind {
	case "", KindMemory:
		backend = NewMemoryBackend()

	case KindFile:
		if opts.File == "" {
			return nil, closeFn, errors.New("file session backend requires a path")
		}
		backend = NewFileBackend(opts.File)

	case KindSQLite, KindPostgres:
		dialect := dbx.DialectSQLite
		if opts.Kind == KindPostgres {
			dialect = dbx.DialectPostgres
		}
		b, db, err := OpenSQLBackend(ctx, dialect, opts.DSN)
		if err != nil {
			return nil, closeFn, fmt.Errorf("open %s session store: %w", opts.Kind, err)
		}
		backend, closeFn = b, db.Close

	case KindRedis:
		ro, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, closeFn, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(ro)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, closeFn, fmt.Errorf("redis ping: %w", err)
		}
		backend, closeFn = NewRedisBackend(rdb, opts.RedisKeyPrefix, opts.RedisTTL), rdb.Close

	default:
		return nil, closeFn, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Kind)
	}

	if opts.SealPassphrase != "" {
		backend = NewSealedBackend(backend, opts.SealPassphrase)
	}
	return backend, closeFn, nil
}
