package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/invkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/invkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/invkeeper/internal/dbx"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLBackend keeps entries in the metadata table. All entries of one call are
// written inside a single transaction.
type SQLBackend struct {
	db      *sql.DB
	dialect dbx.Dialect
}

func NewSQLBackend(db *sql.DB, dialect dbx.Dialect) *SQLBackend {
	return &SQLBackend{db: db, dialect: dialect}
}

func (b *SQLBackend) repo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLRepository(db, b.dialect)
}

func (b *SQLBackend) Write(ctx context.Context, entries map[string][]byte) error {
	return dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := b.repo(tx)
		for k, v := range entries {
			if err := r.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *SQLBackend) Read(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	err := dbx.WithTx(ctx, b.db, &sql.TxOptions{ReadOnly: b.dialect == dbx.DialectPostgres}, func(ctx context.Context, tx dbx.DBTX) error {
		r := b.repo(tx)
		for _, k := range keys {
			v, err := r.Get(ctx, k)
			if err != nil {
				return err
			}
			if v != nil {
				out[k] = v
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *SQLBackend) Erase(ctx context.Context, keys []string) error {
	return dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := b.repo(tx)
		for _, k := range keys {
			if err := r.Delete(ctx, k); err != nil {
				return err
			}
		}
		return nil
	})
}

// DriverName returns the database/sql driver registered for dialect.
func DriverName(dialect dbx.Dialect) string {
	if dialect == dbx.DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations of dialect to db.
func RunMigrations(ctx context.Context, db *sql.DB, dialect dbx.Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	dir := "sqlite"
	if dialect == dbx.DialectPostgres {
		dir = "postgres"
	}
	if err := gooseUpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migrate session db: %w", err)
	}
	return nil
}

// OpenSQLBackend opens dsn with the driver for dialect, migrates it and
// returns the backend along with the underlying handle for closing.
func OpenSQLBackend(ctx context.Context, dialect dbx.Dialect, dsn string) (*SQLBackend, *sql.DB, error) {
	db, err := sql.Open(DriverName(dialect), dsn)
	if err != nil {
		return nil, nil, err
	}
	if dialect == dbx.DialectSQLite {
		// one writer at a time; avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}

	if err := RunMigrations(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return NewSQLBackend(db, dialect), db, nil
}
