// Package metadata stores small key/value entries in a SQL table. The session
// backend keeps the persisted token and identity here.
package metadata

import (
	"context"
)

// Repository is a key/value store over the metadata table.
// Get returns (nil, nil) for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
