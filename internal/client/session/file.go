package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dmitrijs2005/invkeeper/internal/filex"
)

// FileBackend stores all entries in a single owner-only JSON file. Every write
// replaces the file with a rename, so a crash never leaves half a record.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (f *FileBackend) load() (map[string][]byte, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	entries := map[string][]byte{}
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return entries, nil
}

func (f *FileBackend) store(entries map[string][]byte) error {
	if len(entries) == 0 {
		return filex.RemoveIfExists(f.path)
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return filex.WriteFileAtomic(f.path, b, 0o600)
}

func (f *FileBackend) Write(_ context.Context, entries map[string][]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.load()
	if err != nil {
		// an unreadable file is overwritten rather than blocking new sessions
		current = map[string][]byte{}
	}
	for k, v := range entries {
		current[k] = v
	}
	return f.store(current)
}

func (f *FileBackend) Read(_ context.Context, keys []string) (map[string][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := current[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *FileBackend) Erase(_ context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.load()
	if err != nil {
		return filex.RemoveIfExists(f.path)
	}
	for _, k := range keys {
		delete(current, k)
	}
	return f.store(current)
}
