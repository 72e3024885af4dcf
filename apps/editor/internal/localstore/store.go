// Package localstore is the editor's client-local key-value state: drafts,
// the auth token and the config override blob. Values are opaque strings.
package localstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Store is a string-keyed KV store.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists every key starting with prefix, in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// UnknownBackendError is returned by Open for an unsupported backend name.
type UnknownBackendError struct {
	Name string
}

// Error implements the error interface.
func (e UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown store backend %q (want %s, %s or %s)", e.Name, BackendSQLite, BackendRedis, BackendMemory)
}

func filterPrefix(keys []string, prefix string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
