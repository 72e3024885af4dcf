package localstore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/tilsley/quill/apps/editor/internal/platform/sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Backend   string
	DataDir   string
	RedisAddr string
}

// Open builds the Store named by opts.Backend. An empty backend means SQLite.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendSQLite:
		db, err := sqlite.Open(filepath.Join(opts.DataDir, "quill.db"))
		if err != nil {
			return nil, err
		}
		return NewSQLite(db), nil
	case BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("redis ping %s: %w", opts.RedisAddr, err)
		}
		return NewRedis(rdb), nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, UnknownBackendError{Name: opts.Backend}
	}
}
