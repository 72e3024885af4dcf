package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// OverridesKey is the local store key holding the serialized override layer.
const OverridesKey = "config:overrides"

// KV is the subset of the local store the resolver needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Provider hands out the current settings. The controller depends on this,
// not on the resolver.
type Provider interface {
	Settings() Settings
}

// Compile-time check: *Resolver implements Provider.
var _ Provider = (*Resolver)(nil)

// Resolver merges defaults, the remote document and local overrides, and
// caches the result until the next Reload.
type Resolver struct {
	remote Source
	kv     KV
	log    *slog.Logger
	webURL string

	mu      sync.RWMutex
	current Config
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithWebURL sets the host web URL used to build tree links.
func WithWebURL(u string) Option {
	return func(r *Resolver) {
		if u != "" {
			r.webURL = u
		}
	}
}

// NewResolver returns a resolver holding the built-in defaults. remote and kv
// may be nil.
func NewResolver(remote Source, kv KV, log *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		remote:  remote,
		kv:      kv,
		log:     log,
		webURL:  DefaultWebURL,
		current: Defaults(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reload re-reads every layer. Failing layers are logged and skipped so the
// editor always comes up with at least the defaults.
func (r *Resolver) Reload(ctx context.Context) Config {
	cfg := Defaults()

	if r.remote != nil {
		doc, err := r.remote.Load(ctx)
		switch {
		case err != nil:
			r.log.Warn("remote config unavailable, using defaults", "error", err)
		case doc != nil:
			cfg = Merge(cfg, *doc)
		}
	}

	overrides, err := r.Overrides(ctx)
	if err != nil {
		r.log.Warn("local config overrides unreadable, ignoring", "error", err)
	} else if overrides != nil {
		cfg = Merge(cfg, *overrides)
	}

	r.mu.Lock()
	r.current = cfg
	r.mu.Unlock()
	r.log.Debug("config resolved", "owner", cfg.Repo.Owner, "repo", cfg.Repo.Repo, "defaultBranch", cfg.Repo.DefaultBranch)
	return cfg
}

// Config returns the last resolved config.
func (r *Resolver) Config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Settings implements Provider.
func (r *Resolver) Settings() Settings {
	r.mu.RLock()
	s := r.current.Settings()
	r.mu.RUnlock()
	s.WebURL = r.webURL
	return s
}

// Overrides returns the stored override layer, or nil when none is saved.
func (r *Resolver) Overrides(ctx context.Context) (*Partial, error) {
	if r.kv == nil {
		return nil, nil //nolint:nilnil // no override store configured
	}
	raw, ok, err := r.kv.Get(ctx, OverridesKey)
	if err != nil {
		return nil, fmt.Errorf("get overrides: %w", err)
	}
	if !ok {
		return nil, nil //nolint:nilnil // nothing saved yet
	}
	var p Partial
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("unmarshal overrides: %w", err)
	}
	return &p, nil
}

// SaveOverrides persists p as the override layer and re-resolves.
func (r *Resolver) SaveOverrides(ctx context.Context, p Partial) (Config, error) {
	if r.kv == nil {
		return Config{}, fmt.Errorf("save overrides: no local store")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return Config{}, fmt.Errorf("marshal overrides: %w", err)
	}
	if err := r.kv.Set(ctx, OverridesKey, string(data)); err != nil {
		return Config{}, fmt.Errorf("save overrides: %w", err)
	}
	return r.Reload(ctx), nil
}

// ClearOverrides drops the override layer and re-resolves.
func (r *Resolver) ClearOverrides(ctx context.Context) (Config, error) {
	if r.kv != nil {
		if err := r.kv.Delete(ctx, OverridesKey); err != nil {
			return Config{}, fmt.Errorf("clear overrides: %w", err)
		}
	}
	return r.Reload(ctx), nil
}
