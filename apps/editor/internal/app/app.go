// Package app assembles the editor's services from the process
// configuration. The editor binary and quillctl share it so both see the same
// local state.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gogithub "github.com/google/go-github/v75/github"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	ghadapter "github.com/tilsley/quill/apps/editor/internal/adapters/github"
	"github.com/tilsley/quill/apps/editor/internal/auth"
	"github.com/tilsley/quill/apps/editor/internal/config"
	"github.com/tilsley/quill/apps/editor/internal/drafts"
	"github.com/tilsley/quill/apps/editor/internal/localstore"
	"github.com/tilsley/quill/apps/editor/internal/platform/env"
	ghplatform "github.com/tilsley/quill/apps/editor/internal/platform/github"
	"github.com/tilsley/quill/apps/editor/internal/workspace"
)

const configFetchTimeout = 10 * time.Second

// App holds the wired services.
type App struct {
	Env    env.Config
	Store  localstore.Store
	Config *config.Resolver
	Tokens *auth.Store
	GitHub *gogithub.Client
	Host   *ghadapter.Adapter
	Drafts *drafts.Store

	log *slog.Logger
}

// New opens the local store, resolves the editor config and builds the
// GitHub client. Close releases the store.
func New(ctx context.Context, e env.Config, log *slog.Logger) (*App, error) {
	store, err := localstore.Open(ctx, localstore.Options{
		Backend:   e.StoreBackend,
		DataDir:   e.DataDir,
		RedisAddr: e.RedisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	tokens := auth.NewStore(store, e.GitHubToken, log)
	gh, err := newGitHubClient(e, tokens)
	if err != nil {
		store.Close() //nolint:errcheck // already failing
		return nil, err
	}

	resolver := config.NewResolver(configSource(e), store, log, config.WithWebURL(e.GitHubWebURL))
	cfg := resolver.Reload(ctx)
	log.Info("editor config resolved", "owner", cfg.Repo.Owner, "repo", cfg.Repo.Repo, "backend", e.StoreBackend)

	return &App{
		Env:    e,
		Store:  store,
		Config: resolver,
		Tokens: tokens,
		GitHub: gh,
		Host:   ghadapter.New(gh, ghadapter.WithLogger(log), ghadapter.WithVerifyHead(e.VerifyHead)),
		Drafts: drafts.NewStore(store),
		log:    log,
	}, nil
}

// NewController builds a working-context controller over the app's services.
func (a *App) NewController(opts ...workspace.Option) *workspace.Controller {
	return workspace.NewController(a.Host, a.Drafts, a.Config, a.log, opts...)
}

// Whoami returns the login the GitHub client authenticates as.
func (a *App) Whoami(ctx context.Context) (string, error) {
	return auth.Verify(ctx, a.GitHub)
}

// Close releases the local store.
func (a *App) Close() error {
	return a.Store.Close()
}

func newGitHubClient(e env.Config, tokens *auth.Store) (*gogithub.Client, error) {
	if e.AppAuth() {
		return ghplatform.NewAppClient(e.GitHubAppID, e.GitHubInstallationID, e.GitHubPrivateKeyPath, e.GitHubAPIURL)
	}
	return ghplatform.NewTokenClient(tokens, e.GitHubAPIURL), nil
}

func configSource(e env.Config) config.Source {
	switch {
	case e.ConfigURL != "":
		return config.NewHTTPSource(e.ConfigURL, &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   configFetchTimeout,
		})
	case e.ConfigFile != "":
		return config.FileSource{Path: e.ConfigFile}
	default:
		return nil
	}
}
