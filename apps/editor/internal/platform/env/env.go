// Package env reads the editor's process configuration from environment
// variables. Editor settings proper (repository, templates) come from the
// config resolver, not from here.
package env

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sethvargo/go-envconfig"
)

// Config is the process configuration shared by the editor and quillctl.
type Config struct {
	Port int `env:"PORT, default=8787"`

	// GitHubAPIURL is empty for api.github.com; point it at mock-github for
	// local development.
	GitHubAPIURL string `env:"GITHUB_API_URL"`
	GitHubWebURL string `env:"GITHUB_WEB_URL, default=https://github.com"`
	// GitHubToken overrides the token saved in the local store.
	GitHubToken string `env:"GITHUB_TOKEN"`

	// GitHub App credentials. All three must be set to use app auth.
	GitHubAppID          int64  `env:"GITHUB_APP_ID"`
	GitHubInstallationID int64  `env:"GITHUB_APP_INSTALLATION_ID"`
	GitHubPrivateKeyPath string `env:"GITHUB_APP_PRIVATE_KEY_PATH"`

	StoreBackend string `env:"STORE_BACKEND, default=sqlite"`
	RedisAddr    string `env:"REDIS_ADDR, default=localhost:6379"`
	// DataDir holds the SQLite file. Defaults to <user config dir>/quill.
	DataDir string `env:"DATA_DIR"`

	// ConfigURL is the base URL the remote config document is fetched from.
	// ConfigFile is used when ConfigURL is empty.
	ConfigURL  string `env:"CONFIG_URL"`
	ConfigFile string `env:"CONFIG_FILE"`

	OTelEnabled bool `env:"OTEL_ENABLED, default=false"`
	VerifyHead  bool `env:"VERIFY_HEAD, default=false"`
}

// AppAuth reports whether GitHub App credentials are configured.
func (c Config) AppAuth() bool {
	return c.GitHubAppID != 0 && c.GitHubInstallationID != 0 && c.GitHubPrivateKeyPath != ""
}

// Load reads Config from the process environment.
func Load(ctx context.Context) (Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads Config through l. Tests pass envconfig.MapLookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var c Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &c, Lookuper: l}); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if c.DataDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = os.TempDir()
		}
		c.DataDir = filepath.Join(dir, "quill")
	}
	return c, nil
}
