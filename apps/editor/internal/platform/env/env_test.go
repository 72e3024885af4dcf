package env_test

import (
	"context"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilsley/quill/apps/editor/internal/platform/env"
)

func TestLoadWith_Defaults(t *testing.T) {
	c, err := env.LoadWith(context.Background(), envconfig.MapLookuper(nil))
	require.NoError(t, err)

	assert.Equal(t, 8787, c.Port)
	assert.Equal(t, "sqlite", c.StoreBackend)
	assert.Equal(t, "localhost:6379", c.RedisAddr)
	assert.Equal(t, "https://github.com", c.GitHubWebURL)
	assert.NotEmpty(t, c.DataDir)
	assert.False(t, c.OTelEnabled)
	assert.False(t, c.AppAuth())
}

func TestLoadWith_Overrides(t *testing.T) {
	c, err := env.LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"PORT":                        "9000",
		"GITHUB_API_URL":              "http://localhost:9090",
		"STORE_BACKEND":               "redis",
		"DATA_DIR":                    "/tmp/q",
		"VERIFY_HEAD":                 "true",
		"GITHUB_APP_ID":               "12",
		"GITHUB_APP_INSTALLATION_ID":  "34",
		"GITHUB_APP_PRIVATE_KEY_PATH": "/keys/app.pem",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9000, c.Port)
	assert.Equal(t, "http://localhost:9090", c.GitHubAPIURL)
	assert.Equal(t, "redis", c.StoreBackend)
	assert.Equal(t, "/tmp/q", c.DataDir)
	assert.True(t, c.VerifyHead)
	assert.True(t, c.AppAuth())
}

func TestLoadWith_BadNumber(t *testing.T) {
	_, err := env.LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{"PORT": "eighty"}))
	assert.Error(t, err)
}
