// Package github provides factory functions for creating authenticated GitHub
// API clients. Callers hand the returned *github.Client to the adapter in
// apps/editor/internal/adapters/github.
package github

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gogithub "github.com/google/go-github/v75/github"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

const defaultAPIURL = "https://api.github.com"

// NewTokenClient creates a *github.Client that authenticates every request
// with the token from ts. A nil ts makes anonymous requests. Pass baseURL=""
// for the real GitHub API, or a custom URL (e.g. "http://localhost:9090") for
// a mock server.
func NewTokenClient(ts oauth2.TokenSource, baseURL string) *gogithub.Client {
	var transport http.RoundTripper = otelhttp.NewTransport(http.DefaultTransport)
	if ts != nil {
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	c := gogithub.NewClient(&http.Client{Transport: transport})
	applyBaseURL(c, baseURL)
	return c
}

// NewAppClient creates a *github.Client authenticated as a GitHub App
// installation. privateKeyPath is the path to the app's PEM private key.
func NewAppClient(appID, installationID int64, privateKeyPath, baseURL string) (*gogithub.Client, error) {
	base := baseURL
	if base == "" {
		base = defaultAPIURL
	}

	tr, err := ghinstallation.NewKeyFromFile(otelhttp.NewTransport(http.DefaultTransport), appID, installationID, privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("github app auth: %w", err)
	}
	tr.BaseURL = strings.TrimSuffix(base, "/")

	c := gogithub.NewClient(&http.Client{Transport: tr})
	applyBaseURL(c, baseURL)
	return c, nil
}

func applyBaseURL(c *gogithub.Client, baseURL string) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" || baseURL == defaultAPIURL {
		return
	}
	u, err := url.Parse(baseURL + "/")
	if err != nil {
		return
	}
	c.BaseURL = u
}
