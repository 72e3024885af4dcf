package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RemotePaths are tried in order under the remote base URL. The first one
// that answers 2xx wins.
var RemotePaths = []string{"/.meditor.config.json", "/config/.meditor.config.json"}

// Source loads one config document. A missing document is (nil, nil).
type Source interface {
	Load(ctx context.Context) (*Partial, error)
}

// HTTPSource fetches the remote-hosted config document.
type HTTPSource struct {
	BaseURL string
	Paths   []string
	Client  *http.Client
}

// NewHTTPSource returns a source for baseURL using the default remote paths.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{BaseURL: strings.TrimRight(baseURL, "/"), Paths: RemotePaths, Client: client}
}

// Load tries each path in turn. Transport errors and non-2xx responses move
// on to the next path; a body that does not decode is an error.
func (s *HTTPSource) Load(ctx context.Context) (*Partial, error) {
	for _, p := range s.Paths {
		body, ok, err := s.fetch(ctx, s.BaseURL+p)
		if err != nil || !ok {
			continue
		}
		doc, err := Decode(body)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", p, err)
		}
		return doc, nil
	}
	return nil, nil //nolint:nilnil // no remote config is a valid state
}

func (s *HTTPSource) fetch(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Cache-Control", "no-store")
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

// FileSource reads the config document from a local file.
type FileSource struct {
	Path string
}

// Load reads the file. A missing file is not an error.
func (s FileSource) Load(_ context.Context) (*Partial, error) {
	body, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil //nolint:nilnil // no local config file
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	doc, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return doc, nil
}

// Decode parses a config document. Documents starting with '{' are JSON;
// anything else is read as YAML.
func Decode(body []byte) (*Partial, error) {
	var p Partial
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}
	if err := yaml.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
