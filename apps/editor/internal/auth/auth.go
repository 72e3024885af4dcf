// Package auth keeps the user's GitHub token in the local store and feeds it
// to the GitHub client. Tokens are pasted or injected; there is no OAuth flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gogithub "github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"
)

// TokenKey is the local store key holding the token.
const TokenKey = "auth:token"

// ErrNoToken is returned by the token source when no token is configured.
var ErrNoToken = errors.New("no GitHub token configured: set one with `quillctl token set` or GITHUB_TOKEN")

// KV is the subset of the local store the token store needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store reads and writes the token. An environment token, when set, wins
// over the stored one.
type Store struct {
	kv       KV
	envToken string
	log      *slog.Logger
}

// Compile-time check: *Store is usable as an oauth2.TokenSource.
var _ oauth2.TokenSource = (*Store)(nil)

// NewStore returns a token store over kv. envToken may be empty.
func NewStore(kv KV, envToken string, log *slog.Logger) *Store {
	return &Store{kv: kv, envToken: strings.TrimSpace(envToken), log: log}
}

// Get returns the active token, or "" when none is configured.
func (s *Store) Get(ctx context.Context) (string, error) {
	if s.envToken != "" {
		return s.envToken, nil
	}
	tok, ok, err := s.kv.Get(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if !ok {
		return "", nil
	}
	return tok, nil
}

// Set stores token, replacing any previous one.
func (s *Store) Set(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}
	if err := s.kv.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.log.Info("token saved", "token", Mask(token))
	return nil
}

// Clear removes the stored token.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Token implements oauth2.TokenSource. It reads the store on every call so a
// newly pasted token takes effect without a restart.
func (s *Store) Token() (*oauth2.Token, error) {
	tok, err := s.Get(context.Background())
	if err != nil {
		return nil, err
	}
	if tok == "" {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// Verify asks GitHub who the token belongs to and returns the login.
func Verify(ctx context.Context, gh *gogithub.Client) (string, error) {
	user, _, err := gh.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("verify token: %w", err)
	}
	return user.GetLogin(), nil
}

// Mask shortens a token for display, keeping only its last four characters.
func Mask(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", 8) + token[len(token)-4:]
}
