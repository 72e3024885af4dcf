// Package drafts persists unsynced local edits, one record per
// (owner, repo, branch, path).
package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

const keyPrefix = "draft:"

// Key identifies a draft.
type Key struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	Path   string `json:"path"`
}

// String renders the storage key: draft:{owner}/{repo}:{branch}:{path}.
func (k Key) String() string {
	return fmt.Sprintf("%s%s/%s:%s:%s", keyPrefix, k.Owner, k.Repo, k.Branch, k.Path)
}

// Complete reports whether every part of the key is set.
func (k Key) Complete() bool {
	return k.Owner != "" && k.Repo != "" && k.Branch != "" && k.Path != ""
}

// Record is a stored draft. UpdatedAt is epoch milliseconds.
type Record struct {
	Key
	Content   string `json:"content"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Owner  string
	Repo   string
	Branch string
}

func (f Filter) match(r Record) bool {
	return (f.Owner == "" || f.Owner == r.Owner) &&
		(f.Repo == "" || f.Repo == r.Repo) &&
		(f.Branch == "" || f.Branch == r.Branch)
}

// KV is the subset of the local store drafts are kept in.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Store reads and writes draft records.
type Store struct {
	kv KV
}

// NewStore returns a Store backed by kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Get returns the draft for k, or nil if there is none.
func (s *Store) Get(ctx context.Context, k Key) (*Record, error) {
	raw, ok, err := s.kv.Get(ctx, k.String())
	if err != nil {
		return nil, fmt.Errorf("get draft %s: %w", k, err)
	}
	if !ok {
		return nil, nil //nolint:nilnil // caller checks nil value to detect "no draft"
	}
	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("unmarshal draft %s: %w", k, err)
	}
	return &r, nil
}

// Save writes r, replacing any previous draft with the same key.
func (s *Store) Save(ctx context.Context, r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := s.kv.Set(ctx, r.Key.String(), string(data)); err != nil {
		return fmt.Errorf("save draft %s: %w", r.Key, err)
	}
	return nil
}

// Delete removes the draft for k.
func (s *Store) Delete(ctx context.Context, k Key) error {
	if err := s.kv.Delete(ctx, k.String()); err != nil {
		return fmt.Errorf("delete draft %s: %w", k, err)
	}
	return nil
}

// List returns drafts matching f, most recently updated first. Entries that
// fail to decode are skipped.
func (s *Store) List(ctx context.Context, f Filter) ([]Record, error) {
	prefix := keyPrefix
	if f.Owner != "" && f.Repo != "" {
		prefix += f.Owner + "/" + f.Repo + ":"
	}
	keys, err := s.kv.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}

	out := make([]Record, 0, len(keys))
	for _, key := range keys {
		raw, ok, err := s.kv.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("get draft %s: %w", key, err)
		}
		if !ok {
			continue
		}
		var r Record
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			continue
		}
		if f.match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out, nil
}
