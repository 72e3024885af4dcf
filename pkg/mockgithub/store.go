package mockgithub

import (
	"crypto/sha1" //nolint:gosec // object ids only, mirrors git
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

const (
	stateOpen   = "open"
	stateClosed = "closed"
	stateMerged = "merged"
)

// Commit is a stored commit.
type Commit struct {
	SHA     string
	Tree    string
	Parents []string
	Message string
}

// PullRequest is the mock's view of a pull request.
type PullRequest struct {
	Number int
	Title  string
	Body   string
	Head   string
	Base   string
	State  string
}

// repo is one repository: a content-addressed object store plus refs.
type repo struct {
	owner, name   string
	defaultBranch string
	blobs         map[string][]byte
	trees         map[string]map[string]string // tree sha → path → blob sha
	commits       map[string]Commit
	refs          map[string]string // branch → commit sha
	pulls         []PullRequest
}

func (r *repo) key() string { return r.owner + "/" + r.name }

// empty reports whether the repository has no commits yet.
func (r *repo) empty() bool { return len(r.refs) == 0 }

type store struct {
	mu    sync.RWMutex
	repos map[string]*repo
	seq   int
}

func newStore() *store {
	return &store{repos: make(map[string]*repo)}
}

func (s *store) repo(owner, name string) *repo {
	return s.repos[owner+"/"+name]
}

func (s *store) ensureRepo(owner, name, defaultBranch string) *repo {
	r := s.repo(owner, name)
	if r != nil {
		return r
	}
	r = &repo{
		owner:         owner,
		name:          name,
		defaultBranch: defaultBranch,
		blobs:         make(map[string][]byte),
		trees:         make(map[string]map[string]string),
		commits:       make(map[string]Commit),
		refs:          make(map[string]string),
	}
	s.repos[r.key()] = r
	return r
}

func hashOf(kind string, parts ...string) string {
	h := sha1.New() //nolint:gosec // see import
	fmt.Fprintf(h, "%s\x00", kind)
	for _, p := range parts {
		fmt.Fprintf(h, "%s\x00", p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (r *repo) putBlob(data []byte) string {
	sha := hashOf("blob", string(data))
	r.blobs[sha] = data
	return sha
}

func (r *repo) putTree(entries map[string]string) string {
	paths := slices.Sorted(maps.Keys(entries))
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		parts = append(parts, p+"="+entries[p])
	}
	sha := hashOf("tree", parts...)
	r.trees[sha] = maps.Clone(entries)
	return sha
}

// putCommit stores a commit. seq keeps ids unique across identical trees.
func (s *store) putCommit(r *repo, tree, message string, parents []string) Commit {
	s.seq++
	c := Commit{Tree: tree, Parents: parents, Message: message}
	c.SHA = hashOf("commit", append([]string{tree, message, fmt.Sprint(s.seq)}, parents...)...)
	r.commits[c.SHA] = c
	return c
}

// resolve turns a branch name or commit sha into a commit. Empty means the
// default branch.
func (r *repo) resolve(ref string) (Commit, bool) {
	if ref == "" {
		ref = r.defaultBranch
	}
	if sha, ok := r.refs[ref]; ok {
		c, ok := r.commits[sha]
		return c, ok
	}
	c, ok := r.commits[ref]
	return c, ok
}

func (r *repo) files(ref string) (map[string]string, bool) {
	c, ok := r.resolve(ref)
	if !ok {
		return nil, false
	}
	return r.trees[c.Tree], true
}

// isAncestor reports whether anc is reachable from sha.
func (r *repo) isAncestor(anc, sha string) bool {
	seen := map[string]bool{}
	queue := []string{sha}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == anc {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		queue = append(queue, r.commits[cur].Parents...)
	}
	return false
}

// changedPaths lists the paths whose content differs between two trees.
func changedPaths(base, head map[string]string) []string {
	var out []string
	for p, sha := range head {
		if base[p] != sha {
			out = append(out, p)
		}
	}
	for p := range base {
		if _, ok := head[p]; !ok {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

// dirs lists every directory that contains at least one of paths.
func dirs(paths []string) []string {
	set := map[string]bool{}
	for _, p := range paths {
		for i := strings.LastIndex(p, "/"); i > 0; i = strings.LastIndex(p[:i], "/") {
			set[p[:i]] = true
		}
	}
	return slices.Sorted(maps.Keys(set))
}

func (r *repo) pull(number int) *PullRequest {
	for i := range r.pulls {
		if r.pulls[i].Number == number {
			return &r.pulls[i]
		}
	}
	return nil
}
