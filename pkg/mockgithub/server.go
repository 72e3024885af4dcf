// Package mockgithub is a GitHub-compatible fake host. It implements the
// subset of the REST API the editor uses (git refs, commits, trees, blobs,
// contents, branches, pulls, compare, user) over an in-memory object store,
// plus a small HTML dashboard for merging pull requests by hand.
package mockgithub

import (
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// Server is the fake host. It is safe for concurrent use.
type Server struct {
	log    *slog.Logger
	token  string
	store  *store
	engine *gin.Engine

	callsMu sync.Mutex
	calls   map[string]int
}

// Option configures a Server.
type Option func(*Server)

// WithToken makes every API call require this bearer token.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// New builds a Server with no repositories. Use Seed to add some.
func New(log *slog.Logger, opts ...Option) *Server {
	s := &Server{
		log:   log,
		store: newStore(),
		calls: make(map[string]int),
	}
	for _, o := range opts {
		o(s)
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.count)
	registerHTMLRoutes(s.engine, s)
	registerAPIRoutes(s.engine, s)
	return s
}

// Handler returns the HTTP handler serving the fake API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) count(c *gin.Context) {
	c.Next()
	if route := c.FullPath(); route != "" {
		s.callsMu.Lock()
		s.calls[c.Request.Method+" "+route]++
		s.callsMu.Unlock()
	}
}

// Calls returns how many requests matched a route, keyed as
// "METHOD /route/:param" (for example "POST /repos/:owner/:repo/pulls").
func (s *Server) Calls(route string) int {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	return s.calls[route]
}

// Seed creates owner/name if needed and commits files onto its default
// branch. A nil or empty files map leaves a new repository empty.
func (s *Server) Seed(owner, name, defaultBranch string, files map[string]string) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	r := s.store.ensureRepo(owner, name, defaultBranch)
	if len(files) == 0 {
		return
	}
	entries := map[string]string{}
	var parents []string
	if head, ok := r.resolve(defaultBranch); ok {
		maps.Copy(entries, r.trees[head.Tree])
		parents = []string{head.SHA}
	}
	for path, content := range files {
		entries[path] = r.putBlob([]byte(content))
	}
	c := s.store.putCommit(r, r.putTree(entries), "seed", parents)
	r.refs[defaultBranch] = c.SHA
}

// Commit commits files onto an existing branch, as a push from outside the
// editor would.
func (s *Server) Commit(owner, name, branch, message string, files map[string]string) (string, bool) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	r := s.store.repo(owner, name)
	if r == nil {
		return "", false
	}
	head, ok := r.resolve(branch)
	if !ok {
		return "", false
	}
	entries := maps.Clone(r.trees[head.Tree])
	for path, content := range files {
		entries[path] = r.putBlob([]byte(content))
	}
	c := s.store.putCommit(r, r.putTree(entries), message, []string{head.SHA})
	r.refs[branch] = c.SHA
	return c.SHA, true
}

// Branches lists the branch names of owner/name in order.
func (s *Server) Branches(owner, name string) []string {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	r := s.store.repo(owner, name)
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.refs))
}

// Head returns the commit a branch points at.
func (s *Server) Head(owner, name, branch string) (Commit, bool) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	r := s.store.repo(owner, name)
	if r == nil {
		return Commit{}, false
	}
	return r.resolve(branch)
}

// File returns a file's content at a branch or commit.
func (s *Server) File(owner, name, ref, path string) (string, bool) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	r := s.store.repo(owner, name)
	if r == nil {
		return "", false
	}
	files, ok := r.files(ref)
	if !ok {
		return "", false
	}
	sha, ok := files[strings.TrimPrefix(path, "/")]
	if !ok {
		return "", false
	}
	return string(r.blobs[sha]), true
}

// Pulls returns a copy of every pull request of owner/name.
func (s *Server) Pulls(owner, name string) []PullRequest {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	r := s.store.repo(owner, name)
	if r == nil {
		return nil
	}
	return slices.Clone(r.pulls)
}

// merge lands a pull request on its base branch with a merge commit whose
// tree is the head's tree.
func (s *Server) merge(owner, name string, number int) (*PullRequest, bool) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	r := s.store.repo(owner, name)
	if r == nil {
		return nil, false
	}
	pr := r.pull(number)
	if pr == nil || pr.State != stateOpen {
		return nil, false
	}
	base, okBase := r.resolve(pr.Base)
	head, okHead := r.resolve(pr.Head)
	if !okBase || !okHead {
		return nil, false
	}
	c := s.store.putCommit(r, head.Tree, "Merge pull request from "+pr.Head, []string{base.SHA, head.SHA})
	r.refs[pr.Base] = c.SHA
	pr.State = stateMerged
	merged := *pr
	return &merged, true
}
