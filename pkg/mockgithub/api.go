package mockgithub

import (
	"encoding/base64"
	"fmt"
	"maps"
	"net/http"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const docsURL = "https://docs.github.com/rest"

func apiError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message, "documentation_url": docsURL})
}

func webURL(c *gin.Context) string {
	return "http://" + c.Request.Host
}

func (s *Server) authenticate(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	if s.token == "" {
		c.Next()
		return
	}
	if auth == "" {
		apiError(c, http.StatusUnauthorized, "Requires authentication")
		return
	}
	if auth != "Bearer "+s.token && auth != "token "+s.token {
		apiError(c, http.StatusUnauthorized, "Bad credentials")
		return
	}
	c.Next()
}

// withRepo looks up :owner/:repo under the given lock and calls fn with it.
func (s *Server) withRepo(c *gin.Context, write bool, fn func(r *repo)) {
	if write {
		s.store.mu.Lock()
		defer s.store.mu.Unlock()
	} else {
		s.store.mu.RLock()
		defer s.store.mu.RUnlock()
	}
	r := s.store.repo(c.Param("owner"), c.Param("repo"))
	if r == nil {
		apiError(c, http.StatusNotFound, "Not Found")
		return
	}
	fn(r)
}

func registerAPIRoutes(r *gin.Engine, s *Server) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// raw.githubusercontent.com equivalent, used to host editor config.
	r.GET("/raw/:owner/:repo/:ref/*path", s.raw)

	api := r.Group("/", s.authenticate)
	api.GET("/user", func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			apiError(c, http.StatusUnauthorized, "Requires authentication")
			return
		}
		c.JSON(http.StatusOK, gin.H{"login": "quill-dev", "id": 1, "name": "Quill Dev", "type": "User"})
	})

	repos := api.Group("/repos/:owner/:repo")
	repos.GET("/git/ref/*ref", s.getRef)
	repos.POST("/git/refs", s.createRef)
	repos.PATCH("/git/refs/*ref", s.updateRef)
	repos.GET("/git/commits/:sha", s.getCommit)
	repos.POST("/git/commits", s.createCommit)
	repos.GET("/git/trees/:sha", s.getTree)
	repos.POST("/git/trees", s.createTree)
	repos.POST("/git/blobs", s.createBlob)
	repos.GET("/contents/*path", s.getContents)
	repos.GET("/branches", s.listBranches)
	repos.GET("/compare/*basehead", s.compare)
	repos.GET("/pulls", s.listPulls)
	repos.POST("/pulls", s.createPull)
	repos.GET("/pulls/:number", s.getPull)
	repos.GET("/pulls/:number/files", s.listPullFiles)
}

// ─── git data ────────────────────────────────────────────────────────────────

func refJSON(c *gin.Context, r *repo, branch, sha string) gin.H {
	return gin.H{
		"ref": "refs/heads/" + branch,
		"url": fmt.Sprintf("%s/repos/%s/git/refs/heads/%s", webURL(c), r.key(), branch),
		"object": gin.H{
			"type": "commit",
			"sha":  sha,
		},
	}
}

func commitJSON(c *gin.Context, r *repo, cm Commit) gin.H {
	parents := make([]gin.H, 0, len(cm.Parents))
	for _, p := range cm.Parents {
		parents = append(parents, gin.H{"sha": p})
	}
	return gin.H{
		"sha":      cm.SHA,
		"message":  cm.Message,
		"html_url": fmt.Sprintf("%s/%s/commit/%s", webURL(c), r.key(), cm.SHA),
		"tree":     gin.H{"sha": cm.Tree},
		"parents":  parents,
	}
}

func branchOf(ref string) string {
	ref = strings.TrimPrefix(ref, "/")
	ref = strings.TrimPrefix(ref, "refs/")
	return strings.TrimPrefix(ref, "heads/")
}

func (s *Server) getRef(c *gin.Context) {
	s.withRepo(c, false, func(r *repo) {
		if r.empty() {
			apiError(c, http.StatusConflict, "Git Repository is empty.")
			return
		}
		branch := branchOf(c.Param("ref"))
		sha, ok := r.refs[branch]
		if !ok {
			apiError(c, http.StatusNotFound, "Not Found")
			return
		}
		c.JSON(http.StatusOK, refJSON(c, r, branch, sha))
	})
}

func (s *Server) createRef(c *gin.Context) {
	var req struct {
		Ref string `json:"ref" binding:"required"`
		SHA string `json:"sha" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusUnprocessableEntity, "Invalid request.\n\n"+err.Error())
		return
	}
	s.withRepo(c, true, func(r *repo) {
		if !strings.HasPrefix(req.Ref, "refs/heads/") {
			apiError(c, http.StatusUnprocessableEntity, "Reference name must start with 'refs/heads/'")
			return
		}
		branch := branchOf(req.Ref)
		if _, ok := r.commits[req.SHA]; !ok {
			apiError(c, http.StatusUnprocessableEntity, "Object does not exist")
			return
		}
		if _, ok := r.refs[branch]; ok {
			apiError(c, http.StatusUnprocessableEntity, "Reference already exists")
			return
		}
		r.refs[branch] = req.SHA
		s.log.Info("branch created", "repo", r.key(), "branch", branch, "sha", req.SHA)
		c.JSON(http.StatusCreated, refJSON(c, r, branch, req.SHA))
	})
}

func (s *Server) updateRef(c *gin.Context) {
	var req struct {
		SHA   string `json:"sha" binding:"required"`
		Force bool   `json:"force"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusUnprocessableEntity, "Invalid request.\n\n"+err.Error())
		return
	}
	s.withRepo(c, true, func(r *repo) {
		branch := branchOf(c.Param("ref"))
		old, ok := r.refs[branch]
		if !ok {
			apiError(c, http.StatusUnprocessableEntity, "Reference does not exist")
			return
		}
		if _, ok := r.commits[req.SHA]; !ok {
			apiError(c, http.StatusUnprocessableEntity, "Object does not exist")
			return
		}
		if !req.Force && !r.isAncestor(old, req.SHA) {
			apiError(c, http.StatusUnprocessableEntity, "Update is not a fast forward")
			return
		}
		r.refs[branch] = req.SHA
		s.log.Info("branch updated", "repo", r.key(), "branch", branch, "sha", req.SHA)
		c.JSON(http.StatusOK, refJSON(c, r, branch, req.SHA))
	})
}

func (s *Server) getCommit(c *gin.Context) {
	s.withRepo(c, false, func(r *repo) {
		cm, ok := r.commits[c.Param("sha")]
		if !ok {
			apiError(c, http.StatusNotFound, "Not Found")
			return
		}
		c.JSON(http.StatusOK, commitJSON(c, r, cm))
	})
}

func (s *Server) createCommit(c *gin.Context) {
	var req struct {
		Message string   `json:"message" binding:"required"`
		Tree    string   `json:"tree"    binding:"required"`
		Parents []string `json:"parents"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusUnprocessableEntity, "Invalid request.\n\n"+err.Error())
		return
	}
	s.withRepo(c, true, func(r *repo) {
		if _, ok := r.trees[req.Tree]; !ok {
			apiError(c, http.StatusUnprocessableEntity, "Tree SHA does not exist")
			return
		}
		for _, p := range req.Parents {
			if _, ok := r.commits[p]; !ok {
				apiError(c, http.StatusUnprocessableEntity, "Parent SHA does not exist or is not a commit object")
				return
			}
		}
		cm := s.store.putCommit(r, req.Tree, req.Message, req.Parents)
		c.JSON(http.StatusCreated, commitJSON(c, r, cm))
	})
}

func (s *Server) getTree(c *gin.Context) {
	recursive := c.Query("recursive") != ""
	s.withRepo(c, false, func(r *repo) {
		entries, ok := r.trees[c.Param("sha")]
		if !ok {
			apiError(c, http.StatusNotFound, "Not Found")
			return
		}
		paths := slices.Sorted(maps.Keys(entries))

		var out []gin.H
		if recursive {
			for _, d := range dirs(paths) {
				out = append(out, gin.H{"path": d, "mode": "040000", "type": "tree"})
			}
		}
		for _, p := range paths {
			if !recursive && strings.Contains(p, "/") {
				continue
			}
			out = append(out, gin.H{
				"path": p,
				"mode": "100644",
				"type": "blob",
				"sha":  entries[p],
				"size": len(r.blobs[entries[p]]),
			})
		}
		if !recursive {
			for _, d := range dirs(paths) {
				if !strings.Contains(d, "/") {
					out = append(out, gin.H{"path": d, "mode": "040000", "type": "tree"})
				}
			}
		}
		c.JSON(http.StatusOK, gin.H{"sha": c.Param("sha"), "tree": out, "truncated": false})
	})
}

func (s *Server) createTree(c *gin.Context) {
	var req struct {
		BaseTree string `json:"base_tree"`
		Tree     []struct {
			Path    string  `json:"path"`
			SHA     *string `json:"sha"`
			Content *string `json:"content"`
		} `json:"tree"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusUnprocessableEntity, "Invalid request.\n\n"+err.Error())
		return
	}
	s.withRepo(c, true, func(r *repo) {
		entries := map[string]string{}
		if req.BaseTree != "" {
			base, ok := r.trees[req.BaseTree]
			if !ok {
				apiError(c, http.StatusUnprocessableEntity, "Invalid tree info")
				return
			}
			for p, sha := range base {
				entries[p] = sha
			}
		}
		for _, e := range req.Tree {
			p := path.Clean(strings.TrimPrefix(e.Path, "/"))
			switch {
			case e.Content != nil:
				entries[p] = r.putBlob([]byte(*e.Content))
			case e.SHA != nil:
				if _, ok := r.blobs[*e.SHA]; !ok {
					apiError(c, http.StatusUnprocessableEntity, "Invalid tree info")
					return
				}
				entries[p] = *e.SHA
			default:
				delete(entries, p)
			}
		}
		sha := r.putTree(entries)
		c.JSON(http.StatusCreated, gin.H{"sha": sha})
	})
}

func (s *Server) createBlob(c *gin.Context) {
	var req struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusUnprocessableEntity, "Invalid request.\n\n"+err.Error())
		return
	}
	data := []byte(req.Content)
	if req.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			apiError(c, http.StatusUnprocessableEntity, "Invalid base64 content")
			return
		}
		data = decoded
	}
	s.withRepo(c, true, func(r *repo) {
		sha := r.putBlob(data)
		c.JSON(http.StatusCreated, gin.H{"sha": sha, "url": fmt.Sprintf("%s/repos/%s/git/blobs/%s", webURL(c), r.key(), sha)})
	})
}

// ─── contents & branches ─────────────────────────────────────────────────────

func (s *Server) getContents(c *gin.Context) {
	p := strings.Trim(c.Param("path"), "/")
	ref := c.Query("ref")
	s.withRepo(c, false, func(r *repo) {
		if r.empty() {
			apiError(c, http.StatusNotFound, "This repository is empty.")
			return
		}
		files, ok := r.files(ref)
		if !ok {
			apiError(c, http.StatusNotFound, "No commit found for the ref "+ref)
			return
		}

		if sha, ok := files[p]; ok {
			data := r.blobs[sha]
			c.JSON(http.StatusOK, gin.H{
				"type":     "file",
				"encoding": "base64",
				"size":     len(data),
				"name":     path.Base(p),
				"path":     p,
				"sha":      sha,
				"content":  base64.StdEncoding.EncodeToString(data),
			})
			return
		}

		prefix := p
		if prefix != "" {
			prefix += "/"
		}
		seen := map[string]bool{}
		var entries []gin.H
		for _, fp := range slices.Sorted(maps.Keys(files)) {
			if !strings.HasPrefix(fp, prefix) {
				continue
			}
			rest := fp[len(prefix):]
			name, kind := rest, "file"
			if i := strings.Index(rest, "/"); i != -1 {
				name, kind = rest[:i], "dir"
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			entries = append(entries, gin.H{"type": kind, "name": name, "path": prefix + name})
		}
		if len(entries) == 0 {
			apiError(c, http.StatusNotFound, "Not Found")
			return
		}
		c.JSON(http.StatusOK, entries)
	})
}

func (s *Server) raw(c *gin.Context) {
	content, ok := s.File(c.Param("owner"), c.Param("repo"), c.Param("ref"), c.Param("path"))
	if !ok {
		c.String(http.StatusNotFound, "404: Not Found")
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
}

func (s *Server) listBranches(c *gin.Context) {
	s.withRepo(c, false, func(r *repo) {
		out := make([]gin.H, 0, len(r.refs))
		for _, name := range slices.Sorted(maps.Keys(r.refs)) {
			out = append(out, gin.H{"name": name, "commit": gin.H{"sha": r.refs[name]}, "protected": false})
		}
		c.JSON(http.StatusOK, out)
	})
}

func (s *Server) compare(c *gin.Context) {
	base, head, ok := strings.Cut(strings.TrimPrefix(c.Param("basehead"), "/"), "...")
	if !ok {
		apiError(c, http.StatusNotFound, "Not Found")
		return
	}
	s.withRepo(c, false, func(r *repo) {
		baseCommit, ok1 := r.resolve(base)
		headCommit, ok2 := r.resolve(head)
		if !ok1 || !ok2 {
			apiError(c, http.StatusNotFound, "Not Found")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ahead",
			"files":  fileChanges(r.trees[baseCommit.Tree], r.trees[headCommit.Tree]),
		})
	})
}

func fileChanges(base, head map[string]string) []gin.H {
	out := []gin.H{}
	for _, p := range changedPaths(base, head) {
		status := "modified"
		if _, ok := base[p]; !ok {
			status = "added"
		} else if _, ok := head[p]; !ok {
			status = "removed"
		}
		out = append(out, gin.H{"filename": p, "status": status})
	}
	return out
}

// ─── pulls ───────────────────────────────────────────────────────────────────

func pullJSON(c *gin.Context, r *repo, pr PullRequest) gin.H {
	state := pr.State
	if state == stateMerged {
		state = stateClosed
	}
	return gin.H{
		"number":   pr.Number,
		"state":    state,
		"merged":   pr.State == stateMerged,
		"title":    pr.Title,
		"body":     pr.Body,
		"html_url": fmt.Sprintf("%s/%s/pull/%d", webURL(c), r.key(), pr.Number),
		"head":     gin.H{"ref": pr.Head, "sha": r.refs[pr.Head], "label": r.owner + ":" + pr.Head},
		"base":     gin.H{"ref": pr.Base, "sha": r.refs[pr.Base], "label": r.owner + ":" + pr.Base},
	}
}

func (s *Server) listPulls(c *gin.Context) {
	state := c.DefaultQuery("state", stateOpen)
	head := c.Query("head")
	s.withRepo(c, false, func(r *repo) {
		if _, branch, ok := strings.Cut(head, ":"); ok {
			head = branch
		}
		out := []gin.H{}
		for i := len(r.pulls) - 1; i >= 0; i-- {
			pr := r.pulls[i]
			open := pr.State == stateOpen
			if (state == stateOpen && !open) || (state == stateClosed && open) {
				continue
			}
			if head != "" && pr.Head != head {
				continue
			}
			out = append(out, pullJSON(c, r, pr))
		}
		c.JSON(http.StatusOK, out)
	})
}

func (s *Server) createPull(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"required"`
		Body  string `json:"body"`
		Head  string `json:"head"  binding:"required"`
		Base  string `json:"base"  binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusUnprocessableEntity, "Validation Failed")
		return
	}
	if _, branch, ok := strings.Cut(req.Head, ":"); ok {
		req.Head = branch
	}
	s.withRepo(c, true, func(r *repo) {
		head, okHead := r.resolve(req.Head)
		base, okBase := r.resolve(req.Base)
		if !okHead || !okBase {
			apiError(c, http.StatusUnprocessableEntity, "Validation Failed")
			return
		}
		for _, pr := range r.pulls {
			if pr.State == stateOpen && pr.Head == req.Head && pr.Base == req.Base {
				apiError(c, http.StatusUnprocessableEntity,
					fmt.Sprintf("A pull request already exists for %s:%s.", r.owner, req.Head))
				return
			}
		}
		if head.SHA == base.SHA || r.isAncestor(head.SHA, base.SHA) {
			apiError(c, http.StatusUnprocessableEntity,
				fmt.Sprintf("No commits between %s and %s", req.Base, req.Head))
			return
		}

		pr := PullRequest{
			Number: len(r.pulls) + 1,
			Title:  req.Title,
			Body:   req.Body,
			Head:   req.Head,
			Base:   req.Base,
			State:  stateOpen,
		}
		r.pulls = append(r.pulls, pr)
		s.log.Info("PR created", "repo", r.key(), "number", pr.Number, "head", pr.Head, "title", pr.Title)
		c.JSON(http.StatusCreated, pullJSON(c, r, pr))
	})
}

func pullNumber(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		apiError(c, http.StatusNotFound, "Not Found")
		return 0, false
	}
	return n, true
}

func (s *Server) getPull(c *gin.Context) {
	n, ok := pullNumber(c)
	if !ok {
		return
	}
	s.withRepo(c, false, func(r *repo) {
		pr := r.pull(n)
		if pr == nil {
			apiError(c, http.StatusNotFound, "Not Found")
			return
		}
		c.JSON(http.StatusOK, pullJSON(c, r, *pr))
	})
}

func (s *Server) listPullFiles(c *gin.Context) {
	n, ok := pullNumber(c)
	if !ok {
		return
	}
	s.withRepo(c, false, func(r *repo) {
		pr := r.pull(n)
		if pr == nil {
			apiError(c, http.StatusNotFound, "Not Found")
			return
		}
		base, _ := r.files(pr.Base)
		head, _ := r.files(pr.Head)
		c.JSON(http.StatusOK, fileChanges(base, head))
	})
}
