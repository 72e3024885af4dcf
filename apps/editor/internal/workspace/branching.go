package workspace

import (
	"context"
	"errors"

	"github.com/tilsley/quill/apps/editor/internal/config"
)

// EnsureWorkingBranch binds a non-default branch if the context is unset or
// still on the default branch. The branch is {prefix}{slug} forked from the
// default branch. Creation failures do not stop the bind: the branch most
// likely exists already.
func (c *Controller) EnsureWorkingBranch(ctx context.Context) (WorkingContext, error) {
	const op = "ensure_working_branch"
	ctx, span, gen := c.begin(ctx, op, false)
	defer span.End()

	co, s, err := c.coordinate()
	if err != nil {
		return WorkingContext{}, c.finish(ctx, op, gen, err, nil)
	}
	wc, gen, switched, err := c.ensureBranch(ctx, co, s, gen)
	if switched {
		c.rebindDrafts(ctx)
	}
	return wc, c.finish(ctx, op, gen, err, Idle{})
}

// ensureBranch returns the bound working context, creating and binding one
// first when needed, plus the generation the caller continues under.
// switched reports a new binding; the caller rebinds drafts for it, since
// the draft key changed with the branch.
func (c *Controller) ensureBranch(ctx context.Context, co Coordinate, s config.Settings, gen uint64) (wc WorkingContext, next uint64, switched bool, err error) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return WorkingContext{}, gen, false, ErrSuperseded
	}
	if c.wctx != nil && c.wctx.Branch != s.DefaultBranch {
		bound := *c.wctx
		c.mu.Unlock()
		return bound, gen, false, nil
	}
	md := c.buffer
	c.mu.Unlock()

	p := derivePlan(md, s, c.clock.Now())
	err = c.host.CreateBranch(ctx, co, s.DefaultBranch, p.branch)
	var exists AlreadyExistsError
	switch {
	case err == nil:
		c.log.Info("created working branch", "branch", p.branch, "base", s.DefaultBranch)
	case errors.As(err, &exists):
		c.log.Debug("working branch already exists, reusing", "branch", p.branch)
	default:
		c.log.Warn("create working branch failed, binding anyway", "branch", p.branch, "error", err)
	}

	wc = WorkingContext{Branch: p.branch, URL: TreeURL(s.WebURL, co, p.branch)}
	next = gen
	if !c.apply(gen, func() {
		c.gen++
		next = c.gen
		bound := wc
		c.wctx = &bound
		c.currentRef = p.branch
	}) {
		return WorkingContext{}, gen, false, ErrSuperseded
	}
	return wc, next, true, nil
}

// CreateChangeRequest commits the buffer as a new post on a fresh branch and
// opens a change request for it. The path, branch and title come from the
// configured templates.
func (c *Controller) CreateChangeRequest(ctx context.Context) (*CreatedChangeRequest, error) {
	const op = "create_change_request"
	ctx, span, gen := c.begin(ctx, op, false)
	defer span.End()

	co, s, err := c.coordinate()
	if err != nil {
		return nil, c.finish(ctx, op, gen, err, nil)
	}

	md := c.buf()
	p := derivePlan(md, s, c.clock.Now())
	title := RenderTemplate(s.TitleTemplate, map[string]string{
		"title":  p.title,
		"path":   p.path,
		"branch": p.branch,
	})
	body := ChangeRequestBody(p.path, p.branch)

	res, err := c.host.CreateChangeRequestWithCommit(ctx, co, s.DefaultBranch, p.branch, title, body,
		[]FileChange{{Path: p.path, Content: md}})
	if err != nil {
		return nil, c.finish(ctx, op, gen, err, nil)
	}
	c.metrics.commit(ctx, "create")
	if res.HeadBranch == "" {
		res.HeadBranch = p.branch
	}
	c.log.Info("opened change request", "number", res.Number, "branch", res.HeadBranch, "path", p.path)

	next := gen
	if !c.apply(gen, func() {
		c.gen++
		next = c.gen
		n := res.Number
		c.wctx = &WorkingContext{ChangeRequest: &n, Branch: res.HeadBranch, URL: res.URL}
		c.currentRef = res.HeadBranch
		c.activePath = p.path
	}) {
		return res, c.finish(ctx, op, gen, ErrSuperseded, nil)
	}
	c.rebindDrafts(ctx)
	return res, c.finish(ctx, op, next, nil, Succeeded{URL: res.URL})
}

// UpdateChangeRequest commits the buffer to the active path on the working
// branch, creating the branch first when browsing the default branch.
func (c *Controller) UpdateChangeRequest(ctx context.Context) (string, error) {
	const op = "update_change_request"
	ctx, span, gen := c.begin(ctx, op, false)
	defer span.End()

	co, s, err := c.coordinate()
	if err != nil {
		return "", c.finish(ctx, op, gen, err, nil)
	}
	c.mu.Lock()
	path := c.activePath
	c.mu.Unlock()
	if path == "" {
		return "", c.finish(ctx, op, gen, ErrNoActiveFile, nil)
	}

	// Snapshot before the branch switch: the commit carries what the user saw.
	md := c.buf()
	wc, gen, switched, err := c.ensureBranch(ctx, co, s, gen)
	if err != nil {
		return "", c.finish(ctx, op, gen, err, nil)
	}
	if switched {
		defer c.attachDrafts(ctx, gen, md)
	}

	sha, err := c.host.CommitToBranch(ctx, co, wc.Branch, "chore: update "+path,
		[]FileChange{{Path: path, Content: md}})
	if err != nil {
		return "", c.finish(ctx, op, gen, err, nil)
	}
	c.metrics.commit(ctx, "update")
	c.log.Info("committed update", "branch", wc.Branch, "path", path, "sha", sha)

	if !c.apply(gen, func() {}) {
		return sha, c.finish(ctx, op, gen, ErrSuperseded, nil)
	}
	return sha, c.finish(ctx, op, gen, nil, Succeeded{URL: wc.URL})
}

// CreateNewFileInBranch commits the buffer as a new file at path on the
// working branch and makes it the active path. An empty path uses
// DefaultNewFilePath.
func (c *Controller) CreateNewFileInBranch(ctx context.Context, path string) (string, error) {
	const op = "create_new_file"
	ctx, span, gen := c.begin(ctx, op, false)
	defer span.End()

	co, s, err := c.coordinate()
	if err != nil {
		return "", c.finish(ctx, op, gen, err, nil)
	}
	if path == "" {
		path = c.DefaultNewFilePath()
	}

	md := c.buf()
	wc, gen, switched, err := c.ensureBranch(ctx, co, s, gen)
	if err != nil {
		return "", c.finish(ctx, op, gen, err, nil)
	}

	sha, err := c.host.CommitToBranch(ctx, co, wc.Branch, "chore: add "+path,
		[]FileChange{{Path: path, Content: md}})
	if err != nil {
		if switched {
			c.attachDrafts(ctx, gen, md)
		}
		return "", c.finish(ctx, op, gen, err, nil)
	}
	c.metrics.commit(ctx, "add")
	c.log.Info("committed new file", "branch", wc.Branch, "path", path, "sha", sha)

	if !c.apply(gen, func() { c.activePath = path }) {
		return sha, c.finish(ctx, op, gen, ErrSuperseded, nil)
	}
	c.attachDrafts(ctx, gen, md)
	return sha, c.finish(ctx, op, gen, nil, Succeeded{URL: wc.URL})
}

// OpenOrCreateChangeRequestForBranch attaches the change request whose head
// is the working branch, opening one if none exists. Calling it again for
// the same branch never opens a second one.
func (c *Controller) OpenOrCreateChangeRequestForBranch(ctx context.Context) (*ChangeRequestRef, error) {
	const op = "open_change_request_for_branch"
	ctx, span, gen := c.begin(ctx, op, false)
	defer span.End()

	co, s, err := c.coordinate()
	if err != nil {
		return nil, c.finish(ctx, op, gen, err, nil)
	}
	c.mu.Lock()
	var wc *WorkingContext
	if c.wctx != nil {
		bound := *c.wctx
		wc = &bound
	}
	path := c.activePath
	c.mu.Unlock()

	if wc == nil || wc.Branch == s.DefaultBranch {
		return nil, c.finish(ctx, op, gen, ErrNoWorkingContext, nil)
	}
	if wc.ChangeRequest != nil {
		ref := &ChangeRequestRef{Number: *wc.ChangeRequest, URL: wc.URL}
		return ref, c.finish(ctx, op, gen, nil, Succeeded{URL: wc.URL})
	}

	ref, err := c.host.FindChangeRequestForBranch(ctx, co, wc.Branch)
	if err != nil {
		return nil, c.finish(ctx, op, gen, err, nil)
	}
	if ref == nil {
		ref, err = c.host.OpenChangeRequestForBranch(ctx, co, wc.Branch, s.DefaultBranch,
			BranchTitle(wc.Branch), BranchBody(path))
		if err != nil {
			return nil, c.finish(ctx, op, gen, err, nil)
		}
		c.log.Info("opened change request for branch", "branch", wc.Branch, "number", ref.Number)
	}

	if !c.apply(gen, func() {
		if c.wctx != nil && c.wctx.Branch == wc.Branch {
			n := ref.Number
			c.wctx = &WorkingContext{ChangeRequest: &n, Branch: wc.Branch, URL: ref.URL}
		}
	}) {
		return ref, c.finish(ctx, op, gen, ErrSuperseded, nil)
	}
	return ref, c.finish(ctx, op, gen, nil, Succeeded{URL: ref.URL})
}
