package workspace

import (
	"context"
)

// SwitchToDefaultBranch drops the working context and browses the default
// branch. The active file is re-read from the default branch; if that fails
// (typically because the file only exists on the working branch) the buffer
// is left as it is.
func (c *Controller) SwitchToDefaultBranch(ctx context.Context) error {
	const op = "switch_to_default"
	ctx, span, gen := c.begin(ctx, op, true)
	defer span.End()

	co, s, err := c.coordinate()
	if err != nil {
		return c.finish(ctx, op, gen, err, nil)
	}

	c.mu.Lock()
	c.wctx = nil
	c.currentRef = s.DefaultBranch
	path := c.activePath
	c.mu.Unlock()

	if path != "" {
		content, err := c.host.GetFileContent(ctx, co, path, s.DefaultBranch)
		if err != nil {
			c.log.Info("active file not readable on default branch, keeping buffer", "path", path, "error", err)
		} else if !c.apply(gen, func() { c.buffer = content }) {
			return c.finish(ctx, op, gen, ErrSuperseded, nil)
		}
	}
	c.rebindDrafts(ctx)

	return c.finish(ctx, op, gen, c.loadTree(ctx, co, s.DefaultBranch, gen), Idle{})
}

// SelectChangeRequest binds the change request's head branch, loads its
// file tree and opens the file picker.
func (c *Controller) SelectChangeRequest(ctx context.Context, number int) error {
	const op = "select_change_request"
	ctx, span, gen := c.begin(ctx, op, true)
	defer span.End()

	co, _, err := c.coordinate()
	if err != nil {
		return c.finish(ctx, op, gen, err, nil)
	}
	cr, err := c.host.GetChangeRequest(ctx, co, number)
	if err != nil {
		return c.finish(ctx, op, gen, err, nil)
	}
	paths, err := c.host.ListPaths(ctx, co, cr.HeadBranch)
	if err != nil {
		return c.finish(ctx, op, gen, err, nil)
	}

	if !c.apply(gen, func() {
		n := cr.Number
		c.wctx = &WorkingContext{ChangeRequest: &n, Branch: cr.HeadBranch, URL: cr.URL}
		c.currentRef = cr.HeadBranch
		c.paths = paths
		c.picker = Picker{Kind: PickerFiles}
	}) {
		return c.finish(ctx, op, gen, ErrSuperseded, nil)
	}
	c.rebindDrafts(ctx)
	return c.finish(ctx, op, gen, nil, Idle{})
}

// ChooseBranch binds a branch without a change request, loads its file tree
// and opens the file picker.
func (c *Controller) ChooseBranch(ctx context.Context, name string) error {
	const op = "choose_branch"
	ctx, span, gen := c.begin(ctx, op, true)
	defer span.End()

	co, s, err := c.coordinate()
	if err != nil {
		return c.finish(ctx, op, gen, err, nil)
	}
	paths, err := c.host.ListPaths(ctx, co, name)
	if err != nil {
		return c.finish(ctx, op, gen, err, nil)
	}

	if !c.apply(gen, func() {
		c.wctx = &WorkingContext{Branch: name, URL: TreeURL(s.WebURL, co, name)}
		c.currentRef = name
		c.paths = paths
		c.picker = Picker{Kind: PickerFiles}
	}) {
		return c.finish(ctx, op, gen, ErrSuperseded, nil)
	}
	c.rebindDrafts(ctx)
	return c.finish(ctx, op, gen, nil, Idle{})
}

// OpenFile loads path from the effective ref into the buffer and makes it
// the active path. With no working context yet, the ref it was read from
// becomes a branch-only context.
func (c *Controller) OpenFile(ctx context.Context, path string) error {
	const op = "open_file"
	ctx, span, gen := c.begin(ctx, op, false)
	defer span.End()

	co, s, err := c.coordinate()
	if err != nil {
		return c.finish(ctx, op, gen, err, nil)
	}
	if path == "" {
		return c.finish(ctx, op, gen, ErrNoActiveFile, nil)
	}
	c.mu.Lock()
	ref := c.effectiveRefLocked(s)
	c.mu.Unlock()

	content, err := c.host.GetFileContent(ctx, co, path, ref)
	if err != nil {
		return c.finish(ctx, op, gen, err, nil)
	}

	if !c.apply(gen, func() {
		c.buffer = content
		c.activePath = path
		if c.wctx == nil {
			c.wctx = &WorkingContext{Branch: ref, URL: TreeURL(s.WebURL, co, ref)}
		}
		if c.currentRef == "" {
			c.currentRef = ref
		}
		c.picker = Picker{}
	}) {
		return c.finish(ctx, op, gen, ErrSuperseded, nil)
	}
	c.rebindDrafts(ctx)
	return c.finish(ctx, op, gen, nil, Idle{})
}

// UsePathOnly makes path the active path without reading or committing it.
func (c *Controller) UsePathOnly(ctx context.Context, path string) error {
	if path == "" {
		return ErrNoActiveFile
	}
	c.mu.Lock()
	c.activePath = path
	c.picker = Picker{}
	c.mu.Unlock()
	c.rebindDrafts(ctx)
	return nil
}

// DefaultNewFilePath renders the post path template for the current buffer.
func (c *Controller) DefaultNewFilePath() string {
	return derivePlan(c.buf(), c.settings.Settings(), c.clock.Now()).path
}

// RefreshTree reloads the path list for the effective ref.
func (c *Controller) RefreshTree(ctx context.Context) ([]string, error) {
	const op = "refresh_tree"
	ctx, span, gen := c.begin(ctx, op, false)
	defer span.End()

	co, s, err := c.coordinate()
	if err != nil {
		return nil, c.finish(ctx, op, gen, err, nil)
	}
	c.mu.Lock()
	ref := c.effectiveRefLocked(s)
	if c.currentRef == "" {
		c.currentRef = ref
	}
	c.mu.Unlock()

	if err := c.loadTree(ctx, co, ref, gen); err != nil {
		return nil, c.finish(ctx, op, gen, err, nil)
	}
	return c.State().Paths, c.finish(ctx, op, gen, nil, Idle{})
}

func (c *Controller) loadTree(ctx context.Context, co Coordinate, ref string, gen uint64) error {
	paths, err := c.host.ListPaths(ctx, co, ref)
	if err != nil {
		return err
	}
	if !c.apply(gen, func() { c.paths = paths }) {
		return ErrSuperseded
	}
	return nil
}

// ListChangeRequests loads open change requests into the picker.
func (c *Controller) ListChangeRequests(ctx context.Context) ([]ChangeRequest, error) {
	const op = "list_change_requests"
	ctx, span, gen := c.begin(ctx, op, false)
	defer span.End()

	co, _, err := c.coordinate()
	if err != nil {
		return nil, c.finish(ctx, op, gen, err, nil)
	}
	crs, err := c.host.ListOpenChangeRequests(ctx, co)
	if err != nil {
		return nil, c.finish(ctx, op, gen, err, nil)
	}
	c.apply(gen, func() { c.picker = Picker{Kind: PickerChangeRequests, ChangeRequests: crs} })
	return crs, c.finish(ctx, op, gen, nil, Idle{})
}

// ListBranches loads branches into the picker.
func (c *Controller) ListBranches(ctx context.Context) ([]Branch, error) {
	const op = "list_branches"
	ctx, span, gen := c.begin(ctx, op, false)
	defer span.End()

	co, _, err := c.coordinate()
	if err != nil {
		return nil, c.finish(ctx, op, gen, err, nil)
	}
	branches, err := c.host.ListBranches(ctx, co)
	if err != nil {
		return nil, c.finish(ctx, op, gen, err, nil)
	}
	c.apply(gen, func() { c.picker = Picker{Kind: PickerBranches, Branches: branches} })
	return branches, c.finish(ctx, op, gen, nil, Idle{})
}

// ChangedFiles lists the files the working branch changes relative to the
// default branch: the change request's files when one is attached, else a
// branch comparison.
func (c *Controller) ChangedFiles(ctx context.Context) ([]string, error) {
	const op = "changed_files"
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
	c.mu.Unlock()
	if wc == nil {
		return nil, c.finish(ctx, op, gen, ErrNoWorkingContext, nil)
	}

	var files []string
	if wc.ChangeRequest != nil {
		files, err = c.host.ListChangeRequestFiles(ctx, co, *wc.ChangeRequest)
	} else {
		files, err = c.host.CompareBranchToBase(ctx, co, s.DefaultBranch, wc.Branch)
	}
	if err != nil {
		return nil, c.finish(ctx, op, gen, err, nil)
	}
	return files, c.finish(ctx, op, gen, nil, Idle{})
}

// ClosePicker hides whichever picker is open.
func (c *Controller) ClosePicker() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.picker = Picker{}
}
