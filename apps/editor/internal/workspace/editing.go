package workspace

import (
	"context"
	"fmt"

	"github.com/tilsley/quill/apps/editor/internal/drafts"
	"github.com/tilsley/quill/apps/editor/internal/frontmatter"
)

// SetBuffer replaces the buffer with what the user typed.
func (c *Controller) SetBuffer(md string) {
	c.mu.Lock()
	c.buffer = md
	c.mu.Unlock()
	c.sync.Observe(md)
}

// Fields reads the frontmatter panel values from the buffer.
func (c *Controller) Fields() frontmatter.Fields {
	return frontmatter.ReadFields(frontmatter.Parse(c.buf()).Data)
}

// ApplyFrontmatter validates f, rewrites the buffer's YAML block with it and
// returns the new buffer. Keys the panel does not know about are kept.
func (c *Controller) ApplyFrontmatter(f frontmatter.Fields) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	out, err := frontmatter.Update(c.buf(), f.Apply)
	if err != nil {
		return "", err
	}
	c.SetBuffer(out)
	return out, nil
}

// UndoRestore puts back the buffer a draft restore replaced. It reports
// false when there is nothing to undo.
func (c *Controller) UndoRestore() bool {
	prev, ok := c.sync.UndoRestore()
	if !ok {
		return false
	}
	c.SetBuffer(prev)
	return true
}

// RestoreDraft re-applies the stored draft for the current key.
func (c *Controller) RestoreDraft(ctx context.Context) (bool, error) {
	md := c.buf()
	content, ok, err := c.sync.Restore(ctx, md)
	if err != nil || !ok {
		return false, err
	}
	c.mu.Lock()
	if c.buffer == md {
		c.buffer = content
	}
	c.mu.Unlock()
	return true, nil
}

// ClearDraft discards the draft for the current key. The buffer is kept.
func (c *Controller) ClearDraft(ctx context.Context) error {
	return c.sync.Clear(ctx, c.buf())
}

// ListDrafts loads every draft for the configured repository into the
// picker, newest first.
func (c *Controller) ListDrafts(ctx context.Context) ([]drafts.Record, error) {
	const op = "list_drafts"
	ctx, span, gen := c.begin(ctx, op, false)
	defer span.End()

	co, _, err := c.coordinate()
	if err != nil {
		return nil, c.finish(ctx, op, gen, err, nil)
	}
	list, err := c.drafts.List(ctx, drafts.Filter{Owner: co.Owner, Repo: co.Repo})
	if err != nil {
		return nil, c.finish(ctx, op, gen, LocalStorageError{Op: "list drafts", Err: err}, nil)
	}
	c.apply(gen, func() { c.picker = Picker{Kind: PickerDrafts, Drafts: list} })
	return list, c.finish(ctx, op, gen, nil, Idle{})
}

// OpenDraft loads a stored draft into the buffer and binds its branch and
// path as the working context.
func (c *Controller) OpenDraft(ctx context.Context, key drafts.Key) error {
	const op = "open_draft"
	ctx, span, gen := c.begin(ctx, op, true)
	defer span.End()

	s := c.settings.Settings()
	rec, err := c.drafts.Get(ctx, key)
	if err != nil {
		return c.finish(ctx, op, gen, LocalStorageError{Op: "get draft", Err: err}, nil)
	}
	if rec == nil {
		return c.finish(ctx, op, gen, NotFoundError{Message: fmt.Sprintf("no draft for %s on %s", key.Path, key.Branch)}, nil)
	}

	co := Coordinate{Owner: key.Owner, Repo: key.Repo}
	if !c.apply(gen, func() {
		c.buffer = rec.Content
		c.wctx = &WorkingContext{Branch: key.Branch, URL: TreeURL(s.WebURL, co, key.Branch)}
		c.currentRef = key.Branch
		c.activePath = key.Path
		c.picker = Picker{}
	}) {
		return c.finish(ctx, op, gen, ErrSuperseded, nil)
	}
	c.rebindDrafts(ctx)
	return c.finish(ctx, op, gen, nil, Idle{})
}

// DeleteDraft removes a stored draft. Deleting the draft for the current key
// also resets reconciliation.
func (c *Controller) DeleteDraft(ctx context.Context, key drafts.Key) error {
	if key == c.sync.Key() {
		if err := c.sync.Clear(ctx, c.buf()); err != nil {
			return err
		}
	} else if err := c.drafts.Delete(ctx, key); err != nil {
		return LocalStorageError{Op: "delete draft", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.picker.Kind == PickerDrafts {
		kept := make([]drafts.Record, 0, len(c.picker.Drafts))
		for _, r := range c.picker.Drafts {
			if r.Key != key {
				kept = append(kept, r)
			}
		}
		c.picker.Drafts = kept
	}
	return nil
}

// RestorePublished replaces the buffer with the active file as published on
// the default branch and discards the local drafts for it.
func (c *Controller) RestorePublished(ctx context.Context) error {
	const op = "restore_published"
	ctx, span, gen := c.begin(ctx, op, false)
	defer span.End()

	co, s, err := c.coordinate()
	if err != nil {
		return c.finish(ctx, op, gen, err, nil)
	}
	c.mu.Lock()
	path := c.activePath
	c.mu.Unlock()
	if path == "" {
		return c.finish(ctx, op, gen, ErrNoActiveFile, nil)
	}

	content, err := c.host.GetFileContent(ctx, co, path, s.DefaultBranch)
	if err != nil {
		return c.finish(ctx, op, gen, err, nil)
	}
	if !c.apply(gen, func() { c.buffer = content }) {
		return c.finish(ctx, op, gen, ErrSuperseded, nil)
	}

	if err := c.sync.Clear(ctx, content); err != nil {
		c.log.Warn("clear draft after restore failed", "path", path, "error", err)
	}
	published := drafts.Key{Owner: co.Owner, Repo: co.Repo, Branch: s.DefaultBranch, Path: path}
	if published != c.sync.Key() {
		if err := c.drafts.Delete(ctx, published); err != nil {
			c.log.Warn("delete published draft failed", "key", published.String(), "error", err)
		}
	}
	return c.finish(ctx, op, gen, nil, Idle{})
}

// UploadAsset commits a binary file to the working branch and returns the
// Markdown image link to insert. An empty path defaults to
// {assetsDir}/{year}/{month}/{filename}; an empty alt to the file's base name.
func (c *Controller) UploadAsset(ctx context.Context, filename string, data []byte, path, alt string) (*UploadedAsset, error) {
	const op = "upload_asset"
	ctx, span, gen := c.begin(ctx, op, false)
	defer span.End()

	co, s, err := c.coordinate()
	if err != nil {
		return nil, c.finish(ctx, op, gen, err, nil)
	}
	if path == "" {
		path = DefaultAssetPath(s.AssetsDir, DerivedDate(c.buf(), c.clock.Now()), filename)
	}
	if alt == "" {
		alt = AltText(filename)
	}

	md := c.buf()
	wc, gen, switched, err := c.ensureBranch(ctx, co, s, gen)
	if err != nil {
		return nil, c.finish(ctx, op, gen, err, nil)
	}
	if switched {
		defer c.attachDrafts(ctx, gen, md)
	}
	res, err := c.host.UploadBinary(ctx, co, wc.Branch, path, data, "chore: add image "+path)
	if err != nil {
		return nil, c.finish(ctx, op, gen, err, nil)
	}
	c.metrics.commit(ctx, "asset")
	c.log.Info("uploaded asset", "branch", wc.Branch, "path", path, "bytes", len(data))

	asset := &UploadedAsset{Path: path, Markdown: fmt.Sprintf("![%s](%s)", alt, path), CommitSHA: res.CommitSHA}
	if !c.apply(gen, func() {}) {
		return asset, c.finish(ctx, op, gen, ErrSuperseded, nil)
	}
	return asset, c.finish(ctx, op, gen, nil, Succeeded{URL: wc.URL})
}
