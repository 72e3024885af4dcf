// Package workspace is the working-context controller: it decides which
// branch an edit lands on, when branches and change requests get created,
// and keeps the editor buffer reconciled with local drafts.
package workspace

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tilsley/quill/apps/editor/internal/config"
	"github.com/tilsley/quill/apps/editor/internal/drafts"
	"github.com/tilsley/quill/apps/editor/internal/frontmatter"
)

// PickerKind names the picker the presentation layer should show.
type PickerKind string

const (
	PickerNone           PickerKind = ""
	PickerFiles          PickerKind = "files"
	PickerChangeRequests PickerKind = "changeRequests"
	PickerBranches       PickerKind = "branches"
	PickerDrafts         PickerKind = "drafts"
)

// Picker is the open picker and the items loaded for it.
type Picker struct {
	Kind           PickerKind      `json:"kind"`
	ChangeRequests []ChangeRequest `json:"changeRequests,omitempty"`
	Branches       []Branch        `json:"branches,omitempty"`
	Drafts         []drafts.Record `json:"drafts,omitempty"`
}

// State is an immutable snapshot of the controller for rendering.
type State struct {
	Context    *WorkingContext
	CurrentRef string
	ActivePath string
	Buffer     string
	Status     Status
	Draft      DraftStatus
	DraftKey   drafts.Key
	Paths      []string
	Picker     Picker
}

// Controller owns the working context. Its lock is never held across a
// remote call or a draft store call.
type Controller struct {
	host     RepositoryHost
	drafts   DraftStore
	settings config.Provider
	clock    clockwork.Clock
	log      *slog.Logger
	tracer   trace.Tracer
	metrics  metrics
	sync     *DraftSync

	mu         sync.Mutex
	gen        uint64
	wctx       *WorkingContext
	currentRef string
	activePath string
	buffer     string
	status     Status
	paths      []string
	picker     Picker
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock. Tests pass a fake clock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// NewController builds a controller whose buffer holds a fresh post.
func NewController(host RepositoryHost, store DraftStore, settings config.Provider, log *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		host:     host,
		drafts:   store,
		settings: settings,
		clock:    clockwork.NewRealClock(),
		log:      log,
		tracer:   otel.Tracer(instrName),
		metrics:  newMetrics(),
		status:   Idle{},
	}
	for _, o := range opts {
		o(c)
	}
	c.sync = NewDraftSync(store, c.clock, log)
	c.buffer = NewDocument(settings.Settings(), c.clock.Now())
	return c
}

// NewDocument is the buffer a new session starts with: a frontmatter block
// seeded from the configured defaults followed by a heading.
func NewDocument(s config.Settings, now time.Time) string {
	data := maps.Clone(s.FrontmatterDefaults)
	if data == nil {
		data = map[string]any{}
	}
	setDefault := func(k string, v any) {
		if _, ok := data[k]; !ok {
			data[k] = v
		}
	}
	setDefault("title", DefaultTitle)
	setDefault("date", now.Format(time.DateOnly))
	setDefault("tags", []any{})
	setDefault("draft", true)

	out, err := frontmatter.Serialize(data, "\n# "+DefaultTitle+"\n")
	if err != nil {
		return "# " + DefaultTitle + "\n"
	}
	return out
}

// State returns a snapshot of everything the presentation layer renders.
func (c *Controller) State() State {
	draft := c.sync.Status()

	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{
		CurrentRef: c.currentRef,
		ActivePath: c.activePath,
		Buffer:     c.buffer,
		Status:     c.status,
		Draft:      draft,
		DraftKey:   c.draftKeyLocked(),
		Paths:      append([]string(nil), c.paths...),
		Picker:     c.picker,
	}
	if c.wctx != nil {
		wc := *c.wctx
		st.Context = &wc
	}
	return st
}

// Close stops draft autosave.
func (c *Controller) Close() {
	c.sync.Stop()
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (c *Controller) coordinate() (Coordinate, config.Settings, error) {
	s := c.settings.Settings()
	co := Coordinate{Owner: s.Owner, Repo: s.Repo}
	switch {
	case co.Owner == "":
		return co, s, MissingConfigError{Field: "repo.owner"}
	case co.Repo == "":
		return co, s, MissingConfigError{Field: "repo.repo"}
	}
	return co, s, nil
}

// begin marks op as in flight and returns the generation it runs under.
// A switching op bumps the generation first so every earlier in-flight
// result is discarded.
func (c *Controller) begin(ctx context.Context, op string, switching bool) (context.Context, trace.Span, uint64) {
	ctx, span := c.tracer.Start(ctx, "workspace."+op)
	c.mu.Lock()
	defer c.mu.Unlock()
	if switching {
		c.gen++
	}
	c.status = Loading{Op: op}
	return ctx, span, c.gen
}

// apply runs fn under the lock if no context switch happened since gen.
func (c *Controller) apply(gen uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	fn()
	return true
}

// finish records the outcome of op. The status is only written when gen is
// still current.
func (c *Controller) finish(ctx context.Context, op string, gen uint64, err error, done Status) error {
	c.metrics.record(ctx, op, err)
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
	}
	if errors.Is(err, ErrSuperseded) {
		c.log.Debug("result discarded after context switch", "op", op)
		return err
	}

	c.mu.Lock()
	if c.gen == gen {
		if err != nil {
			c.status = Failed{Message: err.Error()}
		} else {
			c.status = done
		}
	}
	c.mu.Unlock()

	if err != nil {
		if expected(err) {
			c.log.Warn("operation failed", "op", op, "error", err)
		} else {
			c.log.Error("operation failed", "op", op, "error", err)
		}
	}
	return err
}

func expected(err error) bool {
	var (
		mc MissingConfigError
		nf NotFoundError
		cf ConflictError
		ae AlreadyExistsError
	)
	return errors.As(err, &mc) || errors.As(err, &nf) || errors.As(err, &cf) || errors.As(err, &ae) ||
		errors.Is(err, ErrNoActiveFile) || errors.Is(err, ErrNoWorkingContext)
}

// effectiveRefLocked is the ref files are read from: the bound branch, else
// the browsed ref, else the default branch.
func (c *Controller) effectiveRefLocked(s config.Settings) string {
	switch {
	case c.wctx != nil:
		return c.wctx.Branch
	case c.currentRef != "":
		return c.currentRef
	default:
		return s.DefaultBranch
	}
}

func (c *Controller) draftKeyLocked() drafts.Key {
	s := c.settings.Settings()
	branch := c.currentRef
	if c.wctx != nil {
		branch = c.wctx.Branch
	}
	return drafts.Key{Owner: s.Owner, Repo: s.Repo, Branch: branch, Path: c.activePath}
}

// rebindDrafts points draft reconciliation at the current key and applies a
// restored draft if the buffer has not moved on in the meantime.
func (c *Controller) rebindDrafts(ctx context.Context) {
	c.mu.Lock()
	key := c.draftKeyLocked()
	buf := c.buffer
	gen := c.gen
	c.mu.Unlock()

	content, restored, epoch := c.sync.bind(ctx, key, buf, true)
	if !restored {
		return
	}
	replaced := false
	c.apply(gen, func() {
		if c.buffer == buf {
			c.buffer = content
			replaced = true
		}
	})
	if !replaced {
		// The buffer moved on during the lookup: keep it, drop this restore.
		c.sync.UndoRestoreIf(epoch)
	}
}

// attachDrafts binds the current key without restoring a stored draft, as
// long as gen is still current. baseline is the content last written for the
// key; a buffer that differs from it is queued for autosave.
func (c *Controller) attachDrafts(ctx context.Context, gen uint64, baseline string) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	key := c.draftKeyLocked()
	c.mu.Unlock()

	c.sync.Attach(ctx, key, baseline)
	if buf := c.buf(); buf != baseline {
		c.sync.Observe(buf)
	}
}

func (c *Controller) buf() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer
}
