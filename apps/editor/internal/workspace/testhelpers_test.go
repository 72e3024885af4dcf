package workspace_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tilsley/quill/apps/editor/internal/config"
	"github.com/tilsley/quill/apps/editor/internal/drafts"
	"github.com/tilsley/quill/apps/editor/internal/localstore"
	"github.com/tilsley/quill/apps/editor/internal/workspace"
	"github.com/tilsley/quill/pkg/logging"
)

// Compile-time interface compliance checks.
var (
	_ workspace.RepositoryHost = (*stubHost)(nil)
	_ workspace.DraftStore     = (*stubDrafts)(nil)
)

func ptr[T any](v T) *T { return &v }

var coord = workspace.Coordinate{Owner: "acme", Repo: "site"}

// ─── stubHost ────────────────────────────────────────────────────────────────

type stubHost struct {
	getFileFn      func(ctx context.Context, path, ref string) (string, error)
	listPathsFn    func(ctx context.Context, ref string) ([]string, error)
	listBranchesFn func(ctx context.Context) ([]workspace.Branch, error)
	createBranchFn func(ctx context.Context, base, name string) error
	listCRsFn      func(ctx context.Context) ([]workspace.ChangeRequest, error)
	getCRFn        func(ctx context.Context, number int) (*workspace.ChangeRequest, error)
	findCRFn       func(ctx context.Context, head string) (*workspace.ChangeRequestRef, error)
	openCRFn       func(ctx context.Context, head, base, title, body string) (*workspace.ChangeRequestRef, error)
	createCRFn     func(ctx context.Context, base, branch, title, body string, changes []workspace.FileChange) (*workspace.CreatedChangeRequest, error)
	commitFn       func(ctx context.Context, branch, message string, changes []workspace.FileChange) (string, error)
	uploadFn       func(ctx context.Context, branch, path string, data []byte, message string) (*workspace.UploadResult, error)
	crFilesFn      func(ctx context.Context, number int) ([]string, error)
	compareFn      func(ctx context.Context, base, head string) ([]string, error)

	mu    sync.Mutex
	calls []string
}

func (h *stubHost) record(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, name)
}

func (h *stubHost) count(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (h *stubHost) GetFileContent(ctx context.Context, _ workspace.Coordinate, path, ref string) (string, error) {
	h.record("GetFileContent")
	if h.getFileFn != nil {
		return h.getFileFn(ctx, path, ref)
	}
	return "", workspace.NotFoundError{Message: "Not Found"}
}

func (h *stubHost) ListPaths(ctx context.Context, _ workspace.Coordinate, ref string) ([]string, error) {
	h.record("ListPaths")
	if h.listPathsFn != nil {
		return h.listPathsFn(ctx, ref)
	}
	return []string{"src/content/a.md"}, nil
}

func (h *stubHost) ListBranches(ctx context.Context, _ workspace.Coordinate) ([]workspace.Branch, error) {
	h.record("ListBranches")
	if h.listBranchesFn != nil {
		return h.listBranchesFn(ctx)
	}
	return []workspace.Branch{{Name: "main"}}, nil
}

func (h *stubHost) CreateBranch(ctx context.Context, _ workspace.Coordinate, base, name string) error {
	h.record("CreateBranch")
	if h.createBranchFn != nil {
		return h.createBranchFn(ctx, base, name)
	}
	return nil
}

func (h *stubHost) ListOpenChangeRequests(ctx context.Context, _ workspace.Coordinate) ([]workspace.ChangeRequest, error) {
	h.record("ListOpenChangeRequests")
	if h.listCRsFn != nil {
		return h.listCRsFn(ctx)
	}
	return nil, nil
}

func (h *stubHost) GetChangeRequest(ctx context.Context, _ workspace.Coordinate, number int) (*workspace.ChangeRequest, error) {
	h.record("GetChangeRequest")
	if h.getCRFn != nil {
		return h.getCRFn(ctx, number)
	}
	return nil, workspace.NotFoundError{Message: "Not Found"}
}

func (h *stubHost) FindChangeRequestForBranch(ctx context.Context, _ workspace.Coordinate, head string) (*workspace.ChangeRequestRef, error) {
	h.record("FindChangeRequestForBranch")
	if h.findCRFn != nil {
		return h.findCRFn(ctx, head)
	}
	return nil, nil
}

func (h *stubHost) OpenChangeRequestForBranch(ctx context.Context, _ workspace.Coordinate, head, base, title, body string) (*workspace.ChangeRequestRef, error) {
	h.record("OpenChangeRequestForBranch")
	if h.openCRFn != nil {
		return h.openCRFn(ctx, head, base, title, body)
	}
	return &workspace.ChangeRequestRef{Number: 1, URL: "https://github.com/acme/site/pull/1"}, nil
}

func (h *stubHost) CreateChangeRequestWithCommit(ctx context.Context, _ workspace.Coordinate, base, branch, title, body string, changes []workspace.FileChange) (*workspace.CreatedChangeRequest, error) {
	h.record("CreateChangeRequestWithCommit")
	if h.createCRFn != nil {
		return h.createCRFn(ctx, base, branch, title, body, changes)
	}
	return &workspace.CreatedChangeRequest{Number: 1, URL: "https://github.com/acme/site/pull/1", HeadBranch: branch}, nil
}

func (h *stubHost) CommitToBranch(ctx context.Context, _ workspace.Coordinate, branch, message string, changes []workspace.FileChange) (string, error) {
	h.record("CommitToBranch")
	if h.commitFn != nil {
		return h.commitFn(ctx, branch, message, changes)
	}
	return "c0ffee", nil
}

func (h *stubHost) UploadBinary(ctx context.Context, _ workspace.Coordinate, branch, path string, data []byte, message string) (*workspace.UploadResult, error) {
	h.record("UploadBinary")
	if h.uploadFn != nil {
		return h.uploadFn(ctx, branch, path, data, message)
	}
	return &workspace.UploadResult{CommitSHA: "c0ffee", BlobSHA: "b10b"}, nil
}

func (h *stubHost) ListChangeRequestFiles(ctx context.Context, _ workspace.Coordinate, number int) ([]string, error) {
	h.record("ListChangeRequestFiles")
	if h.crFilesFn != nil {
		return h.crFilesFn(ctx, number)
	}
	return nil, nil
}

func (h *stubHost) CompareBranchToBase(ctx context.Context, _ workspace.Coordinate, base, head string) ([]string, error) {
	h.record("CompareBranchToBase")
	if h.compareFn != nil {
		return h.compareFn(ctx, base, head)
	}
	return nil, nil
}

// ─── stubDrafts ──────────────────────────────────────────────────────────────

// stubDrafts wraps a real in-memory draft store and counts writes. Hooks run
// before delegating and can fail or block a call.
type stubDrafts struct {
	inner  *drafts.Store
	getFn  func(ctx context.Context, k drafts.Key) error
	saveFn func(ctx context.Context, r drafts.Record) error

	mu    sync.Mutex
	saves []drafts.Record
}

func newStubDrafts() *stubDrafts {
	return &stubDrafts{inner: drafts.NewStore(localstore.NewMemory())}
}

func (d *stubDrafts) Get(ctx context.Context, k drafts.Key) (*drafts.Record, error) {
	if d.getFn != nil {
		if err := d.getFn(ctx, k); err != nil {
			return nil, err
		}
	}
	return d.inner.Get(ctx, k)
}

func (d *stubDrafts) Save(ctx context.Context, r drafts.Record) error {
	if d.saveFn != nil {
		if err := d.saveFn(ctx, r); err != nil {
			return err
		}
	}
	d.mu.Lock()
	d.saves = append(d.saves, r)
	d.mu.Unlock()
	return d.inner.Save(ctx, r)
}

func (d *stubDrafts) Delete(ctx context.Context, k drafts.Key) error {
	return d.inner.Delete(ctx, k)
}

func (d *stubDrafts) List(ctx context.Context, f drafts.Filter) ([]drafts.Record, error) {
	return d.inner.List(ctx, f)
}

func (d *stubDrafts) saveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.saves)
}

func (d *stubDrafts) lastSave() drafts.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saves[len(d.saves)-1]
}

// ─── settings ────────────────────────────────────────────────────────────────

type staticSettings config.Settings

func (s staticSettings) Settings() config.Settings { return config.Settings(s) }

func defaultSettings() staticSettings {
	cfg := config.Merge(config.Defaults(), config.Partial{
		Repo: &config.RepoInfo{Owner: coord.Owner, Repo: coord.Repo},
	})
	return staticSettings(cfg.Settings())
}

// ─── controller fixture ──────────────────────────────────────────────────────

var epoch = time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctrl   *workspace.Controller
	host   *stubHost
	drafts *stubDrafts
	clock  *clockwork.FakeClock
}

func newFixture(t *testing.T, host *stubHost) *fixture {
	t.Helper()
	return newFixtureWith(t, host, defaultSettings())
}

func newFixtureWith(t *testing.T, host *stubHost, settings staticSettings) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	store := newStubDrafts()
	ctrl := workspace.NewController(host, store, settings, logging.Discard(), workspace.WithClock(clock))
	t.Cleanup(ctrl.Close)
	return &fixture{ctrl: ctrl, host: host, drafts: store, clock: clock}
}

const helloPost = "---\ntitle: Hello World\ndate: 2025-01-02\n---\n\n# Hello World\n"
