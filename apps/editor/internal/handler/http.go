// Package handler is the editor's loopback HTTP API. Each route maps onto one
// working-context controller operation.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tilsley/quill/apps/editor/internal/auth"
	"github.com/tilsley/quill/apps/editor/internal/config"
	"github.com/tilsley/quill/apps/editor/internal/drafts"
	"github.com/tilsley/quill/apps/editor/internal/filetree"
	"github.com/tilsley/quill/apps/editor/internal/frontmatter"
	"github.com/tilsley/quill/apps/editor/internal/workspace"
)

// maxAssetBytes caps a single asset upload.
const maxAssetBytes = 25 << 20

// Deps are the services the API exposes.
type Deps struct {
	Controller *workspace.Controller
	Config     *config.Resolver
	Tokens     *auth.Store
	// Whoami resolves the login of the active token. Nil skips the lookup.
	Whoami func(ctx context.Context) (string, error)
}

// Handler translates HTTP requests into controller calls.
type Handler struct {
	ctrl   *workspace.Controller
	config *config.Resolver
	tokens *auth.Store
	whoami func(ctx context.Context) (string, error)
	log    *slog.Logger
}

// RegisterRoutes mounts the editor API onto the given Gin engine.
func RegisterRoutes(r *gin.Engine, d Deps, log *slog.Logger) {
	h := &Handler{ctrl: d.Controller, config: d.Config, tokens: d.Tokens, whoami: d.Whoami, log: log}

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api")

	// Buffer
	api.GET("/state", h.State)
	api.PUT("/buffer", h.SetBuffer)
	api.GET("/frontmatter", h.Frontmatter)
	api.PUT("/frontmatter", h.ApplyFrontmatter)

	// Branches and change requests
	api.POST("/working-branch", h.EnsureWorkingBranch)
	api.GET("/change-requests", h.ListChangeRequests)
	api.POST("/change-requests", h.CreateChangeRequest)
	api.POST("/change-requests/current/commits", h.UpdateChangeRequest)
	api.POST("/change-requests/for-branch", h.OpenOrCreateChangeRequest)
	api.POST("/change-requests/:number/select", h.SelectChangeRequest)
	api.GET("/branches", h.ListBranches)
	api.POST("/branches/select", h.ChooseBranch)
	api.POST("/branches/default", h.SwitchToDefaultBranch)

	// Files
	api.GET("/files", h.RefreshTree)
	api.GET("/files/changed", h.ChangedFiles)
	api.GET("/files/new-path", h.DefaultNewFilePath)
	api.POST("/files/open", h.OpenFile)
	api.POST("/files/use-path", h.UsePathOnly)
	api.POST("/files/create", h.CreateNewFile)
	api.POST("/files/restore-published", h.RestorePublished)
	api.POST("/assets", h.UploadAsset)

	// Drafts
	api.GET("/drafts", h.ListDrafts)
	api.POST("/drafts/open", h.OpenDraft)
	api.POST("/drafts/delete", h.DeleteDraft)
	api.DELETE("/draft", h.ClearDraft)
	api.POST("/draft/restore", h.RestoreDraft)
	api.POST("/draft/undo", h.UndoRestore)
	api.DELETE("/picker", h.ClosePicker)

	// Config and auth
	api.GET("/config", h.GetConfig)
	api.POST("/config/reload", h.ReloadConfig)
	api.GET("/config/overrides", h.GetOverrides)
	api.PUT("/config/overrides", h.SaveOverrides)
	api.DELETE("/config/overrides", h.ClearOverrides)
	api.GET("/auth", h.Auth)
	api.PUT("/auth/token", h.SetToken)
	api.DELETE("/auth/token", h.ClearToken)
}

type pathRequest struct {
	Path string `json:"path"`
}

// ─── buffer ──────────────────────────────────────────────────────────────────

// State handles GET /api/state.
func (h *Handler) State(c *gin.Context) {
	c.JSON(http.StatusOK, toStateJSON(h.ctrl.State()))
}

// SetBuffer handles PUT /api/buffer.
func (h *Handler) SetBuffer(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.ctrl.SetBuffer(req.Content)
	h.State(c)
}

// Frontmatter handles GET /api/frontmatter.
func (h *Handler) Frontmatter(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.Fields())
}

// ApplyFrontmatter handles PUT /api/frontmatter.
func (h *Handler) ApplyFrontmatter(c *gin.Context) {
	var f frontmatter.Fields
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.ctrl.ApplyFrontmatter(f)
	if err != nil {
		h.fail(c, "apply frontmatter", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": out})
}

// ─── branches & change requests ──────────────────────────────────────────────

// EnsureWorkingBranch handles POST /api/working-branch.
func (h *Handler) EnsureWorkingBranch(c *gin.Context) {
	wc, err := h.ctrl.EnsureWorkingBranch(c.Request.Context())
	if err != nil {
		h.fail(c, "ensure working branch", err)
		return
	}
	c.JSON(http.StatusOK, wc)
}

// ListChangeRequests handles GET /api/change-requests.
func (h *Handler) ListChangeRequests(c *gin.Context) {
	crs, err := h.ctrl.ListChangeRequests(c.Request.Context())
	if err != nil {
		h.fail(c, "list change requests", err)
		return
	}
	c.JSON(http.StatusOK, nonNil(crs))
}

// CreateChangeRequest handles POST /api/change-requests.
func (h *Handler) CreateChangeRequest(c *gin.Context) {
	created, err := h.ctrl.CreateChangeRequest(c.Request.Context())
	if err != nil {
		h.fail(c, "create change request", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateChangeRequest handles POST /api/change-requests/current/commits.
func (h *Handler) UpdateChangeRequest(c *gin.Context) {
	sha, err := h.ctrl.UpdateChangeRequest(c.Request.Context())
	if err != nil {
		h.fail(c, "update change request", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sha": sha})
}

// OpenOrCreateChangeRequest handles POST /api/change-requests/for-branch.
func (h *Handler) OpenOrCreateChangeRequest(c *gin.Context) {
	ref, err := h.ctrl.OpenOrCreateChangeRequestForBranch(c.Request.Context())
	if err != nil {
		h.fail(c, "open change request for branch", err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

// SelectChangeRequest handles POST /api/change-requests/:number/select.
func (h *Handler) SelectChangeRequest(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid change request number"})
		return
	}
	if err := h.ctrl.SelectChangeRequest(c.Request.Context(), n); err != nil {
		h.fail(c, "select change request", err)
		return
	}
	h.State(c)
}

// ListBranches handles GET /api/branches.
func (h *Handler) ListBranches(c *gin.Context) {
	branches, err := h.ctrl.ListBranches(c.Request.Context())
	if err != nil {
		h.fail(c, "list branches", err)
		return
	}
	c.JSON(http.StatusOK, nonNil(branches))
}

// ChooseBranch handles POST /api/branches/select.
func (h *Handler) ChooseBranch(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.ctrl.ChooseBranch(c.Request.Context(), req.Name); err != nil {
		h.fail(c, "choose branch", err)
		return
	}
	h.State(c)
}

// SwitchToDefaultBranch handles POST /api/branches/default.
func (h *Handler) SwitchToDefaultBranch(c *gin.Context) {
	if err := h.ctrl.SwitchToDefaultBranch(c.Request.Context()); err != nil {
		h.fail(c, "switch to default branch", err)
		return
	}
	h.State(c)
}

// ─── files ───────────────────────────────────────────────────────────────────

// RefreshTree handles GET /api/files.
func (h *Handler) RefreshTree(c *gin.Context) {
	paths, err := h.ctrl.RefreshTree(c.Request.Context())
	if err != nil {
		h.fail(c, "refresh tree", err)
		return
	}
	tree := filetree.Build(paths, h.config.Settings().ContentDir(), filetree.MarkdownExts)
	c.JSON(http.StatusOK, gin.H{"paths": nonNil(paths), "tree": nonNil(tree)})
}

// ChangedFiles handles GET /api/files/changed.
func (h *Handler) ChangedFiles(c *gin.Context) {
	files, err := h.ctrl.ChangedFiles(c.Request.Context())
	if err != nil {
		h.fail(c, "changed files", err)
		return
	}
	c.JSON(http.StatusOK, nonNil(files))
}

// DefaultNewFilePath handles GET /api/files/new-path.
func (h *Handler) DefaultNewFilePath(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"path": h.ctrl.DefaultNewFilePath()})
}

// OpenFile handles POST /api/files/open.
func (h *Handler) OpenFile(c *gin.Context) {
	h.withPath(c, "open file", h.ctrl.OpenFile)
}

// UsePathOnly handles POST /api/files/use-path.
func (h *Handler) UsePathOnly(c *gin.Context) {
	h.withPath(c, "use path", h.ctrl.UsePathOnly)
}

func (h *Handler) withPath(c *gin.Context, what string, fn func(context.Context, string) error) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	if err := fn(c.Request.Context(), req.Path); err != nil {
		h.fail(c, what, err)
		return
	}
	h.State(c)
}

// CreateNewFile handles POST /api/files/create. The body is optional.
func (h *Handler) CreateNewFile(c *gin.Context) {
	var req pathRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	sha, err := h.ctrl.CreateNewFileInBranch(c.Request.Context(), req.Path)
	if err != nil {
		h.fail(c, "create file", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sha": sha})
}

// RestorePublished handles POST /api/files/restore-published.
func (h *Handler) RestorePublished(c *gin.Context) {
	if err := h.ctrl.RestorePublished(c.Request.Context()); err != nil {
		h.fail(c, "restore published", err)
		return
	}
	h.State(c)
}

// UploadAsset handles POST /api/assets, a multipart form with a "file" part
// and optional "path" and "alt" fields.
func (h *Handler) UploadAsset(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fh.Size > maxAssetBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close() //nolint:errcheck // read-only multipart part
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	asset, err := h.ctrl.UploadAsset(c.Request.Context(), fh.Filename, data, c.PostForm("path"), c.PostForm("alt"))
	if err != nil {
		h.fail(c, "upload asset", err)
		return
	}
	c.JSON(http.StatusCreated, asset)
}

// ─── drafts ──────────────────────────────────────────────────────────────────

// ListDrafts handles GET /api/drafts.
func (h *Handler) ListDrafts(c *gin.Context) {
	list, err := h.ctrl.ListDrafts(c.Request.Context())
	if err != nil {
		h.fail(c, "list drafts", err)
		return
	}
	c.JSON(http.StatusOK, nonNil(list))
}

// OpenDraft handles POST /api/drafts/open.
func (h *Handler) OpenDraft(c *gin.Context) {
	var key drafts.Key
	if err := c.ShouldBindJSON(&key); err != nil || !key.Complete() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner, repo, branch and path are required"})
		return
	}
	if err := h.ctrl.OpenDraft(c.Request.Context(), key); err != nil {
		h.fail(c, "open draft", err)
		return
	}
	h.State(c)
}

// DeleteDraft handles POST /api/drafts/delete.
func (h *Handler) DeleteDraft(c *gin.Context) {
	var key drafts.Key
	if err := c.ShouldBindJSON(&key); err != nil || !key.Complete() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner, repo, branch and path are required"})
		return
	}
	if err := h.ctrl.DeleteDraft(c.Request.Context(), key); err != nil {
		h.fail(c, "delete draft", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearDraft handles DELETE /api/draft.
func (h *Handler) ClearDraft(c *gin.Context) {
	if err := h.ctrl.ClearDraft(c.Request.Context()); err != nil {
		h.fail(c, "clear draft", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RestoreDraft handles POST /api/draft/restore.
func (h *Handler) RestoreDraft(c *gin.Context) {
	ok, err := h.ctrl.RestoreDraft(c.Request.Context())
	if err != nil {
		h.fail(c, "restore draft", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restored": ok})
}

// UndoRestore handles POST /api/draft/undo.
func (h *Handler) UndoRestore(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"undone": h.ctrl.UndoRestore()})
}

// ClosePicker handles DELETE /api/picker.
func (h *Handler) ClosePicker(c *gin.Context) {
	h.ctrl.ClosePicker()
	c.Status(http.StatusNoContent)
}

// ─── config & auth ───────────────────────────────────────────────────────────

// GetConfig handles GET /api/config.
func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.config.Config())
}

// ReloadConfig handles POST /api/config/reload.
func (h *Handler) ReloadConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.config.Reload(c.Request.Context()))
}

// GetOverrides handles GET /api/config/overrides.
func (h *Handler) GetOverrides(c *gin.Context) {
	p, err := h.config.Overrides(c.Request.Context())
	if err != nil {
		h.fail(c, "read overrides", workspace.LocalStorageError{Op: "read overrides", Err: err})
		return
	}
	if p == nil {
		p = &config.Partial{}
	}
	c.JSON(http.StatusOK, p)
}

// SaveOverrides handles PUT /api/config/overrides.
func (h *Handler) SaveOverrides(c *gin.Context) {
	var p config.Partial
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg, err := h.config.SaveOverrides(c.Request.Context(), p)
	if err != nil {
		h.fail(c, "save overrides", workspace.LocalStorageError{Op: "save overrides", Err: err})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// ClearOverrides handles DELETE /api/config/overrides.
func (h *Handler) ClearOverrides(c *gin.Context) {
	cfg, err := h.config.ClearOverrides(c.Request.Context())
	if err != nil {
		h.fail(c, "clear overrides", workspace.LocalStorageError{Op: "clear overrides", Err: err})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Auth handles GET /api/auth. A rejected token is reported in the body, not
// as a failed request.
func (h *Handler) Auth(c *gin.Context) {
	tok, err := h.tokens.Get(c.Request.Context())
	if err != nil {
		h.fail(c, "read token", workspace.LocalStorageError{Op: "read token", Err: err})
		return
	}
	resp := gin.H{"configured": tok != ""}
	if tok != "" && h.whoami != nil {
		login, err := h.whoami(c.Request.Context())
		if err != nil {
			resp["error"] = err.Error()
		} else {
			resp["login"] = login
		}
	}
	c.JSON(http.StatusOK, resp)
}

// SetToken handles PUT /api/auth/token.
func (h *Handler) SetToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.tokens.Set(c.Request.Context(), req.Token); err != nil {
		h.fail(c, "save token", workspace.LocalStorageError{Op: "save token", Err: err})
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearToken handles DELETE /api/auth/token.
func (h *Handler) ClearToken(c *gin.Context) {
	if err := h.tokens.Clear(c.Request.Context()); err != nil {
		h.fail(c, "clear token", workspace.LocalStorageError{Op: "clear token", Err: err})
		return
	}
	c.Status(http.StatusNoContent)
}

// ─── errors ──────────────────────────────────────────────────────────────────

// fail writes err as {"error": message} with the status its type maps to.
func (h *Handler) fail(c *gin.Context, what string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(what+" failed", "error", err)
	} else {
		h.log.Warn(what+" failed", "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		missing  workspace.MissingConfigError
		notFound workspace.NotFoundError
		conflict workspace.ConflictError
		exists   workspace.AlreadyExistsError
		remote   workspace.RemoteError
		local    workspace.LocalStorageError
		field    frontmatter.FieldError
	)
	switch {
	case errors.As(err, &missing):
		return http.StatusPreconditionFailed
	case errors.Is(err, workspace.ErrNoActiveFile),
		errors.Is(err, workspace.ErrNoWorkingContext),
		errors.Is(err, workspace.ErrNoChanges),
		errors.As(err, &field):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict),
		errors.As(err, &exists),
		errors.Is(err, workspace.ErrSuperseded),
		errors.Is(err, workspace.ErrBranchNamesExhausted):
		return http.StatusConflict
	case errors.As(err, &remote):
		return http.StatusBadGateway
	case errors.As(err, &local):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
