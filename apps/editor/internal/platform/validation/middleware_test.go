package validation_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilsley/quill/apps/editor/internal/platform/validation"
	"github.com/tilsley/quill/apps/editor/schemas"
	"github.com/tilsley/quill/pkg/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	mw, err := validation.New(schemas.OpenAPISpec, logging.Discard())
	require.NoError(t, err)

	r := gin.New()
	r.Use(mw)
	r.NoRoute(func(c *gin.Context) { c.Status(http.StatusOK) })
	r.PUT("/api/buffer", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.PUT("/api/frontmatter", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/files/open", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/change-requests/:number/select", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/drafts/open", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/assets", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNew_InvalidDocument(t *testing.T) {
	_, err := validation.New([]byte("openapi: 3.0.3\npaths: ["), logging.Discard())
	assert.Error(t, err)
}

// ─── request bodies ──────────────────────────────────────────────────────────

func TestBuffer_MissingContent_Returns400(t *testing.T) {
	w := do(newRouter(t), http.MethodPut, "/api/buffer", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `content`)
}

func TestBuffer_Valid_Passes(t *testing.T) {
	w := do(newRouter(t), http.MethodPut, "/api/buffer", `{"content":"# hi"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFrontmatter_WrongTagType_Returns400(t *testing.T) {
	w := do(newRouter(t), http.MethodPut, "/api/frontmatter", `{"title":"x","tags":"a,b"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid")
}

func TestOpenFile_EmptyPath_Returns400(t *testing.T) {
	w := do(newRouter(t), http.MethodPost, "/api/files/open", `{"path":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOpenDraft_IncompleteKey_Returns400(t *testing.T) {
	w := do(newRouter(t), http.MethodPost, "/api/drafts/open", `{"owner":"acme","repo":"site","path":"a.md"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "branch")
}

// ─── path parameters ─────────────────────────────────────────────────────────

func TestSelectChangeRequest_NonPositiveNumber_Returns400(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPost, "/api/change-requests/0/select", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/change-requests/abc/select", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/change-requests/7/select", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// ─── pass-through ────────────────────────────────────────────────────────────

func TestUndocumentedRoute_PassesThrough(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPost, "/api/assets", "not json")
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
