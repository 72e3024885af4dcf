package workspace_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tilsley/quill/apps/editor/internal/workspace"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello, World!":         "hello-world",
		"  multiple   spaces ":  "multiple-spaces",
		"Already-slugged--ish":  "already-slugged-ish",
		"Ünïcode & symbols #42": "ncode-symbols-42",
		"tabs\tand\nnewlines":   "tabs-and-newlines",
		"!!!":                   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, workspace.Slugify(in), "slugify(%q)", in)
	}
}

func TestInferredTitle(t *testing.T) {
	t.Run("frontmatter title wins", func(t *testing.T) {
		md := "---\ntitle: From FM\n---\n# From Heading\n"
		assert.Equal(t, "From FM", workspace.InferredTitle(md))
	})

	t.Run("first heading", func(t *testing.T) {
		md := "intro\n\n## Not this\n# First H1\n# Second H1\n"
		assert.Equal(t, "First H1", workspace.InferredTitle(md))
	})

	t.Run("default", func(t *testing.T) {
		assert.Equal(t, workspace.DefaultTitle, workspace.InferredTitle("just text"))
	})
}

func TestDerivedDate(t *testing.T) {
	now := time.Date(2026, 3, 9, 23, 30, 0, 0, time.FixedZone("local", 2*3600))

	assert.Equal(t, "2024-12-31", workspace.DerivedDate("---\ndate: 2024-12-31T10:00:00Z\n---\n", now))
	assert.Equal(t, "2024-05-06", workspace.DerivedDate("---\ndate: 2024-05-06\n---\n", now))
	assert.Equal(t, "2026-03-09", workspace.DerivedDate("---\ndate: someday\n---\n", now))
	assert.Equal(t, "2026-03-09", workspace.DerivedDate("no frontmatter", now))
}

func TestRenderTemplate(t *testing.T) {
	got := workspace.RenderTemplate("{contentDir}/{date}-{slug}.md ({missing})", map[string]string{
		"contentDir": "src/content",
		"date":       "2025-01-02",
		"slug":       "hello",
	})

	assert.Equal(t, "src/content/2025-01-02-hello.md ()", got)
}

func TestDefaultAssetPath(t *testing.T) {
	assert.Equal(t, "src/assets/2025/07/cat.png", workspace.DefaultAssetPath("src/assets/", "2025-07-14", "cat.png"))
}

func TestAltText(t *testing.T) {
	assert.Equal(t, "cat.photo", workspace.AltText("cat.photo.png"))
}

func TestTreeURL(t *testing.T) {
	c := workspace.Coordinate{Owner: "acme", Repo: "site"}
	assert.Equal(t, "https://github.com/acme/site/tree/content/foo", workspace.TreeURL("https://github.com", c, "content/foo"))
}
