package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilsley/quill/pkg/logging"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(&buf, "json", "info")

	log.Info("draft saved", "path", "src/content/hello.md")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "draft saved", rec["msg"])
	assert.Equal(t, "src/content/hello.md", rec["path"])
}

func TestNewWithWriter_TextIsDefault(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(&buf, "", "")

	log.Info("hello", "k", "v")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "k=v")
}

func TestNewWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(&buf, "text", "warn")

	log.Info("dropped")
	log.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
