// Command quillctl inspects and edits the editor's local state: drafts,
// config overrides and the GitHub token. It reads the same environment as the
// editor, so point STORE_BACKEND and DATA_DIR at the same store.
package main

import (
	"context"
	"os"

	"github.com/tilsley/quill/apps/editor/internal/app"
	"github.com/tilsley/quill/apps/editor/internal/platform/env"
	"github.com/tilsley/quill/pkg/logging"
)

func main() {
	log := logging.New()
	open := func(ctx context.Context) (*app.App, error) {
		cfg, err := env.Load(ctx)
		if err != nil {
			return nil, err
		}
		return app.New(ctx, cfg, log)
	}
	if err := newRootCommand(open).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
