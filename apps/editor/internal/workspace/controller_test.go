package workspace_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilsley/quill/apps/editor/internal/drafts"
	"github.com/tilsley/quill/apps/editor/internal/frontmatter"
	"github.com/tilsley/quill/apps/editor/internal/workspace"
)

// ─── new session ─────────────────────────────────────────────────────────────

func TestNewController_SeedsNewPost(t *testing.T) {
	f := newFixture(t, &stubHost{})

	st := f.ctrl.State()
	assert.Nil(t, st.Context)
	assert.Empty(t, st.ActivePath)
	assert.Equal(t, "idle", st.Status.Kind())

	fields := f.ctrl.Fields()
	assert.Equal(t, "New Post", fields.Title)
	assert.Equal(t, "2025-01-02", fields.Date)
	assert.True(t, fields.Draft)
	assert.Contains(t, st.Buffer, "# New Post")
}

func TestDefaultNewFilePath(t *testing.T) {
	f := newFixture(t, &stubHost{})
	f.ctrl.SetBuffer(helloPost)

	assert.Equal(t, "src/content/2025-01-02-hello-world.md", f.ctrl.DefaultNewFilePath())
}

// ─── create change request ───────────────────────────────────────────────────

func TestCreateChangeRequest_FromNewPost(t *testing.T) {
	var (
		gotBase, gotBranch, gotTitle, gotBody string
		gotChanges                            []workspace.FileChange
	)
	host := &stubHost{
		createCRFn: func(_ context.Context, base, branch, title, body string, changes []workspace.FileChange) (*workspace.CreatedChangeRequest, error) {
			gotBase, gotBranch, gotTitle, gotBody, gotChanges = base, branch, title, body, changes
			return &workspace.CreatedChangeRequest{Number: 12, URL: "https://github.com/acme/site/pull/12", HeadBranch: branch}, nil
		},
	}
	f := newFixture(t, host)
	f.ctrl.SetBuffer(helloPost)

	res, err := f.ctrl.CreateChangeRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, res.Number)

	const path = "src/content/2025-01-02-hello-world.md"
	assert.Equal(t, "main", gotBase)
	assert.Equal(t, "content/hello-world", gotBranch)
	assert.Equal(t, "Add post: Hello World ("+path+")", gotTitle)
	assert.Equal(t, "Created from the editor\n\n- File: "+path+"\n- Branch: content/hello-world", gotBody)
	assert.Equal(t, []workspace.FileChange{{Path: path, Content: helloPost}}, gotChanges)

	st := f.ctrl.State()
	require.NotNil(t, st.Context)
	assert.Equal(t, ptr(12), st.Context.ChangeRequest)
	assert.Equal(t, "content/hello-world", st.Context.Branch)
	assert.Equal(t, "https://github.com/acme/site/pull/12", st.Context.URL)
	assert.Equal(t, "content/hello-world", st.CurrentRef)
	assert.Equal(t, path, st.ActivePath)
	assert.Equal(t, workspace.Succeeded{URL: "https://github.com/acme/site/pull/12"}, st.Status)
	assert.Equal(t, drafts.Key{Owner: "acme", Repo: "site", Branch: "content/hello-world", Path: path}, st.DraftKey)
}

func TestCreateChangeRequest_MissingConfig(t *testing.T) {
	host := &stubHost{}
	f := newFixtureWith(t, host, staticSettings{DefaultBranch: "main"})

	_, err := f.ctrl.CreateChangeRequest(context.Background())

	var mc workspace.MissingConfigError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, "repo.owner", mc.Field)
	assert.Equal(t, 0, host.count("CreateChangeRequestWithCommit"))
	assert.Equal(t, "error", f.ctrl.State().Status.Kind())
}

func TestCreateChangeRequest_RemoteFailureKeepsContext(t *testing.T) {
	host := &stubHost{
		createCRFn: func(context.Context, string, string, string, string, []workspace.FileChange) (*workspace.CreatedChangeRequest, error) {
			return nil, workspace.ConflictError{Message: "Repository is empty; initialize it with a commit first"}
		},
	}
	f := newFixture(t, host)

	_, err := f.ctrl.CreateChangeRequest(context.Background())
	require.Error(t, err)

	st := f.ctrl.State()
	assert.Nil(t, st.Context)
	assert.Equal(t, workspace.Failed{Message: "Repository is empty; initialize it with a commit first"}, st.Status)
}

// ─── ensure working branch ───────────────────────────────────────────────────

func TestEnsureWorkingBranch_IsIdempotent(t *testing.T) {
	host := &stubHost{}
	f := newFixture(t, host)
	f.ctrl.SetBuffer(helloPost)

	first, err := f.ctrl.EnsureWorkingBranch(context.Background())
	require.NoError(t, err)
	second, err := f.ctrl.EnsureWorkingBranch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "content/hello-world", first.Branch)
	assert.Equal(t, "https://github.com/acme/site/tree/content/hello-world", first.URL)
	assert.Nil(t, first.ChangeRequest)
	assert.Equal(t, 1, host.count("CreateBranch"))
}

func TestEnsureWorkingBranch_BindsWhenCreateFails(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "already exists", err: workspace.AlreadyExistsError{Name: "content/hello-world"}},
		{name: "other remote error", err: workspace.RemoteError{Message: "Server Error"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBase, gotName string
			host := &stubHost{createBranchFn: func(_ context.Context, base, name string) error {
				gotBase, gotName = base, name
				return tt.err
			}}
			f := newFixture(t, host)
			f.ctrl.SetBuffer(helloPost)

			wc, err := f.ctrl.EnsureWorkingBranch(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "main", gotBase)
			assert.Equal(t, "content/hello-world", gotName)
			assert.Equal(t, "content/hello-world", wc.Branch)
			assert.Equal(t, "content/hello-world", f.ctrl.State().CurrentRef)
		})
	}
}

func TestEnsureWorkingBranch_NoopOnSelectedBranch(t *testing.T) {
	host := &stubHost{}
	f := newFixture(t, host)
	require.NoError(t, f.ctrl.ChooseBranch(context.Background(), "content/existing"))

	wc, err := f.ctrl.EnsureWorkingBranch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "content/existing", wc.Branch)
	assert.Equal(t, 0, host.count("CreateBranch"))
}

// ─── update change request ───────────────────────────────────────────────────

func TestUpdateChangeRequest_EnsuresBranchOnce(t *testing.T) {
	var commits []string
	host := &stubHost{commitFn: func(_ context.Context, branch, message string, changes []workspace.FileChange) (string, error) {
		commits = append(commits, branch+"|"+message+"|"+changes[0].Path)
		return "abc123", nil
	}}
	f := newFixture(t, host)
	f.ctrl.SetBuffer(helloPost)
	require.NoError(t, f.ctrl.UsePathOnly(context.Background(), "src/content/a.md"))

	sha, err := f.ctrl.UpdateChangeRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", sha)
	_, err = f.ctrl.UpdateChangeRequest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, host.count("CreateBranch"))
	assert.Equal(t, []string{
		"content/hello-world|chore: update src/content/a.md|src/content/a.md",
		"content/hello-world|chore: update src/content/a.md|src/content/a.md",
	}, commits)
	assert.Equal(t, workspace.Succeeded{URL: "https://github.com/acme/site/tree/content/hello-world"}, f.ctrl.State().Status)
}

func TestUpdateChangeRequest_NoActiveFile(t *testing.T) {
	host := &stubHost{}
	f := newFixture(t, host)

	_, err := f.ctrl.UpdateChangeRequest(context.Background())

	require.ErrorIs(t, err, workspace.ErrNoActiveFile)
	assert.Equal(t, 0, host.count("CreateBranch"))
	assert.Equal(t, 0, host.count("CommitToBranch"))
}

func TestCreateNewFileInBranch_DefaultsPath(t *testing.T) {
	var gotPath, gotMessage string
	host := &stubHost{commitFn: func(_ context.Context, _ string, message string, changes []workspace.FileChange) (string, error) {
		gotPath, gotMessage = changes[0].Path, message
		return "abc123", nil
	}}
	f := newFixture(t, host)
	f.ctrl.SetBuffer(helloPost)

	_, err := f.ctrl.CreateNewFileInBranch(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "src/content/2025-01-02-hello-world.md", gotPath)
	assert.Equal(t, "chore: add src/content/2025-01-02-hello-world.md", gotMessage)
	assert.Equal(t, gotPath, f.ctrl.State().ActivePath)
}

func TestUpdateChangeRequest_CommitsEditOverStoredBranchDraft(t *testing.T) {
	var committed string
	host := &stubHost{
		getFileFn: func(context.Context, string, string) (string, error) { return helloPost, nil },
		commitFn: func(_ context.Context, _, _ string, changes []workspace.FileChange) (string, error) {
			committed = changes[0].Content
			return "abc123", nil
		},
	}
	f := newFixture(t, host)
	ctx := context.Background()
	branchKey := drafts.Key{Owner: "acme", Repo: "site", Branch: "content/hello-world", Path: "src/content/a.md"}
	seed(t, f, drafts.Record{Key: branchKey, Content: "older draft", UpdatedAt: 1000})
	require.NoError(t, f.ctrl.OpenFile(ctx, "src/content/a.md"))
	edited := helloPost + "\nA paragraph typed just now.\n"
	f.ctrl.SetBuffer(edited)

	_, err := f.ctrl.UpdateChangeRequest(ctx)
	require.NoError(t, err)

	assert.Equal(t, edited, committed)
	st := f.ctrl.State()
	assert.Equal(t, "content/hello-world", st.Context.Branch)
	assert.Equal(t, edited, st.Buffer)
	assert.Equal(t, branchKey, st.DraftKey)
	assert.Equal(t, workspace.ModeIdle, st.Draft.Mode)
	assert.False(t, st.Draft.CanUndo)
	assert.True(t, st.Draft.HasDraft)

	// The older draft is still there on demand.
	restored, err := f.ctrl.RestoreDraft(ctx)
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Equal(t, "older draft", f.ctrl.State().Buffer)
}

func TestCreateNewFileInBranch_CommitsEditOverStoredBranchDraft(t *testing.T) {
	var committed string
	host := &stubHost{commitFn: func(_ context.Context, _, _ string, changes []workspace.FileChange) (string, error) {
		committed = changes[0].Content
		return "abc123", nil
	}}
	f := newFixture(t, host)
	ctx := context.Background()
	path := "src/content/2025-01-02-hello-world.md"
	seed(t, f, drafts.Record{
		Key:       drafts.Key{Owner: "acme", Repo: "site", Branch: "content/hello-world", Path: path},
		Content:   "older draft",
		UpdatedAt: 1000,
	})
	f.ctrl.SetBuffer(helloPost)

	_, err := f.ctrl.CreateNewFileInBranch(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, helloPost, committed)
	st := f.ctrl.State()
	assert.Equal(t, path, st.ActivePath)
	assert.Equal(t, helloPost, st.Buffer)
	assert.NotEqual(t, workspace.ModeRestored, st.Draft.Mode)
}

// ─── navigation ──────────────────────────────────────────────────────────────

func TestSwitchToDefaultBranch_KeepsBufferWhenFileMissing(t *testing.T) {
	var treeRef string
	host := &stubHost{
		getFileFn: func(_ context.Context, _, ref string) (string, error) {
			if ref == "content/x" {
				return "branch only", nil
			}
			return "", workspace.NotFoundError{Message: "Not Found"}
		},
		listPathsFn: func(_ context.Context, ref string) ([]string, error) {
			treeRef = ref
			return []string{"src/content/a.md"}, nil
		},
	}
	f := newFixture(t, host)
	ctx := context.Background()
	require.NoError(t, f.ctrl.ChooseBranch(ctx, "content/x"))
	require.NoError(t, f.ctrl.OpenFile(ctx, "src/content/new.md"))

	require.NoError(t, f.ctrl.SwitchToDefaultBranch(ctx))

	st := f.ctrl.State()
	assert.Nil(t, st.Context)
	assert.Equal(t, "main", st.CurrentRef)
	assert.Equal(t, "branch only", st.Buffer)
	assert.Equal(t, "main", treeRef)
	assert.Equal(t, "main", st.DraftKey.Branch)
	assert.Equal(t, "idle", st.Status.Kind())
}

func TestSwitchToDefaultBranch_LoadsPublishedFile(t *testing.T) {
	host := &stubHost{getFileFn: func(_ context.Context, _, ref string) (string, error) {
		return "content at " + ref, nil
	}}
	f := newFixture(t, host)
	ctx := context.Background()
	require.NoError(t, f.ctrl.ChooseBranch(ctx, "content/x"))
	require.NoError(t, f.ctrl.OpenFile(ctx, "src/content/a.md"))
	assert.Equal(t, "content at content/x", f.ctrl.State().Buffer)

	require.NoError(t, f.ctrl.SwitchToDefaultBranch(ctx))
	assert.Equal(t, "content at main", f.ctrl.State().Buffer)
}

func TestSelectChangeRequest(t *testing.T) {
	host := &stubHost{getCRFn: func(_ context.Context, number int) (*workspace.ChangeRequest, error) {
		return &workspace.ChangeRequest{Number: number, Title: "Post", HeadBranch: "content/post", URL: "https://github.com/acme/site/pull/3"}, nil
	}}
	f := newFixture(t, host)

	require.NoError(t, f.ctrl.SelectChangeRequest(context.Background(), 3))

	st := f.ctrl.State()
	require.NotNil(t, st.Context)
	assert.Equal(t, ptr(3), st.Context.ChangeRequest)
	assert.Equal(t, "content/post", st.Context.Branch)
	assert.Equal(t, "https://github.com/acme/site/pull/3", st.Context.URL)
	assert.Equal(t, []string{"src/content/a.md"}, st.Paths)
	assert.Equal(t, workspace.PickerFiles, st.Picker.Kind)
}

func TestSelectChangeRequest_FailureLeavesContext(t *testing.T) {
	f := newFixture(t, &stubHost{})

	err := f.ctrl.SelectChangeRequest(context.Background(), 99)

	var nf workspace.NotFoundError
	require.ErrorAs(t, err, &nf)
	st := f.ctrl.State()
	assert.Nil(t, st.Context)
	assert.Equal(t, workspace.Failed{Message: "Not Found"}, st.Status)
}

func TestChooseBranch_FailureDoesNotBind(t *testing.T) {
	host := &stubHost{listPathsFn: func(context.Context, string) ([]string, error) {
		return nil, workspace.NotFoundError{Message: "Branch not found"}
	}}
	f := newFixture(t, host)

	err := f.ctrl.ChooseBranch(context.Background(), "content/gone")

	require.Error(t, err)
	assert.Nil(t, f.ctrl.State().Context)
}

func TestOpenFile_BindsReadRef(t *testing.T) {
	f := newFixture(t, &stubHost{getFileFn: func(context.Context, string, string) (string, error) {
		return helloPost, nil
	}})

	require.NoError(t, f.ctrl.OpenFile(context.Background(), "src/content/a.md"))

	st := f.ctrl.State()
	require.NotNil(t, st.Context)
	assert.Equal(t, "main", st.Context.Branch)
	assert.Equal(t, helloPost, st.Buffer)
	assert.Equal(t, "src/content/a.md", st.ActivePath)
}

func TestListPickers(t *testing.T) {
	host := &stubHost{
		listCRsFn: func(context.Context) ([]workspace.ChangeRequest, error) {
			return []workspace.ChangeRequest{{Number: 1, HeadBranch: "content/a"}}, nil
		},
		listBranchesFn: func(context.Context) ([]workspace.Branch, error) {
			return []workspace.Branch{{Name: "main"}, {Name: "content/a"}}, nil
		},
	}
	f := newFixture(t, host)
	ctx := context.Background()

	crs, err := f.ctrl.ListChangeRequests(ctx)
	require.NoError(t, err)
	assert.Len(t, crs, 1)
	assert.Equal(t, workspace.PickerChangeRequests, f.ctrl.State().Picker.Kind)

	branches, err := f.ctrl.ListBranches(ctx)
	require.NoError(t, err)
	assert.Len(t, branches, 2)
	assert.Equal(t, workspace.PickerBranches, f.ctrl.State().Picker.Kind)

	f.ctrl.ClosePicker()
	assert.Equal(t, workspace.PickerNone, f.ctrl.State().Picker.Kind)
}

func TestChangedFiles(t *testing.T) {
	host := &stubHost{
		getCRFn: func(_ context.Context, number int) (*workspace.ChangeRequest, error) {
			return &workspace.ChangeRequest{Number: number, HeadBranch: "content/post"}, nil
		},
		crFilesFn: func(context.Context, int) ([]string, error) { return []string{"from-cr.md"}, nil },
		compareFn: func(_ context.Context, base, head string) ([]string, error) {
			return []string{base + ".." + head}, nil
		},
	}
	ctx := context.Background()

	t.Run("without context", func(t *testing.T) {
		f := newFixture(t, host)
		_, err := f.ctrl.ChangedFiles(ctx)
		require.ErrorIs(t, err, workspace.ErrNoWorkingContext)
	})

	t.Run("change request attached", func(t *testing.T) {
		f := newFixture(t, host)
		require.NoError(t, f.ctrl.SelectChangeRequest(ctx, 4))
		files, err := f.ctrl.ChangedFiles(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"from-cr.md"}, files)
	})

	t.Run("branch only", func(t *testing.T) {
		f := newFixture(t, host)
		require.NoError(t, f.ctrl.ChooseBranch(ctx, "content/x"))
		files, err := f.ctrl.ChangedFiles(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"main..content/x"}, files)
	})
}

// ─── open or create change request for branch ───────────────────────────────

func TestOpenOrCreateChangeRequestForBranch_AttachesExisting(t *testing.T) {
	host := &stubHost{findCRFn: func(_ context.Context, head string) (*workspace.ChangeRequestRef, error) {
		return &workspace.ChangeRequestRef{Number: 7, URL: "https://github.com/acme/site/pull/7"}, nil
	}}
	f := newFixture(t, host)
	ctx := context.Background()
	require.NoError(t, f.ctrl.ChooseBranch(ctx, "content/x"))

	ref, err := f.ctrl.OpenOrCreateChangeRequestForBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, ref.Number)

	again, err := f.ctrl.OpenOrCreateChangeRequestForBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, again.Number)

	assert.Equal(t, 1, host.count("FindChangeRequestForBranch"))
	assert.Equal(t, 0, host.count("OpenChangeRequestForBranch"))
	st := f.ctrl.State()
	assert.Equal(t, ptr(7), st.Context.ChangeRequest)
	assert.Equal(t, "content/x", st.Context.Branch)
}

func TestOpenOrCreateChangeRequestForBranch_OpensWhenNoneExists(t *testing.T) {
	var gotHead, gotBase, gotTitle, gotBody string
	host := &stubHost{openCRFn: func(_ context.Context, head, base, title, body string) (*workspace.ChangeRequestRef, error) {
		gotHead, gotBase, gotTitle, gotBody = head, base, title, body
		return &workspace.ChangeRequestRef{Number: 8, URL: "https://github.com/acme/site/pull/8"}, nil
	}}
	f := newFixture(t, host)
	ctx := context.Background()
	require.NoError(t, f.ctrl.ChooseBranch(ctx, "content/x"))
	require.NoError(t, f.ctrl.UsePathOnly(ctx, "src/content/a.md"))

	ref, err := f.ctrl.OpenOrCreateChangeRequestForBranch(ctx)
	require.NoError(t, err)

	assert.Equal(t, 8, ref.Number)
	assert.Equal(t, "content/x", gotHead)
	assert.Equal(t, "main", gotBase)
	assert.Equal(t, "Content updates for content/x", gotTitle)
	assert.Equal(t, "Updates to src/content/a.md", gotBody)
	assert.Equal(t, workspace.Succeeded{URL: "https://github.com/acme/site/pull/8"}, f.ctrl.State().Status)
}

func TestOpenOrCreateChangeRequestForBranch_RequiresWorkingBranch(t *testing.T) {
	host := &stubHost{}
	f := newFixture(t, host)
	ctx := context.Background()

	_, err := f.ctrl.OpenOrCreateChangeRequestForBranch(ctx)
	require.ErrorIs(t, err, workspace.ErrNoWorkingContext)

	require.NoError(t, f.ctrl.ChooseBranch(ctx, "main"))
	_, err = f.ctrl.OpenOrCreateChangeRequestForBranch(ctx)
	require.ErrorIs(t, err, workspace.ErrNoWorkingContext)
	assert.Equal(t, 0, host.count("FindChangeRequestForBranch"))
}

// ─── generations ─────────────────────────────────────────────────────────────

func TestChooseBranch_LaterSwitchWins(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	host := &stubHost{listPathsFn: func(_ context.Context, ref string) ([]string, error) {
		if ref == "content/slow" {
			close(entered)
			<-release
		}
		return []string{ref + ".md"}, nil
	}}
	f := newFixture(t, host)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- f.ctrl.ChooseBranch(ctx, "content/slow") }()
	<-entered

	require.NoError(t, f.ctrl.ChooseBranch(ctx, "content/fast"))
	close(release)

	require.ErrorIs(t, <-done, workspace.ErrSuperseded)
	st := f.ctrl.State()
	assert.Equal(t, "content/fast", st.Context.Branch)
	assert.Equal(t, []string{"content/fast.md"}, st.Paths)
	assert.Equal(t, "idle", st.Status.Kind())
}

func TestUpdateChangeRequest_SupersededBySwitch(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	host := &stubHost{commitFn: func(context.Context, string, string, []workspace.FileChange) (string, error) {
		close(entered)
		<-release
		return "abc123", nil
	}}
	f := newFixture(t, host)
	ctx := context.Background()
	require.NoError(t, f.ctrl.ChooseBranch(ctx, "content/x"))
	require.NoError(t, f.ctrl.UsePathOnly(ctx, "src/content/a.md"))

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.UpdateChangeRequest(ctx)
		done <- err
	}()
	<-entered

	require.NoError(t, f.ctrl.SwitchToDefaultBranch(ctx))
	close(release)

	require.ErrorIs(t, <-done, workspace.ErrSuperseded)
	st := f.ctrl.State()
	assert.Nil(t, st.Context)
	assert.Equal(t, "idle", st.Status.Kind())
}

// ─── editing ─────────────────────────────────────────────────────────────────

func TestApplyFrontmatter(t *testing.T) {
	f := newFixture(t, &stubHost{})
	f.ctrl.SetBuffer("---\ntitle: Hello World\nlayout: post\n---\n\nBody\n")

	out, err := f.ctrl.ApplyFrontmatter(frontmatter.Fields{Title: "Renamed", Date: "2025-02-03", Tags: []string{"go", "notes"}})
	require.NoError(t, err)

	assert.Equal(t, out, f.ctrl.State().Buffer)
	assert.Contains(t, out, "layout: post")
	assert.Contains(t, out, "\nBody\n")
	assert.Equal(t, frontmatter.Fields{Title: "Renamed", Date: "2025-02-03", Tags: []string{"go", "notes"}}, f.ctrl.Fields())
}

func TestApplyFrontmatter_RejectsInvalidFields(t *testing.T) {
	f := newFixture(t, &stubHost{})
	f.ctrl.SetBuffer(helloPost)

	_, err := f.ctrl.ApplyFrontmatter(frontmatter.Fields{Title: " ", Date: "02/03/2025"})

	var fe frontmatter.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, helloPost, f.ctrl.State().Buffer)
}

func TestUploadAsset(t *testing.T) {
	var gotBranch, gotPath, gotMessage string
	host := &stubHost{uploadFn: func(_ context.Context, branch, path string, data []byte, message string) (*workspace.UploadResult, error) {
		gotBranch, gotPath, gotMessage = branch, path, message
		return &workspace.UploadResult{CommitSHA: "abc123"}, nil
	}}
	f := newFixture(t, host)
	f.ctrl.SetBuffer(helloPost)

	asset, err := f.ctrl.UploadAsset(context.Background(), "cat photo.png", []byte{0x89, 'P', 'N', 'G'}, "", "")
	require.NoError(t, err)

	assert.Equal(t, "content/hello-world", gotBranch)
	assert.Equal(t, "src/assets/2025/01/cat photo.png", gotPath)
	assert.Equal(t, "chore: add image src/assets/2025/01/cat photo.png", gotMessage)
	assert.Equal(t, &workspace.UploadedAsset{
		Path:      "src/assets/2025/01/cat photo.png",
		Markdown:  "![cat photo](src/assets/2025/01/cat photo.png)",
		CommitSHA: "abc123",
	}, asset)
	assert.Equal(t, 1, host.count("CreateBranch"))
}

func TestUploadAsset_ExplicitPathAndAlt(t *testing.T) {
	f := newFixture(t, &stubHost{})
	require.NoError(t, f.ctrl.ChooseBranch(context.Background(), "content/x"))

	asset, err := f.ctrl.UploadAsset(context.Background(), "a.png", []byte("x"), "img/a.png", "A diagram")
	require.NoError(t, err)
	assert.Equal(t, "![A diagram](img/a.png)", asset.Markdown)
}

// ─── draft operations ────────────────────────────────────────────────────────

func seed(t *testing.T, f *fixture, r drafts.Record) {
	t.Helper()
	require.NoError(t, f.drafts.inner.Save(context.Background(), r))
}

func TestListOpenDeleteDrafts(t *testing.T) {
	f := newFixture(t, &stubHost{})
	ctx := context.Background()
	older := drafts.Key{Owner: "acme", Repo: "site", Branch: "content/a", Path: "src/content/a.md"}
	newer := drafts.Key{Owner: "acme", Repo: "site", Branch: "content/b", Path: "src/content/b.md"}
	seed(t, f, drafts.Record{Key: older, Content: "older draft", UpdatedAt: 1000})
	seed(t, f, drafts.Record{Key: newer, Content: "newer draft", UpdatedAt: 2000})
	seed(t, f, drafts.Record{Key: drafts.Key{Owner: "other", Repo: "blog", Branch: "main", Path: "x.md"}, Content: "elsewhere", UpdatedAt: 3000})

	list, err := f.ctrl.ListDrafts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer, list[0].Key)
	assert.Equal(t, older, list[1].Key)
	assert.Equal(t, workspace.PickerDrafts, f.ctrl.State().Picker.Kind)

	require.NoError(t, f.ctrl.DeleteDraft(ctx, newer))
	assert.Len(t, f.ctrl.State().Picker.Drafts, 1)
	gone, err := f.drafts.inner.Get(ctx, newer)
	require.NoError(t, err)
	assert.Nil(t, gone)

	require.NoError(t, f.ctrl.OpenDraft(ctx, older))
	st := f.ctrl.State()
	assert.Equal(t, "older draft", st.Buffer)
	assert.Equal(t, "content/a", st.Context.Branch)
	assert.Equal(t, "src/content/a.md", st.ActivePath)
	assert.Equal(t, older, st.DraftKey)
	assert.True(t, st.Draft.HasDraft)
	assert.Equal(t, workspace.PickerNone, st.Picker.Kind)

	require.NoError(t, f.ctrl.DeleteDraft(ctx, older))
	assert.False(t, f.ctrl.State().Draft.HasDraft)
}

func TestOpenDraft_Missing(t *testing.T) {
	f := newFixture(t, &stubHost{})

	err := f.ctrl.OpenDraft(context.Background(), drafts.Key{Owner: "acme", Repo: "site", Branch: "b", Path: "p.md"})

	var nf workspace.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestListDrafts_StoreFailure(t *testing.T) {
	f := newFixture(t, &stubHost{})
	f.drafts.inner = drafts.NewStore(failingKV{})

	_, err := f.ctrl.ListDrafts(context.Background())

	var ls workspace.LocalStorageError
	require.ErrorAs(t, err, &ls)
}

func TestRestorePublished(t *testing.T) {
	host := &stubHost{getFileFn: func(_ context.Context, _, ref string) (string, error) {
		if ref == "main" {
			return "published", nil
		}
		return "on branch", nil
	}}
	f := newFixture(t, host)
	ctx := context.Background()
	path := "src/content/a.md"
	onMain := drafts.Key{Owner: "acme", Repo: "site", Branch: "main", Path: path}
	seed(t, f, drafts.Record{Key: onMain, Content: "stale main draft", UpdatedAt: 1})

	require.NoError(t, f.ctrl.ChooseBranch(ctx, "content/x"))
	require.NoError(t, f.ctrl.OpenFile(ctx, path))
	f.ctrl.SetBuffer("local edit")
	f.clock.Advance(workspace.DefaultDebounce)
	require.Eventually(t, func() bool { return f.drafts.saveCount() == 1 }, waitFor, tick)

	require.NoError(t, f.ctrl.RestorePublished(ctx))

	st := f.ctrl.State()
	assert.Equal(t, "published", st.Buffer)
	assert.False(t, st.Draft.HasDraft)
	for _, k := range []drafts.Key{onMain, st.DraftKey} {
		rec, err := f.drafts.inner.Get(ctx, k)
		require.NoError(t, err)
		assert.Nil(t, rec, k.String())
	}
}

func TestRestorePublished_NoActiveFile(t *testing.T) {
	f := newFixture(t, &stubHost{})
	err := f.ctrl.RestorePublished(context.Background())
	require.ErrorIs(t, err, workspace.ErrNoActiveFile)
}

// failingKV fails every call.
type failingKV struct{}

var errDiskFull = errors.New("disk full")

func (failingKV) Get(context.Context, string) (string, bool, error) { return "", false, errDiskFull }
func (failingKV) Set(context.Context, string, string) error         { return errDiskFull }
func (failingKV) Delete(context.Context, string) error              { return errDiskFull }
func (failingKV) Keys(context.Context, string) ([]string, error)    { return nil, errDiskFull }
