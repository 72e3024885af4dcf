// Package github implements workspace.RepositoryHost on the official go-github
// library. Writes go through the Git Data API (refs, commits, trees, blobs) so
// a change lands as exactly one commit. Wire it up with an authenticated
// *github.Client from apps/editor/internal/platform/github.
package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	gogithub "github.com/google/go-github/v75/github"

	"github.com/tilsley/quill/apps/editor/internal/workspace"
)

const (
	// maxBranchAttempts bounds the name-suffix search in ensureUniqueBranch.
	maxBranchAttempts = 1000
	openPullsPerPage  = 20
	listPerPage       = 100
	fileMode          = "100644"
)

var commitSHA = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Compile-time check: *Adapter implements workspace.RepositoryHost.
var _ workspace.RepositoryHost = (*Adapter)(nil)

// Adapter wraps a go-github client.
type Adapter struct {
	gh         *gogithub.Client
	log        *slog.Logger
	verifyHead bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithVerifyHead makes branch commits re-read the branch head just before
// moving the ref and fail with workspace.ConflictError if it changed.
func WithVerifyHead(on bool) Option {
	return func(a *Adapter) { a.verifyHead = on }
}

// WithLogger sets the adapter's logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// New creates an Adapter from an authenticated *github.Client.
func New(gh *gogithub.Client, opts ...Option) *Adapter {
	a := &Adapter{gh: gh, log: slog.Default()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ─── reads ───────────────────────────────────────────────────────────────────

// GetFileContent fetches a single file at ref and returns its decoded text.
func (a *Adapter) GetFileContent(ctx context.Context, c workspace.Coordinate, path, ref string) (string, error) {
	fc, _, _, err := a.gh.Repositories.GetContents(ctx, c.Owner, c.Repo, path,
		&gogithub.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", mapError(err, path)
	}
	if fc == nil {
		return "", workspace.NotFoundError{Message: fmt.Sprintf("%s is a directory, not a file", path)}
	}
	content, err := fc.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode content %s: %w", path, err)
	}
	return content, nil
}

// ListPaths returns every blob path in the tree at ref. ref may be a branch
// name or a full commit SHA.
func (a *Adapter) ListPaths(ctx context.Context, c workspace.Coordinate, ref string) ([]string, error) {
	sha := ref
	if !commitSHA.MatchString(ref) {
		head, err := a.head(ctx, c, ref)
		if err != nil {
			return nil, err
		}
		sha = head
	}
	commit, _, err := a.gh.Git.GetCommit(ctx, c.Owner, c.Repo, sha)
	if err != nil {
		return nil, mapError(err, sha)
	}
	tree, _, err := a.gh.Git.GetTree(ctx, c.Owner, c.Repo, commit.GetTree().GetSHA(), true)
	if err != nil {
		return nil, mapError(err, ref)
	}
	if tree.GetTruncated() {
		a.log.Warn("repository tree truncated", "repo", c.String(), "ref", ref)
	}

	paths := make([]string, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.GetType() == "blob" {
			paths = append(paths, e.GetPath())
		}
	}
	return paths, nil
}

// ListBranches returns every branch, following pagination.
func (a *Adapter) ListBranches(ctx context.Context, c workspace.Coordinate) ([]workspace.Branch, error) {
	opts := &gogithub.BranchListOptions{ListOptions: gogithub.ListOptions{PerPage: listPerPage}}
	var out []workspace.Branch
	for {
		branches, resp, err := a.gh.Repositories.ListBranches(ctx, c.Owner, c.Repo, opts)
		if err != nil {
			return nil, mapError(err, c.String())
		}
		for _, b := range branches {
			out = append(out, workspace.Branch{Name: b.GetName()})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListOpenChangeRequests returns the most recent open pull requests.
func (a *Adapter) ListOpenChangeRequests(ctx context.Context, c workspace.Coordinate) ([]workspace.ChangeRequest, error) {
	prs, _, err := a.gh.PullRequests.List(ctx, c.Owner, c.Repo, &gogithub.PullRequestListOptions{
		State:       "open",
		ListOptions: gogithub.ListOptions{PerPage: openPullsPerPage},
	})
	if err != nil {
		return nil, mapError(err, c.String())
	}
	out := make([]workspace.ChangeRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, toChangeRequest(pr))
	}
	return out, nil
}

// GetChangeRequest fetches one pull request.
func (a *Adapter) GetChangeRequest(ctx context.Context, c workspace.Coordinate, number int) (*workspace.ChangeRequest, error) {
	pr, _, err := a.gh.PullRequests.Get(ctx, c.Owner, c.Repo, number)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("#%d", number))
	}
	cr := toChangeRequest(pr)
	return &cr, nil
}

// FindChangeRequestForBranch returns the open pull request whose head is
// exactly head, or nil when there is none.
func (a *Adapter) FindChangeRequestForBranch(ctx context.Context, c workspace.Coordinate, head string) (*workspace.ChangeRequestRef, error) {
	prs, _, err := a.gh.PullRequests.List(ctx, c.Owner, c.Repo, &gogithub.PullRequestListOptions{
		State: "open",
		Head:  c.Owner + ":" + head,
	})
	if err != nil {
		return nil, mapError(err, head)
	}
	for _, pr := range prs {
		if pr.GetHead().GetRef() == head {
			return &workspace.ChangeRequestRef{Number: pr.GetNumber(), URL: pr.GetHTMLURL()}, nil
		}
	}
	return nil, nil //nolint:nilnil // absent pull request is not an error
}

// ListChangeRequestFiles returns the paths touched by a pull request.
func (a *Adapter) ListChangeRequestFiles(ctx context.Context, c workspace.Coordinate, number int) ([]string, error) {
	opts := &gogithub.ListOptions{PerPage: listPerPage}
	var out []string
	for {
		files, resp, err := a.gh.PullRequests.ListFiles(ctx, c.Owner, c.Repo, number, opts)
		if err != nil {
			return nil, mapError(err, fmt.Sprintf("#%d", number))
		}
		for _, f := range files {
			out = append(out, f.GetFilename())
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// CompareBranchToBase returns the paths that differ between base and head.
func (a *Adapter) CompareBranchToBase(ctx context.Context, c workspace.Coordinate, base, head string) ([]string, error) {
	cmp, _, err := a.gh.Repositories.CompareCommits(ctx, c.Owner, c.Repo, base, head, nil)
	if err != nil {
		return nil, mapError(err, base+"..."+head)
	}
	out := make([]string, 0, len(cmp.Files))
	for _, f := range cmp.Files {
		out = append(out, f.GetFilename())
	}
	return out, nil
}

// ─── writes ──────────────────────────────────────────────────────────────────

// CreateBranch points a new branch name at base's head.
func (a *Adapter) CreateBranch(ctx context.Context, c workspace.Coordinate, base, name string) error {
	sha, err := a.baseHead(ctx, c, base)
	if err != nil {
		return err
	}
	if _, _, err := a.gh.Git.CreateRef(ctx, c.Owner, c.Repo, gogithub.CreateRef{
		Ref: "refs/heads/" + name,
		SHA: sha,
	}); err != nil {
		return mapError(err, name)
	}
	a.log.Info("branch created", "repo", c.String(), "branch", name, "base", base)
	return nil
}

// OpenChangeRequestForBranch opens a pull request for an existing branch.
func (a *Adapter) OpenChangeRequestForBranch(ctx context.Context, c workspace.Coordinate, head, base, title, body string) (*workspace.ChangeRequestRef, error) {
	pr, _, err := a.gh.PullRequests.Create(ctx, c.Owner, c.Repo, &gogithub.NewPullRequest{
		Title: gogithub.Ptr(title),
		Body:  gogithub.Ptr(body),
		Head:  gogithub.Ptr(head),
		Base:  gogithub.Ptr(base),
	})
	if err != nil {
		return nil, mapError(err, head)
	}
	return &workspace.ChangeRequestRef{Number: pr.GetNumber(), URL: pr.GetHTMLURL()}, nil
}

// CreateChangeRequestWithCommit commits changes on top of base, points a
// fresh branch at the commit and opens a pull request for it:
//
//  1. resolve base head (actionable errors for a missing base or empty repo)
//  2. tree on top of the base tree, commit with the base as parent
//  3. first free name among branch, branch-1, branch-2, ...
//  4. create the ref, open the pull request
func (a *Adapter) CreateChangeRequestWithCommit(ctx context.Context, c workspace.Coordinate, base, branch, title, body string, changes []workspace.FileChange) (*workspace.CreatedChangeRequest, error) {
	if len(changes) == 0 {
		return nil, workspace.ErrNoChanges
	}
	baseSHA, err := a.baseHead(ctx, c, base)
	if err != nil {
		return nil, err
	}

	message := title
	if body != "" {
		message = title + "\n\n" + body
	}
	commit, err := a.commitOnto(ctx, c, baseSHA, message, textEntries(changes))
	if err != nil {
		return nil, err
	}

	name, err := a.ensureUniqueBranch(ctx, c, branch)
	if err != nil {
		return nil, err
	}
	if _, _, err := a.gh.Git.CreateRef(ctx, c.Owner, c.Repo, gogithub.CreateRef{
		Ref: "refs/heads/" + name,
		SHA: commit,
	}); err != nil {
		return nil, mapError(err, name)
	}

	pr, _, err := a.gh.PullRequests.Create(ctx, c.Owner, c.Repo, &gogithub.NewPullRequest{
		Title: gogithub.Ptr(title),
		Body:  gogithub.Ptr(body),
		Head:  gogithub.Ptr(name),
		Base:  gogithub.Ptr(base),
	})
	if err != nil {
		return nil, mapError(err, name)
	}
	a.log.Info("pull request created", "repo", c.String(), "number", pr.GetNumber(), "branch", name)
	return &workspace.CreatedChangeRequest{
		Number:     pr.GetNumber(),
		URL:        pr.GetHTMLURL(),
		HeadBranch: name,
	}, nil
}

// CommitToBranch commits changes on top of branch and moves the branch.
func (a *Adapter) CommitToBranch(ctx context.Context, c workspace.Coordinate, branch, message string, changes []workspace.FileChange) (string, error) {
	if len(changes) == 0 {
		return "", workspace.ErrNoChanges
	}
	return a.commitToBranch(ctx, c, branch, message, textEntries(changes))
}

// UploadBinary stores data as a base64 blob and commits it at path on branch.
func (a *Adapter) UploadBinary(ctx context.Context, c workspace.Coordinate, branch, path string, data []byte, message string) (*workspace.UploadResult, error) {
	blob, _, err := a.gh.Git.CreateBlob(ctx, c.Owner, c.Repo, gogithub.Blob{
		Content:  gogithub.Ptr(base64.StdEncoding.EncodeToString(data)),
		Encoding: gogithub.Ptr("base64"),
	})
	if err != nil {
		return nil, mapError(err, path)
	}
	sha, err := a.commitToBranch(ctx, c, branch, message, []*gogithub.TreeEntry{{
		Path: gogithub.Ptr(path),
		Mode: gogithub.Ptr(fileMode),
		Type: gogithub.Ptr("blob"),
		SHA:  blob.SHA,
	}})
	if err != nil {
		return nil, err
	}
	return &workspace.UploadResult{CommitSHA: sha, BlobSHA: blob.GetSHA()}, nil
}

func (a *Adapter) commitToBranch(ctx context.Context, c workspace.Coordinate, branch, message string, entries []*gogithub.TreeEntry) (string, error) {
	parent, err := a.head(ctx, c, branch)
	if err != nil {
		return "", err
	}
	sha, err := a.commitOnto(ctx, c, parent, message, entries)
	if err != nil {
		return "", err
	}

	if a.verifyHead {
		current, err := a.head(ctx, c, branch)
		if err != nil {
			return "", err
		}
		if current != parent {
			return "", workspace.ConflictError{
				Message: fmt.Sprintf("Branch '%s' changed while saving. Reload it and try again.", branch),
			}
		}
	}

	if _, _, err := a.gh.Git.UpdateRef(ctx, c.Owner, c.Repo, "heads/"+branch, gogithub.UpdateRef{SHA: sha}); err != nil {
		return "", mapError(err, branch)
	}
	a.log.Debug("branch updated", "repo", c.String(), "branch", branch, "sha", sha)
	return sha, nil
}

// commitOnto creates a tree on top of parent's tree and a commit for it.
func (a *Adapter) commitOnto(ctx context.Context, c workspace.Coordinate, parent, message string, entries []*gogithub.TreeEntry) (string, error) {
	base, _, err := a.gh.Git.GetCommit(ctx, c.Owner, c.Repo, parent)
	if err != nil {
		return "", mapError(err, parent)
	}
	tree, _, err := a.gh.Git.CreateTree(ctx, c.Owner, c.Repo, base.GetTree().GetSHA(), entries)
	if err != nil {
		return "", mapError(err, "tree")
	}
	commit, _, err := a.gh.Git.CreateCommit(ctx, c.Owner, c.Repo, gogithub.Commit{
		Message: gogithub.Ptr(message),
		Tree:    &gogithub.Tree{SHA: tree.SHA},
		Parents: []*gogithub.Commit{{SHA: gogithub.Ptr(parent)}},
	}, nil)
	if err != nil {
		return "", mapError(err, "commit")
	}
	return commit.GetSHA(), nil
}

// ensureUniqueBranch returns branch, or the first of branch-1, branch-2, ...
// that does not exist yet.
func (a *Adapter) ensureUniqueBranch(ctx context.Context, c workspace.Coordinate, branch string) (string, error) {
	for n := range maxBranchAttempts {
		candidate := branch
		if n > 0 {
			candidate = fmt.Sprintf("%s-%d", branch, n)
		}
		_, err := a.head(ctx, c, candidate)
		if workspace.IsNotFound(err) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%s: %w", branch, workspace.ErrBranchNamesExhausted)
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (a *Adapter) head(ctx context.Context, c workspace.Coordinate, branch string) (string, error) {
	ref, _, err := a.gh.Git.GetRef(ctx, c.Owner, c.Repo, "heads/"+branch)
	if err != nil {
		return "", mapError(err, branch)
	}
	return ref.GetObject().GetSHA(), nil
}

// baseHead is head with the messages a user needs when the base is unusable.
func (a *Adapter) baseHead(ctx context.Context, c workspace.Coordinate, base string) (string, error) {
	sha, err := a.head(ctx, c, base)
	var (
		nf workspace.NotFoundError
		ce workspace.ConflictError
	)
	switch {
	case errors.As(err, &nf):
		return "", workspace.NotFoundError{Message: fmt.Sprintf(
			"Base branch '%s' not found. Ensure the repository has an initial commit on '%s' and try again.", base, base)}
	case errors.As(err, &ce):
		return "", workspace.ConflictError{Message: "Repository is empty. Create an initial commit on the default branch " +
			"(e.g., add a README) before creating a PR."}
	case err != nil:
		return "", err
	}
	return sha, nil
}

func textEntries(changes []workspace.FileChange) []*gogithub.TreeEntry {
	entries := make([]*gogithub.TreeEntry, 0, len(changes))
	for _, ch := range changes {
		entries = append(entries, &gogithub.TreeEntry{
			Path:    gogithub.Ptr(ch.Path),
			Mode:    gogithub.Ptr(fileMode),
			Type:    gogithub.Ptr("blob"),
			Content: gogithub.Ptr(ch.Content),
		})
	}
	return entries
}

func toChangeRequest(pr *gogithub.PullRequest) workspace.ChangeRequest {
	return workspace.ChangeRequest{
		Number:     pr.GetNumber(),
		Title:      pr.GetTitle(),
		HeadBranch: pr.GetHead().GetRef(),
		URL:        pr.GetHTMLURL(),
	}
}

// mapError translates a go-github error into the workspace error taxonomy.
// subject names the ref, path or pull request the call was about.
func mapError(err error, subject string) error {
	var ghErr *gogithub.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return workspace.RemoteError{Message: err.Error(), Err: err}
	}
	msg := ghErr.Message
	if msg == "" {
		msg = http.StatusText(ghErr.Response.StatusCode)
	}
	switch ghErr.Response.StatusCode {
	case http.StatusNotFound:
		return workspace.NotFoundError{Message: msg}
	case http.StatusConflict:
		return workspace.ConflictError{Message: msg}
	case http.StatusUnprocessableEntity:
		switch {
		case strings.Contains(msg, "Reference already exists"):
			return workspace.AlreadyExistsError{Name: subject}
		case strings.Contains(msg, "not a fast forward"):
			return workspace.ConflictError{Message: fmt.Sprintf("Branch '%s' moved on the remote. Reload it and try again.", subject)}
		}
	}
	return workspace.RemoteError{Message: msg, Err: err}
}
