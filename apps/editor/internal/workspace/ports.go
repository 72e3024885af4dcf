package workspace

import (
	"context"

	"github.com/tilsley/quill/apps/editor/internal/drafts"
)

// RepositoryHost is the remote repository. The GitHub adapter implements it;
// tests substitute stubs. Errors are the types in errors.go.
type RepositoryHost interface {
	// GetFileContent returns the text of path at ref, or NotFoundError.
	GetFileContent(ctx context.Context, c Coordinate, path, ref string) (string, error)
	// ListPaths returns every file path at ref.
	ListPaths(ctx context.Context, c Coordinate, ref string) ([]string, error)
	ListBranches(ctx context.Context, c Coordinate) ([]Branch, error)
	// CreateBranch forks name off base. AlreadyExistsError if name is taken.
	CreateBranch(ctx context.Context, c Coordinate, base, name string) error
	ListOpenChangeRequests(ctx context.Context, c Coordinate) ([]ChangeRequest, error)
	GetChangeRequest(ctx context.Context, c Coordinate, number int) (*ChangeRequest, error)
	// FindChangeRequestForBranch returns the open change request whose head is
	// exactly head, or nil.
	FindChangeRequestForBranch(ctx context.Context, c Coordinate, head string) (*ChangeRequestRef, error)
	OpenChangeRequestForBranch(ctx context.Context, c Coordinate, head, base, title, body string) (*ChangeRequestRef, error)
	// CreateChangeRequestWithCommit commits changes on top of base into a new,
	// uniquely named branch and opens a change request for it. NotFoundError
	// when base is missing, ConflictError when the repository is empty.
	CreateChangeRequestWithCommit(ctx context.Context, c Coordinate, base, branch, title, body string, changes []FileChange) (*CreatedChangeRequest, error)
	// CommitToBranch commits changes on top of branch and returns the new commit SHA.
	CommitToBranch(ctx context.Context, c Coordinate, branch, message string, changes []FileChange) (string, error)
	UploadBinary(ctx context.Context, c Coordinate, branch, path string, data []byte, message string) (*UploadResult, error)
	ListChangeRequestFiles(ctx context.Context, c Coordinate, number int) ([]string, error)
	CompareBranchToBase(ctx context.Context, c Coordinate, base, head string) ([]string, error)
}

// DraftStore persists drafts. *drafts.Store implements it.
type DraftStore interface {
	Get(ctx context.Context, k drafts.Key) (*drafts.Record, error)
	Save(ctx context.Context, r drafts.Record) error
	Delete(ctx context.Context, k drafts.Key) error
	List(ctx context.Context, f drafts.Filter) ([]drafts.Record, error)
}

// Compile-time check: *drafts.Store implements DraftStore.
var _ DraftStore = (*drafts.Store)(nil)
