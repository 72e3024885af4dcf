package workspace

import "fmt"

// Coordinate identifies the remote repository.
type Coordinate struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// IsZero reports whether either half of the coordinate is missing.
func (c Coordinate) IsZero() bool {
	return c.Owner == "" || c.Repo == ""
}

func (c Coordinate) String() string {
	return c.Owner + "/" + c.Repo
}

// WorkingContext is the branch, and optionally the change request, that
// edits currently land on.
type WorkingContext struct {
	ChangeRequest *int   `json:"changeRequest,omitempty"`
	Branch        string `json:"branch"`
	URL           string `json:"url"`
}

// FileChange is one pending text write.
type FileChange struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Branch is a remote branch.
type Branch struct {
	Name string `json:"name"`
}

// ChangeRequest is a pull request as listed or fetched from the host.
type ChangeRequest struct {
	Number     int    `json:"number"`
	Title      string `json:"title"`
	HeadBranch string `json:"headBranch"`
	URL        string `json:"url"`
}

// ChangeRequestRef is the minimal handle to an existing change request.
type ChangeRequestRef struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// CreatedChangeRequest is returned by CreateChangeRequestWithCommit. HeadBranch
// is the name actually used, which may carry a -N suffix.
type CreatedChangeRequest struct {
	Number     int    `json:"number"`
	URL        string `json:"url"`
	HeadBranch string `json:"headBranch"`
}

// UploadResult identifies the commit and blob written by UploadBinary.
type UploadResult struct {
	CommitSHA string `json:"commitSha"`
	BlobSHA   string `json:"blobSha"`
}

// UploadedAsset is what UploadAsset hands back for insertion into the buffer.
type UploadedAsset struct {
	Path      string `json:"path"`
	Markdown  string `json:"markdown"`
	CommitSHA string `json:"commitSha"`
}

// TreeURL is the web URL of a branch's file tree.
func TreeURL(webURL string, c Coordinate, branch string) string {
	return fmt.Sprintf("%s/%s/%s/tree/%s", webURL, c.Owner, c.Repo, branch)
}
