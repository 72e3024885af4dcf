package workspace

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveFile is returned by operations that need an active path.
	ErrNoActiveFile = errors.New("no active file: open or name a file first")
	// ErrNoWorkingContext is returned when an operation needs a bound branch.
	ErrNoWorkingContext = errors.New("no branch selected: pick a change request or branch first")
	// ErrSuperseded is returned when a context switch happened while the
	// operation's remote call was in flight. Its result was discarded.
	ErrSuperseded = errors.New("superseded by a context switch")
	// ErrNoChanges is returned when a commit would carry no file changes.
	ErrNoChanges = errors.New("nothing to commit")
	// ErrBranchNamesExhausted is returned when every suffixed candidate name
	// for a new branch is already taken.
	ErrBranchNamesExhausted = errors.New("no free branch name found")
)

// MissingConfigError is returned when the repository coordinate is not configured.
type MissingConfigError struct {
	Field string
}

// Error implements the error interface.
func (e MissingConfigError) Error() string {
	return fmt.Sprintf("missing %s in the editor config", e.Field)
}

// RemoteError is any failure reported by the repository host. Message is the
// host's own text and is shown to the user unchanged.
type RemoteError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e RemoteError) Error() string {
	return e.Message
}

func (e RemoteError) Unwrap() error { return e.Err }

// NotFoundError is a RemoteError for a missing branch, file or change request.
type NotFoundError struct {
	Message string
}

// Error implements the error interface.
func (e NotFoundError) Error() string {
	return e.Message
}

// ConflictError is returned when the host reports a conflicting state, such
// as an empty repository or a branch head that moved.
type ConflictError struct {
	Message string
}

// Error implements the error interface.
func (e ConflictError) Error() string {
	return e.Message
}

// AlreadyExistsError is returned when creating a ref that is already there.
type AlreadyExistsError struct {
	Name string
}

// Error implements the error interface.
func (e AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists", e.Name)
}

// LocalStorageError wraps a draft store failure on an explicit draft operation.
type LocalStorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e LocalStorageError) Error() string {
	return fmt.Sprintf("local storage: %s: %v", e.Op, e.Err)
}

func (e LocalStorageError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
