// Package apperr defines the error values shared across the storage, sync and
// session layers. Callers match them with errors.Is and errors.As.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a keyed entity (issue, comment, label,
	// milestone) does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDiverged is returned by sync when local and remote history have
	// diverged and a fast-forward is impossible.
	ErrDiverged = errors.New("merge required, please resolve conflicts manually")

	// ErrAuth is returned when the hosted service rejects the credential.
	ErrAuth = errors.New("authentication failed")

	// ErrLabelExists is returned when creating a label whose name is taken.
	ErrLabelExists = errors.New("label already exists")

	// ErrSessionRunning is returned when a session for the same issue is
	// still running.
	ErrSessionRunning = errors.New("session already running")

	// ErrSessionNotFound is returned when no session was ever started for a key.
	ErrSessionNotFound = errors.New("no session found")

	// ErrSessionStarting is returned when cancelling a session whose process
	// is still being spawned.
	ErrSessionStarting = errors.New("session is still starting, retry shortly")

	// ErrNoActiveProcess is returned when cancelling a session that already finished.
	ErrNoActiveProcess = errors.New("session has no active process")

	// ErrInvalid is returned when caller input is rejected before any write.
	ErrInvalid = errors.New("invalid input")
)

// NotFound wraps ErrNotFound with a description of what was missing.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Invalid wraps ErrInvalid with a description of the rejected input.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalid)
}

// RepoCreationForbiddenError signals that the token lacks permission to create
// repositories. Callers offer a manual setup path instead of failing.
type RepoCreationForbiddenError struct {
	Name string
}

func (e *RepoCreationForbiddenError) Error() string {
	return "REPO_CREATE_FORBIDDEN:" + e.Name
}

// StoreIDMismatchError signals that a project is bound to a different backing
// store than the one found on disk.
type StoreIDMismatchError struct {
	Expected string
	Actual   string
}

func (e *StoreIDMismatchError) Error() string {
	return fmt.Sprintf("store id mismatch: project expects %q but store has %q; this backing store belongs to a different project",
		e.Expected, e.Actual)
}

// MalformedDocumentError is returned when a stored record cannot be decoded.
// It is fatal for that read; documents are never repaired automatically.
type MalformedDocumentError struct {
	Path string
	Err  error
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed document %s: %v", e.Path, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}
