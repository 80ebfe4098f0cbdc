package workspace

import (
	"errors"
	"fmt"
)

// ErrManifestNotFound indicates none of the candidate manifest files exist.
var ErrManifestNotFound = errors.New("workspace manifest not found")

// ManifestError reports a manifest that is missing or does not have the
// expected shape. It aborts the run before any analysis begins.
type ManifestError struct {
	Path string // Manifest path, or the workspace root when none was found
	Err  error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("invalid workspace manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// UnresolvedFileError reports a file that no project's source root owns.
// Aggregation relies on every file belonging to exactly one project, so this
// is fatal for the whole run.
type UnresolvedFileError struct {
	FilePath string // Path as handed to the resolver
	Relative string // Workspace-relative, forward-slash form that was matched
}

func (e *UnresolvedFileError) Error() string {
	return fmt.Sprintf("cannot find project for file %s (%s)", e.FilePath, e.Relative)
}
