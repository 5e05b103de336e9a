package gps

import (
	"fmt"

	"github.com/pkg/errors"
)

// errWrap adds context to a lower-level error without discarding it.
func errWrap(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// errFmt creates a new leaf error, matching pkg/errors.Errorf's call shape
// for the (rare) cases where there is no underlying error to wrap.
func errFmt(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// UnsupportedToolsVersion reports that a manifest's declared tools-version
// falls outside [MinimumSupportedToolsVersion, current].
type UnsupportedToolsVersion struct {
	Declared ToolsVersion
	Current  ToolsVersion
}

func (e *UnsupportedToolsVersion) Error() string {
	switch {
	case e.Declared.Compare(e.Current) > 0:
		return fmt.Sprintf("manifest requires tools-version %s, but this workspace's tools-version is %s", e.Declared, e.Current)
	default:
		return fmt.Sprintf("manifest's tools-version %s is older than the minimum supported %s", e.Declared, MinimumSupportedToolsVersion)
	}
}

// GetDependenciesError wraps a failure to read a manifest's dependencies at
// a particular reference within a repository, preserving enough context
// (repository, reference, and the underlying cause) for a caller to report.
type GetDependenciesError struct {
	Repository string
	Reference  string
	Underlying error
}

func (e *GetDependenciesError) Error() string {
	return fmt.Sprintf("could not get dependencies for %s@%s: %v", e.Repository, e.Reference, e.Underlying)
}

func (e *GetDependenciesError) Unwrap() error { return e.Underlying }

// BranchNotFoundError reports a lookup for a nonexistent branch, suggesting
// the closest existing branch name by Levenshtein distance when one is
// within the accepted threshold.
type BranchNotFoundError struct {
	Repository string
	Requested  string
	Suggestion string
}

func (e *BranchNotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("no branch %q in %s; did you mean %q?", e.Requested, e.Repository, e.Suggestion)
	}
	return fmt.Sprintf("no branch %q in %s", e.Requested, e.Repository)
}

// RevisionNotFoundError reports a lookup for a nonexistent commit id.
type RevisionNotFoundError struct {
	Repository string
	Requested  string
}

func (e *RevisionNotFoundError) Error() string {
	return fmt.Sprintf("no commit %q in %s", e.Requested, e.Repository)
}
