package gps

// FetchDetails reports the provenance of a completed fetch: whether the
// shared cache was used, and whether the cache itself was updated from
// upstream as part of servicing the request.
type FetchDetails struct {
	FromCache    bool
	UpdatedCache bool
}

// RepositoryHandle names a materialized bare clone: the specifier that
// identifies the upstream repository, and the subpath (a single path
// component, equal to the specifier's filesystem identifier) under a
// RepositoryManager's working directory where that clone lives. A handle is
// immutable after creation; only the manager's fetch paths mutate the
// on-disk clone it points at.
type RepositoryHandle struct {
	Specifier RepositorySpecifier
	Subpath   string

	managerID managerID
}

// manager resolves the RepositoryManager that produced this handle, via the
// process-wide registry keyed by managerID. This indirection exists so a
// handle can refer back to its manager without the two holding a reference
// cycle to each other: the registry, not the handle, owns the pointer.
func (h RepositoryHandle) manager() (*RepositoryManager, bool) {
	return lookupManager(h.managerID)
}

// Path returns the absolute filesystem path of this handle's bare clone.
func (h RepositoryHandle) Path() string {
	m, ok := h.manager()
	if !ok {
		return ""
	}
	return m.clonePath(h.Subpath)
}

// ProgressCallback is invoked zero or more times during a fetch with
// provider-defined progress text (e.g. a VCS client's transfer-progress
// lines). It must not block.
type ProgressCallback func(text string)

// RepositoryProvider is the external collaborator that knows how to
// actually speak to source control: fetch/open/copy bare repositories. The
// Repository Manager depends only on this interface; the concrete VCS
// protocol is out of scope for the core itself.
type RepositoryProvider interface {
	// Fetch populates (or updates) a bare clone of spec at dest, invoking
	// progress zero or more times with provider-defined status text.
	Fetch(spec RepositorySpecifier, dest string, progress ProgressCallback) error
	// Copy recursively copies the bare clone at src to dst.
	Copy(src, dst string) error
	// IsValidDirectory reports whether path looks like a valid bare clone
	// this provider produced.
	IsValidDirectory(path string) bool
	// IsValidRefFormat reports whether ref is syntactically a valid
	// tag/branch/revision name for this provider's VCS.
	IsValidRefFormat(ref string) bool
	// Tags lists the tags visible in the bare clone at path.
	Tags(path string) ([]string, error)
	// Branches lists the branches visible in the bare clone at path.
	Branches(path string) ([]string, error)
	// ResolveRevision resolves a tag, branch, or short/long commit id to a
	// full revision id within the bare clone at path.
	ResolveRevision(path, ref string) (string, error)
	// ExportRevisionTo checks out a clean copy of the tree at revision rev,
	// without VCS metadata, into destDir.
	ExportRevisionTo(path, rev, destDir string) error
	// ReadFileAt returns the contents of relPath as it existed at revision
	// rev. The default git provider does so by checking rev out in place and
	// exporting the whole tree to a scratch directory.
	ReadFileAt(path, rev, relPath string) ([]byte, error)
}
