package gps

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/kranesoft/wscore/gps/internal/fsutil"
	"github.com/kranesoft/wscore/gps/internal/xexec"
	"github.com/kranesoft/wscore/internal/xlog"
)

// RepositoryManagerDelegate receives ordering-guaranteed callbacks around
// a lookup's fetch: fetchingWillBegin precedes all progress, which
// precedes fetchingDidFinish, which precedes the lookup's own completion.
// All methods are optional; embed NopManagerDelegate to satisfy the
// interface without implementing every method.
type RepositoryManagerDelegate interface {
	FetchingWillBegin(spec RepositorySpecifier)
	FetchingProgress(spec RepositorySpecifier, text string)
	FetchingDidFinish(spec RepositorySpecifier, err error, duration time.Duration)
	HandleWillUpdate(spec RepositorySpecifier)
	HandleDidUpdate(spec RepositorySpecifier, duration time.Duration)
}

// NopManagerDelegate implements RepositoryManagerDelegate with no-ops, for
// callers that don't need progress/lifecycle notifications.
type NopManagerDelegate struct{}

func (NopManagerDelegate) FetchingWillBegin(RepositorySpecifier)                    {}
func (NopManagerDelegate) FetchingProgress(RepositorySpecifier, string)             {}
func (NopManagerDelegate) FetchingDidFinish(RepositorySpecifier, error, time.Duration) {}
func (NopManagerDelegate) HandleWillUpdate(RepositorySpecifier)                     {}
func (NopManagerDelegate) HandleDidUpdate(RepositorySpecifier, time.Duration)       {}

// ManagerOptions configures a RepositoryManager.
type ManagerOptions struct {
	// WorkingDir holds the manager's state file (checkouts-state.json) and a
	// repositories/ directory with one bare clone per specifier's filesystem
	// identifier.
	WorkingDir string
	// SharedCacheDir, if non-empty, is a second-tier cache of bare clones
	// shared across workspaces/processes, consulted by the two-tier fetch
	// algorithm.
	SharedCacheDir string
	// CacheLocalPackages forces local (path-based) specifiers through the
	// shared cache too, matching the SWIFTPM_TESTS_PACKAGECACHE environment
	// toggle.
	CacheLocalPackages bool
	// MaxConcurrentLookups bounds the worker pool; defaults to
	// min(3, maxOps).
	MaxConcurrentLookups int
	Provider             RepositoryProvider
	Delegate             RepositoryManagerDelegate
	Logger               *xlog.Logger
}

func (o *ManagerOptions) setDefaults() {
	if o.Provider == nil {
		o.Provider = NewVCSProvider()
	}
	if o.Delegate == nil {
		o.Delegate = NopManagerDelegate{}
	}
	if o.Logger == nil {
		o.Logger = xlog.New(nil)
	}
	if o.MaxConcurrentLookups <= 0 || o.MaxConcurrentLookups > 3 {
		o.MaxConcurrentLookups = 3
	}
}

// pendingLookup is the single-flight rendezvous for a specifier: the first
// caller registers it, later concurrent callers for the same specifier wait
// on done and then re-enter lookup to pick up the winner's result.
type pendingLookup struct {
	done chan struct{}
}

// RepositoryManager is a concurrent, content-addressed cache of bare
// source-control clones with cross-process locking, a shared second-tier
// cache, and durable on-disk state.
type RepositoryManager struct {
	opts ManagerOptions
	id   managerID

	storage *managerStorage
	pool    xexec.Executor

	mu      sync.Mutex // guards repos
	repos   map[string]RepositoryHandle

	pendingMu sync.Mutex // guards pending
	pending   map[string]*pendingLookup
}

// NewManager constructs a RepositoryManager rooted at opts.WorkingDir,
// loading any prior state found there.
func NewManager(opts ManagerOptions) (*RepositoryManager, error) {
	opts.setDefaults()

	m := &RepositoryManager{
		opts:    opts,
		storage: newManagerStorage(opts.WorkingDir+"/checkouts-state.json", opts.Logger),
		pool:    xexec.NewPool(opts.MaxConcurrentLookups),
		repos:   map[string]RepositoryHandle{},
		pending: map[string]*pendingLookup{},
	}
	m.id = registerManager(m)

	for key, entry := range m.storage.load() {
		m.repos[key] = RepositoryHandle{
			Specifier: specifierFromEntry(entry),
			Subpath:   entry.Subpath,
			managerID: m.id,
		}
	}
	return m, nil
}

// Close releases process-wide resources (the manager registry entry, the
// worker pool). It does not touch on-disk state.
func (m *RepositoryManager) Close() {
	unregisterManager(m.id)
	if p, ok := m.pool.(*xexec.Pool); ok {
		p.Close()
	}
}

func specifierFromEntry(e repositoryEntry) RepositorySpecifier {
	return RemoteRepositorySpecifier(e.RepositoryURL)
}

func (m *RepositoryManager) clonePath(subpath string) string {
	return m.opts.WorkingDir + "/repositories/" + subpath
}

// LookupCompletion receives the result of an asynchronous Lookup.
type LookupCompletion func(RepositoryHandle, error)

// Lookup returns a handle whose bare clone is present, fetching updates
// unless skipUpdate is set, with concurrent callers for the same specifier
// coalesced into one in-flight fetch (single-flight).
func (m *RepositoryManager) Lookup(spec RepositorySpecifier, skipUpdate bool, on xexec.Executor, completion LookupCompletion) {
	if on == nil {
		on = xexec.Inline{}
	}
	m.pool.Post(func() {
		h, err := m.lookupSync(spec, skipUpdate)
		on.Post(func() { completion(h, err) })
	})
}

// LookupSync is the synchronous form of Lookup, used by tests and by
// callers already on a background goroutine; it delegates to the same
// code path as the asynchronous entry point.
func (m *RepositoryManager) LookupSync(spec RepositorySpecifier, skipUpdate bool) (RepositoryHandle, error) {
	return m.lookupSync(spec, skipUpdate)
}

func (m *RepositoryManager) lookupSync(spec RepositorySpecifier, skipUpdate bool) (RepositoryHandle, error) {
	key := spec.FilesystemIdentifier()

	m.mu.Lock()
	if h, ok := m.repos[key]; ok {
		m.mu.Unlock()
		return m.refreshExisting(spec, h, skipUpdate)
	}
	m.mu.Unlock()

	// Single-flight: become the winner, or wait on the winner and retry.
	m.pendingMu.Lock()
	if p, inFlight := m.pending[key]; inFlight {
		m.pendingMu.Unlock()
		<-p.done
		return m.lookupSync(spec, skipUpdate)
	}
	p := &pendingLookup{done: make(chan struct{})}
	m.pending[key] = p
	m.pendingMu.Unlock()

	defer func() {
		m.pendingMu.Lock()
		delete(m.pending, key)
		m.pendingMu.Unlock()
		close(p.done)
	}()

	dest := m.clonePath(key)
	if fsutil.Exists(dest) {
		if err := removeAll(dest); err != nil {
			return RepositoryHandle{}, errors.Wrapf(err, "clearing stale clone at %s", dest)
		}
	}

	m.opts.Delegate.FetchingWillBegin(spec)
	start := time.Now()
	details, err := m.fetchAndPopulateCache(spec, dest, func(text string) {
		m.opts.Delegate.FetchingProgress(spec, text)
	})
	duration := time.Since(start)
	m.opts.Delegate.FetchingDidFinish(spec, err, duration)

	if err != nil {
		return RepositoryHandle{}, err
	}
	if details.FromCache {
		m.opts.Logger.With("specifier", spec.String()).Logf("materialized clone from shared cache")
	}

	h := RepositoryHandle{Specifier: spec, Subpath: key, managerID: m.id}

	m.mu.Lock()
	m.repos[key] = h
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	if err := m.storage.save(snapshot); err != nil {
		// Persistence failure after a successful fetch is treated as fatal:
		// the system is now in an inconsistent state.
		return RepositoryHandle{}, errors.Wrap(err, "FATAL: clone succeeded but state could not be persisted")
	}

	return h, nil
}

func (m *RepositoryManager) refreshExisting(spec RepositorySpecifier, h RepositoryHandle, skipUpdate bool) (RepositoryHandle, error) {
	if skipUpdate {
		return h, nil
	}
	m.opts.Delegate.HandleWillUpdate(spec)
	start := time.Now()
	err := m.opts.Provider.Fetch(spec, m.clonePath(h.Subpath), nil)
	m.opts.Delegate.HandleDidUpdate(spec, time.Since(start))
	if err != nil {
		return RepositoryHandle{}, err
	}
	return h, nil
}

func (m *RepositoryManager) snapshotLocked() map[string]repositoryEntry {
	out := make(map[string]repositoryEntry, len(m.repos))
	for k, h := range m.repos {
		out[k] = repositoryEntry{RepositoryURL: h.Specifier.Location(), Subpath: h.Subpath}
	}
	return out
}

// Remove exclusively removes the state entry and clone directory for spec.
// It is a no-op if spec is not present.
func (m *RepositoryManager) Remove(spec RepositorySpecifier) error {
	key := spec.FilesystemIdentifier()

	m.mu.Lock()
	h, ok := m.repos[key]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.repos, key)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	if err := removeAll(m.clonePath(h.Subpath)); err != nil {
		return errors.Wrapf(err, "removing clone directory for %s", spec)
	}
	return m.storage.save(snapshot)
}

// Reset drops all state and deletes the entire working directory.
func (m *RepositoryManager) Reset() error {
	m.mu.Lock()
	m.repos = map[string]RepositoryHandle{}
	m.mu.Unlock()

	if err := removeAll(m.opts.WorkingDir); err != nil {
		return err
	}
	return m.storage.save(map[string]repositoryEntry{})
}

// PurgeCache deletes every cached clone entry under the exclusive lock on
// the shared cache root, aggregating any per-entry failures rather than
// stopping at the first one.
func (m *RepositoryManager) PurgeCache() error {
	if m.opts.SharedCacheDir == "" {
		return nil
	}
	var agg error
	err := fsutil.WithExclusive(m.opts.SharedCacheDir+"/.lock", func() error {
		entries, err := readDirNames(m.opts.SharedCacheDir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e == ".lock" {
				continue
			}
			if rmErr := removeAll(m.opts.SharedCacheDir + "/" + e); rmErr != nil {
				agg = appendErrorIface(agg, rmErr)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return agg
}

// IsValidDirectory reports whether path looks like a valid bare clone,
// delegating to the configured RepositoryProvider.
func (m *RepositoryManager) IsValidDirectory(path string) bool {
	return m.opts.Provider.IsValidDirectory(path)
}

// IsValidRefFormat reports whether ref is a syntactically valid VCS
// reference, delegating to the configured RepositoryProvider.
func (m *RepositoryManager) IsValidRefFormat(ref string) bool {
	return m.opts.Provider.IsValidRefFormat(ref)
}

// OpenWorkingCopy returns a RepositoryHandle for an already-open path,
// anchored at the manager's layout, without touching the network.
func (m *RepositoryManager) OpenWorkingCopy(path string) (RepositoryHandle, error) {
	if !m.opts.Provider.IsValidDirectory(path) {
		return RepositoryHandle{}, errors.Errorf("%s is not a valid repository directory", path)
	}
	return RepositoryHandle{Specifier: LocalRepositorySpecifier(path), Subpath: "", managerID: m.id}, nil
}

// CreateWorkingCopy materializes a working copy of h's bare clone at at,
// optionally editable (i.e. the caller intends to write to it in place
// rather than treat it as the manager's exclusive, read-only view).
func (m *RepositoryManager) CreateWorkingCopy(h RepositoryHandle, at string, editable bool) error {
	src := m.clonePath(h.Subpath)
	if err := m.opts.Provider.Copy(src, at); err != nil {
		return err
	}
	_ = editable // editable copies are owned by the caller thereafter; no
	// additional bookkeeping is required at the repository-manager layer.
	return nil
}

// ListVersions returns the tags visible in h's bare clone. It is a thin
// pass-through used by PackageContainer to enumerate candidate versions.
func (m *RepositoryManager) ListVersions(h RepositoryHandle) ([]string, error) {
	return m.opts.Provider.Tags(m.clonePath(h.Subpath))
}

// ListBranches returns the branches visible in h's bare clone.
func (m *RepositoryManager) ListBranches(h RepositoryHandle) ([]string, error) {
	return m.opts.Provider.Branches(m.clonePath(h.Subpath))
}

// ResolveRevision resolves ref (tag, branch, or commit id) to a full
// revision id within h's bare clone.
func (m *RepositoryManager) ResolveRevision(h RepositoryHandle, ref string) (string, error) {
	return m.opts.Provider.ResolveRevision(m.clonePath(h.Subpath), ref)
}

// ExportRevisionTo exports a clean file tree at revision rev from h's bare
// clone into destDir, without VCS metadata.
func (m *RepositoryManager) ExportRevisionTo(h RepositoryHandle, rev, destDir string) error {
	return m.opts.Provider.ExportRevisionTo(m.clonePath(h.Subpath), rev, destDir)
}

// ReadFileAt reads a single file's contents as of revision rev through the
// provider's ReadFileAt; used by PackageContainer to read a manifest at a
// candidate version.
func (m *RepositoryManager) ReadFileAt(h RepositoryHandle, rev, relPath string) ([]byte, error) {
	return m.opts.Provider.ReadFileAt(m.clonePath(h.Subpath), rev, relPath)
}
