package workspace

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/kranesoft/wscore/gps"
	"github.com/kranesoft/wscore/internal/xlog"
)

// Options configures a Workspace, gathering its on-disk layout (the .build
// directory, pins file and managed-dependencies state file all derive from
// RootPath) plus the
// collaborators the core treats as external: a ManifestLoader, a Solver,
// and an optional set of mirrors.
type Options struct {
	RootPath        string
	SharedCacheDir  string
	Loader          gps.ManifestLoader
	Solver          Solver
	Mirrors         *gps.MirrorSet
	CurrentTools    gps.ToolsVersion
	Logger          *xlog.Logger
	ManagerDelegate gps.RepositoryManagerDelegate
	// Provider overrides the RepositoryManager's RepositoryProvider; nil
	// keeps the manager's own default (the git-backed provider).
	Provider gps.RepositoryProvider
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = xlog.New(nil)
	}
	if o.CurrentTools == (gps.ToolsVersion{}) {
		o.CurrentTools = gps.CurrentToolsVersion
	}
	if o.ManagerDelegate == nil {
		o.ManagerDelegate = gps.NopManagerDelegate{}
	}
}

func (o *Options) buildDir() string { return filepath.Join(o.RootPath, ".build") }
func (o *Options) pinsPath() string { return filepath.Join(o.RootPath, "Package.resolved") }
func (o *Options) dependenciesStatePath() string {
	return filepath.Join(o.RootPath, ".build", "dependencies-state.json")
}

// Workspace is the facade that binds components and exposes
// lookup/resolve/graph operations. It owns a RepositoryManager and a
// ContainerProvider, resolves dependencies through a Solver oracle, and
// persists the result to the pins file.
type Workspace struct {
	opts       Options
	manager    *gps.RepositoryManager
	containers *gps.ContainerProvider
	metaCache  *gps.BoltMetadataCache
}

// Open constructs a Workspace rooted at opts.RootPath, wiring a
// RepositoryManager (bare clones and state under .build, optionally backed
// by a shared cache) and a ContainerProvider over it.
func Open(opts Options) (*Workspace, error) {
	opts.setDefaults()

	manager, err := gps.NewManager(gps.ManagerOptions{
		WorkingDir:     opts.buildDir(),
		SharedCacheDir: opts.SharedCacheDir,
		Delegate:       opts.ManagerDelegate,
		Logger:         opts.Logger,
		Provider:       opts.Provider,
	})
	if err != nil {
		return nil, errors.Wrap(err, "constructing repository manager")
	}

	// The shared metadata cache is optional: without a shared cache
	// directory there is nothing to share across processes, and a
	// container falls back to its own in-memory cache.
	var metaCache *gps.BoltMetadataCache
	if opts.SharedCacheDir != "" {
		metaCache, err = gps.OpenBoltMetadataCache(filepath.Join(opts.SharedCacheDir, "metadata"), opts.Logger)
		if err != nil {
			return nil, errors.Wrap(err, "opening shared metadata cache")
		}
	}

	containers := gps.NewContainerProvider(gps.ContainerProviderOptions{
		Manager:         manager,
		Loader:          opts.Loader,
		CurrentToolsVer: opts.CurrentTools,
		MetadataCache:   metaCache,
	})

	return &Workspace{opts: opts, manager: manager, containers: containers, metaCache: metaCache}, nil
}

// Close releases the workspace's repository manager and metadata-cache
// resources.
func (w *Workspace) Close() {
	w.manager.Close()
	if w.metaCache != nil {
		w.metaCache.Close()
	}
}

func (w *Workspace) resolveSpecifier(ref gps.PackageReference) gps.RepositorySpecifier {
	location := string(ref.Identity)
	if w.opts.Mirrors != nil {
		if mirror, ok := w.opts.Mirrors.Resolve(location); ok {
			location = mirror
		}
	}
	if ref.Kind == gps.KindFileSystem || ref.Kind == gps.KindLocalSourceControl {
		return gps.LocalRepositorySpecifier(location)
	}
	return gps.RemoteRepositorySpecifier(location)
}

// Versions implements DependencyProvider by delegating to ref's container.
func (w *Workspace) Versions(ref gps.PackageReference) ([]gps.Version, error) {
	c, err := w.containers.GetContainerAt(ref, w.resolveSpecifier(ref))
	if err != nil {
		return nil, err
	}
	return c.ToolsVersionsAppropriateVersionsDescending()
}

// DependenciesAt implements DependencyProvider by delegating to ref's
// container at the given revision under filter.
func (w *Workspace) DependenciesAt(ref gps.PackageReference, revision string, filter gps.ProductFilter) ([]gps.Dependency, error) {
	c, err := w.containers.GetContainerAt(ref, w.resolveSpecifier(ref))
	if err != nil {
		return nil, err
	}
	return c.GetDependencies(revision, filter)
}

// Revision implements DependencyProvider's tag/branch-to-revision lookup.
func (w *Workspace) Revision(ref gps.PackageReference, tagOrBranch string) (string, error) {
	c, err := w.containers.GetContainerAt(ref, w.resolveSpecifier(ref))
	if err != nil {
		return "", err
	}
	return c.GetRevision(tagOrBranch)
}

// Resolve runs the configured Solver against root under filter, persisting
// the resulting pins to the workspace's pins file before returning them.
func (w *Workspace) Resolve(root gps.Manifest, filter gps.ProductFilter) ([]gps.Pin, error) {
	if w.opts.Solver == nil {
		return nil, errors.New("workspace: no solver configured")
	}
	pins, err := w.opts.Solver.Solve(root, w, filter)
	if err != nil {
		return nil, errors.Wrap(err, "resolving dependencies")
	}
	if err := gps.SavePins(w.opts.pinsPath(), pins); err != nil {
		return nil, errors.Wrap(err, "persisting pins file")
	}
	if err := gps.SaveManagedDependencies(w.opts.dependenciesStatePath(), managedDependenciesFromPins(pins)); err != nil {
		return nil, errors.Wrap(err, "persisting managed-dependencies state file")
	}
	return pins, nil
}

// LoadPins reads the workspace's current pins file, if any.
func (w *Workspace) LoadPins() ([]gps.Pin, error) {
	return gps.LoadPins(w.opts.pinsPath())
}

// LoadManagedDependencies reads the workspace's current managed-dependencies
// state file, if any.
func (w *Workspace) LoadManagedDependencies() ([]gps.ManagedDependency, error) {
	return gps.LoadManagedDependencies(w.opts.dependenciesStatePath())
}

// managedDependenciesFromPins projects a resolved pin set into the
// managed-dependencies state persisted alongside the pins file: every pin
// becomes a source-control-checkout dependency rooted at its identity's
// filesystem subpath, mirroring the RepositoryHandle layout the manager
// itself uses.
func managedDependenciesFromPins(pins []gps.Pin) []gps.ManagedDependency {
	deps := make([]gps.ManagedDependency, 0, len(pins))
	for _, p := range pins {
		checkout := gps.CheckoutState{Revision: p.State.Revision}
		switch p.State.Kind {
		case gps.PinVersion:
			checkout.Kind = gps.CheckoutVersion
			checkout.Version = p.State.Version
		case gps.PinBranch:
			checkout.Kind = gps.CheckoutBranch
			checkout.Branch = p.State.Branch
		default:
			checkout.Kind = gps.CheckoutRevision
		}

		subpath := gps.RemoteRepositorySpecifier(string(p.Ref.Identity)).FilesystemIdentifier()
		deps = append(deps, gps.ManagedDependency{
			Ref:     p.Ref,
			Subpath: subpath,
			State: gps.ManagedDependencyState{
				Kind:     gps.StateSourceControlCheckout,
				Checkout: checkout,
			},
		})
	}
	return deps
}

// Invalidate drops identity's cached container, forcing the next graph
// operation to re-resolve its backing repository (e.g. after a mirror
// configuration change).
func (w *Workspace) Invalidate(identity gps.PackageIdentity) {
	w.containers.Invalidate(identity)
}

// Manager exposes the underlying RepositoryManager for callers that need
// direct working-copy operations (CreateWorkingCopy, editing, ...) beyond
// what the facade itself wraps.
func (w *Workspace) Manager() *gps.RepositoryManager { return w.manager }
