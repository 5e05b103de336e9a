package gps

import "sync"

// ContainerProviderOptions configures a ContainerProvider.
type ContainerProviderOptions struct {
	Manager         *RepositoryManager
	Loader          ManifestLoader
	CurrentToolsVer ToolsVersion
	// MetadataCache, when set, backs every container this provider
	// constructs with the shared second-tier cache.
	MetadataCache *BoltMetadataCache
}

// ContainerProvider dispatches a PackageReference to its PackageContainer,
// materializing the backing repository on first use and caching the result
// for subsequent lookups.
type ContainerProvider struct {
	opts ContainerProviderOptions

	mu         sync.Mutex
	containers map[PackageIdentity]*PackageContainer
}

// NewContainerProvider constructs a ContainerProvider over a
// RepositoryManager and a manifest loader.
func NewContainerProvider(opts ContainerProviderOptions) *ContainerProvider {
	if opts.CurrentToolsVer == (ToolsVersion{}) {
		opts.CurrentToolsVer = CurrentToolsVersion
	}
	return &ContainerProvider{
		opts:       opts,
		containers: map[PackageIdentity]*PackageContainer{},
	}
}

// GetContainer returns the PackageContainer for ref, fetching (or reusing)
// its backing repository as needed. A RemoteRepositorySpecifier is derived
// from ref.Identity for remote/local source-control references; callers
// needing a non-default specifier (e.g. a mirror override) should call
// GetContainerAt instead.
func (p *ContainerProvider) GetContainer(ref PackageReference) (*PackageContainer, error) {
	return p.GetContainerAt(ref, RemoteRepositorySpecifier(string(ref.Identity)))
}

// GetContainerAt is like GetContainer but lets the caller supply the exact
// RepositorySpecifier to resolve (e.g. after applying a mirror override).
func (p *ContainerProvider) GetContainerAt(ref PackageReference, spec RepositorySpecifier) (*PackageContainer, error) {
	p.mu.Lock()
	if c, ok := p.containers[ref.Identity]; ok {
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	handle, err := p.opts.Manager.LookupSync(spec, false)
	if err != nil {
		return nil, err
	}

	c := NewPackageContainer(ref, p.opts.Manager, handle, p.opts.Loader, p.opts.CurrentToolsVer)
	if p.opts.MetadataCache != nil {
		c.WithMetadataCache(p.opts.MetadataCache)
	}

	p.mu.Lock()
	p.containers[ref.Identity] = c
	p.mu.Unlock()

	return c, nil
}

// Invalidate drops identity's cached container, if any, so the next
// GetContainer call re-resolves its backing repository from scratch. This
// is used when a workspace operation learns a package's location changed.
func (p *ContainerProvider) Invalidate(identity PackageIdentity) {
	p.mu.Lock()
	delete(p.containers, identity)
	p.mu.Unlock()
}
