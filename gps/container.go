package gps

import (
	"encoding/json"
	"strings"
	"sync"
)

// versionAdmission memoizes whether a candidate version passed the
// tools-version gate: a per-container memoized cache mapping each
// candidate tag to {admitted: bool}.
type versionAdmission struct {
	admitted bool
}

type depsCacheKey struct {
	version string
	filter  string
}

// PackageContainer is the per-package view: the versions a package
// advertises (after the tools-version gate), its manifest-derived
// dependency constraints at a given version under a product filter, and
// revision lookups.
type PackageContainer struct {
	ref     PackageReference
	manager *RepositoryManager
	handle  RepositoryHandle
	loader  ManifestLoader
	current ToolsVersion

	mu             sync.Mutex
	admissionCache map[string]versionAdmission
	depsCache      map[depsCacheKey][]Dependency
	revisionOfTag  map[string]string

	// metaCache, when set, backs depsCache with the shared second-tier
	// store so the (ref, filter) projection survives process restarts.
	metaCache *BoltMetadataCache
}

// NewPackageContainer constructs a PackageContainer over a repository
// handle already materialized by a RepositoryManager.
func NewPackageContainer(ref PackageReference, manager *RepositoryManager, handle RepositoryHandle, loader ManifestLoader, current ToolsVersion) *PackageContainer {
	return &PackageContainer{
		ref:            ref,
		manager:        manager,
		handle:         handle,
		loader:         loader,
		current:        current,
		admissionCache: map[string]versionAdmission{},
		depsCache:      map[depsCacheKey][]Dependency{},
		revisionOfTag:  map[string]string{},
	}
}

// WithMetadataCache attaches the shared bbolt-backed metadata cache to c,
// returning c for chaining. A container without one falls back to the
// in-process depsCache only.
func (c *PackageContainer) WithMetadataCache(cache *BoltMetadataCache) *PackageContainer {
	c.metaCache = cache
	return c
}

// ToolsVersionsAppropriateVersionsDescending returns, in descending semver
// order, every distinct Version advertised by a tag that (a) parses as
// semver with an optional "v" prefix stripped and (b) has a readable
// tools-version. Equivalent tags (e.g. "1.1", "1.1.0", "v1.1.0") contribute
// exactly one entry.
func (c *PackageContainer) ToolsVersionsAppropriateVersionsDescending() ([]Version, error) {
	tags, err := c.manager.ListVersions(c.handle)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []Version
	for _, tag := range tags {
		stripped := strings.TrimPrefix(tag, "v")
		v, err := ParseVersion(stripped)
		if err != nil {
			continue
		}
		canon := v.Canonical()
		if seen[canon] {
			continue
		}

		admitted, err := c.isAdmitted(tag, v)
		if err != nil {
			continue
		}
		if !admitted {
			continue
		}

		seen[canon] = true
		out = append(out, v)
	}

	SortDescending(out)
	return out, nil
}

// isAdmitted resolves and memoizes whether the manifest at tag's revision
// declares a tools-version within [minimum, current].
func (c *PackageContainer) isAdmitted(tag string, v Version) (bool, error) {
	c.mu.Lock()
	if cached, ok := c.admissionCache[tag]; ok {
		c.mu.Unlock()
		return cached.admitted, nil
	}
	c.mu.Unlock()

	m, err := c.manifestAt(tag)
	if err != nil {
		c.mu.Lock()
		c.admissionCache[tag] = versionAdmission{admitted: false}
		c.mu.Unlock()
		return false, err
	}

	admitted := ToolsVersionAdmitted(m.ToolsVersion, c.current)
	c.mu.Lock()
	c.admissionCache[tag] = versionAdmission{admitted: admitted}
	c.mu.Unlock()
	return admitted, nil
}

// resolveCached resolves ref to a revision, memoizing the result in-process
// and, when a shared metadata cache is attached, across processes too.
func (c *PackageContainer) resolveCached(ref string) (string, error) {
	c.mu.Lock()
	if rev, ok := c.revisionOfTag[ref]; ok {
		c.mu.Unlock()
		return rev, nil
	}
	c.mu.Unlock()

	if c.metaCache != nil {
		if rev, ok := c.metaCache.LoadRevisionForVersion(c.ref.Identity, ref); ok {
			c.mu.Lock()
			c.revisionOfTag[ref] = rev
			c.mu.Unlock()
			return rev, nil
		}
	}

	rev, err := c.manager.ResolveRevision(c.handle, ref)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.revisionOfTag[ref] = rev
	c.mu.Unlock()
	if c.metaCache != nil {
		_ = c.metaCache.StoreRevisionForVersion(c.ref.Identity, ref, rev)
	}
	return rev, nil
}

func (c *PackageContainer) manifestAt(ref string) (Manifest, error) {
	rev, err := c.resolveCached(ref)
	if err != nil {
		return Manifest{}, err
	}
	data, err := c.manager.ReadFileAt(c.handle, rev, "Package.swift")
	if err != nil {
		return Manifest{}, err
	}

	probeTV, err := probeToolsVersion(data)
	if err != nil {
		return Manifest{}, err
	}

	m, err := c.loader.Load(data, probeTV)
	if err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// GetDependencies loads the manifest at ref (a tag, branch, or revision)
// and projects its declared dependencies under filter. The result is
// memoized by the (ref, filter) pair, never by ref alone: an earlier
// implementation cached by version only and returned stale results when
// the product filter changed.
func (c *PackageContainer) GetDependencies(ref string, filter ProductFilter) ([]Dependency, error) {
	key := depsCacheKey{version: ref, filter: filter.key()}

	c.mu.Lock()
	if cached, ok := c.depsCache[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	if c.metaCache != nil {
		if encoded, ok := c.metaCache.LoadDependencies(c.ref.Identity, ref, filter); ok {
			deps, err := decodeDependencies(encoded)
			if err == nil {
				c.mu.Lock()
				c.depsCache[key] = deps
				c.mu.Unlock()
				return deps, nil
			}
		}
	}

	m, err := c.manifestAt(ref)
	if err != nil {
		if uErr, ok := err.(*UnsupportedToolsVersion); ok {
			return nil, &GetDependenciesError{Repository: string(c.ref.Identity), Reference: ref, Underlying: uErr}
		}
		return nil, &GetDependenciesError{Repository: string(c.ref.Identity), Reference: ref, Underlying: err}
	}

	admitted := ToolsVersionAdmitted(m.ToolsVersion, c.current)
	if !admitted {
		uErr := &UnsupportedToolsVersion{Declared: m.ToolsVersion, Current: c.current}
		return nil, &GetDependenciesError{Repository: string(c.ref.Identity), Reference: ref, Underlying: uErr}
	}

	deps := m.FilteredDependencies(filter)

	c.mu.Lock()
	c.depsCache[key] = deps
	c.mu.Unlock()

	if c.metaCache != nil {
		if encoded, encErr := encodeDependencies(deps); encErr == nil {
			_ = c.metaCache.StoreDependencies(c.ref.Identity, ref, filter, encoded)
		}
	}

	return deps, nil
}

func encodeDependencies(deps []Dependency) ([]byte, error) {
	return json.Marshal(deps)
}

func decodeDependencies(data []byte) ([]Dependency, error) {
	var deps []Dependency
	if err := json.Unmarshal(data, &deps); err != nil {
		return nil, err
	}
	return deps, nil
}

// GetRevision resolves tag to the exact revision id it points at. A
// nonexistent branch yields a BranchNotFoundError suggesting the nearest
// existing branch name (Levenshtein distance <= 2); a nonexistent commit id
// yields a distinct RevisionNotFoundError.
func (c *PackageContainer) GetRevision(tag string) (string, error) {
	rev, err := c.manager.ResolveRevision(c.handle, tag)
	if err == nil {
		return rev, nil
	}

	branches, bErr := c.manager.ListBranches(c.handle)
	if bErr == nil {
		for _, b := range branches {
			if b == tag {
				// Exists as a branch but still failed to resolve: surface
				// the underlying VCS error rather than a typo diagnostic.
				return "", err
			}
		}
		if suggestion := closestBranch(tag, branches, 2); suggestion != "" {
			return "", &BranchNotFoundError{Repository: string(c.ref.Identity), Requested: tag, Suggestion: suggestion}
		}
	}

	return "", &RevisionNotFoundError{Repository: string(c.ref.Identity), Requested: tag}
}

// probeToolsVersion extracts the tools-version line a manifest declares,
// without otherwise parsing the manifest (manifest grammar is external).
// The convention mirrored here, a leading comment line of the form
// "// swift-tools-version:X.Y[.Z]", is the one thing the core must itself
// understand in order to gate which manifests it dares hand to the
// external loader at all.
func probeToolsVersion(data []byte) (ToolsVersion, error) {
	const marker = "// swift-tools-version:"
	text := string(data)
	idx := strings.Index(text, marker)
	if idx < 0 {
		return ToolsVersion{}, &UnsupportedToolsVersion{Declared: ToolsVersion{}, Current: CurrentToolsVersion}
	}
	rest := text[idx+len(marker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	rest = strings.TrimSpace(rest)
	return parseToolsVersion(rest)
}

func parseToolsVersion(s string) (ToolsVersion, error) {
	parts := strings.SplitN(s, ".", 3)
	tv := ToolsVersion{}
	vals := []*int{&tv.Major, &tv.Minor, &tv.Patch}
	for i, p := range parts {
		if i >= len(vals) {
			break
		}
		n, err := atoiStrict(p)
		if err != nil {
			return ToolsVersion{}, errWrap(err, "invalid tools-version %q", s)
		}
		*vals[i] = n
	}
	return tv, nil
}

func atoiStrict(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, errFmt("empty integer component")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errFmt("non-digit %q in %q", r, s)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
