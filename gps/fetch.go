package gps

import (
	"github.com/kranesoft/wscore/gps/internal/fsutil"
)

// fetchAndPopulateCache implements the two-tier fetch algorithm: prefer
// populating (or reusing) a shared cache entry and copying from there,
// falling back to a direct fetch on any cache-path error or when no
// shared cache is configured. In either case dest is published atomically:
// the clone lands at a scratch path first and is renamed into dest only on
// success, so a failed fetch leaves no partial state visible at dest.
func (m *RepositoryManager) fetchAndPopulateCache(spec RepositorySpecifier, dest string, progress ProgressCallback) (FetchDetails, error) {
	useCache := m.opts.SharedCacheDir != "" && (!spec.IsLocal() || m.opts.CacheLocalPackages)

	if useCache {
		details, err := m.fetchViaCache(spec, dest, progress)
		if err == nil {
			return details, nil
		}
		m.opts.Logger.Warnf("shared cache path failed for %s, falling back to direct fetch: %v", spec, err)
		_ = removeAll(dest)
	}

	scratch := dest + ".tmp"
	_ = removeAll(scratch)
	if err := m.opts.Provider.Fetch(spec, scratch, progress); err != nil {
		_ = removeAll(scratch)
		return FetchDetails{}, err
	}
	if err := fsutil.RenameIntoPlace(scratch, dest); err != nil {
		return FetchDetails{}, err
	}
	return FetchDetails{FromCache: false, UpdatedCache: false}, nil
}

func (m *RepositoryManager) fetchViaCache(spec RepositorySpecifier, dest string, progress ProgressCallback) (FetchDetails, error) {
	cacheRoot := m.opts.SharedCacheDir
	if err := mkdirAll(cacheRoot); err != nil {
		return FetchDetails{}, err
	}

	var details FetchDetails
	err := fsutil.WithShared(cacheRoot+"/.lock", func() error {
		cached := cacheRoot + "/" + spec.FilesystemIdentifier()

		return fsutil.WithExclusive(cached+".lock", func() error {
			preexisting := fsutil.Exists(cached)
			if err := m.opts.Provider.Fetch(spec, cached, progress); err != nil {
				return err
			}
			details.FromCache = preexisting
			details.UpdatedCache = true

			if err := mkdirAll(parentDir(dest)); err != nil {
				return err
			}
			scratch := dest + ".tmp"
			_ = removeAll(scratch)
			if err := m.opts.Provider.Copy(cached, scratch); err != nil {
				_ = removeAll(scratch)
				return err
			}
			return fsutil.RenameIntoPlace(scratch, dest)
		})
	})
	if err != nil {
		return FetchDetails{}, err
	}
	return details, nil
}
