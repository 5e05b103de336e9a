package gps

import (
	"encoding/json"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
)

// MirrorEntry maps an original repository location to a mirror location
// that should be substituted for it.
type MirrorEntry struct {
	Original string `json:"original"`
	Mirror   string `json:"mirror"`
}

type mirrorsFile struct {
	Version int           `json:"version"`
	Object  []MirrorEntry `json:"object"`
}

// MirrorSet resolves an original location to a mirror, preferring a local
// override over a shared one when both are configured.
type MirrorSet struct {
	local  map[string]string
	shared map[string]string
}

// LoadMirrors reads a mirrors file at path, returning an empty map for a
// missing file.
func LoadMirrors(path string) (map[string]string, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.Wrapf(err, "reading mirrors file %s", path)
	}

	var f mirrorsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parsing mirrors file")
	}
	if f.Version != 1 {
		return nil, errors.Errorf("unknown mirrors file schema version %d", f.Version)
	}

	out := make(map[string]string, len(f.Object))
	for _, e := range f.Object {
		out[e.Original] = e.Mirror
	}
	return out, nil
}

// NewMirrorSet combines a local and a shared mirrors map: local mirrors
// override shared mirrors when non-empty.
func NewMirrorSet(local, shared map[string]string) *MirrorSet {
	return &MirrorSet{local: local, shared: shared}
}

// Resolve returns the mirror for original, if any, preferring local over
// shared.
func (s *MirrorSet) Resolve(original string) (string, bool) {
	if s.local != nil {
		if m, ok := s.local[original]; ok && m != "" {
			return m, true
		}
	}
	if s.shared != nil {
		if m, ok := s.shared[original]; ok && m != "" {
			return m, true
		}
	}
	return "", false
}

// RegistryEntry is a single named registry configuration.
type RegistryEntry struct {
	URL   string `json:"url"`
	Token string `json:"token,omitempty"`
}

type registriesFile struct {
	Version    int                      `json:"version"`
	Registries map[string]RegistryEntry `json:"registries"`
}

// LoadRegistries reads a registries file at path, returning an empty map
// for a missing file.
func LoadRegistries(path string) (map[string]RegistryEntry, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]RegistryEntry{}, nil
		}
		return nil, errors.Wrapf(err, "reading registries file %s", path)
	}

	var f registriesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parsing registries file")
	}
	if f.Version != 1 {
		return nil, errors.Errorf("unknown registries file schema version %d", f.Version)
	}
	if f.Registries == nil {
		return map[string]RegistryEntry{}, nil
	}
	return f.Registries, nil
}

// MergeRegistries merges shared first, then local overriding entries with
// the same name, matching the mirrors precedence convention.
func MergeRegistries(shared, local map[string]RegistryEntry) map[string]RegistryEntry {
	out := make(map[string]RegistryEntry, len(shared)+len(local))
	for k, v := range shared {
		out[k] = v
	}
	for k, v := range local {
		out[k] = v
	}
	return out
}

// Options bundles workspace-wide environment-derived configuration: a
// module-cache override, a separate override used only by the test
// harness, and the test-only toggle that forces caching of local
// packages.
type Options struct {
	ModuleCacheOverride string
	TestModuleCache     string
	CacheLocalPackages  bool
}

// OptionsFromEnvironment reads the three supported environment variables.
func OptionsFromEnvironment() Options {
	return Options{
		ModuleCacheOverride: os.Getenv("SWIFTPM_MODULECACHE_OVERRIDE"),
		TestModuleCache:     os.Getenv("SWIFTPM_TESTS_MODULECACHE"),
		CacheLocalPackages:  os.Getenv("SWIFTPM_TESTS_PACKAGECACHE") != "",
	}
}

// EffectiveModuleCache resolves the module cache directory precedence: the
// test-only override wins when set (so test suites can redirect the
// module cache without touching the real one), otherwise the general
// override applies, otherwise dir is used unchanged.
func (o Options) EffectiveModuleCache(dir string) string {
	if o.TestModuleCache != "" {
		return o.TestModuleCache
	}
	if o.ModuleCacheOverride != "" {
		return o.ModuleCacheOverride
	}
	return dir
}
