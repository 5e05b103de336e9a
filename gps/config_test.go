package gps

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestMirrorSetResolvePrefersLocal(t *testing.T) {
	local := map[string]string{"https://example.com/a.git": "https://mirror.local/a.git"}
	shared := map[string]string{
		"https://example.com/a.git": "https://mirror.shared/a.git",
		"https://example.com/b.git": "https://mirror.shared/b.git",
	}
	set := NewMirrorSet(local, shared)

	if m, ok := set.Resolve("https://example.com/a.git"); !ok || m != "https://mirror.local/a.git" {
		t.Errorf("Resolve(a) = (%q, %v), want local override", m, ok)
	}
	if m, ok := set.Resolve("https://example.com/b.git"); !ok || m != "https://mirror.shared/b.git" {
		t.Errorf("Resolve(b) = (%q, %v), want shared fallback", m, ok)
	}
	if _, ok := set.Resolve("https://example.com/c.git"); ok {
		t.Error("Resolve(c) should report no mirror")
	}
}

func TestLoadMirrorsMissingFile(t *testing.T) {
	m, err := LoadMirrors(filepath.Join(os.TempDir(), "no-such-mirrors-file.json"))
	if err != nil {
		t.Fatalf("LoadMirrors on missing file: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("expected empty map, got %v", m)
	}
}

func TestLoadMirrorsUnknownVersion(t *testing.T) {
	dir, err := ioutil.TempDir("", "mirrors")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "mirrors.json")
	if err := ioutil.WriteFile(path, []byte(`{"version": 2, "object": []}`), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := LoadMirrors(path); err == nil {
		t.Fatal("expected an error for an unknown mirrors schema version")
	}
}

func TestMergeRegistriesLocalOverridesShared(t *testing.T) {
	shared := map[string]RegistryEntry{"main": {URL: "https://shared.example.com"}}
	local := map[string]RegistryEntry{"main": {URL: "https://local.example.com"}, "extra": {URL: "https://extra.example.com"}}

	merged := MergeRegistries(shared, local)
	if merged["main"].URL != "https://local.example.com" {
		t.Errorf("expected local registry to override shared, got %q", merged["main"].URL)
	}
	if merged["extra"].URL != "https://extra.example.com" {
		t.Errorf("expected local-only registry to be present, got %+v", merged)
	}
}

func TestOptionsFromEnvironment(t *testing.T) {
	t.Setenv("SWIFTPM_MODULECACHE_OVERRIDE", "/tmp/override")
	t.Setenv("SWIFTPM_TESTS_MODULECACHE", "/tmp/test-override")
	t.Setenv("SWIFTPM_TESTS_PACKAGECACHE", "1")

	opts := OptionsFromEnvironment()
	if opts.ModuleCacheOverride != "/tmp/override" {
		t.Errorf("ModuleCacheOverride = %q, want /tmp/override", opts.ModuleCacheOverride)
	}
	if opts.TestModuleCache != "/tmp/test-override" {
		t.Errorf("TestModuleCache = %q, want /tmp/test-override", opts.TestModuleCache)
	}
	if !opts.CacheLocalPackages {
		t.Error("expected CacheLocalPackages to be true when SWIFTPM_TESTS_PACKAGECACHE is set")
	}
}

func TestEffectiveModuleCachePrecedence(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		want string
	}{
		{"no overrides", Options{}, "/default"},
		{"general override", Options{ModuleCacheOverride: "/general"}, "/general"},
		{"test override wins", Options{ModuleCacheOverride: "/general", TestModuleCache: "/test"}, "/test"},
		{"test override alone", Options{TestModuleCache: "/test"}, "/test"},
	}
	for _, c := range cases {
		if got := c.opts.EffectiveModuleCache("/default"); got != c.want {
			t.Errorf("%s: EffectiveModuleCache() = %q, want %q", c.name, got, c.want)
		}
	}
}
