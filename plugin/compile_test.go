package plugin

import (
	"context"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestMangle(t *testing.T) {
	cases := map[string]string{
		"Plugin.swift": "Plugin_swift",
		"9lives.swift": "_9lives_swift",
		"":             "_plugin",
		"a-b c.swift":  "a_b_c_swift",
	}
	for in, want := range cases {
		if got := mangle(in); got != want {
			t.Errorf("mangle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildCommandIncludesCoreFlags(t *testing.T) {
	in := CompileInput{
		Sources:       []string{"Plugin.swift"},
		ToolsVersion:  "5.9",
		PluginAPIPath: "/usr/lib/plugin-api",
		SwiftVersion:  "5",
	}
	cmd := buildCommand(in, "/tmp/out/exec", "/tmp/out/exec.dia")

	want := []string{"swiftc", "-parse-as-library", "Plugin.swift", "-I", "/usr/lib/plugin-api",
		"-swift-version", "5", "-package-description-version", "5.9",
		"-serialize-diagnostics-path", "/tmp/out/exec.dia", "-o", "/tmp/out/exec"}

	if len(cmd) != len(want) {
		t.Fatalf("buildCommand() = %v, want %v", cmd, want)
	}
	for i := range want {
		if cmd[i] != want[i] {
			t.Errorf("buildCommand()[%d] = %q, want %q", i, cmd[i], want[i])
		}
	}
}

func TestInputHashStableForIdenticalInputs(t *testing.T) {
	dir, err := ioutil.TempDir("", "plugin-hash")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "Plugin.swift")
	if err := ioutil.WriteFile(src, []byte("// a plugin"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	command := []string{"swiftc", src}
	env := []string{"A=1", "B=2"}

	h1, err := inputHash(command, env, []string{src})
	if err != nil {
		t.Fatalf("inputHash: %v", err)
	}
	h2, err := inputHash(command, env, []string{src})
	if err != nil {
		t.Fatalf("inputHash: %v", err)
	}
	if h1 != h2 {
		t.Errorf("inputHash is not stable across calls: %q vs %q", h1, h2)
	}

	if err := ioutil.WriteFile(src, []byte("// a different plugin"), 0o644); err != nil {
		t.Fatalf("rewriting fixture: %v", err)
	}
	h3, err := inputHash(command, env, []string{src})
	if err != nil {
		t.Fatalf("inputHash after edit: %v", err)
	}
	if h3 == h1 {
		t.Error("expected inputHash to change when source content changes")
	}
}

func TestInputHashEnvOrderIndependent(t *testing.T) {
	dir, err := ioutil.TempDir("", "plugin-hash")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(dir)
	src := filepath.Join(dir, "Plugin.swift")
	if err := ioutil.WriteFile(src, []byte("// a plugin"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	command := []string{"swiftc", src}
	h1, err := inputHash(command, []string{"A=1", "B=2"}, []string{src})
	if err != nil {
		t.Fatalf("inputHash: %v", err)
	}
	h2, err := inputHash(command, []string{"B=2", "A=1"}, []string{src})
	if err != nil {
		t.Fatalf("inputHash: %v", err)
	}
	if h1 != h2 {
		t.Errorf("expected env-order-independent hashing, got %q vs %q", h1, h2)
	}
}

func TestInputHashMissingSourceIsCacheMiss(t *testing.T) {
	_, err := inputHash([]string{"swiftc"}, nil, []string{"/no/such/file.swift"})
	if err == nil {
		t.Fatal("expected an error reading a nonexistent source file")
	}
}

func TestCompileUsesCachedExecutableOnHashMatch(t *testing.T) {
	if _, err := exec.LookPath("swiftc"); err != nil {
		t.Skip("swiftc not available in this environment")
	}

	dir, err := ioutil.TempDir("", "plugin-compile")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "Plugin.swift")
	if err := ioutil.WriteFile(src, []byte("// swift-tools-version:5.9\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	in := CompileInput{Sources: []string{src}, ToolsVersion: "5.9", CacheDir: dir}
	ctx := context.Background()

	first, err := Compile(ctx, in)
	if err != nil {
		t.Fatalf("first Compile: %v", err)
	}
	if first.WasCached {
		t.Error("expected the first compile to be a cache miss")
	}

	second, err := Compile(ctx, in)
	if err != nil {
		t.Fatalf("second Compile: %v", err)
	}
	if !second.WasCached {
		t.Error("expected the second compile with identical inputs to hit the cache")
	}
}
