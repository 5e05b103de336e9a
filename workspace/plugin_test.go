package workspace

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/kranesoft/wscore/gps"
	"github.com/kranesoft/wscore/plugin"
)

// fakeRepoProvider answers every VCS query from canned, in-memory data so
// Graph can be exercised without touching real source control.
type fakeRepoProvider struct {
	revisionOf map[string]string
	manifests  map[string][]byte
}

func (p *fakeRepoProvider) Fetch(spec gps.RepositorySpecifier, dest string, progress gps.ProgressCallback) error {
	return os.MkdirAll(dest, 0o755)
}
func (p *fakeRepoProvider) Copy(src, dst string) error { return os.MkdirAll(dst, 0o755) }
func (p *fakeRepoProvider) IsValidDirectory(path string) bool { return true }
func (p *fakeRepoProvider) IsValidRefFormat(ref string) bool { return ref != "" }
func (p *fakeRepoProvider) Tags(path string) ([]string, error) { return nil, nil }
func (p *fakeRepoProvider) Branches(path string) ([]string, error) { return nil, nil }
func (p *fakeRepoProvider) ResolveRevision(path, ref string) (string, error) {
	if rev, ok := p.revisionOf[ref]; ok {
		return rev, nil
	}
	return ref, nil
}
func (p *fakeRepoProvider) ExportRevisionTo(path, rev, destDir string) error {
	return os.MkdirAll(destDir, 0o755)
}
func (p *fakeRepoProvider) ReadFileAt(path, rev, relPath string) ([]byte, error) {
	data, ok := p.manifests[rev]
	if !ok {
		return []byte("// swift-tools-version:5.9\n{}"), nil
	}
	return data, nil
}

type pluginFakeLoader struct{}

func (pluginFakeLoader) Load(data []byte, toolsVersion gps.ToolsVersion) (gps.Manifest, error) {
	return gps.Manifest{ToolsVersion: toolsVersion}, nil
}

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	dir := t.TempDir()

	w, err := Open(Options{
		RootPath: dir,
		Loader:   pluginFakeLoader{},
		Provider: &fakeRepoProvider{},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(w.Close)
	return w
}

type fakeBuildHandler struct {
	called bool
	result interface{}
	err    error
}

func (h *fakeBuildHandler) Build(graph *Graph, subset, parameters json.RawMessage) (interface{}, error) {
	h.called = true
	return h.result, h.err
}

type fakeTestHandler struct {
	called bool
}

func (h *fakeTestHandler) Test(graph *Graph, subset, parameters json.RawMessage) (interface{}, error) {
	h.called = true
	return "ran", nil
}

type fakeSymbolGraphHandler struct {
	called bool
}

func (h *fakeSymbolGraphHandler) SymbolGraph(graph *Graph, target string, options json.RawMessage) (interface{}, error) {
	h.called = true
	return map[string]string{"target": target}, nil
}

func TestPluginDelegateEmitDiagnosticDoesNotPanic(t *testing.T) {
	d := NewPluginDelegate(PluginDelegateOptions{Workspace: newTestWorkspace(t)})
	d.EmitDiagnostic(plugin.SeverityError, "boom", "file.swift", 42)
	d.DefineBuildCommand([]byte("{}"), []string{"in"}, []string{"out"})
	d.DefinePrebuildCommand([]byte("{}"), "/tmp/out")
	d.PluginEmittedOutput([]byte("stderr chunk"))
}

func TestPluginDelegateHandleBuildOperationRequestNoHandler(t *testing.T) {
	d := NewPluginDelegate(PluginDelegateOptions{
		Workspace: newTestWorkspace(t),
		Root:      gps.PackageReference{Identity: "example.com/root", Kind: gps.KindRoot},
	})

	var failed string
	d.HandleBuildOperationRequest(nil, nil, func(interface{}) { t.Fatal("respond called with no handler configured") }, func(msg string) {
		failed = msg
	})
	if failed == "" {
		t.Fatal("expected fail to be called when no build handler is configured")
	}
}

func TestPluginDelegateHandleBuildOperationRequestDispatches(t *testing.T) {
	w := newTestWorkspace(t)
	handler := &fakeBuildHandler{result: "built"}
	d := NewPluginDelegate(PluginDelegateOptions{
		Workspace: w,
		Root:      gps.PackageReference{Identity: "example.com/root", Kind: gps.KindRoot},
		Build:     handler,
	})

	var got interface{}
	var failMsg string
	d.HandleBuildOperationRequest([]byte("[]"), []byte("{}"), func(result interface{}) {
		got = result
	}, func(msg string) {
		failMsg = msg
	})

	if failMsg != "" {
		t.Fatalf("unexpected failure: %s", failMsg)
	}
	if !handler.called {
		t.Fatal("expected the build handler to be invoked")
	}
	if got != "built" {
		t.Fatalf("respond called with %v, want %q", got, "built")
	}
}

func TestPluginDelegateHandleTestOperationRequestDispatches(t *testing.T) {
	w := newTestWorkspace(t)
	handler := &fakeTestHandler{}
	d := NewPluginDelegate(PluginDelegateOptions{
		Workspace: w,
		Root:      gps.PackageReference{Identity: "example.com/root", Kind: gps.KindRoot},
		Test:      handler,
	})

	var got interface{}
	d.HandleTestOperationRequest(nil, nil, func(result interface{}) { got = result }, func(msg string) {
		t.Fatalf("unexpected failure: %s", msg)
	})
	if !handler.called || got != "ran" {
		t.Fatalf("test handler not dispatched correctly: called=%v got=%v", handler.called, got)
	}
}

func TestPluginDelegateHandleSymbolGraphRequestDispatches(t *testing.T) {
	w := newTestWorkspace(t)
	handler := &fakeSymbolGraphHandler{}
	d := NewPluginDelegate(PluginDelegateOptions{
		Workspace:   w,
		Root:        gps.PackageReference{Identity: "example.com/root", Kind: gps.KindRoot},
		SymbolGraph: handler,
	})

	var got interface{}
	d.HandleSymbolGraphRequest("MyTarget", nil, func(result interface{}) { got = result }, func(msg string) {
		t.Fatalf("unexpected failure: %s", msg)
	})
	if !handler.called {
		t.Fatal("expected the symbol graph handler to be invoked")
	}
	m, ok := got.(map[string]string)
	if !ok || m["target"] != "MyTarget" {
		t.Fatalf("respond called with %v, want a map naming MyTarget", got)
	}
}
