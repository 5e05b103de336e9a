package workspace

import (
	"encoding/json"

	"github.com/kranesoft/wscore/gps"
	"github.com/kranesoft/wscore/internal/xlog"
	"github.com/kranesoft/wscore/plugin"
)

// BuildOperationHandler performs an actual build for a running plugin
// invocation's buildOperationRequest. It is the same kind of external
// collaborator the Solver is for resolution: the workspace never drives
// the compiler toolchain itself, only the graph context a build needs to
// decide what to build.
type BuildOperationHandler interface {
	Build(graph *Graph, subset, parameters json.RawMessage) (interface{}, error)
}

// TestOperationHandler is BuildOperationHandler's test-request counterpart.
type TestOperationHandler interface {
	Test(graph *Graph, subset, parameters json.RawMessage) (interface{}, error)
}

// SymbolGraphHandler services a plugin's symbolGraphRequest.
type SymbolGraphHandler interface {
	SymbolGraph(graph *Graph, target string, options json.RawMessage) (interface{}, error)
}

// PluginDelegateOptions configures a PluginDelegate.
type PluginDelegateOptions struct {
	Workspace   *Workspace
	Root        gps.PackageReference
	Filter      gps.ProductFilter
	Build       BuildOperationHandler
	Test        TestOperationHandler
	SymbolGraph SymbolGraphHandler
	Logger      *xlog.Logger
}

// PluginDelegate implements plugin.Delegate by re-entering the workspace: a
// running plugin's build/test/symbol-graph requests are serviced against
// the workspace's already-resolved dependency graph rather than against any
// state the plugin invocation carries itself, by re-entering the
// workspace. Emitted diagnostics and defined commands are forwarded to
// Logger; the actual compiler invocation a build/test/symbol-graph request
// triggers is left to the Build/Test/SymbolGraph handlers, themselves
// external collaborators.
type PluginDelegate struct {
	opts PluginDelegateOptions
}

// NewPluginDelegate constructs a PluginDelegate for a single plugin
// invocation.
func NewPluginDelegate(opts PluginDelegateOptions) *PluginDelegate {
	if opts.Logger == nil {
		opts.Logger = xlog.New(nil)
	}
	return &PluginDelegate{opts: opts}
}

var _ plugin.Delegate = (*PluginDelegate)(nil)

func (d *PluginDelegate) EmitDiagnostic(severity plugin.Severity, message, file string, line int) {
	d.opts.Logger.With("severity", severity, "file", file, "line", line).Logf("plugin: %s", message)
}

func (d *PluginDelegate) DefineBuildCommand(config []byte, inputs, outputs []string) {
	d.opts.Logger.Logf("plugin defined build command: %d input(s), %d output(s)", len(inputs), len(outputs))
}

func (d *PluginDelegate) DefinePrebuildCommand(config []byte, outputDir string) {
	d.opts.Logger.Logf("plugin defined prebuild command writing to %s", outputDir)
}

func (d *PluginDelegate) PluginEmittedOutput(chunk []byte) {
	d.opts.Logger.Logf("plugin stderr: %s", string(chunk))
}

// graphForRequest re-enters the workspace to build the dependency graph a
// build/test/symbol-graph request is answered against. Resolution itself is
// never re-run here: Graph walks the pins already on disk.
func (d *PluginDelegate) graphForRequest() (*Graph, error) {
	return d.opts.Workspace.Graph(d.opts.Root, d.opts.Filter)
}

func (d *PluginDelegate) HandleBuildOperationRequest(subset, parameters []byte, respond func(result interface{}), fail func(msg string)) {
	if d.opts.Build == nil {
		fail("no build operation handler configured")
		return
	}
	graph, err := d.graphForRequest()
	if err != nil {
		fail(err.Error())
		return
	}
	result, err := d.opts.Build.Build(graph, subset, parameters)
	if err != nil {
		fail(err.Error())
		return
	}
	respond(result)
}

func (d *PluginDelegate) HandleTestOperationRequest(subset, parameters []byte, respond func(result interface{}), fail func(msg string)) {
	if d.opts.Test == nil {
		fail("no test operation handler configured")
		return
	}
	graph, err := d.graphForRequest()
	if err != nil {
		fail(err.Error())
		return
	}
	result, err := d.opts.Test.Test(graph, subset, parameters)
	if err != nil {
		fail(err.Error())
		return
	}
	respond(result)
}

func (d *PluginDelegate) HandleSymbolGraphRequest(target string, options []byte, respond func(result interface{}), fail func(msg string)) {
	if d.opts.SymbolGraph == nil {
		fail("no symbol graph handler configured")
		return
	}
	graph, err := d.graphForRequest()
	if err != nil {
		fail(err.Error())
		return
	}
	result, err := d.opts.SymbolGraph.SymbolGraph(graph, target, options)
	if err != nil {
		fail(err.Error())
		return
	}
	respond(result)
}
