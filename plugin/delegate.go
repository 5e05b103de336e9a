package plugin

// Delegate receives every message a running plugin invocation produces, in
// the order the child process emitted it. Build/test/symbol-graph
// requests are serviced by calling one of the respond/fail callbacks the
// invocation passes to the handler;
// emitDiagnostic/defineBuildCommand/definePrebuildCommand are
// fire-and-forget notifications.
type Delegate interface {
	EmitDiagnostic(severity Severity, message, file string, line int)
	DefineBuildCommand(config []byte, inputs, outputs []string)
	DefinePrebuildCommand(config []byte, outputDir string)

	// PluginEmittedOutput forwards a raw chunk of the plugin's stderr
	// stream, free-form text not parsed as a protocol message.
	PluginEmittedOutput(chunk []byte)

	// The three request handlers are called from the invocation's stdout
	// reader and must eventually call exactly one of the two callbacks
	// they're given, either before returning or later.
	HandleBuildOperationRequest(subset, parameters []byte, respond func(result interface{}), fail func(msg string))
	HandleTestOperationRequest(subset, parameters []byte, respond func(result interface{}), fail func(msg string))
	HandleSymbolGraphRequest(target string, options []byte, respond func(result interface{}), fail func(msg string))
}
