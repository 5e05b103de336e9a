package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"sync"
	"syscall"

	"github.com/pkg/errors"
)

// CommunicationError reports a protocol violation on the wire: a truncated
// header/payload or an invalid declared payload size.
type CommunicationError struct {
	Underlying error
}

func (e *CommunicationError) Error() string {
	return "plugin communication error: " + e.Underlying.Error()
}

func (e *CommunicationError) Unwrap() error { return e.Underlying }

// EndedBySignalError reports that the plugin child process died by an
// uncaught signal rather than exiting normally.
type EndedBySignalError struct {
	Signal syscall.Signal
}

func (e *EndedBySignalError) Error() string {
	return "plugin invocation ended by signal: " + e.Signal.String()
}

// InvokeInput bundles a single invocation's parameters.
type InvokeInput struct {
	CompiledExec        string
	Args                []string
	WritableDirectories []string
	ReadableDirectories []string
	CacheDir            string
	Input               interface{}
	Delegate            Delegate
	Sandbox             SandboxPolicy
	// Env, when non-nil, replaces the child's environment outright (it is
	// not merged with the host's). A nil Env inherits the host process's
	// environment, matching exec.Cmd's default.
	Env []string
}

// InvokeResult reports how the invocation ended.
type InvokeResult struct {
	Success  bool
	ExitCode int
}

// Invoke spawns compiledExec as a sandboxed child process, drives the
// length-prefixed JSON message loop against it until it exits, and reports
// the outcome. It blocks until the child exits and all output has been
// drained; cancelling ctx kills the child (there is no first-class
// cancellation beyond killing the process).
func Invoke(ctx context.Context, in InvokeInput) (InvokeResult, error) {
	sandbox := in.Sandbox
	if sandbox == nil {
		sandbox = IdentityPolicy{}
	}

	argv := append([]string{in.CompiledExec}, in.Args...)
	argv = sandbox.Wrap(argv, append(in.WritableDirectories, in.CacheDir))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = in.CacheDir
	if in.Env != nil {
		cmd.Env = in.Env
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return InvokeResult{}, errors.Wrap(err, "opening plugin stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return InvokeResult{}, errors.Wrap(err, "opening plugin stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return InvokeResult{}, errors.Wrap(err, "opening plugin stderr")
	}

	if err := cmd.Start(); err != nil {
		return InvokeResult{}, errors.Wrap(err, "starting plugin process")
	}

	inv := &invocation{
		stdin:    stdin,
		delegate: in.Delegate,
		writeMu:  &sync.Mutex{},
	}

	if err := inv.send(HostToPlugin{Kind: KindPerformAction, Input: in.Input}); err != nil {
		return InvokeResult{}, errors.Wrap(err, "sending performAction")
	}

	var wg sync.WaitGroup
	var sawErrorDiagnostic bool
	var sawErrorMu sync.Mutex
	var stderrBuf bytes.Buffer
	var commErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		inv.readStdout(stdout, &sawErrorMu, &sawErrorDiagnostic, &commErr)
	}()
	go func() {
		defer wg.Done()
		inv.readStderr(stderr, &stderrBuf)
	}()

	wg.Wait()
	stdin.Close()

	waitErr := cmd.Wait()

	if ws, ok := exitStatus(waitErr); ok && ws.Signaled() {
		return InvokeResult{}, &EndedBySignalError{Signal: ws.Signal()}
	}
	if commErr != nil {
		return InvokeResult{}, commErr
	}

	exitCode := 0
	if waitErr != nil {
		var ee *exec.ExitError
		if errors.As(waitErr, &ee) {
			exitCode = ee.ExitCode()
		} else {
			return InvokeResult{}, errors.Wrap(waitErr, "waiting for plugin process")
		}
	}

	if exitCode != 0 {
		sawErrorMu.Lock()
		already := sawErrorDiagnostic
		sawErrorMu.Unlock()
		if !already && in.Delegate != nil {
			msg := "plugin exited with a nonzero status and emitted no diagnostic"
			if stderrBuf.Len() > 0 {
				msg += ": " + stderrBuf.String()
			}
			in.Delegate.EmitDiagnostic(SeverityError, msg, "", 0)
		}
	}

	return InvokeResult{Success: exitCode == 0, ExitCode: exitCode}, nil
}

type invocation struct {
	stdin    io.WriteCloser
	delegate Delegate
	writeMu  *sync.Mutex
}

// send serializes msg onto the single output queue that orders every write
// to the plugin's stdin.
func (inv *invocation) send(msg HostToPlugin) error {
	inv.writeMu.Lock()
	defer inv.writeMu.Unlock()
	return WriteFrame(inv.stdin, msg)
}

func (inv *invocation) readStdout(r io.Reader, mu *sync.Mutex, sawError *bool, commErr *error) {
	for {
		payload, err := ReadFrame(r)
		if err != nil {
			if err == io.EOF {
				return
			}
			if err == ErrInvalidPayloadSize || err == ErrTruncatedPayload {
				*commErr = &CommunicationError{Underlying: err}
				return
			}
			*commErr = &CommunicationError{Underlying: err}
			return
		}

		var msg PluginToHost
		if err := json.Unmarshal(payload, &msg); err != nil {
			*commErr = &CommunicationError{Underlying: err}
			continue
		}

		inv.dispatch(msg, mu, sawError)
	}
}

func (inv *invocation) dispatch(msg PluginToHost, mu *sync.Mutex, sawError *bool) {
	if inv.delegate == nil {
		return
	}
	switch msg.Kind {
	case KindEmitDiagnostic:
		if msg.Severity == SeverityError {
			mu.Lock()
			*sawError = true
			mu.Unlock()
		}
		inv.delegate.EmitDiagnostic(msg.Severity, msg.Message, msg.File, msg.Line)

	case KindDefineBuildCommand:
		inv.delegate.DefineBuildCommand(msg.Config, msg.Inputs, msg.Outputs)

	case KindDefinePrebuildCommand:
		inv.delegate.DefinePrebuildCommand(msg.Config, msg.OutDir)

	case KindBuildOperationRequest:
		inv.delegate.HandleBuildOperationRequest(msg.Subset, msg.Parameters,
			func(result interface{}) { inv.send(HostToPlugin{Kind: KindBuildOperationResponse, BuildOperationResult: result}) },
			func(m string) { inv.send(HostToPlugin{Kind: KindErrorResponse, Error: m}) })

	case KindTestOperationRequest:
		inv.delegate.HandleTestOperationRequest(msg.Subset, msg.Parameters,
			func(result interface{}) { inv.send(HostToPlugin{Kind: KindTestOperationResponse, TestOperationResult: result}) },
			func(m string) { inv.send(HostToPlugin{Kind: KindErrorResponse, Error: m}) })

	case KindSymbolGraphRequest:
		inv.delegate.HandleSymbolGraphRequest(msg.Target, msg.Options,
			func(result interface{}) { inv.send(HostToPlugin{Kind: KindSymbolGraphResponse, SymbolGraphResult: result}) },
			func(m string) { inv.send(HostToPlugin{Kind: KindErrorResponse, Error: m}) })
	}
}

func (inv *invocation) readStderr(r io.Reader, buf *bytes.Buffer) {
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			data := append([]byte(nil), chunk[:n]...)
			buf.Write(data)
			if inv.delegate != nil {
				inv.delegate.PluginEmittedOutput(data)
			}
		}
		if err != nil {
			return
		}
	}
}

func exitStatus(err error) (syscall.WaitStatus, bool) {
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return syscall.WaitStatus(0), false
	}
	ws, ok := ee.Sys().(syscall.WaitStatus)
	return ws, ok
}
