package plugin

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CompileInput bundles everything the compile step needs.
type CompileInput struct {
	Sources      []string
	ToolsVersion string
	CacheDir     string
	PluginAPIPath string
	SwiftVersion  string
	// ExtraArgs are additional target/SDK/module-cache flags applied as-is
	// on the host; the core does not interpret them.
	ExtraArgs []string
	Env       []string
}

// CompileResult carries the outcome of a plugin compilation.
type CompileResult struct {
	CompilerOutput     string
	CompilerExitCode   int
	DiagnosticsFile    string
	CompiledExecutable string
	WasCached          bool
}

// CompilationFailedError carries the compiler's full stdout/stderr and exit
// status.
type CompilationFailedError struct {
	Output   string
	ExitCode int
}

func (e *CompilationFailedError) Error() string {
	return "plugin compilation failed (exit " + strconv.Itoa(e.ExitCode) + "):\n" + e.Output
}

var mangleRe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// mangle maps an arbitrary source basename to a valid C identifier:
// non-identifier characters become underscores, and a leading digit gets
// an underscore prefix.
func mangle(basename string) string {
	name := mangleRe.ReplaceAllString(basename, "_")
	if name == "" {
		return "_plugin"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

// buildCommand assembles the compiler invocation argv.
func buildCommand(in CompileInput, execFile, diaFile string) []string {
	args := []string{"swiftc", "-parse-as-library"}
	args = append(args, in.Sources...)
	if in.PluginAPIPath != "" {
		args = append(args, "-I", in.PluginAPIPath)
	}
	if in.SwiftVersion != "" {
		args = append(args, "-swift-version", in.SwiftVersion)
	}
	if in.ToolsVersion != "" {
		args = append(args, "-package-description-version", in.ToolsVersion)
	}
	args = append(args, "-serialize-diagnostics-path", diaFile)
	args = append(args, in.ExtraArgs...)
	args = append(args, "-o", execFile)
	return args
}

// inputHash computes SHA-256(command || sorted(env) || concat(sourceFiles)).
// It returns ("", err) if any source file cannot be read, in which case
// the caller treats the attempt as a cache miss rather than failing
// compilation outright.
func inputHash(command []string, env []string, sources []string) (string, error) {
	h := sha256.New()
	for _, c := range command {
		h.Write([]byte(c))
		h.Write([]byte{0})
	}

	sortedEnv := append([]string(nil), env...)
	sort.Strings(sortedEnv)
	for _, e := range sortedEnv {
		h.Write([]byte(e))
		h.Write([]byte{0})
	}

	for _, src := range sources {
		data, err := ioutil.ReadFile(src)
		if err != nil {
			return "", errors.Wrapf(err, "reading plugin source %s", src)
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Compile compiles in.Sources into a cached host executable under
// in.CacheDir, reusing a prior compilation whose input hash sidecar
// matches byte-for-byte.
func Compile(ctx context.Context, in CompileInput) (CompileResult, error) {
	if err := os.MkdirAll(in.CacheDir, 0o755); err != nil {
		return CompileResult{}, errors.Wrapf(err, "creating plugin cache dir %s", in.CacheDir)
	}

	execName := mangle(baseNameNoExt(rootSource(in.Sources)))
	execFile := filepath.Join(in.CacheDir, execName)
	hashFile := execFile + ".inputhash"
	diaFile := filepath.Join(in.CacheDir, execName+".dia")

	command := buildCommand(in, execFile, diaFile)

	hash, hashErr := inputHash(command, in.Env, in.Sources)
	if hashErr == nil {
		if existing, err := ioutil.ReadFile(hashFile); err == nil {
			if string(existing) == hash && fileExists(execFile) {
				return CompileResult{
					DiagnosticsFile:    diaFile,
					CompiledExecutable: execFile,
					WasCached:          true,
				}, nil
			}
		}
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	if len(in.Env) > 0 {
		cmd.Env = in.Env
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	if runErr != nil {
		os.Remove(execFile)
		os.Remove(hashFile)
		exitCode := -1
		var ee *exec.ExitError
		if errors.As(runErr, &ee) {
			exitCode = ee.ExitCode()
		}
		return CompileResult{CompilerOutput: out.String(), CompilerExitCode: exitCode, DiagnosticsFile: diaFile},
			&CompilationFailedError{Output: out.String(), ExitCode: exitCode}
	}

	if hashErr == nil {
		if err := ioutil.WriteFile(hashFile, []byte(hash), 0o644); err != nil {
			return CompileResult{}, errors.Wrap(err, "writing input hash sidecar")
		}
	}

	return CompileResult{
		CompilerOutput:     out.String(),
		DiagnosticsFile:    diaFile,
		CompiledExecutable: execFile,
		WasCached:          false,
	}, nil
}

func rootSource(sources []string) string {
	if len(sources) == 0 {
		return "plugin"
	}
	return sources[0]
}

func baseNameNoExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
