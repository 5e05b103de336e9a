// Package plugin implements the build-time plugin script runner: compiling
// user-authored plugin sources to a cached host executable, then launching
// it as a sandboxed child process and exchanging length-prefixed JSON
// frames with it until it exits.
package plugin

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// frame is the wire format for both directions: an 8-byte little-endian
// length prefix followed by that many bytes of UTF-8 JSON.
//
//	frame := uint64_le(len) || utf8_json_bytes
type frame struct{}

// ErrInvalidPayloadSize reports a frame whose declared length is below the
// minimum possible JSON payload (an empty object is at least 2 bytes, "{}").
var ErrInvalidPayloadSize = errors.New("invalid payload size")

// ErrTruncatedPayload reports a frame whose body was shorter than its
// declared length when the stream ended.
var ErrTruncatedPayload = errors.New("truncated payload")

// WriteFrame encodes v as JSON and writes it length-prefixed to w.
func WriteFrame(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding frame payload")
	}

	var hdr [8]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(len(data)))
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "writing frame header")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "writing frame payload")
	}
	return nil
}

// ReadFrame reads one length-prefixed JSON frame from r and returns its raw
// payload bytes.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint64(hdr[:])
	if n < 2 {
		return nil, ErrInvalidPayloadSize
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, ErrTruncatedPayload
		}
		return nil, err
	}
	return buf, nil
}

// Severity is a plugin diagnostic's severity level.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityRemark  Severity = "remark"
)

// HostToPlugin is the tagged union of messages the host sends to a
// plugin.
type HostToPlugin struct {
	Kind                 string      `json:"kind"`
	Input                interface{} `json:"input,omitempty"`
	BuildOperationResult interface{} `json:"buildOperationResult,omitempty"`
	TestOperationResult  interface{} `json:"testOperationResult,omitempty"`
	SymbolGraphResult    interface{} `json:"symbolGraphResult,omitempty"`
	Error                string      `json:"error,omitempty"`
}

const (
	KindPerformAction          = "performAction"
	KindBuildOperationResponse = "buildOperationResponse"
	KindTestOperationResponse  = "testOperationResponse"
	KindSymbolGraphResponse    = "symbolGraphResponse"
	KindErrorResponse          = "errorResponse"
)

// PluginToHost is the tagged union of messages a plugin sends to the host.
type PluginToHost struct {
	Kind string `json:"kind"`

	// emitDiagnostic
	Severity Severity `json:"severity,omitempty"`
	Message  string   `json:"message,omitempty"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`

	// defineBuildCommand / definePrebuildCommand
	Config  json.RawMessage `json:"config,omitempty"`
	Inputs  []string        `json:"inputs,omitempty"`
	Outputs []string        `json:"outputs,omitempty"`
	OutDir  string          `json:"outputDir,omitempty"`

	// buildOperationRequest / testOperationRequest / symbolGraphRequest
	Subset     json.RawMessage `json:"subset,omitempty"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	Target     string          `json:"target,omitempty"`
	Options    json.RawMessage `json:"options,omitempty"`

	// RequestID is decoded when the plugin sends one. The host does not read
	// it and its replies carry no id; the wire protocol is a single ordered
	// stream per direction.
	RequestID int `json:"requestId,omitempty"`
}

const (
	KindEmitDiagnostic        = "emitDiagnostic"
	KindDefineBuildCommand    = "defineBuildCommand"
	KindDefinePrebuildCommand = "definePrebuildCommand"
	KindBuildOperationRequest = "buildOperationRequest"
	KindTestOperationRequest  = "testOperationRequest"
	KindSymbolGraphRequest    = "symbolGraphRequest"
)
