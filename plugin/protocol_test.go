package plugin

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"testing"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := HostToPlugin{Kind: KindPerformAction, Input: map[string]string{"foo": "bar"}}

	if err := WriteFrame(&buf, msg); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	payload, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	var got HostToPlugin
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshaling round-tripped payload: %v", err)
	}
	if got.Kind != KindPerformAction {
		t.Errorf("Kind = %q, want %q", got.Kind, KindPerformAction)
	}
}

func TestReadFrameInvalidPayloadSize(t *testing.T) {
	var buf bytes.Buffer
	var hdr [8]byte
	binary.LittleEndian.PutUint64(hdr[:], 1) // below the 2-byte minimum
	buf.Write(hdr[:])
	buf.WriteByte('{')

	_, err := ReadFrame(&buf)
	if err != ErrInvalidPayloadSize {
		t.Errorf("ReadFrame = %v, want ErrInvalidPayloadSize", err)
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	var hdr [8]byte
	binary.LittleEndian.PutUint64(hdr[:], 10)
	buf.Write(hdr[:])
	buf.WriteString("{}") // far fewer than the declared 10 bytes

	_, err := ReadFrame(&buf)
	if err != ErrTruncatedPayload {
		t.Errorf("ReadFrame = %v, want ErrTruncatedPayload", err)
	}
}

func TestReadFrameEOFBetweenFrames(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	if err != io.EOF {
		t.Errorf("ReadFrame on empty stream = %v, want io.EOF", err)
	}
}
