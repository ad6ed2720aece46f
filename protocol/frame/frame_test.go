package frame

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/danmuck/boincctl/internal/testutil/testlog"
	"github.com/danmuck/boincctl/protocol"
	"github.com/danmuck/boincctl/protocol/xmlnode"
)

func sampleChildren() []xmlnode.Node {
	return []xmlnode.Node{
		xmlnode.NewText("get_messages", "12"),
		xmlnode.New("get_results", xmlnode.NewText("active_only", "1")),
		{Name: "body", CData: "done <ok>"},
		xmlnode.New("authorized"),
	}
}

// responderBytes encodes children the way a daemon would, so an Initiator can decode them.
func responderBytes(t *testing.T, children []xmlnode.Node) []byte {
	t.Helper()
	b, err := NewEncoder(Responder).Encode(children)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return b
}

func TestEncodeWritesRequestEnvelopeAndTerminator(t *testing.T) {
	testlog.Start(t)
	got, err := NewEncoder(Initiator).Encode([]xmlnode.Node{xmlnode.New("auth1")})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := "<boinc_gui_rpc_request><auth1/></boinc_gui_rpc_request>\x03"
	if string(got) != want {
		t.Fatalf("got=%q want=%q", got, want)
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := sampleChildren()
	buf := bytes.NewBuffer(responderBytes(t, in))
	out, ok, err := NewDecoder(Initiator, DefaultLimits()).Decode(buf)
	if err != nil || !ok {
		t.Fatalf("decode ok=%v err=%v", ok, err)
	}
	if !xmlnode.EqualList(in, out) {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
	if buf.Len() != 0 {
		t.Fatalf("frame not consumed, %d bytes left", buf.Len())
	}
}

func TestDecodeResumesAcrossEverySplit(t *testing.T) {
	testlog.Start(t)
	in := sampleChildren()
	wire := responderBytes(t, in)
	for split := 0; split <= len(wire); split++ {
		dec := NewDecoder(Initiator, DefaultLimits())
		var buf bytes.Buffer
		buf.Write(wire[:split])
		out, ok, err := dec.Decode(&buf)
		if err != nil {
			t.Fatalf("split=%d first decode: %v", split, err)
		}
		if !ok {
			buf.Write(wire[split:])
			out, ok, err = dec.Decode(&buf)
			if err != nil || !ok {
				t.Fatalf("split=%d second decode ok=%v err=%v", split, ok, err)
			}
		} else if split != len(wire) {
			t.Fatalf("split=%d decoded before terminator arrived", split)
		}
		if !xmlnode.EqualList(in, out) {
			t.Fatalf("split=%d mismatch: %+v", split, out)
		}
	}
}

func TestDecodeRemembersScanOffset(t *testing.T) {
	testlog.Start(t)
	wire := responderBytes(t, sampleChildren())
	dec := NewDecoder(Initiator, DefaultLimits())
	var buf bytes.Buffer
	buf.Write(wire[:10])
	if _, ok, _ := dec.Decode(&buf); ok {
		t.Fatalf("unexpected frame")
	}
	if dec.scanned != 10 {
		t.Fatalf("scan offset got=%d want=10", dec.scanned)
	}
	buf.Write(wire[10:])
	if _, ok, err := dec.Decode(&buf); !ok || err != nil {
		t.Fatalf("decode ok=%v err=%v", ok, err)
	}
	if dec.scanned != 0 {
		t.Fatalf("scan offset not reset: %d", dec.scanned)
	}
}

func TestDecodeBackToBackFramesAreIndependent(t *testing.T) {
	testlog.Start(t)
	first := []xmlnode.Node{xmlnode.New("nonce")}
	second := []xmlnode.Node{xmlnode.New("authorized")}
	var buf bytes.Buffer
	buf.Write(responderBytes(t, first))
	buf.Write(responderBytes(t, second))

	dec := NewDecoder(Initiator, DefaultLimits())
	out, ok, err := dec.Decode(&buf)
	if err != nil || !ok || !xmlnode.EqualList(first, out) {
		t.Fatalf("first frame ok=%v err=%v out=%+v", ok, err, out)
	}
	out, ok, err = dec.Decode(&buf)
	if err != nil || !ok || !xmlnode.EqualList(second, out) {
		t.Fatalf("second frame ok=%v err=%v out=%+v", ok, err, out)
	}
	if _, ok, err := dec.Decode(&buf); ok || err != nil {
		t.Fatalf("expected need-more, got ok=%v err=%v", ok, err)
	}
}

func TestDecodeStripsPrologueAndReadsLatin1(t *testing.T) {
	testlog.Start(t)
	raw := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\" ?>\n<boinc_gui_rpc_reply>\n<project>caf\xe9</project>\n</boinc_gui_rpc_reply>\n\x03")
	out, ok, err := NewDecoder(Initiator, DefaultLimits()).Decode(bytes.NewBuffer(raw))
	if err != nil || !ok {
		t.Fatalf("decode ok=%v err=%v", ok, err)
	}
	if len(out) != 1 || out[0].Text != "café" {
		t.Fatalf("unexpected children: %+v", out)
	}

	back, err := NewEncoder(Responder).Encode(out)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Contains(back, []byte("caf\xe9")) {
		t.Fatalf("expected single-byte latin-1 output, got %q", back)
	}
}

func TestDecodeEnvelopeMismatchIsDataParse(t *testing.T) {
	testlog.Start(t)
	// an Initiator must not accept a request envelope
	wire, err := NewEncoder(Initiator).Encode([]xmlnode.Node{xmlnode.New("auth1")})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	buf := bytes.NewBuffer(wire)
	_, ok, err := NewDecoder(Initiator, DefaultLimits()).Decode(buf)
	if !ok {
		t.Fatalf("expected frame to be consumed")
	}
	if protocol.KindOf(err) != protocol.KindDataParse {
		t.Fatalf("expected data parse error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("bad frame left %d bytes behind", buf.Len())
	}

	_, _, err = NewDecoder(Initiator, DefaultLimits()).Decode(bytes.NewBufferString("<boinc_gui_rpc_reply/>junk<\x03"))
	if protocol.KindOf(err) != protocol.KindDataParse {
		t.Fatalf("expected data parse error for malformed xml, got %v", err)
	}
}

func TestDecodeEmptyFrames(t *testing.T) {
	testlog.Start(t)
	dec := NewDecoder(Initiator, DefaultLimits())
	out, ok, err := dec.Decode(bytes.NewBuffer([]byte{Terminator}))
	if err != nil || !ok || len(out) != 0 {
		t.Fatalf("zero-length frame ok=%v err=%v out=%+v", ok, err, out)
	}
	out, ok, err = dec.Decode(bytes.NewBufferString("<boinc_gui_rpc_reply></boinc_gui_rpc_reply>\x03"))
	if err != nil || !ok || out == nil || len(out) != 0 {
		t.Fatalf("empty envelope ok=%v err=%v out=%+v", ok, err, out)
	}
	_, _, err = dec.Decode(bytes.NewBufferString("<boinc_gui_rpc_request/>\x03"))
	if protocol.KindOf(err) != protocol.KindDataParse {
		t.Fatalf("empty envelope with wrong name should fail, got %v", err)
	}
}

func TestDecodeWhitespaceFrameIsRejected(t *testing.T) {
	testlog.Start(t)
	dec := NewDecoder(Initiator, DefaultLimits())
	buf := bytes.NewBufferString(" \r\n\t\x03<boinc_gui_rpc_reply><success/></boinc_gui_rpc_reply>\x03")
	_, ok, err := dec.Decode(buf)
	if !ok || protocol.KindOf(err) != protocol.KindDataParse {
		t.Fatalf("whitespace frame ok=%v err=%v", ok, err)
	}
	_, _, err = dec.Decode(bytes.NewBufferString("<?xml version=\"1.0\"?>\n\x03"))
	if protocol.KindOf(err) != protocol.KindDataParse {
		t.Fatalf("prologue-only frame should fail, got %v", err)
	}
	out, ok, err := dec.Decode(buf)
	if err != nil || !ok || len(out) != 1 || out[0].Name != "success" {
		t.Fatalf("following frame ok=%v err=%v out=%+v", ok, err, out)
	}
}

func TestDecodeFrameTooLarge(t *testing.T) {
	testlog.Start(t)
	dec := NewDecoder(Initiator, Limits{MaxFrameBytes: 8})
	_, ok, err := dec.Decode(bytes.NewBufferString("<boinc_gui_rpc_reply>"))
	if ok || !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got ok=%v err=%v", ok, err)
	}
}

func TestEncodeRejectsUnrepresentableContent(t *testing.T) {
	testlog.Start(t)
	_, err := NewEncoder(Initiator).Encode([]xmlnode.Node{xmlnode.NewText("set_language", "日本語")})
	if protocol.KindOf(err) != protocol.KindDataParse {
		t.Fatalf("expected data parse error, got %v", err)
	}
	_, err = NewEncoder(Initiator).Encode([]xmlnode.Node{xmlnode.NewText("x", "a\x03b")})
	if err == nil {
		t.Fatalf("expected terminator content to be rejected")
	}
}

type trickleReader struct {
	data []byte
	step int
}

func (r *trickleReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.step
	if n > len(r.data) {
		n = len(r.data)
	}
	n = copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func TestReaderAssemblesFramesFromSmallReads(t *testing.T) {
	testlog.Start(t)
	first := []xmlnode.Node{xmlnode.NewText("nonce", "abc123")}
	second := []xmlnode.Node{xmlnode.New("authorized")}
	wire := append(responderBytes(t, first), responderBytes(t, second)...)
	r := NewReader(&trickleReader{data: wire, step: 3}, Initiator, DefaultLimits())

	out, err := r.ReadFrame()
	if err != nil || !xmlnode.EqualList(first, out) {
		t.Fatalf("first frame err=%v out=%+v", err, out)
	}
	out, err = r.ReadFrame()
	if err != nil || !xmlnode.EqualList(second, out) {
		t.Fatalf("second frame err=%v out=%+v", err, out)
	}
	if _, err := r.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReaderTruncatedFrameIsUnexpectedEOF(t *testing.T) {
	testlog.Start(t)
	wire := responderBytes(t, []xmlnode.Node{xmlnode.New("authorized")})
	r := NewReader(strings.NewReader(string(wire[:len(wire)-3])), Initiator, DefaultLimits())
	if _, err := r.ReadFrame(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
	if r.Buffered() == 0 {
		t.Fatalf("expected partial bytes to stay buffered")
	}
}

func TestWriteFrame(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, NewEncoder(Responder), []xmlnode.Node{xmlnode.New("success")}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if buf.String() != "<boinc_gui_rpc_reply><success/></boinc_gui_rpc_reply>\x03" {
		t.Fatalf("unexpected frame %q", buf.String())
	}
}
