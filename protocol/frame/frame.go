// Package frame implements the GUI RPC wire codec: terminator-delimited,
// Latin-1 encoded XML documents whose envelope marks the direction.
package frame

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/boincctl/protocol"
	"github.com/danmuck/boincctl/protocol/xmlnode"
	"golang.org/x/text/encoding/charmap"
)

// Terminator ends every frame. It is never valid inside XML content.
const Terminator byte = 3

// Role selects which envelope a codec expects and which it writes.
type Role uint8

const (
	// Initiator decodes replies and encodes requests (the client side).
	Initiator Role = iota
	// Responder decodes requests and encodes replies (the daemon side).
	Responder
)

func (r Role) String() string {
	if r == Responder {
		return "responder"
	}
	return "initiator"
}

// InboundEnvelope is the outer element name this role accepts.
func (r Role) InboundEnvelope() string {
	if r == Responder {
		return protocol.RequestEnvelope
	}
	return protocol.ReplyEnvelope
}

// OutboundEnvelope is the outer element name this role writes.
func (r Role) OutboundEnvelope() string {
	if r == Responder {
		return protocol.ReplyEnvelope
	}
	return protocol.RequestEnvelope
}

var (
	ErrFrameTooLarge    = errors.New("frame: frame exceeds size limit")
	ErrTerminatorInBody = errors.New("frame: content contains terminator byte")
)

// Limits constrains decoder memory use.
type Limits struct {
	MaxFrameBytes int
}

func DefaultLimits() Limits {
	return Limits{
		MaxFrameBytes: 16 * 1024 * 1024,
	}
}

// Decoder extracts frames from a growing buffer. It remembers how far it has
// scanned so repeated calls over a partial frame never rescan rejected bytes.
type Decoder struct {
	role    Role
	limits  Limits
	scanned int
}

func NewDecoder(role Role, limits Limits) *Decoder {
	return &Decoder{role: role, limits: limits}
}

// Decode consumes one frame from buf. ok is false when buf does not yet hold a
// terminator; the caller must append more bytes and call again. A frame that
// fails to parse is still consumed, so the stream stays aligned.
func (d *Decoder) Decode(buf *bytes.Buffer) (children []xmlnode.Node, ok bool, err error) {
	data := buf.Bytes()
	if d.scanned > len(data) {
		d.scanned = 0
	}
	i := bytes.IndexByte(data[d.scanned:], Terminator)
	if i < 0 {
		d.scanned = len(data)
		if d.limits.MaxFrameBytes > 0 && len(data) > d.limits.MaxFrameBytes {
			return nil, false, protocol.DataParseErrorf(ErrFrameTooLarge, "%d bytes buffered", len(data))
		}
		return nil, false, nil
	}
	end := d.scanned + i
	d.scanned = 0
	raw := buf.Next(end + 1)
	children, err = d.parse(raw[:end])
	if err != nil {
		return nil, true, err
	}
	return children, true, nil
}

// Reset forgets the scan offset; used when the caller discards its buffer.
func (d *Decoder) Reset() {
	d.scanned = 0
}

func (d *Decoder) parse(raw []byte) ([]xmlnode.Node, error) {
	if len(raw) == 0 {
		return []xmlnode.Node{}, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, protocol.DataParseErrorf(err, "invalid data received")
	}
	text := stripPrologue(string(decoded))
	if strings.TrimSpace(text) == "" {
		return nil, protocol.DataParseError("frame has no root element")
	}
	root, err := xmlnode.Parse(text)
	if err != nil {
		return nil, protocol.DataParseErrorf(err, "xml")
	}
	expected := d.role.InboundEnvelope()
	if root.Name != expected {
		return nil, protocol.DataParseError(fmt.Sprintf("invalid root: %s. expected: %s", root.Name, expected))
	}
	if root.Children == nil {
		return []xmlnode.Node{}, nil
	}
	return root.Children, nil
}

// stripPrologue drops a leading <?xml ...?> declaration.
func stripPrologue(s string) string {
	trimmed := strings.TrimLeft(s, " \t\r\n")
	if !strings.HasPrefix(trimmed, "<?xml") {
		return s
	}
	end := strings.Index(trimmed, "?>")
	if end < 0 {
		return s
	}
	return trimmed[end+2:]
}

// Encoder wraps request or reply children in the outbound envelope.
type Encoder struct {
	role Role
}

func NewEncoder(role Role) Encoder {
	return Encoder{role: role}
}

// Encode returns the complete frame bytes including the terminator.
func (e Encoder) Encode(children []xmlnode.Node) ([]byte, error) {
	text, err := xmlnode.New(e.role.OutboundEnvelope(), children...).Marshal()
	if err != nil {
		return nil, protocol.DataParseErrorf(err, "serialize")
	}
	text = stripPrologue(text)
	if strings.IndexByte(text, Terminator) >= 0 {
		return nil, protocol.DataParseErrorf(ErrTerminatorInBody, "encode")
	}
	out, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, protocol.DataParseErrorf(err, "content is not representable in ISO-8859-1")
	}
	return append(out, Terminator), nil
}
