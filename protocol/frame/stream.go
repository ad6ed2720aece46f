package frame

import (
	"bytes"
	"errors"
	"io"

	"github.com/danmuck/boincctl/protocol/xmlnode"
)

const readChunk = 4096

// Reader decodes frames from a byte stream, buffering partial reads.
type Reader struct {
	src   io.Reader
	dec   *Decoder
	buf   bytes.Buffer
	chunk []byte
}

func NewReader(src io.Reader, role Role, limits Limits) *Reader {
	return &Reader{
		src:   src,
		dec:   NewDecoder(role, limits),
		chunk: make([]byte, readChunk),
	}
}

// ReadFrame blocks until one full frame is decoded. I/O errors are returned
// unwrapped; a stream that ends inside a frame yields io.ErrUnexpectedEOF.
func (r *Reader) ReadFrame() ([]xmlnode.Node, error) {
	for {
		children, ok, err := r.dec.Decode(&r.buf)
		if ok || err != nil {
			return children, err
		}
		n, rerr := r.src.Read(r.chunk)
		if n > 0 {
			r.buf.Write(r.chunk[:n])
		}
		if rerr == nil {
			continue
		}
		if n > 0 {
			children, ok, err := r.dec.Decode(&r.buf)
			if ok || err != nil {
				return children, err
			}
		}
		if errors.Is(rerr, io.EOF) && r.buf.Len() > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, rerr
	}
}

// Buffered reports bytes received but not yet consumed as a frame.
func (r *Reader) Buffered() int {
	return r.buf.Len()
}

// WriteFrame encodes children and writes the whole frame in one call.
func WriteFrame(w io.Writer, enc Encoder, children []xmlnode.Node) error {
	payload, err := enc.Encode(children)
	if err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}
