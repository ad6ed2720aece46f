// Package fakedaemon is a scripted GUI RPC responder for tests. It speaks the
// responder side of the frame codec and issues real nonce challenges.
package fakedaemon

import (
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/danmuck/boincctl/protocol/auth"
	"github.com/danmuck/boincctl/protocol/frame"
	"github.com/danmuck/boincctl/protocol/xmlnode"
	"github.com/rs/zerolog/log"
)

// Handler builds the reply children for one application request.
type Handler func(req []xmlnode.Node) []xmlnode.Node

type Options struct {
	// Password enables the nonce challenge; empty authorizes on auth1.
	Password string
	Handler  Handler
}

type Daemon struct {
	ln       net.Listener
	verifier auth.Verifier
	password string
	handler  Handler

	mu       sync.Mutex
	requests [][]xmlnode.Node
	accepted int
	dropNext int
	conns    map[net.Conn]struct{}

	wg sync.WaitGroup
}

// Start listens on a loopback port until the test ends.
func Start(t testing.TB, opts Options) *Daemon {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	d := &Daemon{
		ln:       ln,
		verifier: auth.StaticPassword{Password: opts.Password},
		password: opts.Password,
		handler:  opts.Handler,
		conns:    make(map[net.Conn]struct{}),
	}
	if d.handler == nil {
		d.handler = func([]xmlnode.Node) []xmlnode.Node {
			return []xmlnode.Node{xmlnode.New("success")}
		}
	}
	d.wg.Add(1)
	go d.acceptLoop()
	t.Cleanup(d.Close)
	return d
}

func (d *Daemon) Addr() string {
	return d.ln.Addr().String()
}

// Requests returns every application request received after a handshake.
func (d *Daemon) Requests() [][]xmlnode.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]xmlnode.Node, len(d.requests))
	copy(out, d.requests)
	return out
}

// Accepted counts TCP connections accepted so far.
func (d *Daemon) Accepted() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accepted
}

// DropNext makes the next n application requests close the connection unanswered.
func (d *Daemon) DropNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropNext = n
}

func (d *Daemon) Close() {
	_ = d.ln.Close()
	d.mu.Lock()
	for c := range d.conns {
		_ = c.Close()
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Daemon) acceptLoop() {
	defer d.wg.Done()
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Debug().Err(err).Msg("fakedaemon accept")
			}
			return
		}
		d.mu.Lock()
		d.accepted++
		d.conns[conn] = struct{}{}
		d.mu.Unlock()
		d.wg.Add(1)
		go d.serve(conn)
	}
}

func (d *Daemon) serve(conn net.Conn) {
	defer d.wg.Done()
	defer func() {
		d.mu.Lock()
		delete(d.conns, conn)
		d.mu.Unlock()
		_ = conn.Close()
	}()
	r := frame.NewReader(conn, frame.Responder, frame.DefaultLimits())
	enc := frame.NewEncoder(frame.Responder)

	if !d.handshake(conn, r, enc) {
		return
	}
	for {
		req, err := r.ReadFrame()
		if err != nil {
			return
		}
		d.mu.Lock()
		d.requests = append(d.requests, req)
		drop := d.dropNext > 0
		if drop {
			d.dropNext--
		}
		d.mu.Unlock()
		if drop {
			return
		}
		if err := frame.WriteFrame(conn, enc, d.handler(req)); err != nil {
			return
		}
	}
}

func (d *Daemon) handshake(conn net.Conn, r *frame.Reader, enc frame.Encoder) bool {
	req, err := r.ReadFrame()
	if err != nil || len(req) != 1 || req[0].Name != "auth1" {
		return false
	}
	if d.password == "" {
		return frame.WriteFrame(conn, enc, []xmlnode.Node{xmlnode.New("authorized")}) == nil
	}
	nonce := auth.NewNonce()
	if err := frame.WriteFrame(conn, enc, []xmlnode.Node{xmlnode.NewText("nonce", nonce)}); err != nil {
		return false
	}
	req, err = r.ReadFrame()
	if err != nil || len(req) != 1 || req[0].Name != "auth2" {
		return false
	}
	answer, _ := req[0].Child("nonce_hash")
	if err := d.verifier.Verify(nonce, answer.Text); err != nil {
		_ = frame.WriteFrame(conn, enc, []xmlnode.Node{xmlnode.New("unauthorized")})
		return false
	}
	return frame.WriteFrame(conn, enc, []xmlnode.Node{xmlnode.New("authorized")}) == nil
}
