package session

import (
	"context"
	"sync"

	"github.com/danmuck/boincctl/protocol"
	"github.com/danmuck/boincctl/protocol/xmlnode"
	"golang.org/x/sync/semaphore"
)

// State is the lifecycle of a Transport. StateFailed is absorbing.
type State uint8

const (
	StateConnecting State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DialFunc produces an authenticated Conn, usually by calling Dial.
type DialFunc func(ctx context.Context) (*Conn, error)

type dialResult struct {
	conn *Conn
	err  error
}

// Transport shares one Conn between concurrent callers. A FIFO lock admits one
// query at a time; the holder is the only goroutine touching the socket.
type Transport struct {
	lock    *semaphore.Weighted
	cancel  context.CancelFunc
	pending chan dialResult

	// guarded by lock; mu only makes State/Err readable without it
	mu    sync.Mutex
	state State
	conn  *Conn
	err   error
}

// NewTransport starts the handshake in the background and returns in the
// Connecting state. Values of ctx (such as its logger) reach the dial, but
// its cancellation does not; Close aborts a pending handshake.
func NewTransport(ctx context.Context, dial DialFunc) *Transport {
	dialCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t := &Transport{
		lock:    semaphore.NewWeighted(1),
		cancel:  cancel,
		pending: make(chan dialResult, 1),
		state:   StateConnecting,
	}
	go func() {
		conn, err := dial(dialCtx)
		t.pending <- dialResult{conn: conn, err: err}
	}()
	return t
}

func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Poll never blocks. It reports ready=true once the handshake has completed,
// the terminal error once failed, and ready=false while the handshake is still
// running or another caller holds the connection.
func (t *Transport) Poll() (bool, error) {
	if !t.lock.TryAcquire(1) {
		return false, nil
	}
	defer t.lock.Release(1)
	if t.state == StateConnecting {
		select {
		case res := <-t.pending:
			t.settle(res)
		default:
			return false, nil
		}
	}
	return t.state == StateReady, t.err
}

// Ready waits until the handshake finishes or ctx ends. Giving up on ctx
// leaves the handshake running.
func (t *Transport) Ready(ctx context.Context) error {
	if err := t.lock.Acquire(ctx, 1); err != nil {
		return protocol.NetworkError(err)
	}
	defer t.lock.Release(1)
	return t.awaitReady(ctx)
}

// Query serializes the exchange with all other callers. A network-class
// failure moves the Transport to StateFailed and closes the socket.
func (t *Transport) Query(ctx context.Context, req []xmlnode.Node) ([]xmlnode.Node, error) {
	if err := t.lock.Acquire(ctx, 1); err != nil {
		return nil, protocol.NetworkError(err)
	}
	defer t.lock.Release(1)
	if err := t.awaitReady(ctx); err != nil {
		return nil, err
	}
	reply, err := t.conn.Query(ctx, req)
	if err != nil && t.conn.Err() != nil {
		t.setFailed(t.conn.Err())
	}
	return reply, err
}

// Close aborts a pending handshake, waits for an in-flight query and closes the socket.
func (t *Transport) Close() error {
	t.cancel()
	_ = t.lock.Acquire(context.Background(), 1)
	defer t.lock.Release(1)

	if t.state == StateConnecting {
		res := <-t.pending
		if res.conn != nil {
			_ = res.conn.Close()
		}
	}
	var err error
	if t.conn != nil {
		err = t.conn.Close()
		t.conn = nil
	}
	if t.state != StateFailed {
		t.mu.Lock()
		t.state = StateFailed
		t.err = protocol.NetworkError(ErrClosed)
		t.mu.Unlock()
	}
	return err
}

// awaitReady requires the lock.
func (t *Transport) awaitReady(ctx context.Context) error {
	if t.state == StateConnecting {
		select {
		case res := <-t.pending:
			t.settle(res)
		case <-ctx.Done():
			return protocol.NetworkError(ctx.Err())
		}
	}
	if t.state == StateFailed {
		return t.err
	}
	return nil
}

// settle requires the lock.
func (t *Transport) settle(res dialResult) {
	if res.err != nil {
		t.setFailed(res.err)
		return
	}
	t.mu.Lock()
	t.state = StateReady
	t.conn = res.conn
	t.mu.Unlock()
}

// setFailed requires the lock.
func (t *Transport) setFailed(err error) {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	t.mu.Lock()
	t.state = StateFailed
	t.err = err
	t.mu.Unlock()
}
