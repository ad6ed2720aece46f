package session

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/danmuck/boincctl/protocol"
	"github.com/danmuck/boincctl/protocol/frame"
	"github.com/danmuck/boincctl/protocol/xmlnode"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrClosed = errors.New("session: closed")

// Querier is the session contract shared by Conn and Transport.
type Querier interface {
	// Query sends one request frame and returns the children of the next reply frame.
	Query(ctx context.Context, req []xmlnode.Node) ([]xmlnode.Node, error)
	// Err returns the terminal error once the session is unusable, nil before.
	// A Query that fails with a network-class error should leave Err non-nil;
	// callers discard such a session either way.
	Err() error
	Close() error
}

var (
	_ Querier = (*Conn)(nil)
	_ Querier = (*Transport)(nil)
)

// Conn is one owned socket speaking the initiator side of the protocol.
// It has no internal locking; share it only behind external synchronization
// (see Transport).
type Conn struct {
	id     string
	nc     net.Conn
	reader *frame.Reader
	enc    frame.Encoder
	cfg    Config
	failed error
}

func newConn(nc net.Conn, cfg Config) *Conn {
	return &Conn{
		id:     uuid.NewString(),
		nc:     nc,
		reader: frame.NewReader(nc, frame.Initiator, cfg.Limits),
		enc:    frame.NewEncoder(frame.Initiator),
		cfg:    cfg,
	}
}

// ID identifies the connection in logs.
func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

func (c *Conn) Err() error {
	return c.failed
}

func (c *Conn) Close() error {
	if c.failed == nil {
		c.failed = protocol.NetworkError(ErrClosed)
	}
	return c.nc.Close()
}

// Query performs one request/reply exchange. Any I/O failure, including a
// cancelled or expired ctx once bytes are on the wire, leaves the read
// position unknown: the Conn becomes failed and returns that same error on
// every later call. A reply that fails to parse does not fail the Conn.
func (c *Conn) Query(ctx context.Context, req []xmlnode.Node) ([]xmlnode.Node, error) {
	if c.failed != nil {
		return nil, c.failed
	}
	if len(req) == 0 {
		return nil, protocol.NullError("request has no elements")
	}
	payload, err := c.enc.Encode(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, protocol.NetworkError(err)
	}

	logger := zerolog.Ctx(ctx)
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = c.nc.SetDeadline(time.Unix(1, 0))
	})
	// a started callback must land before the next exchange sets its deadlines
	defer func() {
		if !stop() {
			<-fired
		}
	}()

	ctxDeadline, hasDeadline := ctx.Deadline()
	if err := c.nc.SetWriteDeadline(exchangeDeadline(ctxDeadline, hasDeadline, c.cfg.WriteTimeout)); err != nil {
		return nil, c.fail(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, c.fail(ctx, err)
	}
	if _, err := c.nc.Write(payload); err != nil {
		return nil, c.fail(ctx, err)
	}
	logger.Trace().Str("session", c.id).Int("bytes", len(payload)).Str("first", req[0].Name).Msg("frame sent")

	if err := c.nc.SetReadDeadline(exchangeDeadline(ctxDeadline, hasDeadline, c.cfg.ReadTimeout)); err != nil {
		return nil, c.fail(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, c.fail(ctx, err)
	}
	reply, err := c.reader.ReadFrame()
	if err != nil {
		// an oversized frame is never consumed, so the stream position is lost
		if protocol.KindOf(err) == protocol.KindDataParse && !errors.Is(err, frame.ErrFrameTooLarge) {
			logger.Debug().Str("session", c.id).Err(err).Msg("reply rejected")
			return nil, err
		}
		return nil, c.fail(ctx, err)
	}
	logger.Trace().Str("session", c.id).Int("children", len(reply)).Msg("frame received")
	return reply, nil
}

func (c *Conn) fail(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		c.failed = &protocol.Error{Kind: protocol.KindNetwork, Message: err.Error(), Err: ctxErr}
	} else {
		c.failed = protocol.NetworkError(err)
	}
	zerolog.Ctx(ctx).Debug().Str("session", c.id).Err(c.failed).Msg("session failed")
	return c.failed
}
