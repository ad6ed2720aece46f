package client

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/danmuck/boincctl/protocol"
	"github.com/danmuck/boincctl/protocol/session"
	"github.com/danmuck/boincctl/protocol/xmlnode"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

var ErrClientClosed = errors.New("client: closed")

type Client struct {
	cfg        Config
	newSession SessionFunc
	// build admits one session construction at a time
	build *semaphore.Weighted

	mu      sync.Mutex
	current session.Querier
	closed  bool
	rng     *rand.Rand
}

func New(cfg Config) *Client {
	cfg = cfg.WithDefaults()
	c := &Client{
		cfg:   cfg,
		build: semaphore.NewWeighted(1),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	c.newSession = cfg.NewSession
	if c.newSession == nil {
		c.newSession = c.dialSession
	}
	return c
}

// Address is the daemon endpoint the default session dials.
func (c *Client) Address() string {
	return c.cfg.Address
}

// Close drops the current session. Later calls fail with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	sess := c.current
	c.current = nil
	c.closed = true
	c.mu.Unlock()
	if sess != nil {
		return sess.Close()
	}
	return nil
}

// Query sends raw request children through the retry loop and returns the
// reply children unclassified.
func (c *Client) Query(ctx context.Context, req []xmlnode.Node) ([]xmlnode.Node, error) {
	op := "query"
	if len(req) > 0 {
		op = req[0].Name
	}
	return c.call(ctx, op, req)
}

func (c *Client) call(ctx context.Context, op string, req []xmlnode.Node) ([]xmlnode.Node, error) {
	ctx = c.withLogger(ctx)
	start := time.Now()
	reply, err := c.retry(ctx, op, req)
	c.cfg.Observer.ObserveCall(op, err, time.Since(start))
	return reply, err
}

// retry makes up to MaxRetries+1 attempts. Only network-class failures are
// retried; a session that failed that way is discarded first.
func (c *Client) retry(ctx context.Context, op string, req []xmlnode.Node) ([]xmlnode.Node, error) {
	logger := zerolog.Ctx(ctx)
	attempts := c.cfg.MaxRetries + 1
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			c.cfg.Observer.ObserveRetry(op, last)
			if err := c.sleepBackoff(ctx, attempt-1); err != nil {
				return nil, &protocol.Error{Kind: protocol.KindNetwork, Message: last.Error(), Err: err}
			}
		}
		if err := ctx.Err(); err != nil {
			if last != nil {
				return nil, &protocol.Error{Kind: protocol.KindNetwork, Message: last.Error(), Err: err}
			}
			return nil, protocol.NetworkError(err)
		}

		sess, err := c.acquire(ctx)
		if err != nil {
			if !protocol.IsNetworkClass(err) || errors.Is(err, ErrClientClosed) {
				return nil, err
			}
			logger.Warn().Str("op", op).Int("attempt", attempt).Str("addr", c.cfg.Address).Err(err).Msg("session unavailable")
			last = err
			continue
		}

		reply, err := sess.Query(ctx, req)
		if err == nil {
			return reply, nil
		}
		if !protocol.IsNetworkClass(err) {
			return nil, err
		}
		c.discard(sess, err)
		logger.Warn().Str("op", op).Int("attempt", attempt).Err(err).Msg("query failed")
		last = err
	}
	return nil, &protocol.Error{Kind: protocol.KindNetwork, Message: "retries exhausted", Err: last}
}

// acquire returns the current session, building one if none is live.
// Concurrent callers wait for a single construction instead of dialing in parallel.
func (c *Client) acquire(ctx context.Context) (session.Querier, error) {
	if sess, err := c.live(); sess != nil || err != nil {
		return sess, err
	}
	if err := c.build.Acquire(ctx, 1); err != nil {
		return nil, protocol.NetworkError(err)
	}
	defer c.build.Release(1)
	if sess, err := c.live(); sess != nil || err != nil {
		return sess, err
	}

	sess, err := c.newSession(ctx)
	c.cfg.Observer.ObserveSession(err)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = sess.Close()
		return nil, protocol.NetworkError(ErrClientClosed)
	}
	c.current = sess
	return sess, nil
}

func (c *Client) live() (session.Querier, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, protocol.NetworkError(ErrClientClosed)
	}
	return c.current, nil
}

// discard closes sess if it has failed and is still the current session.
// Another caller may already have replaced it. A network-class err counts as a
// failure even when sess does not report one, unless the caller's context
// caused it.
func (c *Client) discard(sess session.Querier, err error) {
	if sess.Err() == nil && !brokenBy(err) {
		return
	}
	c.mu.Lock()
	if c.current != sess {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.mu.Unlock()
	_ = sess.Close()
}

func brokenBy(err error) bool {
	if !protocol.IsNetworkClass(err) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) dialSession(ctx context.Context) (session.Querier, error) {
	t := session.NewTransport(ctx, func(ctx context.Context) (*session.Conn, error) {
		return session.Dial(ctx, c.cfg.Address, c.cfg.Password, c.cfg.Session)
	})
	if err := t.Ready(ctx); err != nil {
		_ = t.Close()
		return nil, err
	}
	return t, nil
}

func (c *Client) sleepBackoff(ctx context.Context, attempt int) error {
	c.mu.Lock()
	delay := session.NextBackoffDelay(c.cfg.Session.Backoff, attempt, c.rng)
	c.mu.Unlock()
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) withLogger(ctx context.Context) context.Context {
	if c.cfg.Logger != nil {
		return c.cfg.Logger.WithContext(ctx)
	}
	return ctx
}
