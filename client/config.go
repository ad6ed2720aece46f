package client

import (
	"context"
	"strings"
	"time"

	"github.com/danmuck/boincctl/protocol"
	"github.com/danmuck/boincctl/protocol/session"
	"github.com/rs/zerolog"
)

// SessionFunc builds a ready session. It is called whenever the client has no
// live session, so tests can substitute failing or scripted sessions.
type SessionFunc func(ctx context.Context) (session.Querier, error)

// Observer receives call outcomes. Implementations must be safe for concurrent use.
type Observer interface {
	// ObserveCall reports one whole façade call, retries included.
	ObserveCall(op string, err error, elapsed time.Duration)
	// ObserveRetry reports that attempt failed with a network-class error and will be retried.
	ObserveRetry(op string, err error)
	// ObserveSession reports each attempt to build a session.
	ObserveSession(err error)
}

type nopObserver struct{}

func (nopObserver) ObserveCall(string, error, time.Duration) {}
func (nopObserver) ObserveRetry(string, error)               {}
func (nopObserver) ObserveSession(error)                     {}

type Config struct {
	// Address is host:port of the daemon; empty means protocol.DefaultAddress.
	Address string
	// Password answers the nonce challenge; empty means none configured.
	Password string
	// MaxRetries bounds extra attempts after the first for network-class failures.
	MaxRetries int
	Session    session.Config

	// Logger receives retry warnings. Nil uses the context logger of each call.
	Logger     *zerolog.Logger
	Observer   Observer
	NewSession SessionFunc
}

func DefaultConfig() Config {
	return Config{
		Address:    protocol.DefaultAddress,
		MaxRetries: 2,
		Session:    session.DefaultConfig(),
	}
}

// WithDefaults fills the address, limits and observer. MaxRetries below zero becomes zero.
func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.Address) == "" {
		c.Address = protocol.DefaultAddress
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	c.Session = c.Session.WithDefaults()
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	return c
}
