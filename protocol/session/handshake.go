package session

import (
	"context"
	"net"

	"github.com/danmuck/boincctl/protocol"
	"github.com/danmuck/boincctl/protocol/auth"
	"github.com/danmuck/boincctl/protocol/xmlnode"
	"github.com/rs/zerolog"
)

// Dial connects to addr and authenticates. Dial failures are KindConnect.
func Dial(ctx context.Context, addr, password string, cfg Config) (*Conn, error) {
	cfg = cfg.WithDefaults()
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, protocol.ConnectError(err)
	}
	return Authenticate(ctx, nc, password, cfg)
}

// Authenticate runs the auth1/nonce/auth2 exchange on a fresh connection.
// An empty password means none is configured. On failure nc is closed.
func Authenticate(ctx context.Context, nc net.Conn, password string, cfg Config) (*Conn, error) {
	cfg = cfg.WithDefaults()
	if cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.HandshakeTimeout)
		defer cancel()
	}
	c := newConn(nc, cfg)
	if err := c.authenticate(ctx, password); err != nil {
		_ = nc.Close()
		return nil, err
	}
	return c, nil
}

func (c *Conn) authenticate(ctx context.Context, password string) error {
	logger := zerolog.Ctx(ctx).With().Str("session", c.id).Logger()
	out := []xmlnode.Node{xmlnode.New("auth1")}
	nonceSent := false
	for {
		reply, err := c.Query(ctx, out)
		if err != nil {
			return err
		}
		if len(reply) == 0 {
			return protocol.DaemonError("empty response")
		}
		for _, node := range reply {
			switch node.Name {
			case "nonce":
				if nonceSent {
					return protocol.DaemonError("daemon requested nonce again")
				}
				if password == "" {
					return protocol.AuthError("password required for nonce")
				}
				if node.Text == "" {
					return protocol.AuthError("invalid nonce")
				}
				out = []xmlnode.Node{
					xmlnode.New("auth2", xmlnode.NewText("nonce_hash", auth.NonceHash(password, node.Text))),
				}
				nonceSent = true
				logger.Debug().Msg("nonce answered")
			case "unauthorized":
				return protocol.AuthError("unauthorized")
			case "error":
				return protocol.DaemonError("daemon returned error: " + node.Text)
			case "authorized":
				logger.Debug().Str("remote", c.nc.RemoteAddr().String()).Msg("authorized")
				return nil
			default:
				return protocol.DaemonError("invalid response from daemon: " + node.Name)
			}
		}
	}
}
