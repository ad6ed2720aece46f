package client

import (
	"strconv"
	"strings"

	"github.com/danmuck/boincctl/protocol"
	"github.com/danmuck/boincctl/protocol/xmlnode"
)

// VerifyReply classifies a reply's top-level children. It returns true when a
// success element was seen and false when no outcome element appeared at all.
// The first status, unauthorized or error element stops the scan.
func VerifyReply(children []xmlnode.Node) (bool, error) {
	success := false
	for _, node := range children {
		switch node.Name {
		case "success":
			success = true
		case "status":
			code, err := strconv.Atoi(strings.TrimSpace(node.Text))
			if err != nil {
				code = protocol.DefaultStatusCode
			}
			return false, protocol.StatusError(code)
		case "unauthorized":
			return false, protocol.AuthError("")
		case "error":
			return false, classifyErrorText(node.Text)
		}
	}
	return success, nil
}

// classifyErrorText is the only place that depends on the daemon's error wording.
func classifyErrorText(msg string) error {
	switch msg {
	case "":
		return protocol.DaemonError("unknown error")
	case "unauthorized", "Missing authenticator":
		return protocol.AuthError(msg)
	case "Missing URL":
		return protocol.InvalidURLError(msg)
	case "Already attached to project":
		return protocol.AlreadyAttachedError(msg)
	default:
		return protocol.DataParseError(msg)
	}
}
