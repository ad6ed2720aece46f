// Package protocol owns the BOINC GUI RPC wire contract.
//
// Ownership boundary:
// - error taxonomy shared by every layer (errors.go)
// - message body trees (xmlnode)
// - terminator-delimited frame codec (frame)
// - nonce hashing (auth)
// - handshake and session state (session)
package protocol

const (
	// DefaultAddress is the loopback GUI RPC endpoint of a local daemon.
	DefaultAddress = "127.0.0.1:31416"

	RequestEnvelope = "boinc_gui_rpc_request"
	ReplyEnvelope   = "boinc_gui_rpc_reply"
)
