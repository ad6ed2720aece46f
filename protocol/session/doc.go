// Package session owns authenticated GUI RPC connections.
//
// Ownership boundary:
// - the auth1/auth2 handshake (handshake.go)
// - Conn: one owned socket, blocking query, no internal locking
// - Transport: Connecting/Ready/Failed state behind a fair lock for shared use
// - timeouts and retry backoff shared with the client package (config.go)
//
// At most one query is ever in flight on a socket. The protocol carries no
// request identifiers, so replies are matched to requests purely by order.
package session
