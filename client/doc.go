// Package client is the call façade over a GUI RPC session.
//
// Ownership boundary:
// - reply classification shared by every RPC (reply.go)
// - bounded retry with session failover and backoff (client.go)
// - typed RPCs built on model decoders (rpc.go)
//
// A Client is safe for concurrent use. Concurrent calls share one session and
// are serialized by it.
package client
