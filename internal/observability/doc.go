// Package observability owns process metrics and request logging.
//
// Ownership boundary:
// - Metrics: client call outcomes and daemon gauges on an injectable registry
// - component loggers derived from the process logger
// - gin middleware for request logging and HTTP metrics
package observability
