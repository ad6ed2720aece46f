// Package exporter publishes daemon state as Prometheus metrics.
//
// Ownership boundary:
// - periodic polling of host info and results through one client
// - the last snapshot, served as JSON for dashboards
// - the HTTP surface: /health, /ready, /snapshot, /metrics
package exporter
