// Package metric provides Prometheus metrics for SecureStore.
//
//   - prometheus.go: the registry, engine observer hooks and /metrics handler
//   - collector.go: a collector that samples engine statistics on scrape
//
// Metrics are exposed at /metrics in Prometheus text format under the
// securestore namespace. Labels never carry logical keys.
package metric
