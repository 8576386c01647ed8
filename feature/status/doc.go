// Package status serves the read-only status API of a running mrbox.
//
// # HTTP Endpoints
//
//   - GET /status/health : catalogue size and the objects the engine last saw diverge.
//   - GET /status/catalogue : catalogue rows (supports ?prefix=).
//   - GET /status/divergent : File rows whose stored checksums differ.
//   - GET /status/verify : cached checksum sweep (supports ?fix=true and ?refresh=true).
//   - GET /metrics : Prometheus metrics.
package status
