// Package services defines shared utilities consumed by the pipelines, the
// library manager, and the outer surfaces (CLI and HTTP API).
//
// Key responsibilities:
//   - Context helpers that stamp catalog item IDs, operation names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so every failure carries a
//     classification (network, io, cipher, not found, canceled) that callers
//     can test with errors.Is.
//
// Use these helpers when wiring new pipeline code so failure reporting and
// observability stay uniform.
package services
