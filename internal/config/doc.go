// Package config loads, normalizes, and validates mediavault configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// MEDIAVAULT_CIPHER_KEY and MEDIAVAULT_BASE_URL. The Config type centralizes
// every knob the CLI, API server, and pipelines need.
//
// The default cipher key is the fixed key shipped with the mobile client so
// existing stored files stay readable. Deployments should provision their own
// key through cipher.key_file (a 0600 file outside the repository).
package config
