// Command mediavault manages a local library of encrypted media files.
//
// It keeps a catalog of items (from the media server or bundled sample
// lists), downloads their encrypted files into the storage directory,
// decrypts them on demand into per-kind temporary playable files, and can
// serve all of that over a local HTTP API with `mediavault serve`.
//
// Configuration is read from ~/.config/mediavault/config.toml unless
// --config points elsewhere; `mediavault config init` writes a sample.
package main
