// Package cipherstream builds AES-CTR stream transforms for stored media files.
//
// A Transform carries its counter across every chunk fed to it, so one
// Transform must be created per pipeline run and applied to the chunks in
// order. Encrypt and Decrypt produce the same keystream; they are separate
// modes so callers and logs state their intent.
package cipherstream
