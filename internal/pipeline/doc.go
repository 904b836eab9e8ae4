// Package pipeline moves media bytes between the network, stored files, and
// temporary playable files.
//
// Three pipelines share one discipline: take the path lock, drive
// transfer.Copy, clean up, then surface exactly one terminal status.
//
//   - Downloader fetches a URL into a stored file, optionally encrypting it.
//     Any failure removes the partial stored file.
//   - Decryptor turns a stored file into a temporary playable file. Read,
//     write, and cipher failures purge the stored file so the next request
//     downloads it again.
//   - Encryptor imports a local plaintext file as a stored file.
//
// Each pipeline offers a blocking Run that reports through an Emitter and an
// asynchronous form returning a channel that is closed after the terminal
// status.
package pipeline
