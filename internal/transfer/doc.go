// Package transfer copies byte streams in fixed-size chunks while reporting
// progress as a sequence of Status values.
//
// Copy is the single loop shared by the download, decrypt, and import
// pipelines. Every run ends with exactly one terminal Status (Success or
// Error); failures are reported through that Status rather than returned as
// errors or panics.
package transfer
