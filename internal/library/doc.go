// Package library coordinates the catalog, the storage layout, and the
// transfer pipelines.
//
// Manager is the single entry point the CLI and HTTP API use: it resolves an
// item id to its stored and temporary paths, runs the download, decrypt, and
// import pipelines, keeps the catalog's downloaded flag in line with the
// storage directory, and publishes notifications for completed and failed
// work. Batch downloads run with bounded concurrency; each pipeline run still
// takes its own path lock so overlapping requests for one item serialize.
package library
