// Package catalog persists media items in SQLite and fills them from the
// remote media server or bundled sample lists.
//
// The Store keeps the last known catalog so the CLI and API can list items
// without reaching the server. The storage directory stays the source of
// truth for whether an item is downloaded: Reconcile rewrites the downloaded
// flag from a directory listing after every sync and import.
//
// Titles are stored NFC-normalized alongside a case- and accent-folded key
// used for search. Schema changes bump schemaVersion in schema.go; users
// delete catalog.db to adopt the new schema.
package catalog
