// Package api serves the library over HTTP and defines its wire-format types.
//
// The router is built with chi. Read endpoints return JSON documents; the
// download and prepare endpoints stream the pipeline's status sequence as
// newline-delimited JSON, one status per line, ending with exactly one
// terminal status. Closing the connection cancels the run, which removes any
// partial file the same way a canceled CLI run does.
//
// # Routes
//
//	GET    /healthz
//	GET    /api/items?kind=&q=&downloaded=
//	GET    /api/items/{id}
//	POST   /api/items/{id}/download   (NDJSON)
//	POST   /api/items/{id}/prepare    (NDJSON)
//	POST   /api/items/{id}/size
//	DELETE /api/items/{id}
//	GET    /api/temp/{kind}
//	DELETE /api/temp/{kind}
//
// DTOs use camelCase JSON tags. Errors are reported as {"error": "...",
// "kind": "..."} where kind is the services.Kind classification.
package api
