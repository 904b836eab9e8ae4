// Package pathlock serializes work that targets the same file path.
//
// Within a process a keyed semaphore orders callers; across processes a
// gofrs/flock lock on "{path}.lock" does the same. Both waits honour context
// cancellation.
package pathlock
