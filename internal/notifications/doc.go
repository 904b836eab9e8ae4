// Package notifications delivers library events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Enumerated events cover downloads, batch runs, imports, and
// errors so the library manager can emit consistent messages without
// duplicating HTTP glue. The notifications.download and notifications.errors
// switches suppress whole event groups.
package notifications
