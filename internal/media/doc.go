// Package media defines catalog items and the file kinds mediavault stores.
package media
