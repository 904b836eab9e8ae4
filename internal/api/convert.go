package api

import (
	"net/http"

	"mediavault/internal/catalog"
	"mediavault/internal/services"
)

// FromRecord converts a catalog record to its API representation.
func FromRecord(rec *catalog.Record) Item {
	if rec == nil {
		return Item{}
	}
	dto := Item{
		ID:         rec.ID,
		Title:      rec.Title,
		URL:        rec.URL,
		Thumbnail:  rec.Thumbnail,
		Kind:       string(rec.Kind),
		Downloaded: rec.Downloaded,
		FileSize:   rec.FileSize,
		SizeBytes:  rec.SizeBytes,
		Source:     rec.Source,
	}
	if !rec.UpdatedAt.IsZero() {
		dto.UpdatedAt = rec.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromRecords converts a listing, never returning nil.
func FromRecords(records []*catalog.Record) []Item {
	items := make([]Item, 0, len(records))
	for _, rec := range records {
		items = append(items, FromRecord(rec))
	}
	return items
}

// httpStatus maps an error classification to a response code.
func httpStatus(err error) int {
	switch services.Kind(err) {
	case "not_found":
		return http.StatusNotFound
	case "validation":
		return http.StatusBadRequest
	case "canceled":
		return http.StatusRequestTimeout
	case "network":
		return http.StatusBadGateway
	case "configuration":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
