package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ndjsonContentType is the media type of status streams.
const ndjsonContentType = "application/x-ndjson"

// Item describes a catalog entry in a transport-friendly format.
type Item struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	Kind       string `json:"kind"`
	Downloaded bool   `json:"downloaded"`
	FileSize   string `json:"fileSize,omitempty"`
	SizeBytes  int64  `json:"sizeBytes"`
	Source     string `json:"source,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

// ItemListResponse wraps a catalog listing.
type ItemListResponse struct {
	Items []Item `json:"items"`
}

// ItemResponse wraps a single catalog entry.
type ItemResponse struct {
	Item Item `json:"item"`
}

// SizeResponse reports a probed remote size.
type SizeResponse struct {
	ID        int64  `json:"id"`
	SizeBytes int64  `json:"sizeBytes"`
	FileSize  string `json:"fileSize"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
