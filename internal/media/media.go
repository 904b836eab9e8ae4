package media

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"mediavault/internal/services"
)

// FileKind identifies the type of asset an Item points at.
type FileKind string

const (
	KindVideo FileKind = "video"
	KindAudio FileKind = "audio"
	KindPDF   FileKind = "pdf"
	KindCSV   FileKind = "csv"
)

// Kinds lists every supported file kind in display order.
func Kinds() []FileKind {
	return []FileKind{KindVideo, KindAudio, KindPDF, KindCSV}
}

// ParseFileKind accepts a kind name or its extension, case-insensitively.
func ParseFileKind(value string) (FileKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.TrimPrefix(normalized, ".")
	for _, kind := range Kinds() {
		if normalized == string(kind) || normalized == kind.Ext() {
			return kind, nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "media", "parse kind", fmt.Sprintf("unknown file kind %q", value), nil)
}

// Ext returns the file extension (without dot) used for stored files.
func (k FileKind) Ext() string {
	switch k {
	case KindVideo:
		return "mp4"
	case KindAudio:
		return "mp3"
	case KindPDF:
		return "pdf"
	case KindCSV:
		return "csv"
	default:
		return ""
	}
}

// Valid reports whether k is a supported kind.
func (k FileKind) Valid() bool {
	return k.Ext() != ""
}

// ContentType returns the MIME type served for decrypted files of this kind.
func (k FileKind) ContentType() string {
	switch k {
	case KindVideo:
		return "video/mp4"
	case KindAudio:
		return "audio/mpeg"
	case KindPDF:
		return "application/pdf"
	case KindCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Item is a downloadable asset tracked by the catalog.
type Item struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Thumbnail  string   `json:"thumbnail"`
	Kind       FileKind `json:"file_type"`
	Downloaded bool     `json:"downloaded"`
	FileSize   string   `json:"file_size"`
}

// FileName returns the stored file name for the item, e.g. "7.mp4".
func (i Item) FileName() string {
	return fmt.Sprintf("%d.%s", i.ID, i.Kind.Ext())
}

// Validate checks the fields every pipeline relies on.
func (i Item) Validate() error {
	if i.ID <= 0 {
		return services.Wrap(services.ErrValidation, "media", "validate item", fmt.Sprintf("invalid id %d", i.ID), nil)
	}
	if !i.Kind.Valid() {
		return services.Wrap(services.ErrValidation, "media", "validate item", fmt.Sprintf("item %d has unknown kind %q", i.ID, i.Kind), nil)
	}
	return nil
}

// DisplaySize formats a byte count for listings. Unknown sizes (< 0) render
// as an empty string.
func DisplaySize(size int64) string {
	if size < 0 {
		return ""
	}
	return humanize.IBytes(uint64(size))
}
