package catalog

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mediavault/internal/media"
	"mediavault/internal/services"
)

//go:embed samples/*.json
var bundledSamples embed.FS

// sampleEntry is one element of a sample list. Ids are accepted as JSON
// strings or numbers.
type sampleEntry struct {
	ID        json.RawMessage `json:"id"`
	Title     string          `json:"title"`
	URL       string          `json:"url"`
	Thumbnail string          `json:"thumbnail"`
}

// SampleResult reports how a sample list was read.
type SampleResult struct {
	Items   []media.Item
	Skipped int
}

// LoadSamples decodes a JSON array of sample entries and assigns kind to every
// item. Entries with a missing or non-numeric id or no url are skipped.
func LoadSamples(r io.Reader, kind media.FileKind) (SampleResult, error) {
	if !kind.Valid() {
		return SampleResult{}, services.Wrap(services.ErrValidation, "catalog", "load samples", fmt.Sprintf("unknown kind %q", kind), nil)
	}
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return SampleResult{}, services.Wrap(services.ErrValidation, "catalog", "load samples", "decode sample list", err)
	}

	result := SampleResult{Items: make([]media.Item, 0, len(raw))}
	for _, element := range raw {
		var entry sampleEntry
		if err := json.Unmarshal(element, &entry); err != nil {
			result.Skipped++
			continue
		}
		id, ok := parseID(entry.ID)
		if !ok || strings.TrimSpace(entry.URL) == "" {
			result.Skipped++
			continue
		}
		result.Items = append(result.Items, media.Item{
			ID:        id,
			Title:     entry.Title,
			URL:       strings.TrimSpace(entry.URL),
			Thumbnail: strings.TrimSpace(entry.Thumbnail),
			Kind:      kind,
		})
	}
	return result, nil
}

// BundledSamples returns the sample list shipped with the binary for kind.
func BundledSamples(kind media.FileKind) (SampleResult, error) {
	data, err := bundledSamples.ReadFile("samples/" + string(kind) + ".json")
	if err != nil {
		return SampleResult{}, services.Wrap(services.ErrNotFound, "catalog", "bundled samples", fmt.Sprintf("no sample list for %q", kind), err)
	}
	return LoadSamples(bytes.NewReader(data), kind)
}

func parseID(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		var number json.Number
		if err := json.Unmarshal(raw, &number); err != nil {
			return 0, false
		}
		text = number.String()
	}
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
