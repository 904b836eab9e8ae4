package catalog_test

import (
	"errors"
	"strings"
	"testing"

	"mediavault/internal/catalog"
	"mediavault/internal/media"
	"mediavault/internal/services"
)

func TestLoadSamplesSkipsInvalidEntries(t *testing.T) {
	input := `[
		{"id": "1", "title": "String id", "url": "https://example.com/1.mp3", "thumbnail": "t1"},
		{"id": 2, "title": "Number id", "url": "https://example.com/2.mp3"},
		{"id": "abc", "title": "Bad id", "url": "https://example.com/x.mp3"},
		{"title": "Missing id", "url": "https://example.com/y.mp3"},
		{"id": "4", "title": "Missing url"},
		{"id": "-5", "title": "Negative", "url": "https://example.com/z.mp3"},
		"not an object"
	]`
	result, err := catalog.LoadSamples(strings.NewReader(input), media.KindAudio)
	if err != nil {
		t.Fatalf("LoadSamples: %v", err)
	}
	if len(result.Items) != 2 || result.Skipped != 5 {
		t.Fatalf("got %d items, %d skipped", len(result.Items), result.Skipped)
	}
	first := result.Items[0]
	if first.ID != 1 || first.Kind != media.KindAudio || first.Thumbnail != "t1" || first.Downloaded {
		t.Fatalf("unexpected first item %#v", first)
	}
	if result.Items[1].ID != 2 {
		t.Fatalf("unexpected second item %#v", result.Items[1])
	}
}

func TestLoadSamplesRejectsBadInput(t *testing.T) {
	if _, err := catalog.LoadSamples(strings.NewReader(`{"id": 1}`), media.KindPDF); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for non-array, got %v", err)
	}
	if _, err := catalog.LoadSamples(strings.NewReader(`[]`), "doc"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown kind, got %v", err)
	}
}

func TestBundledSamplesCoverEveryKind(t *testing.T) {
	for _, kind := range media.Kinds() {
		result, err := catalog.BundledSamples(kind)
		if err != nil {
			t.Fatalf("BundledSamples(%s): %v", kind, err)
		}
		if len(result.Items) == 0 || result.Skipped != 0 {
			t.Fatalf("BundledSamples(%s): %d items, %d skipped", kind, len(result.Items), result.Skipped)
		}
		for _, item := range result.Items {
			if err := item.Validate(); err != nil {
				t.Fatalf("bundled %s item invalid: %v", kind, err)
			}
		}
	}
}
