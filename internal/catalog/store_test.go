package catalog_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"mediavault/internal/catalog"
	"mediavault/internal/media"
	"mediavault/internal/services"
	"mediavault/internal/testsupport"
)

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if store.Path() != filepath.Join(cfg.Paths.CatalogDir, "catalog.db") {
		t.Fatalf("unexpected path %q", store.Path())
	}
	testsupport.AddItems(t, store, media.Item{ID: 1, Title: "Intro", URL: "https://example.com/1", Kind: media.KindVideo})
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	rec, err := reopened.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if rec.Title != "Intro" {
		t.Fatalf("title = %q", rec.Title)
	}
}

func TestUpsertAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	n, err := store.Upsert(ctx, []media.Item{
		{ID: 7, Title: "  Café   Tour ", URL: " https://example.com/7 ", Thumbnail: "thumb.jpg", Kind: media.KindVideo},
		{ID: 8, Title: "Podcast", URL: "https://example.com/8", Kind: media.KindAudio},
	}, "samples")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n != 2 {
		t.Fatalf("upserted %d, want 2", n)
	}

	rec, err := store.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Title != "Café Tour" || rec.URL != "https://example.com/7" || rec.Kind != media.KindVideo {
		t.Fatalf("unexpected record %#v", rec)
	}
	if rec.SizeBytes != -1 || rec.FileSize != "" || rec.Source != "samples" {
		t.Fatalf("unexpected bookkeeping %#v", rec)
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
}

func TestUpsertRejectsInvalidItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Upsert(context.Background(), []media.Item{
		{ID: 1, Title: "ok", Kind: media.KindPDF},
		{ID: 2, Title: "bad", Kind: "doc"},
	}, "test")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := store.Get(context.Background(), 1); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected no partial insert, got %v", err)
	}
}

func TestUpsertPreservesDownloadedAndSize(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := media.Item{ID: 3, Title: "Report", URL: "https://example.com/r.pdf", Kind: media.KindPDF}
	testsupport.AddItems(t, store, item)
	if err := store.SetDownloaded(ctx, 3, true); err != nil {
		t.Fatalf("SetDownloaded: %v", err)
	}
	if err := store.SetSize(ctx, 3, 2048); err != nil {
		t.Fatalf("SetSize: %v", err)
	}

	item.Title = "Report v2"
	testsupport.AddItems(t, store, item)
	rec, err := store.Get(ctx, 3)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !rec.Downloaded || rec.SizeBytes != 2048 || rec.FileSize != "2.0 KiB" || rec.Title != "Report v2" {
		t.Fatalf("unexpected record after re-upsert %#v", rec)
	}

	item.URL = "https://example.com/r2.pdf"
	testsupport.AddItems(t, store, item)
	rec, err = store.Get(ctx, 3)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.SizeBytes != -1 || rec.FileSize != "" {
		t.Fatalf("expected size reset after url change, got %#v", rec)
	}
}

func TestListFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.AddItems(t, store,
		media.Item{ID: 1, Title: "Café Tour", URL: "u1", Kind: media.KindVideo},
		media.Item{ID: 2, Title: "CAFE menu", URL: "u2", Kind: media.KindPDF},
		media.Item{ID: 3, Title: "50% off_sale", URL: "u3", Kind: media.KindCSV},
		media.Item{ID: 4, Title: "500 offers", URL: "u4", Kind: media.KindCSV},
	)
	if err := store.SetDownloaded(ctx, 2, true); err != nil {
		t.Fatalf("SetDownloaded: %v", err)
	}

	cases := []struct {
		name   string
		filter catalog.Filter
		want   []int64
	}{
		{"all", catalog.Filter{}, []int64{1, 2, 3, 4}},
		{"kind", catalog.Filter{Kind: media.KindCSV}, []int64{3, 4}},
		{"accent and case folded", catalog.Filter{Query: "cafe"}, []int64{1, 2}},
		{"query with accent", catalog.Filter{Query: "CAFÉ"}, []int64{1, 2}},
		{"wildcards are literal", catalog.Filter{Query: "50%"}, []int64{3}},
		{"underscore is literal", catalog.Filter{Query: "f_s"}, []int64{3}},
		{"downloaded only", catalog.Filter{DownloadedOnly: true}, []int64{2}},
		{"combined", catalog.Filter{Kind: media.KindVideo, Query: "cafe"}, []int64{1}},
		{"no match", catalog.Filter{Query: "zzz"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := store.List(ctx, tc.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			var got []int64
			for _, rec := range records {
				got = append(got, rec.ID)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestUpdatesOnMissingItemReturnNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := store.Get(ctx, 99); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Get: expected not found, got %v", err)
	}
	if err := store.SetDownloaded(ctx, 99, true); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("SetDownloaded: expected not found, got %v", err)
	}
	if err := store.SetSize(ctx, 99, 10); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("SetSize: expected not found, got %v", err)
	}
	if err := store.Remove(ctx, 99); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Remove: expected not found, got %v", err)
	}
}

func TestSetSizeNegativeClearsDisplay(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	testsupport.AddItems(t, store, media.Item{ID: 5, Title: "clip", URL: "u", Kind: media.KindVideo})

	if err := store.SetSize(ctx, 5, -42); err != nil {
		t.Fatalf("SetSize: %v", err)
	}
	rec, err := store.Get(ctx, 5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.SizeBytes != -1 || rec.FileSize != "" {
		t.Fatalf("unexpected size fields %#v", rec)
	}
}

func TestReconcileAndCount(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.AddItems(t, store,
		media.Item{ID: 1, Title: "a", URL: "u1", Kind: media.KindVideo},
		media.Item{ID: 2, Title: "b", URL: "u2", Kind: media.KindAudio},
		media.Item{ID: 3, Title: "c", URL: "u3", Kind: media.KindAudio},
	)
	if err := store.SetDownloaded(ctx, 3, true); err != nil {
		t.Fatalf("SetDownloaded: %v", err)
	}

	changed, err := store.Reconcile(ctx, map[string]struct{}{
		"1.mp4": {},
		"2.mp4": {}, // wrong extension for an audio item
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if changed != 2 {
		t.Fatalf("changed = %d, want 2", changed)
	}
	downloaded, err := store.List(ctx, catalog.Filter{DownloadedOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(downloaded) != 1 || downloaded[0].ID != 1 {
		t.Fatalf("unexpected downloaded set %#v", downloaded)
	}

	counts, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if counts[media.KindVideo] != 1 || counts[media.KindAudio] != 2 || counts[media.KindPDF] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}

	if err := store.Remove(ctx, 2); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := store.Get(ctx, 2); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected removed item to be gone, got %v", err)
	}
}
