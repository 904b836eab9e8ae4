package library_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"mediavault/internal/catalog"
	"mediavault/internal/library"
	"mediavault/internal/media"
	"mediavault/internal/notifications"
	"mediavault/internal/services"
	"mediavault/internal/testsupport"
)

func TestImportSamplesMarksStoredItems(t *testing.T) {
	f := newFixture(t)
	samples, err := catalog.BundledSamples(media.KindAudio)
	if err != nil {
		t.Fatalf("BundledSamples: %v", err)
	}
	first := samples.Items[0]
	testsupport.WriteFile(t, f.manager.Layout().StoredPath(first), []byte("cipher"))

	result, err := f.manager.ImportSamples(context.Background(), media.KindAudio)
	if err != nil {
		t.Fatalf("ImportSamples: %v", err)
	}
	if result.Imported != len(samples.Items) || result.Reconciled != 1 || result.Source != "samples" {
		t.Fatalf("unexpected result %#v", result)
	}
	if !f.record(t, first.ID).Downloaded {
		t.Fatal("expected sample with stored file to be downloaded")
	}
	if f.record(t, samples.Items[1].ID).Downloaded {
		t.Fatal("expected sample without stored file to be pending")
	}

	all, err := f.manager.ImportSamples(context.Background())
	if err != nil {
		t.Fatalf("ImportSamples(all): %v", err)
	}
	counts, err := f.store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	total := 0
	for _, kind := range media.Kinds() {
		if counts[kind] == 0 {
			t.Fatalf("expected samples for %s", kind)
		}
		total += counts[kind]
	}
	if total != all.Imported {
		t.Fatalf("imported %d, stored %d", all.Imported, total)
	}
}

func TestImportSampleList(t *testing.T) {
	f := newFixture(t)
	input := `[{"id":"11","title":"One","url":"https://example.com/11.pdf","thumbnail":""},{"id":"x"}]`
	result, err := f.manager.ImportSampleList(context.Background(), strings.NewReader(input), media.KindPDF)
	if err != nil {
		t.Fatalf("ImportSampleList: %v", err)
	}
	if result.Imported != 1 || result.Skipped != 1 {
		t.Fatalf("unexpected result %#v", result)
	}
	if rec := f.record(t, 11); rec.Kind != media.KindPDF || rec.Source != "file" {
		t.Fatalf("unexpected record %#v", rec)
	}
}

func TestSyncRemote(t *testing.T) {
	var status = http.StatusOK
	srv := testsupport.NewServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"data":[{"id":1,"title":"Intro","thumbnail":"t1"},{"id":2,"title":"Outro","thumbnail":"t2"}]}`))
		}
	}))
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(srv.URL))
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &recordingNotifier{}
	manager, err := library.NewManagerWithNotifier(cfg, store, nil, notifier)
	if err != nil {
		t.Fatalf("NewManagerWithNotifier: %v", err)
	}

	result, err := manager.SyncRemote(context.Background())
	if err != nil {
		t.Fatalf("SyncRemote: %v", err)
	}
	if result.Imported != 2 || result.Source != "remote" {
		t.Fatalf("unexpected result %#v", result)
	}
	rec, err := store.Get(context.Background(), 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.URL != srv.URL+"/video/2" || rec.Kind != media.KindVideo || rec.Source != "remote" {
		t.Fatalf("unexpected record %#v", rec)
	}

	status = http.StatusUnauthorized
	_, err = manager.SyncRemote(context.Background())
	if !catalog.IsTokenExpired(err) || !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected expired token error, got %v", err)
	}
	if notifier.count(notifications.EventError) != 1 {
		t.Fatalf("expected error notification, got %v", notifier.events)
	}
	if got := notifier.last(notifications.EventError)["context"]; got != "catalog sync" {
		t.Fatalf("unexpected error context %v", got)
	}
}
