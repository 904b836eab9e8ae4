package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mediavault/internal/cipherstream"
	"mediavault/internal/media"
	"mediavault/internal/pathlock"
	"mediavault/internal/pipeline"
	"mediavault/internal/services"
	"mediavault/internal/storage"
	"mediavault/internal/transfer"
)

func testOptions() pipeline.Options {
	key := []byte("S-C-M-MobileTeam")
	return pipeline.Options{
		Locker:           pathlock.New(pathlock.WithRetryDelay(5 * time.Millisecond)),
		Cipher:           cipherstream.Params{Key: key, IV: append([]byte(nil), key...)},
		NetworkChunkSize: 1024,
		LocalChunkSize:   512,
	}
}

func collect(t *testing.T, ch <-chan transfer.Status) []transfer.Status {
	t.Helper()
	var statuses []transfer.Status
	timeout := time.After(10 * time.Second)
	for {
		select {
		case status, ok := <-ch:
			if !ok {
				return statuses
			}
			statuses = append(statuses, status)
		case <-timeout:
			t.Fatalf("timed out waiting for status sequence, got %v", statuses)
		}
	}
}

func requireSingleTerminal(t *testing.T, statuses []transfer.Status, want transfer.StatusKind) transfer.Status {
	t.Helper()
	if len(statuses) == 0 {
		t.Fatal("empty status sequence")
	}
	terminals := 0
	for _, s := range statuses {
		if s.Terminal() {
			terminals++
		}
	}
	if terminals != 1 {
		t.Fatalf("expected exactly one terminal status, got %d in %v", terminals, statuses)
	}
	last := statuses[len(statuses)-1]
	if last.Kind != want {
		t.Fatalf("final status %v, want %v", last, want)
	}
	return last
}

func progressOf(statuses []transfer.Status) []int {
	var out []int
	for _, s := range statuses {
		if s.Kind == transfer.StatusProgress {
			out = append(out, s.Percent)
		}
	}
	return out
}

func payload(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func serveBytes(data []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, _ = w.Write(data)
		}
	}
}

func TestDownloadWritesFileAndReportsProgress(t *testing.T) {
	data := payload(10_000)
	srv := httptest.NewServer(serveBytes(data))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "storage", "1.mp4")
	d := pipeline.NewDownloader(testOptions())
	statuses := collect(t, d.Download(context.Background(), srv.URL+"/video/1", dest))

	final := requireSingleTerminal(t, statuses, transfer.StatusSuccess)
	if final.Written != int64(len(data)) {
		t.Fatalf("written = %d", final.Written)
	}
	progress := progressOf(statuses)
	if len(progress) == 0 {
		t.Fatal("expected progress events")
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] || progress[i] > 100 {
			t.Fatalf("progress not monotonic: %v", progress)
		}
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("downloaded bytes differ")
	}
}

func TestDownloadWithoutContentLengthEmitsNoProgress(t *testing.T) {
	data := payload(5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		flusher := w.(http.Flusher)
		for start := 0; start < len(data); start += 1000 {
			_, _ = w.Write(data[start : start+1000])
			flusher.Flush()
		}
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "2.mp3")
	var statuses []transfer.Status
	final := pipeline.NewDownloader(testOptions()).Run(context.Background(), srv.URL, dest, func(s transfer.Status) {
		statuses = append(statuses, s)
	})
	if final.Kind != transfer.StatusSuccess {
		t.Fatalf("unexpected final %v", final)
	}
	if len(progressOf(statuses)) != 0 {
		t.Fatalf("expected no progress, got %v", progressOf(statuses))
	}
	requireSingleTerminal(t, statuses, transfer.StatusSuccess)
	if size, _ := storage.Size(dest); size != int64(len(data)) {
		t.Fatalf("unexpected stored size %d", size)
	}
}

func TestDownload404LeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "3.pdf")
	if err := os.WriteFile(dest, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}

	statuses := collect(t, pipeline.NewDownloader(testOptions()).Download(context.Background(), srv.URL+"/missing", dest))
	final := requireSingleTerminal(t, statuses, transfer.StatusError)
	if len(statuses) != 1 {
		t.Fatalf("expected only the error status, got %v", statuses)
	}
	if !strings.HasPrefix(final.Message, pipeline.FailurePrefix) {
		t.Fatalf("unexpected message %q", final.Message)
	}
	var serverErr *pipeline.ServerError
	if !errors.As(final.Err, &serverErr) || serverErr.Code != http.StatusNotFound {
		t.Fatalf("expected ServerError 404, got %v", final.Err)
	}
	if services.Kind(final.Err) != "network" {
		t.Fatalf("expected network kind, got %q", services.Kind(final.Err))
	}
	if storage.Exists(dest) {
		t.Fatal("expected no file at destination")
	}
}

func TestDownloadConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	dest := filepath.Join(t.TempDir(), "4.csv")
	final := pipeline.NewDownloader(testOptions()).Run(context.Background(), url, dest, nil)
	if final.Kind != transfer.StatusError || services.Kind(final.Err) != "network" {
		t.Fatalf("expected network error, got %v (%v)", final, final.Err)
	}
	if storage.Exists(dest) {
		t.Fatal("expected no file at destination")
	}
}

func TestDownloadFailsFastWithoutSpace(t *testing.T) {
	srv := httptest.NewServer(serveBytes(payload(2048)))
	defer srv.Close()

	opts := testOptions()
	var asked int64
	opts.SpaceCheck = func(_ string, need int64) error {
		asked = need
		return services.Wrap(services.ErrIO, "preflight", "free space", "need more", nil)
	}
	dest := filepath.Join(t.TempDir(), "5.mp4")
	final := pipeline.NewDownloader(opts).Run(context.Background(), srv.URL, dest, nil)
	if final.Kind != transfer.StatusError {
		t.Fatalf("expected error, got %v", final)
	}
	if asked != 2048 {
		t.Fatalf("space check asked for %d bytes", asked)
	}
	if storage.Exists(dest) {
		t.Fatal("expected no file at destination")
	}
}

func TestDownloadCancellationRemovesPartialFile(t *testing.T) {
	handlerDone := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(handlerDone)
		w.Header().Set("Content-Length", strconv.Itoa(1<<20))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload(4096))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "6.mp4")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := pipeline.NewDownloader(testOptions()).Download(ctx, srv.URL, dest)
	first := <-ch
	if first.Kind != transfer.StatusProgress {
		t.Fatalf("expected progress before cancel, got %v", first)
	}
	if !storage.Exists(dest) {
		t.Fatal("expected partial file while downloading")
	}
	cancel()

	var final transfer.Status
	deadline := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case status, ok := <-ch:
			if !ok {
				done = true
				break
			}
			if status.Terminal() {
				final = status
			}
		case <-deadline:
			t.Fatal("download did not stop after cancellation")
		}
	}
	if final.Kind != transfer.StatusError || services.Kind(final.Err) != "canceled" {
		t.Fatalf("expected canceled error, got %v (%v)", final, final.Err)
	}
	if storage.Exists(dest) {
		t.Fatal("expected partial file to be removed")
	}
	<-handlerDone
}

func TestConcurrentDownloadsToSamePathAreSerialized(t *testing.T) {
	data := payload(8192)
	var active, maxActive int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		now := atomic.AddInt32(&active, 1)
		defer atomic.AddInt32(&active, -1)
		for {
			prev := atomic.LoadInt32(&maxActive)
			if now <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, now) {
				break
			}
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		flusher := w.(http.Flusher)
		for start := 0; start < len(data); start += 1024 {
			_, _ = w.Write(data[start : start+1024])
			flusher.Flush()
			time.Sleep(2 * time.Millisecond)
		}
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "7.mp4")
	d := pipeline.NewDownloader(testOptions())

	var wg sync.WaitGroup
	results := make([]transfer.Status, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.Run(context.Background(), srv.URL, dest, nil)
		}()
	}
	wg.Wait()

	for i, res := range results {
		if res.Kind != transfer.StatusSuccess {
			t.Fatalf("run %d: %v", i, res)
		}
	}
	if maxActive != 1 {
		t.Fatalf("expected serialized downloads, saw %d concurrent", maxActive)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("stored file corrupted by concurrent writers")
	}
}

func TestEncryptedDownloadDecryptsBack(t *testing.T) {
	data := payload(50_000)
	srv := httptest.NewServer(serveBytes(data))
	defer srv.Close()

	opts := testOptions()
	opts.EncryptDownloads = true
	dir := t.TempDir()
	stored := filepath.Join(dir, "storage", "8.mp4")
	temp := filepath.Join(dir, "tmp", "temp.mp4")

	if final := pipeline.NewDownloader(opts).Run(context.Background(), srv.URL, stored, nil); final.Kind != transfer.StatusSuccess {
		t.Fatalf("download: %v", final)
	}
	sealed, _ := os.ReadFile(stored)
	if bytes.Equal(sealed, data) {
		t.Fatal("expected stored file to be encrypted")
	}

	statuses := collect(t, pipeline.NewDecryptor(opts).Decrypt(context.Background(), stored, temp, media.KindVideo))
	requireSingleTerminal(t, statuses, transfer.StatusSuccess)
	opened, err := os.ReadFile(temp)
	if err != nil {
		t.Fatalf("read temp: %v", err)
	}
	if !bytes.Equal(opened, data) {
		t.Fatal("decrypted bytes differ from source")
	}
}

func TestProbeSize(t *testing.T) {
	data := payload(1234)
	headRejected := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		serveBytes(data)(w, r)
	}))
	defer headRejected.Close()
	headOK := httptest.NewServer(serveBytes(data))
	defer headOK.Close()
	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()

	d := pipeline.NewDownloader(testOptions())
	for name, url := range map[string]string{"head": headOK.URL, "get fallback": headRejected.URL} {
		size, err := d.ProbeSize(context.Background(), url)
		if err != nil || size != int64(len(data)) {
			t.Fatalf("%s: size=%d err=%v", name, size, err)
		}
	}
	if _, err := d.ProbeSize(context.Background(), missing.URL); err == nil {
		t.Fatal("expected error for missing url")
	}
}

func TestServerErrorMessage(t *testing.T) {
	err := &pipeline.ServerError{Code: 500, Message: "Internal Server Error"}
	if err.Error() != "server error: 500, Internal Server Error" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatal("expected ServerError to match ErrNetwork")
	}
	if (&pipeline.ServerError{Code: 418}).Error() != "server error: 418" {
		t.Fatal("unexpected message without text")
	}
}
