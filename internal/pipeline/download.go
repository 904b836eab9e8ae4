package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"mediavault/internal/cipherstream"
	"mediavault/internal/logging"
	"mediavault/internal/pathlock"
	"mediavault/internal/services"
	"mediavault/internal/storage"
	"mediavault/internal/transfer"
)

// Downloader fetches remote files into stored files.
type Downloader struct {
	opts   Options
	logger *slog.Logger
}

// NewDownloader builds a Downloader.
func NewDownloader(opts Options) *Downloader {
	opts = opts.withDefaults()
	return &Downloader{opts: opts, logger: opts.Logger}
}

// Download starts a download on its own goroutine and returns its status
// sequence.
func (d *Downloader) Download(ctx context.Context, rawURL, dest string) <-chan transfer.Status {
	return Start(ctx, func(ctx context.Context, emit transfer.Emitter) transfer.Status {
		return d.Run(ctx, rawURL, dest, emit)
	})
}

// Run downloads rawURL into dest, blocking until the terminal status has been
// emitted. dest never survives a failed run.
func (d *Downloader) Run(ctx context.Context, rawURL, dest string, emit transfer.Emitter) (final transfer.Status) {
	ctx, logger := runContext(ctx, d.logger, "download", "download")
	logger = logger.With(logging.String("dest", dest))
	guard := newTerminalGuard(emit, logger)

	var release pathlock.Release
	defer func() {
		if release != nil {
			release()
		}
	}()

	fail := func(err error) transfer.Status {
		if release != nil {
			if rmErr := storage.Remove(dest); rmErr != nil {
				logging.WarnWithContext(logger, "failed to remove partial download", "download_cleanup_failed",
					logging.Error(rmErr),
					logging.String(logging.FieldErrorHint, "check storage_dir permissions"),
					logging.String(logging.FieldImpact, "a partial stored file remains on disk"),
				)
			}
		}
		status := transfer.Failure(failureMessage(FailurePrefix, err), err)
		logDownloadFailure(logger, err)
		guard.forward(status)
		return status
	}

	defer func() {
		if r := recover(); r != nil {
			final = fail(recoverPanic(r))
		}
	}()

	lockRelease, err := d.opts.Locker.Lock(ctx, dest)
	if err != nil {
		return fail(err)
	}
	release = lockRelease

	logger.Info("download started", logging.String("url", rawURL), logging.String(logging.FieldEventType, "download_started"))

	resp, err := d.get(ctx, rawURL)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	total := resp.ContentLength
	if d.opts.SpaceCheck != nil {
		if err := d.opts.SpaceCheck(filepath.Dir(dest), total); err != nil {
			return fail(err)
		}
	}

	var transform transfer.Transform
	if d.opts.EncryptDownloads {
		t, err := cipherstream.New(d.opts.Cipher, cipherstream.Encrypt)
		if err != nil {
			return fail(err)
		}
		transform = t
	}

	file, err := storage.Create(dest)
	if err != nil {
		return fail(err)
	}

	status := transfer.Copy(ctx, networkReader{r: resp.Body}, file, transfer.Options{
		ChunkSize: d.opts.NetworkChunkSize,
		Transform: transform,
		TotalSize: total,
	}, guard.progress)

	closeErr := finishFile(file, status.Kind == transfer.StatusSuccess)
	if status.Kind != transfer.StatusSuccess {
		return fail(status.Err)
	}
	if closeErr != nil {
		return fail(closeErr)
	}

	logger.Info("download completed",
		logging.Int64("bytes", status.Written),
		logging.Bool("encrypted", transform != nil),
		logging.String(logging.FieldEventType, "download_completed"),
	)
	guard.forward(status)
	return status
}

func (d *Downloader) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "download", "build request", rawURL, err)
	}
	if d.opts.UserAgent != "" {
		req.Header.Set("User-Agent", d.opts.UserAgent)
	}
	resp, err := d.opts.Client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, services.Wrap(services.ErrCanceled, "download", "request", "canceled", ctxErr)
		}
		return nil, services.Wrap(services.ErrNetwork, "download", "request", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &ServerError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return resp, nil
}

// ProbeSize returns the content length advertised for rawURL, or -1 when the
// server does not report one. HEAD is tried first; servers that reject it
// are asked with GET and the body is discarded unread.
func (d *Downloader) ProbeSize(ctx context.Context, rawURL string) (int64, error) {
	size, err := d.probe(ctx, http.MethodHead, rawURL)
	var serverErr *ServerError
	if errors.As(err, &serverErr) && (serverErr.Code == http.StatusMethodNotAllowed || serverErr.Code == http.StatusNotImplemented) {
		return d.probe(ctx, http.MethodGet, rawURL)
	}
	return size, err
}

func (d *Downloader) probe(ctx context.Context, method, rawURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return -1, services.Wrap(services.ErrValidation, "download", "probe size", rawURL, err)
	}
	if d.opts.UserAgent != "" {
		req.Header.Set("User-Agent", d.opts.UserAgent)
	}
	resp, err := d.opts.Client.Do(req)
	if err != nil {
		return -1, services.Wrap(services.ErrNetwork, "download", "probe size", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return -1, &ServerError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if resp.ContentLength < 0 {
		return -1, nil
	}
	return resp.ContentLength, nil
}

// networkReader tags body read failures as network errors.
type networkReader struct {
	r io.Reader
}

func (n networkReader) Read(p []byte) (int, error) {
	count, err := n.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = services.Wrap(services.ErrNetwork, "download", "read body", "", err)
	}
	return count, err
}

type fileSink interface {
	io.Writer
	Sync() error
	Close() error
}

func createSink(path string) (fileSink, error) {
	file, err := storage.Create(path)
	if err != nil {
		return nil, err
	}
	return file, nil
}

// finishFile flushes a successful copy to disk and closes the file.
func finishFile(file fileSink, flush bool) error {
	var syncErr error
	if flush {
		syncErr = file.Sync()
	}
	closeErr := file.Close()
	if syncErr != nil {
		return services.Wrap(services.ErrIO, "storage", "sync", "", syncErr)
	}
	if closeErr != nil {
		return services.Wrap(services.ErrIO, "storage", "close", "", closeErr)
	}
	return nil
}

func logDownloadFailure(logger *slog.Logger, err error) {
	kind := services.Kind(err)
	if kind == "canceled" {
		logger.Info("download canceled", logging.String(logging.FieldEventType, "download_canceled"))
		return
	}
	hint := "retry the download"
	var serverErr *ServerError
	switch {
	case errors.As(err, &serverErr):
		hint = fmt.Sprintf("media server answered %d; check the item url", serverErr.Code)
	case kind == "network":
		hint = "check connectivity to the media server"
	case kind == "io" && strings.Contains(err.Error(), "free space"):
		hint = "free disk space in storage_dir"
	case kind == "io":
		hint = "check storage_dir permissions and free space"
	}
	logging.ErrorWithContext(logger, "download failed", "download_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, kind),
		logging.String(logging.FieldErrorHint, hint),
	)
}
