package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"mediavault/internal/catalog"
	"mediavault/internal/logging"
	"mediavault/internal/media"
	"mediavault/internal/notifications"
	"mediavault/internal/pathlock"
	"mediavault/internal/pipeline"
	"mediavault/internal/services"
	"mediavault/internal/storage"
	"mediavault/internal/transfer"
)

// StartDownload looks up an item and downloads it on its own goroutine. The
// lookup error is returned directly; everything after it is reported through
// the status sequence.
func (m *Manager) StartDownload(ctx context.Context, id int64) (<-chan transfer.Status, error) {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return pipeline.Start(ctx, func(ctx context.Context, emit transfer.Emitter) transfer.Status {
		return m.download(ctx, rec, emit)
	}), nil
}

// DownloadItem downloads an item and blocks until its terminal status.
func (m *Manager) DownloadItem(ctx context.Context, id int64, emit transfer.Emitter) (transfer.Status, error) {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return transfer.Status{}, err
	}
	return m.download(ctx, rec, emit), nil
}

func (m *Manager) download(ctx context.Context, rec *catalog.Record, emit transfer.Emitter) transfer.Status {
	ctx = services.WithItemID(ctx, rec.ID)
	logger := logging.WithContext(ctx, m.logger)

	url, err := m.sourceURL(rec)
	if err != nil {
		status := transfer.Failure(pipeline.FailurePrefix+" "+err.Error(), err)
		emitTerminal(emit, status)
		return status
	}

	status := m.downloader.Run(ctx, url, m.layout.StoredPath(rec.Item), holdTerminal(emit))
	m.refreshDownloaded(ctx, rec.Item, logger)
	if status.Kind == transfer.StatusSuccess {
		m.recordSize(ctx, rec.ID, status.Written, logger)
	}
	emitTerminal(emit, status)

	switch status.Kind {
	case transfer.StatusSuccess:
		m.publish(ctx, notifications.EventDownloadCompleted, notifications.Payload{
			"title": rec.Title,
			"kind":  string(rec.Kind),
			"size":  media.DisplaySize(status.Written),
		}, logger)
	case transfer.StatusError:
		if services.Kind(status.Err) != "canceled" {
			m.publish(ctx, notifications.EventDownloadFailed, notifications.Payload{
				"title": rec.Title,
				"error": status.Message,
			}, logger)
		}
	}
	return status
}

// StartPrepare decrypts an item's stored file into the temporary playable
// file for its kind on its own goroutine.
func (m *Manager) StartPrepare(ctx context.Context, id int64) (<-chan transfer.Status, error) {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return pipeline.Start(ctx, func(ctx context.Context, emit transfer.Emitter) transfer.Status {
		return m.prepare(ctx, rec, emit)
	}), nil
}

// PrepareItem decrypts an item's stored file into the temporary playable file
// for its kind and blocks until its terminal status.
func (m *Manager) PrepareItem(ctx context.Context, id int64, emit transfer.Emitter) (transfer.Status, error) {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return transfer.Status{}, err
	}
	return m.prepare(ctx, rec, emit), nil
}

func (m *Manager) prepare(ctx context.Context, rec *catalog.Record, emit transfer.Emitter) transfer.Status {
	ctx = services.WithItemID(ctx, rec.ID)
	logger := logging.WithContext(ctx, m.logger)

	status := m.decryptor.Run(ctx, m.layout.StoredPath(rec.Item), m.layout.TempPath(rec.Kind), rec.Kind, holdTerminal(emit))
	// A failed decrypt may purge the stored file.
	m.refreshDownloaded(ctx, rec.Item, logger)
	emitTerminal(emit, status)
	return status
}

// TempPath returns the temporary playable file for kind.
func (m *Manager) TempPath(kind media.FileKind) string {
	return m.layout.TempPath(kind)
}

// OpenTemp opens the temporary playable file for kind and holds its path lock
// until release is called, so prepare and ReleaseTemp for the same kind wait
// for the reader to finish.
func (m *Manager) OpenTemp(ctx context.Context, kind media.FileKind) (*os.File, pathlock.Release, error) {
	if !kind.Valid() {
		return nil, nil, services.Wrap(services.ErrValidation, "library", "open temp", fmt.Sprintf("unknown kind %q", kind), nil)
	}
	path := m.layout.TempPath(kind)
	release, err := m.locker.Lock(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	file, err := storage.Open(path)
	if err != nil {
		release()
		return nil, nil, err
	}
	return file, release, nil
}

// ReleaseTemp deletes the temporary playable file for kind once its consumer
// is done with it. Missing files are not an error.
func (m *Manager) ReleaseTemp(ctx context.Context, kind media.FileKind) error {
	if !kind.Valid() {
		return services.Wrap(services.ErrValidation, "library", "release temp", fmt.Sprintf("unknown kind %q", kind), nil)
	}
	path := m.layout.TempPath(kind)
	release, err := m.locker.Lock(ctx, path)
	if err != nil {
		return err
	}
	defer release()
	if err := storage.Remove(path); err != nil {
		return services.Wrap(services.ErrIO, "library", "release temp", path, err)
	}
	m.logger.Debug("temp file released", logging.String("kind", string(kind)), logging.String("path", path))
	return nil
}

// DeleteItem removes an item's stored file and clears its downloaded flag.
// The catalog entry stays so the item can be downloaded again.
func (m *Manager) DeleteItem(ctx context.Context, id int64) error {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	ctx = services.WithItemID(ctx, id)
	logger := logging.WithContext(ctx, m.logger)

	path := m.layout.StoredPath(rec.Item)
	release, err := m.locker.Lock(ctx, path)
	if err != nil {
		return err
	}
	defer release()

	if err := storage.Remove(path); err != nil {
		return services.Wrap(services.ErrIO, "library", "delete item", path, err)
	}
	if err := storage.Remove(pathlock.LockFile(path)); err != nil {
		logger.Debug("failed to remove lock file", logging.Error(err))
	}
	if err := m.store.SetDownloaded(ctx, id, false); err != nil {
		return err
	}
	logger.Info("stored file deleted", logging.String("path", path), logging.String(logging.FieldEventType, "item_deleted"))
	return nil
}

// ProbeSize asks the server for an item's size and records the display
// string in the catalog. Unknown sizes are returned as -1.
func (m *Manager) ProbeSize(ctx context.Context, id int64) (int64, error) {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	url, err := m.sourceURL(rec)
	if err != nil {
		return 0, err
	}
	size, err := m.downloader.ProbeSize(ctx, url)
	if err != nil {
		return 0, err
	}
	if err := m.store.SetSize(ctx, id, size); err != nil {
		return 0, err
	}
	return size, nil
}

// ImportFile encrypts a local plaintext file into the stored file for item,
// adding the item to the catalog first.
func (m *Manager) ImportFile(ctx context.Context, src string, item media.Item, emit transfer.Emitter) (transfer.Status, error) {
	if err := item.Validate(); err != nil {
		return transfer.Status{}, err
	}
	if _, err := m.store.Upsert(ctx, []media.Item{item}, "import"); err != nil {
		return transfer.Status{}, err
	}
	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, m.logger)

	status := m.encryptor.Run(ctx, src, m.layout.StoredPath(item), holdTerminal(emit))
	m.refreshDownloaded(ctx, item, logger)
	if status.Kind == transfer.StatusSuccess {
		m.recordSize(ctx, item.ID, status.Written, logger)
	}
	emitTerminal(emit, status)
	if status.Kind == transfer.StatusSuccess {
		m.publish(ctx, notifications.EventImportCompleted, notifications.Payload{"title": item.Title}, logger)
	}
	return status, nil
}

func (m *Manager) recordSize(ctx context.Context, id, size int64, logger *slog.Logger) {
	if err := m.store.SetSize(context.WithoutCancel(ctx), id, size); err != nil {
		logger.Debug("failed to record stored size", logging.Error(err))
	}
}

// holdTerminal passes progress through to emit and drops the pipeline's
// terminal status; the caller sends it with emitTerminal once the catalog
// reflects the run.
func holdTerminal(emit transfer.Emitter) transfer.Emitter {
	if emit == nil {
		return nil
	}
	return func(status transfer.Status) {
		if !status.Terminal() {
			emit(status)
		}
	}
}

func emitTerminal(emit transfer.Emitter, status transfer.Status) {
	if emit == nil {
		return
	}
	defer func() { _ = recover() }()
	emit(status)
}
