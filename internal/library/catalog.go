package library

import (
	"context"
	"io"
	"time"

	"mediavault/internal/catalog"
	"mediavault/internal/logging"
	"mediavault/internal/media"
	"mediavault/internal/notifications"
	"mediavault/internal/storage"
)

// SyncResult summarizes a catalog refresh.
type SyncResult struct {
	Source     string
	Imported   int
	Skipped    int
	Reconciled int
}

// SyncRemote fetches the server's video listing into the catalog and
// reconciles downloaded flags.
func (m *Manager) SyncRemote(ctx context.Context) (SyncResult, error) {
	result := SyncResult{Source: "remote"}
	items, err := m.remote.FetchVideos(ctx)
	if err != nil {
		if !catalog.IsTokenExpired(err) {
			logging.WarnWithContext(m.logger, "remote catalog fetch failed", "catalog_sync_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check remote.base_url and network connectivity"),
				logging.String(logging.FieldImpact, "catalog shows the last synced listing"),
			)
		}
		m.publish(ctx, notifications.EventError, notifications.Payload{"context": "catalog sync", "error": err}, m.logger)
		return result, err
	}
	return m.ingest(ctx, result, items)
}

// ImportSamples loads the bundled sample lists for kinds (all kinds when
// none are given) into the catalog.
func (m *Manager) ImportSamples(ctx context.Context, kinds ...media.FileKind) (SyncResult, error) {
	if len(kinds) == 0 {
		kinds = media.Kinds()
	}
	result := SyncResult{Source: "samples"}
	var items []media.Item
	for _, kind := range kinds {
		samples, err := catalog.BundledSamples(kind)
		if err != nil {
			return result, err
		}
		items = append(items, samples.Items...)
		result.Skipped += samples.Skipped
	}
	return m.ingest(ctx, result, items)
}

// ImportSampleList loads a user supplied sample list for kind.
func (m *Manager) ImportSampleList(ctx context.Context, r io.Reader, kind media.FileKind) (SyncResult, error) {
	result := SyncResult{Source: "file"}
	samples, err := catalog.LoadSamples(r, kind)
	if err != nil {
		return result, err
	}
	result.Skipped = samples.Skipped
	return m.ingest(ctx, result, samples.Items)
}

func (m *Manager) ingest(ctx context.Context, result SyncResult, items []media.Item) (SyncResult, error) {
	count, err := m.store.Upsert(ctx, items, result.Source)
	if err != nil {
		return result, err
	}
	result.Imported = count

	reconciled, err := m.Reconcile(ctx)
	if err != nil {
		return result, err
	}
	result.Reconciled = reconciled

	m.logger.Info("catalog updated",
		logging.String("source", result.Source),
		logging.Int("imported", result.Imported),
		logging.Int("skipped", result.Skipped),
		logging.Int("reconciled", result.Reconciled),
		logging.String(logging.FieldEventType, "catalog_updated"),
	)
	return result, nil
}

// Reconcile rewrites every downloaded flag from the storage directory.
func (m *Manager) Reconcile(ctx context.Context) (int, error) {
	names, err := m.layout.StoredNames()
	if err != nil {
		return 0, err
	}
	return m.store.Reconcile(ctx, names)
}

// Cleanup removes stale temporary playable files. A negative maxAge uses the
// configured retention.
func (m *Manager) Cleanup(ctx context.Context, maxAge time.Duration) storage.CleanResult {
	if maxAge < 0 {
		maxAge = m.cfg.TempMaxAge()
	}
	return m.layout.CleanStaleTemps(ctx, maxAge, m.logger)
}
