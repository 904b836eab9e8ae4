package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mediavault/internal/catalog"
	"mediavault/internal/config"
	"mediavault/internal/logging"
	"mediavault/internal/media"
	"mediavault/internal/notifications"
	"mediavault/internal/pathlock"
	"mediavault/internal/pipeline"
	"mediavault/internal/services"
	"mediavault/internal/storage"
)

// Manager coordinates catalog items with their stored and temporary files.
type Manager struct {
	cfg      *config.Config
	store    *catalog.Store
	layout   storage.Layout
	logger   *slog.Logger
	notifier notifications.Service
	locker   *pathlock.Locker
	remote   *catalog.Client

	downloader *pipeline.Downloader
	decryptor  *pipeline.Decryptor
	encryptor  *pipeline.Encryptor
}

// NewManager constructs a library manager that notifies through the
// configured ntfy topic.
func NewManager(cfg *config.Config, store *catalog.Store, logger *slog.Logger) (*Manager, error) {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a library manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *catalog.Store, logger *slog.Logger, notifier notifications.Service) (*Manager, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "library", "init", "config is required", nil)
	}
	if store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "library", "init", "catalog store is required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}

	locker := pathlock.New()
	opts, err := pipeline.OptionsFromConfig(cfg, locker, logger)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "library", "init", "load cipher material", err)
	}

	return &Manager{
		cfg:        cfg,
		store:      store,
		layout:     storage.NewLayout(cfg),
		logger:     logging.NewComponentLogger(logger, "library"),
		notifier:   notifier,
		locker:     locker,
		remote:     catalog.NewClient(cfg.Remote.BaseURL, opts.Client, cfg.Remote.UserAgent),
		downloader: pipeline.NewDownloader(opts),
		decryptor:  pipeline.NewDecryptor(opts),
		encryptor:  pipeline.NewEncryptor(opts),
	}, nil
}

// Layout returns the storage layout the manager writes into.
func (m *Manager) Layout() storage.Layout {
	return m.layout
}

// Store returns the catalog store.
func (m *Manager) Store() *catalog.Store {
	return m.store
}

// Get returns a catalog item.
func (m *Manager) Get(ctx context.Context, id int64) (*catalog.Record, error) {
	return m.store.Get(ctx, id)
}

// List returns catalog items matching filter.
func (m *Manager) List(ctx context.Context, filter catalog.Filter) ([]*catalog.Record, error) {
	return m.store.List(ctx, filter)
}

// sourceURL returns where an item is downloaded from. Items without a URL
// fall back to the media server's video endpoint.
func (m *Manager) sourceURL(rec *catalog.Record) (string, error) {
	if url := strings.TrimSpace(rec.URL); url != "" {
		return url, nil
	}
	if strings.TrimSpace(m.cfg.Remote.BaseURL) == "" {
		return "", services.Wrap(services.ErrConfiguration, "library", "resolve url",
			fmt.Sprintf("item %d has no url and remote.base_url is not set", rec.ID), nil)
	}
	return m.remote.VideoURL(rec.ID), nil
}

// refreshDownloaded sets the downloaded flag from the stored file's presence.
func (m *Manager) refreshDownloaded(ctx context.Context, item media.Item, logger *slog.Logger) bool {
	present := storage.Exists(m.layout.StoredPath(item))
	if err := m.store.SetDownloaded(context.WithoutCancel(ctx), item.ID, present); err != nil {
		logging.WarnWithContext(logger, "failed to update downloaded flag", "catalog_update_failed",
			logging.Error(err),
			logging.Bool("downloaded", present),
			logging.String(logging.FieldErrorHint, "run 'mediavault catalog list' to reconcile"),
			logging.String(logging.FieldImpact, "catalog listing may be stale"),
		)
	}
	return present
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload, logger *slog.Logger) {
	if err := m.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String("event", string(event)),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "notification was not delivered"),
		)
	}
}
