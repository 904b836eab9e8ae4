package testsupport

import (
	"net/http"
	"path/filepath"
	"testing"

	"mediavault/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StorageDir = filepath.Join(base, "storage")
	cfgVal.Paths.TempDir = filepath.Join(base, "temp")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CatalogDir = filepath.Join(base, "catalog")
	cfgVal.Remote.BaseURL = ""
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Pipeline.CheckFreeSpace = false
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithBaseURL points the remote section at url, typically an httptest server.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.BaseURL = url + "/"
	}
}

// WithServer starts an httptest server for handler and points the remote
// section at it.
func WithServer(handler http.Handler) ConfigOption {
	return func(b *configBuilder) {
		srv := NewServer(b.t, handler)
		b.cfg.Remote.BaseURL = srv.URL + "/"
	}
}

// WithEncryptDownloads toggles at-rest encryption of downloaded files.
func WithEncryptDownloads(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.EncryptDownloads = enabled
	}
}

// WithChunkSizes overrides both pipeline chunk sizes.
func WithChunkSizes(network, local int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.NetworkChunkSize = network
		b.cfg.Pipeline.LocalChunkSize = local
	}
}

// WithMaxParallel sets the batch download concurrency.
func WithMaxParallel(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.MaxParallel = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StorageDir)
}
