package pipeline

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"mediavault/internal/cipherstream"
	"mediavault/internal/config"
	"mediavault/internal/pathlock"
	"mediavault/internal/preflight"
	"mediavault/internal/transfer"
)

// Options configures every pipeline type.
type Options struct {
	Client           *http.Client
	Locker           *pathlock.Locker
	Cipher           cipherstream.Params
	NetworkChunkSize int
	LocalChunkSize   int
	EncryptDownloads bool
	UserAgent        string
	// SpaceCheck is consulted before a download writes; nil skips the check.
	SpaceCheck func(dir string, need int64) error
	Logger     *slog.Logger
}

// OptionsFromConfig derives pipeline options from configuration. The HTTP
// client bounds connection setup and response headers but not the body, so
// large downloads are limited only by their context.
func OptionsFromConfig(cfg *config.Config, locker *pathlock.Locker, logger *slog.Logger) (Options, error) {
	key, iv, err := cfg.CipherMaterial()
	if err != nil {
		return Options{}, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.HeaderTimeout()
	transport.DialContext = (&net.Dialer{Timeout: cfg.RequestTimeout(), KeepAlive: 30 * time.Second}).DialContext

	opts := Options{
		Client:           &http.Client{Transport: transport},
		Locker:           locker,
		Cipher:           cipherstream.Params{Key: key, IV: iv},
		NetworkChunkSize: cfg.Pipeline.NetworkChunkSize,
		LocalChunkSize:   cfg.Pipeline.LocalChunkSize,
		EncryptDownloads: cfg.Pipeline.EncryptDownloads,
		UserAgent:        cfg.Remote.UserAgent,
		Logger:           logger,
	}
	if cfg.Pipeline.CheckFreeSpace {
		opts.SpaceCheck = preflight.CheckFreeSpace
	}
	return opts, nil
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	if o.Locker == nil {
		o.Locker = pathlock.New()
	}
	if o.NetworkChunkSize <= 0 {
		o.NetworkChunkSize = transfer.DefaultNetworkChunkSize
	}
	if o.LocalChunkSize <= 0 {
		o.LocalChunkSize = transfer.DefaultLocalChunkSize
	}
	return o
}
