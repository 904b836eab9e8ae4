package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultConfigPath       = "~/.config/mediavault/config.toml"
	defaultStorageDir       = "~/.local/share/mediavault/storage"
	defaultLogDir           = "~/.local/share/mediavault/logs"
	defaultCatalogDir       = "~/.local/share/mediavault"
	defaultRemoteBaseURL    = "http://172.20.10.70:8080/api/"
	defaultRequestTimeout   = 30
	defaultHeaderTimeout    = 30
	defaultUserAgent        = "mediavault/0.1"
	defaultCipherKey        = "S-C-M-MobileTeam"
	defaultNetworkChunkSize = 1024 * 1024
	defaultLocalChunkSize   = 4096
	defaultMaxParallel      = 2
	defaultTempMaxAgeHours  = 24
	defaultAPIBind          = "127.0.0.1:7600"
	defaultNotifyTimeout    = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	maxChunkSize            = 64 * 1024 * 1024
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir: defaultStorageDir,
			TempDir:    defaultTempDir(),
			LogDir:     defaultLogDir,
			CatalogDir: defaultCatalogDir,
		},
		Remote: Remote{
			BaseURL:        defaultRemoteBaseURL,
			RequestTimeout: defaultRequestTimeout,
			HeaderTimeout:  defaultHeaderTimeout,
			UserAgent:      defaultUserAgent,
		},
		Cipher: Cipher{
			Key: defaultCipherKey,
		},
		Pipeline: Pipeline{
			NetworkChunkSize: defaultNetworkChunkSize,
			LocalChunkSize:   defaultLocalChunkSize,
			MaxParallel:      defaultMaxParallel,
			TempMaxAgeHours:  defaultTempMaxAgeHours,
			CheckFreeSpace:   true,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Download:       true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultTempDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "mediavault", "tmp")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/mediavault/tmp"
	}
	return filepath.Join(home, ".cache", "mediavault", "tmp")
}
