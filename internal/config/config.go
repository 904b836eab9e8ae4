package config

import (
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StorageDir string `toml:"storage_dir"`
	TempDir    string `toml:"temp_dir"`
	LogDir     string `toml:"log_dir"`
	CatalogDir string `toml:"catalog_dir"`
}

// Remote contains configuration for the media server the catalog and files
// are fetched from.
type Remote struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
	HeaderTimeout  int    `toml:"header_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// Cipher contains the symmetric key material used for stored files. Key and
// IV accept raw text or a "hex:" prefixed value. KeyFile, when set, replaces
// Key with the file contents.
type Cipher struct {
	Key     string `toml:"key"`
	IV      string `toml:"iv"`
	KeyFile string `toml:"key_file"`
}

// Pipeline contains tuning knobs for the download/decrypt pipelines.
type Pipeline struct {
	NetworkChunkSize int  `toml:"network_chunk_size"`
	LocalChunkSize   int  `toml:"local_chunk_size"`
	EncryptDownloads bool `toml:"encrypt_downloads"`
	MaxParallel      int  `toml:"max_parallel"`
	TempMaxAgeHours  int  `toml:"temp_max_age_hours"`
	CheckFreeSpace   bool `toml:"check_free_space"`
}

// API contains configuration for the local HTTP API.
type API struct {
	Bind string `toml:"bind"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Download       bool   `toml:"download"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mediavault.
//
// Configuration sections by subsystem:
//   - Paths: stored files, temp playable files, logs, catalog database
//   - Remote: media server base URL and HTTP timeouts
//   - Cipher: key material for stored files
//   - Pipeline: chunk sizes, at-rest encryption, concurrency, temp retention
//   - API: local HTTP API bind address
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Remote        Remote        `toml:"remote"`
	Cipher        Cipher        `toml:"cipher"`
	Pipeline      Pipeline      `toml:"pipeline"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("mediavault.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipelines write into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StorageDir, c.Paths.TempDir, c.Paths.LogDir, c.Paths.CatalogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogPath returns the SQLite catalog database location.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.CatalogDir, "catalog.db")
}

// CipherMaterial returns the decoded key and IV bytes. When no IV is
// configured the key bytes double as the IV, matching files written by the
// mobile client.
func (c *Config) CipherMaterial() ([]byte, []byte, error) {
	keyValue := c.Cipher.Key
	if path := strings.TrimSpace(c.Cipher.KeyFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("cipher.key_file: %w", err)
		}
		keyValue = strings.TrimRight(string(data), "\r\n")
	}
	key, err := decodeKeyValue(keyValue)
	if err != nil {
		return nil, nil, fmt.Errorf("cipher.key: %w", err)
	}
	if strings.TrimSpace(c.Cipher.IV) == "" {
		iv := make([]byte, len(key))
		copy(iv, key)
		return key, iv, nil
	}
	iv, err := decodeKeyValue(c.Cipher.IV)
	if err != nil {
		return nil, nil, fmt.Errorf("cipher.iv: %w", err)
	}
	return key, iv, nil
}

func decodeKeyValue(value string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(value, "hex:"); ok {
		decoded, err := hex.DecodeString(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("decode hex: %w", err)
		}
		return decoded, nil
	}
	return []byte(value), nil
}

// RequestTimeout returns the timeout for short catalog and probe requests.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Remote.RequestTimeout) * time.Second
}

// HeaderTimeout bounds how long a download waits for response headers. The
// body itself is not bounded so large files can stream.
func (c *Config) HeaderTimeout() time.Duration {
	return time.Duration(c.Remote.HeaderTimeout) * time.Second
}

// TempMaxAge returns how long a temp playable file may linger before cleanup.
func (c *Config) TempMaxAge() time.Duration {
	return time.Duration(c.Pipeline.TempMaxAgeHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
