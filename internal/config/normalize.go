package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRemote()
	if err := c.normalizeCipher(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StorageDir) == "" {
		c.Paths.StorageDir = defaultStorageDir
	}
	if c.Paths.StorageDir, err = expandPath(c.Paths.StorageDir); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir()
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CatalogDir) == "" {
		c.Paths.CatalogDir = defaultCatalogDir
	}
	if c.Paths.CatalogDir, err = expandPath(c.Paths.CatalogDir); err != nil {
		return fmt.Errorf("paths.catalog_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRemote() {
	if value, ok := os.LookupEnv("MEDIAVAULT_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Remote.BaseURL = value
	}
	c.Remote.BaseURL = strings.TrimSpace(c.Remote.BaseURL)
	if c.Remote.BaseURL != "" && !strings.HasSuffix(c.Remote.BaseURL, "/") {
		c.Remote.BaseURL += "/"
	}
	if c.Remote.RequestTimeout <= 0 {
		c.Remote.RequestTimeout = defaultRequestTimeout
	}
	if c.Remote.HeaderTimeout <= 0 {
		c.Remote.HeaderTimeout = defaultHeaderTimeout
	}
	c.Remote.UserAgent = strings.TrimSpace(c.Remote.UserAgent)
	if c.Remote.UserAgent == "" {
		c.Remote.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeCipher() error {
	if value, ok := os.LookupEnv("MEDIAVAULT_CIPHER_KEY"); ok && value != "" {
		c.Cipher.Key = value
	}
	if strings.TrimSpace(c.Cipher.KeyFile) != "" {
		expanded, err := expandPath(strings.TrimSpace(c.Cipher.KeyFile))
		if err != nil {
			return fmt.Errorf("cipher.key_file: %w", err)
		}
		c.Cipher.KeyFile = expanded
	}
	if c.Cipher.Key == "" && c.Cipher.KeyFile == "" {
		c.Cipher.Key = defaultCipherKey
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.NetworkChunkSize <= 0 {
		c.Pipeline.NetworkChunkSize = defaultNetworkChunkSize
	}
	if c.Pipeline.LocalChunkSize <= 0 {
		c.Pipeline.LocalChunkSize = defaultLocalChunkSize
	}
	if c.Pipeline.MaxParallel <= 0 {
		c.Pipeline.MaxParallel = defaultMaxParallel
	}
	if c.Pipeline.TempMaxAgeHours <= 0 {
		c.Pipeline.TempMaxAgeHours = defaultTempMaxAgeHours
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
}

func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv("MEDIAVAULT_NTFY_TOPIC"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = value
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
