package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateCipher(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StorageDir == "" {
		return errors.New("paths.storage_dir must be set")
	}
	if c.Paths.TempDir == "" {
		return errors.New("paths.temp_dir must be set")
	}
	if c.Paths.StorageDir == c.Paths.TempDir {
		return errors.New("paths.temp_dir must differ from paths.storage_dir")
	}
	return nil
}

func (c *Config) validateRemote() error {
	if c.Remote.BaseURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Remote.BaseURL)
	if err != nil {
		return fmt.Errorf("remote.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("remote.base_url must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("remote.base_url must include a host")
	}
	return nil
}

func (c *Config) validateCipher() error {
	key, iv, err := c.CipherMaterial()
	if err != nil {
		return err
	}
	switch len(key) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("cipher.key must be 16, 24, or 32 bytes, got %d", len(key))
	}
	if len(iv) != 16 {
		return fmt.Errorf("cipher.iv must be 16 bytes, got %d", len(iv))
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.NetworkChunkSize > maxChunkSize {
		return fmt.Errorf("pipeline.network_chunk_size must be at most %d bytes", maxChunkSize)
	}
	if c.Pipeline.LocalChunkSize > maxChunkSize {
		return fmt.Errorf("pipeline.local_chunk_size must be at most %d bytes", maxChunkSize)
	}
	if c.Pipeline.MaxParallel > 16 {
		return errors.New("pipeline.max_parallel must be at most 16")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	if !strings.HasPrefix(c.Notifications.NtfyTopic, "http://") && !strings.HasPrefix(c.Notifications.NtfyTopic, "https://") {
		return errors.New("notifications.ntfy_topic must be a full http(s) URL")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
