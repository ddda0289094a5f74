package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorker()
	c.normalizeQueue()
	c.normalizeGeneration()
	if err := c.normalizeAuth(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	c.Paths.InboxDir = strings.TrimSpace(c.Paths.InboxDir)
	if c.Paths.InboxDir != "" {
		if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
			return fmt.Errorf("paths.inbox_dir: %w", err)
		}
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeWorker() {
	c.Worker.Binary = strings.TrimSpace(c.Worker.Binary)
	if c.Worker.Binary == "" {
		c.Worker.Binary = defaultWorkerBinary
	}
	if c.Worker.ProcessTimeout <= 0 {
		c.Worker.ProcessTimeout = defaultProcessTimeout
	}
	if c.Worker.CommandTimeout <= 0 {
		c.Worker.CommandTimeout = defaultCommandTimeout
	}
	if c.Worker.LoginTimeout <= 0 {
		c.Worker.LoginTimeout = defaultLoginTimeout
	}
}

// normalizeQueue clamps the concurrency cap into its supported range rather
// than rejecting the config; the daemon rereads this value at admission time
// and must keep running across edits.
func (c *Config) normalizeQueue() {
	if c.Queue.MaxConcurrency == 0 {
		c.Queue.MaxConcurrency = defaultMaxConcurrency
	}
	c.Queue.MaxConcurrency = ClampConcurrency(c.Queue.MaxConcurrency)
	if c.Queue.PollInterval <= 0 {
		c.Queue.PollInterval = defaultPollInterval
	}
	if c.Queue.PollMaxAttempts <= 0 {
		c.Queue.PollMaxAttempts = defaultPollMaxAttempts
	}
}

// ClampConcurrency bounds a concurrency value to the supported range.
func ClampConcurrency(n int) int {
	if n < minConcurrency {
		return minConcurrency
	}
	if n > maxConcurrency {
		return maxConcurrency
	}
	return n
}

func (c *Config) normalizeGeneration() {
	c.Generation.DefaultPrompt = strings.TrimSpace(c.Generation.DefaultPrompt)
}

func (c *Config) normalizeAuth() error {
	var err error
	if strings.TrimSpace(c.Auth.StorageStatePath) == "" {
		c.Auth.StorageStatePath = defaultStorageStatePath
	}
	if c.Auth.StorageStatePath, err = expandPath(c.Auth.StorageStatePath); err != nil {
		return fmt.Errorf("auth.storage_state_path: %w", err)
	}
	if c.Auth.MaxAgeDays <= 0 {
		c.Auth.MaxAgeDays = defaultAuthMaxAgeDays
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
