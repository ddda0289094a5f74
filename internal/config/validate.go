package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.InboxDir != "" && c.Paths.InboxDir == c.Paths.OutputDir {
		return errors.New("paths.inbox_dir must differ from paths.output_dir")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if strings.TrimSpace(c.Worker.Binary) == "" {
		return errors.New("worker.binary must be set")
	}
	return ensurePositiveMap(map[string]int{
		"worker.process_timeout": c.Worker.ProcessTimeout,
		"worker.command_timeout": c.Worker.CommandTimeout,
		"worker.login_timeout":   c.Worker.LoginTimeout,
	})
}

func (c *Config) validateQueue() error {
	if c.Queue.MaxConcurrency < minConcurrency || c.Queue.MaxConcurrency > maxConcurrency {
		return fmt.Errorf("queue.max_concurrency must be between %d and %d", minConcurrency, maxConcurrency)
	}
	return ensurePositiveMap(map[string]int{
		"queue.poll_interval":     c.Queue.PollInterval,
		"queue.poll_max_attempts": c.Queue.PollMaxAttempts,
	})
}

func (c *Config) validateAuth() error {
	if strings.TrimSpace(c.Auth.StorageStatePath) == "" {
		return errors.New("auth.storage_state_path must be set")
	}
	if c.Auth.MaxAgeDays <= 0 {
		return errors.New("auth.max_age_days must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
