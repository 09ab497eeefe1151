package config

import (
	"fmt"
	"os"
	"time"

	"github.com/conneroisu/marklive/internal/validation"
)

// Bounds on tunables. The poll interval floor keeps a misconfigured watcher
// from spinning on stat calls; the mailbox ceiling keeps it "small".
const (
	minPollInterval = 50 * time.Millisecond
	maxPollInterval = 10 * time.Second
	minHeartbeat    = time.Second
	maxMailbox      = 1024
)

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateWatchConfig(&config.Watch); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	if err := validateStreamConfig(&config.Stream); err != nil {
		return fmt.Errorf("stream config: %w", err)
	}

	if err := validatePageConfig(&config.Page); err != nil {
		return fmt.Errorf("page config: %w", err)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("log config: format %q is not one of text, json", config.Log.Format)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Port 0 asks the kernel for a free port, used by tests
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if err := validation.ValidateHost(config.Host); err != nil {
		return err
	}

	return nil
}

func validateWatchConfig(config *WatchConfig) error {
	switch config.Mode {
	case WatchModeAuto, WatchModeNotify, WatchModePoll:
	default:
		return fmt.Errorf("mode %q is not one of auto, notify, poll", config.Mode)
	}

	if config.PollInterval < minPollInterval || config.PollInterval > maxPollInterval {
		return fmt.Errorf("poll_interval %s is outside %s..%s", config.PollInterval, minPollInterval, maxPollInterval)
	}

	if config.Debounce < 0 || config.Debounce >= config.PollInterval {
		return fmt.Errorf("debounce %s must be non-negative and shorter than poll_interval %s", config.Debounce, config.PollInterval)
	}

	return nil
}

func validateStreamConfig(config *StreamConfig) error {
	if config.Heartbeat < minHeartbeat {
		return fmt.Errorf("heartbeat %s is shorter than %s", config.Heartbeat, minHeartbeat)
	}

	if config.Mailbox < 1 || config.Mailbox > maxMailbox {
		return fmt.Errorf("mailbox %d is outside 1..%d", config.Mailbox, maxMailbox)
	}

	return nil
}

func validatePageConfig(config *PageConfig) error {
	paths := append([]string{}, config.Fonts...)
	if config.Favicon != "" {
		paths = append(paths, config.Favicon)
	}
	if config.CSS != "" {
		paths = append(paths, config.CSS)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("asset %s: %w", path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("asset %s is a directory", path)
		}
	}

	return nil
}
