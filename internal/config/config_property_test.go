//go:build property
// +build property

package config

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func validBase() Config {
	return Config{
		Server: ServerConfig{Host: DefaultHost, Port: DefaultPort},
		Watch:  WatchConfig{Mode: WatchModeAuto, PollInterval: DefaultPollInterval, Debounce: DefaultDebounce},
		Stream: StreamConfig{Heartbeat: DefaultHeartbeat, Mailbox: DefaultMailbox},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

func TestConfigurationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("in-range tunables validate", prop.ForAll(
		func(port int, pollMs int, mailbox int, mode string) bool {
			cfg := validBase()
			cfg.Server.Port = port
			cfg.Watch.Mode = mode
			cfg.Watch.PollInterval = time.Duration(pollMs) * time.Millisecond
			cfg.Watch.Debounce = cfg.Watch.PollInterval / 2
			cfg.Stream.Mailbox = mailbox
			return validateConfig(&cfg) == nil
		},
		gen.IntRange(0, 65535),
		gen.IntRange(50, 10000),
		gen.IntRange(1, maxMailbox),
		gen.OneConstOf(WatchModeAuto, WatchModeNotify, WatchModePoll),
	))

	properties.Property("debounce must be shorter than the poll interval", prop.ForAll(
		func(pollMs int, extraMs int) bool {
			cfg := validBase()
			cfg.Watch.PollInterval = time.Duration(pollMs) * time.Millisecond
			cfg.Watch.Debounce = cfg.Watch.PollInterval + time.Duration(extraMs)*time.Millisecond
			return validateConfig(&cfg) != nil
		},
		gen.IntRange(50, 10000),
		gen.IntRange(0, 1000),
	))

	properties.Property("out-of-range ports are rejected", prop.ForAll(
		func(port int) bool {
			cfg := validBase()
			cfg.Server.Port = port
			return validateConfig(&cfg) != nil
		},
		gen.OneGenOf(gen.IntRange(-100000, -1), gen.IntRange(65536, 1000000)),
	))

	properties.Property("unknown watch modes are rejected", prop.ForAll(
		func(mode string) bool {
			cfg := validBase()
			cfg.Watch.Mode = mode
			switch mode {
			case WatchModeAuto, WatchModeNotify, WatchModePoll:
				return validateConfig(&cfg) == nil
			}
			return validateConfig(&cfg) != nil
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
