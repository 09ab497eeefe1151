package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// FuzzLoadConfig feeds arbitrary YAML through viper and LoadFrom. Loading
// may fail, but a configuration that loads must satisfy every bound.
func FuzzLoadConfig(f *testing.F) {
	f.Add("server:\n  port: 8080\n  host: localhost\n")
	f.Add("server:\n  port: \"invalid_port\"\n")
	f.Add("server:\n  port: 65536\n")
	f.Add("watch:\n  mode: poll\n  poll_interval: 100ms\n  debounce: 99ms\n")
	f.Add("watch:\n  poll_interval: 1ns\n")
	f.Add("stream:\n  mailbox: 0\n")
	f.Add("log:\n  format: xml\n")
	f.Add("malformed: yaml: content")
	f.Add("")

	f.Fuzz(func(t *testing.T, content string) {
		if len(content) > 50000 {
			t.Skip("config too large")
		}

		v := viper.New()
		v.SetConfigType("yaml")
		if err := v.ReadConfig(bytes.NewBufferString(content)); err != nil {
			return
		}

		cfg, err := LoadFrom(v)
		if err != nil {
			return
		}

		if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
			t.Errorf("loaded port %d", cfg.Server.Port)
		}
		if strings.ContainsAny(cfg.Server.Host, " /;&|`$") {
			t.Errorf("loaded host %q", cfg.Server.Host)
		}
		switch cfg.Watch.Mode {
		case WatchModeAuto, WatchModeNotify, WatchModePoll:
		default:
			t.Errorf("loaded watch mode %q", cfg.Watch.Mode)
		}
		if cfg.Watch.PollInterval < minPollInterval || cfg.Watch.Debounce >= cfg.Watch.PollInterval {
			t.Errorf("loaded poll %s debounce %s", cfg.Watch.PollInterval, cfg.Watch.Debounce)
		}
		if cfg.Stream.Mailbox < 1 || cfg.Stream.Heartbeat < minHeartbeat {
			t.Errorf("loaded stream config %+v", cfg.Stream)
		}
	})
}
