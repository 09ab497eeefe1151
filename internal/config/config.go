// Package config provides configuration management for marklive using Viper
// for loading from files, environment variables, and command-line flags.
//
// The configuration system supports a .marklive.yml file, environment
// variable overrides with the MARKLIVE_ prefix, defaults, and validation.
// It covers the HTTP listener, how the source file is watched, the live
// stream tuning, the Markdown renderer, page assets, and logging.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Watch modes.
const (
	WatchModeAuto   = "auto"
	WatchModeNotify = "notify"
	WatchModePoll   = "poll"
)

// Defaults.
const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 3030
	DefaultPollInterval = 500 * time.Millisecond
	DefaultDebounce     = 50 * time.Millisecond
	DefaultHeartbeat    = 15 * time.Second
	DefaultMailbox      = 16
	DefaultStyle        = "github"
)

type Config struct {
	Server ServerConfig `yaml:"server" json:"server" mapstructure:"server"`
	Watch  WatchConfig  `yaml:"watch" json:"watch" mapstructure:"watch"`
	Stream StreamConfig `yaml:"stream" json:"stream" mapstructure:"stream"`
	Render RenderConfig `yaml:"render" json:"render" mapstructure:"render"`
	Page   PageConfig   `yaml:"page" json:"page" mapstructure:"page"`
	Log    LogConfig    `yaml:"log" json:"log" mapstructure:"log"`

	// Set from CLI arguments, never from the config file.
	SourcePath string `yaml:"-" json:"-" mapstructure:"-"`
	Clipboard  bool   `yaml:"-" json:"-" mapstructure:"-"`
}

type ServerConfig struct {
	Host string `yaml:"host" json:"host" mapstructure:"host"`
	Port int    `yaml:"port" json:"port" mapstructure:"port"`
	Open bool   `yaml:"open" json:"open" mapstructure:"open"`
	// AllowedOrigins are extra host[:port] values accepted on /ws.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" json:"allowed_origins,omitempty" mapstructure:"allowed_origins"`
}

type WatchConfig struct {
	Mode         string        `yaml:"mode" json:"mode" mapstructure:"mode"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval" mapstructure:"poll_interval"`
	Debounce     time.Duration `yaml:"debounce" json:"debounce" mapstructure:"debounce"`
}

type StreamConfig struct {
	Heartbeat time.Duration `yaml:"heartbeat" json:"heartbeat" mapstructure:"heartbeat"`
	Mailbox   int           `yaml:"mailbox" json:"mailbox" mapstructure:"mailbox"`
}

type RenderConfig struct {
	HardWraps bool   `yaml:"hard_wraps" json:"hard_wraps" mapstructure:"hard_wraps"`
	Sanitize  bool   `yaml:"sanitize" json:"sanitize" mapstructure:"sanitize"`
	Highlight bool   `yaml:"highlight" json:"highlight" mapstructure:"highlight"`
	Style     string `yaml:"style" json:"style" mapstructure:"style"`
}

type PageConfig struct {
	Favicon string   `yaml:"favicon" json:"favicon" mapstructure:"favicon"`
	Fonts   []string `yaml:"fonts" json:"fonts" mapstructure:"fonts"`
	CSS     string   `yaml:"css" json:"css" mapstructure:"css"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level" mapstructure:"level"`
	Format string `yaml:"format" json:"format" mapstructure:"format"`
}

// SetDefaults registers every default with v so that environment variables
// and unset keys resolve consistently.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.open", true)

	v.SetDefault("watch.mode", WatchModeAuto)
	v.SetDefault("watch.poll_interval", DefaultPollInterval)
	v.SetDefault("watch.debounce", DefaultDebounce)

	v.SetDefault("stream.heartbeat", DefaultHeartbeat)
	v.SetDefault("stream.mailbox", DefaultMailbox)

	v.SetDefault("render.hard_wraps", true)
	v.SetDefault("render.sanitize", false)
	v.SetDefault("render.highlight", true)
	v.SetDefault("render.style", DefaultStyle)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load resolves the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom resolves the configuration from v, applying defaults and
// validating the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	// The --no-open flag wins over server.open from any source
	if v.GetBool("server.no-open") {
		config.Server.Open = false
	}

	config.Watch.Mode = strings.ToLower(strings.TrimSpace(config.Watch.Mode))

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Address returns the host:port the server binds to.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
