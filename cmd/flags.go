package cmd

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/marklive/internal/config"
)

// flagBinding ties a flag to the configuration key it overrides.
type flagBinding struct {
	flag string
	key  string
}

var serverFlagBindings = []flagBinding{
	{"host", "server.host"},
	{"port", "server.port"},
	{"no-open", "server.no-open"},
}

var watchFlagBindings = []flagBinding{
	{"watch-mode", "watch.mode"},
	{"poll-interval", "watch.poll_interval"},
}

func addServerFlags(flags *pflag.FlagSet) {
	flags.StringP("host", "H", config.DefaultHost, "Host to bind to (0.0.0.0 to share on the LAN)")
	flags.IntP("port", "P", config.DefaultPort, "Port to serve on")
	flags.Bool("no-open", false, "Don't open browser automatically")
}

func addWatchFlags(flags *pflag.FlagSet) {
	flags.String("watch-mode", config.WatchModeAuto, "How to detect file changes (auto, notify, poll)")
	flags.Duration("poll-interval", config.DefaultPollInterval, "Stat interval when polling")
}

// bindFlags makes set flags take precedence over the environment and the
// config file.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, bindings []flagBinding) {
	for _, b := range bindings {
		_ = v.BindPFlag(b.key, flags.Lookup(b.flag))
	}
}
