package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Options are process-level settings, separate from the rule
// configuration: where the cache lives, how many workers run, and how to
// log.
type Options struct {
	CachePath string
	NoCache   bool
	Threads   int
	LogLevel  string
	LogFormat string
}

// LoadOptions resolves process options with CLI flags > environment >
// options file > defaults precedence. Flags are bound by the CLI layer
// through the returned viper instance.
func LoadOptions(optionsPath string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("cache_path", "urlwash-cache.sqlite")
	v.SetDefault("no_cache", false)
	v.SetDefault("threads", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetEnvPrefix("URLWASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if optionsPath != "" {
		v.SetConfigFile(optionsPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read options file: %w", err)
		}
	}

	return v, nil
}

// OptionsFromViper extracts the typed options after flag binding.
func OptionsFromViper(v *viper.Viper) (*Options, error) {
	opts := &Options{
		CachePath: v.GetString("cache_path"),
		NoCache:   v.GetBool("no_cache"),
		Threads:   v.GetInt("threads"),
		LogLevel:  v.GetString("log.level"),
		LogFormat: v.GetString("log.format"),
	}
	if opts.Threads < 0 {
		return nil, fmt.Errorf("threads must be >= 0, got %d", opts.Threads)
	}
	switch opts.LogFormat {
	case "console", "json":
	default:
		return nil, fmt.Errorf("unknown log format %q (expected console or json)", opts.LogFormat)
	}
	return opts, nil
}
