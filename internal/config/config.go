/*
Package config loads the rule configuration and process options. The rule
tree itself is plain JSON decoded by the expression decoders; process
options (cache path, worker count, logging) go through viper with the
usual flag > environment > file > default precedence.
*/
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/urlwash/urlwash/internal/rules"
	"github.com/urlwash/urlwash/internal/types"
)

//go:embed default.json
var defaultConfigJSON []byte

// Config is a complete rule configuration: the rule list, the commons
// registry, and the run parameters.
type Config struct {
	Rules   rules.Rules    `json:"rules"`
	Commons *rules.Commons `json:"commons,omitempty"`
	Params  *types.Params  `json:"params,omitempty"`
}

// normalize fills the optional sections so callers never see nil maps.
func (c *Config) normalize() {
	if c.Commons == nil {
		c.Commons = &rules.Commons{}
	}
	if c.Params == nil {
		c.Params = types.NewParams()
		return
	}
	if c.Params.Flags == nil {
		c.Params.Flags = types.NewStringSet()
	}
	if c.Params.Vars == nil {
		c.Params.Vars = map[string]string{}
	}
	if c.Params.HTTP == (types.HTTPConfig{}) {
		c.Params.HTTP = types.DefaultHTTPConfig()
	}
}

// ApplyDiffs applies parameter diffs in order. Must happen before the
// params are shared with workers.
func (c *Config) ApplyDiffs(diffs ...*types.ParamsDiff) {
	for _, d := range diffs {
		d.Apply(c.Params)
	}
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

// Load reads a rule configuration file. An empty path loads the packaged
// default configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return parse(data)
}

var (
	defaultOnce sync.Once
	defaultCfg  *Config
	defaultErr  error
)

// DefaultConfig parses the packaged default configuration exactly once
// and returns the shared instance. Callers treat it as read-only; apply
// diffs before any job starts.
func DefaultConfig() (*Config, error) {
	defaultOnce.Do(func() {
		defaultCfg, defaultErr = parse(defaultConfigJSON)
	})
	return defaultCfg, defaultErr
}
