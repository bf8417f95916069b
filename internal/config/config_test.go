package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/urlwash/urlwash/internal/rules"
	"github.com/urlwash/urlwash/internal/types"
	"github.com/urlwash/urlwash/internal/urlutil"
)

func TestDefaultConfigParses(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig() error = %v, want nil", err)
	}
	if len(cfg.Rules) == 0 {
		t.Fatal("DefaultConfig() has no rules")
	}
	if cfg.Params == nil || cfg.Params.Flags == nil {
		t.Fatal("DefaultConfig() params not normalized")
	}
	if cfg.Params.HTTP.Timeout == 0 {
		t.Error("DefaultConfig() HTTP timeout not defaulted")
	}

	// Same shared instance on repeat calls.
	again, err := DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig() error = %v, want nil", err)
	}
	if again != cfg {
		t.Error("DefaultConfig() returned a different instance")
	}
}

func TestDefaultConfigStripsTracking(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("DefaultConfig() error = %v, want nil", err)
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"utm params removed",
			"https://example.com/page?utm_source=news&utm_medium=mail&id=7",
			"https://example.com/page?id=7",
		},
		{
			"fbclid removed",
			"https://example.com/?fbclid=abc",
			"https://example.com/",
		},
		{
			"clean url untouched",
			"https://example.com/page?id=7",
			"https://example.com/page?id=7",
		},
		{
			"mobile subdomain normalized",
			"https://m.example.com/page",
			"https://www.example.com/page",
		},
		{
			"short link host map",
			"https://youtu.be/dQw4w9WgXcQ",
			"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := urlutil.Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse() error = %v, want nil", err)
			}
			st := rules.NewState(u, cfg.Params, cfg.Commons, nil)
			if err := cfg.Rules.Apply(st); err != nil {
				t.Fatalf("Apply() error = %v, want nil", err)
			}
			if got := st.URL.String(); got != tt.want {
				t.Errorf("Apply(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	raw := `{"rules": [{"condition": "Always", "mapper": "RemoveQuery"}]}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if len(cfg.Rules) != 1 {
		t.Errorf("Load() rules = %d, want 1", len(cfg.Rules))
	}
	if cfg.Commons == nil || cfg.Params == nil {
		t.Error("Load() did not normalize optional sections")
	}
}

func TestLoadBadFile(t *testing.T) {
	if _, err := Load("/nonexistent/rules.json"); err == nil {
		t.Fatal("Load(missing) error = nil, want failure")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"rules": [{"condition": "Bogus", "mapper": "None"}]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load(bad condition) error = nil, want failure")
	}
}

func TestApplyDiffs(t *testing.T) {
	cfg, err := parse([]byte(`{"rules": [], "params": {"flags": ["a"], "vars": {"k": "old"}}}`))
	if err != nil {
		t.Fatalf("parse() error = %v, want nil", err)
	}

	cfg.ApplyDiffs(&types.ParamsDiff{
		Flags:   []string{"b"},
		Unflags: []string{"a"},
		Vars:    map[string]string{"k": "new"},
	})

	if cfg.Params.Flags.Contains("a") || !cfg.Params.Flags.Contains("b") {
		t.Errorf("flags after diff = %v", cfg.Params.Flags)
	}
	if cfg.Params.Vars["k"] != "new" {
		t.Errorf("vars after diff = %v", cfg.Params.Vars)
	}
}

func TestOptionsDefaults(t *testing.T) {
	v, err := LoadOptions("")
	if err != nil {
		t.Fatalf("LoadOptions() error = %v, want nil", err)
	}
	opts, err := OptionsFromViper(v)
	if err != nil {
		t.Fatalf("OptionsFromViper() error = %v, want nil", err)
	}
	if opts.CachePath != "urlwash-cache.sqlite" || opts.Threads != 0 || opts.LogFormat != "console" {
		t.Errorf("OptionsFromViper() = %+v", opts)
	}
}

func TestOptionsValidation(t *testing.T) {
	v, err := LoadOptions("")
	if err != nil {
		t.Fatal(err)
	}
	v.Set("log.format", "yaml")
	if _, err := OptionsFromViper(v); err == nil {
		t.Fatal("OptionsFromViper(bad format) error = nil, want failure")
	}
}
