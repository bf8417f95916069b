package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/urlwash/urlwash/internal/cache"
	"github.com/urlwash/urlwash/internal/config"
	"github.com/urlwash/urlwash/internal/jobs"
	"github.com/urlwash/urlwash/internal/types"
)

const Version = "0.1.0"

var (
	configFile  string
	optionsFile string
	cachePath   string
	noCache     bool
	threads     int
	jsonOutput  bool
	logLevel    string
	logFormat   string
	setFlags    []string
	unsetFlags  []string
	setVars     []string
	unsetVars   []string

	// exitCode carries the run tri-state out of RunE: 0 all jobs ok,
	// 1 all failed, 2 mixed.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "urlwash [urls...]",
	Short: "Clean URLs with a declarative rewriting rule set",
	Long: `urlwash applies a declarative rule configuration to URLs, removing
tracking parameters and normalizing hosts. URLs are read from arguments
and then from standard input, one job per line; results are written to
standard output in the same order.`,
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "rule configuration file (default: packaged rules)")
	rootCmd.PersistentFlags().StringVar(&optionsFile, "options", "", "process options file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")

	rootCmd.Flags().StringVar(&cachePath, "cache-path", "", "cache database path")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "use a throwaway in-memory cache")
	rootCmd.Flags().IntVar(&threads, "threads", 0, "worker count (0 = available parallelism)")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "emit one JSON object per job instead of plain URLs")
	rootCmd.Flags().StringArrayVar(&setFlags, "flag", nil, "set a rule flag (repeatable)")
	rootCmd.Flags().StringArrayVar(&unsetFlags, "unflag", nil, "unset a rule flag (repeatable)")
	rootCmd.Flags().StringArrayVar(&setVars, "var", nil, "set a rule variable as name=value (repeatable)")
	rootCmd.Flags().StringArrayVar(&unsetVars, "unvar", nil, "unset a rule variable (repeatable)")
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}

func setupLogging(level, format string) error {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(parsed)
	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = log.Output(os.Stderr)
	}
	return nil
}

// applyFlagOverrides writes explicitly set flags into the options viper,
// typed per flag, so flags beat environment and file values. An empty
// string set on the command line is an override like any other.
func applyFlagOverrides(flags *pflag.FlagSet, v *viper.Viper) {
	if flags.Changed("cache-path") {
		v.Set("cache_path", cachePath)
	}
	if flags.Changed("no-cache") {
		v.Set("no_cache", noCache)
	}
	if flags.Changed("threads") {
		v.Set("threads", threads)
	}
	if flags.Changed("log-level") {
		v.Set("log.level", logLevel)
	}
	if flags.Changed("log-format") {
		v.Set("log.format", logFormat)
	}
}

func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q (expected name=value)", pair)
		}
		vars[name] = value
	}
	return vars, nil
}

func run(cmd *cobra.Command, args []string) error {
	// Flags and errors share stderr; only job results go to stdout.
	cmd.SilenceUsage = true

	v, err := config.LoadOptions(optionsFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd.Flags(), v)
	opts, err := config.OptionsFromViper(v)
	if err != nil {
		return err
	}
	if err := setupLogging(opts.LogLevel, opts.LogFormat); err != nil {
		return err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	vars, err := parseVars(setVars)
	if err != nil {
		return err
	}
	cfg.ApplyDiffs(&types.ParamsDiff{
		Flags:   setFlags,
		Unflags: unsetFlags,
		Vars:    vars,
		Unvars:  unsetVars,
	})

	store := cache.New(opts.CachePath)
	if opts.NoCache {
		store = cache.New(cache.InMemory)
	}
	defer store.Close()

	pipeline := &jobs.Pipeline{
		Workers: opts.Threads,
		Rules:   cfg.Rules,
		Params:  cfg.Params,
		Commons: cfg.Commons,
		Cache:   store,
	}

	inputs := make(chan string)
	go func() {
		defer close(inputs)
		for _, arg := range args {
			inputs <- arg
		}
		if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				if line := strings.TrimSpace(scanner.Text()); line != "" {
					inputs <- line
				}
			}
		}
	}()

	ok, failed := 0, 0
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	for outcome := range pipeline.Run(inputs) {
		if err := emit(out, outcome); err != nil {
			return err
		}
		if outcome.Err != nil {
			failed++
		} else {
			ok++
		}
	}

	exitCode = jobs.ExitCode(ok, failed)
	log.Debug().Int("ok", ok).Int("failed", failed).Int("exit", exitCode).Msg("run finished")
	return nil
}

// emit writes one job outcome. Plain mode prints cleaned URLs to stdout
// and errors to stderr; JSON mode writes one object per job to stdout so
// the output stays machine-parseable line for line.
func emit(out *bufio.Writer, outcome jobs.Outcome) error {
	if jsonOutput {
		line := struct {
			URL   string `json:"url,omitempty"`
			Error string `json:"error,omitempty"`
		}{URL: outcome.URL}
		if outcome.Err != nil {
			line.Error = outcome.Err.Error()
		}
		encoded, err := json.Marshal(line)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(encoded))
		return err
	}

	if outcome.Err != nil {
		fmt.Fprintf(os.Stderr, "error: %s: %v\n", outcome.Input, outcome.Err)
		_, err := fmt.Fprintln(out)
		return err
	}
	_, err := fmt.Fprintln(out, outcome.URL)
	return err
}
