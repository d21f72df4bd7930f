/*
Package cli implements the tripsense subcommands.

Every command shares the persistent flags bound by BindGlobalFlags. Data
commands load the configuration, apply flag overrides and build an app.App;
results go to the command's output writer, logs to stderr.
*/
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/khanglvm/tripsense/internal/app"
	"github.com/khanglvm/tripsense/internal/catalog"
	"github.com/khanglvm/tripsense/internal/config"
	"github.com/khanglvm/tripsense/internal/logging"
)

// Options holds the persistent flags.
type Options struct {
	ConfigPath   string
	DataPath     string
	ActivityPath string
	LogLevel     string
	LogFormat    string
	JSON         bool
}

// BindGlobalFlags registers the persistent flags on root.
func BindGlobalFlags(root *cobra.Command) *Options {
	opts := &Options{}
	flags := root.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "Config file (default: ./tripsense.yaml or ~/.tripsense/config.yaml)")
	flags.StringVarP(&opts.DataPath, "data", "d", "", "Destination snapshot (.json or .csv), overrides data.destinations")
	flags.StringVar(&opts.ActivityPath, "activity", "", "User activity JSON, overrides data.activity")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level: trace, debug, info, warn, error, disabled")
	flags.StringVar(&opts.LogFormat, "log-format", "", "Log format: console or json")
	flags.BoolVarP(&opts.JSON, "json", "j", false, "Output as JSON")
	return opts
}

// LoadConfig loads the configuration, applies flag overrides and configures
// the global logger.
func (o *Options) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.DataPath != "" {
		cfg.Data.Destinations = o.DataPath
	}
	if o.ActivityPath != "" {
		cfg.Data.Activity = o.ActivityPath
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Logging.Format = o.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	return cfg, nil
}

// OpenApp loads the configuration and builds an App. The caller closes it.
func (o *Options) OpenApp(ctx context.Context) (*app.App, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return nil, err
	}
	return app.Open(ctx, cfg, logging.Logger())
}

// OpenAnalyzerApp builds an App over an empty catalog for commands that
// only process text.
func (o *Options) OpenAnalyzerApp(ctx context.Context) (*app.App, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, catalog.New(nil, nil), logging.Logger())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
