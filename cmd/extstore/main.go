package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/extstore/internal/config"
	exterrors "github.com/vango-dev/extstore/internal/errors"
	"github.com/vango-dev/extstore/pkg/reactive"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		exterrors.FprintError(os.Stderr, err)
		os.Exit(1)
	}
}

// cli holds state shared by the subcommands.
type cli struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "extstore",
		Short: "Serve and script the external store demo",
		Long: `extstore hosts a demo application whose components share one store.

Every component subscribes to the part of the record it shows and
re-renders only when that part changes. Run it in a browser with
"extstore serve", or headless with "extstore demo".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "Config file (default: extstore.yaml in the working directory or a parent)")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&c.logFormat, "log-format", "", "Log format: text or json")
	flags.BoolVar(&c.noColor, "no-color", false, "Disable colored error output")

	rootCmd.AddCommand(
		serveCmd(c),
		demoCmd(c),
		versionCmd(),
	)
	return rootCmd
}

// setup loads the configuration, applies flag overrides and installs the
// default logger.
func (c *cli) setup(stderr io.Writer) error {
	if c.noColor {
		exterrors.DisableColors()
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(stderr, cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	reactive.DebugMode = cfg.Debug

	c.cfg = cfg
	return nil
}

// loadConfig reads --config, or the nearest config file. Without either
// the defaults are used.
func (c *cli) loadConfig() (*config.Config, error) {
	if c.configPath != "" {
		return config.LoadFile(c.configPath)
	}
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		var e *exterrors.Error
		if errors.As(err, &e) && e.Code == "E121" {
			return config.New(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, lc config.LogConfig) (*slog.Logger, error) {
	level, err := lc.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an indented info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
