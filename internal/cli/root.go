// Package cli defines the sommarioni command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sommarioni/sommarioni/internal/app"
	"github.com/sommarioni/sommarioni/internal/config"
	"github.com/sommarioni/sommarioni/internal/logging"
)

// Build-time variables injected via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	Refresh    bool
}

// Context carries the initialised dependencies through the command tree.
type Context struct {
	Config *config.Config
	Logger logging.Logger
	App    *app.App
}

type contextKey struct{}

// NewRootCommand creates the root command with its global flags and
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sommarioni",
		Short: "Join the 1808 Sommarioni land registry to its parcel geometries",
		Long: "sommarioni joins the Napoleonic land registry of Venice to the parcel\n" +
			"geometries, derives the thematic map views and serves them over HTTP.",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd, opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cc, ok := cmd.Context().Value(contextKey{}).(*Context); ok {
				cc.Logger.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (YAML or JSON)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.LogFormat, "log-format", "", "log encoding (json, console)")
	pf.BoolVar(&opts.Refresh, "refresh", false, "discard cached datasets before loading")

	cmd.AddCommand(
		newEnrichCmd(),
		newTablesCmd(),
		newIndexCmd(),
		newWalkabilityCmd(),
		newServeCmd(),
	)
	return cmd
}

func setup(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if opts.Refresh {
		if err := a.PurgeCache(); err != nil {
			return err
		}
	}

	cmd.SetContext(context.WithValue(ctx, contextKey{}, &Context{Config: cfg, Logger: logger, App: a}))
	return nil
}

// FromCommand returns the context set up by the root command.
func FromCommand(cmd *cobra.Command) (*Context, error) {
	cc, ok := cmd.Context().Value(contextKey{}).(*Context)
	if !ok {
		return nil, fmt.Errorf("command context not initialised")
	}
	return cc, nil
}

// Execute runs the command tree with args and returns the process exit
// code. Errors are printed to the command's error stream.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
