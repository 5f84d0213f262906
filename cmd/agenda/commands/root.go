// ABOUTME: Root command with global flags and logger setup
// ABOUTME: Opens the wired app on demand for subcommands
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/harper/agenda/internal/app"
	"github.com/harper/agenda/internal/config"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string

	logger *zap.Logger
)

// newApp builds the app for a command; tests replace it to inject stub models
var newApp = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}

const banner = `
 █████╗  ██████╗ ███████╗███╗   ██╗██████╗  █████╗
██╔══██╗██╔════╝ ██╔════╝████╗  ██║██╔══██╗██╔══██╗
███████║██║  ███╗█████╗  ██╔██╗ ██║██║  ██║███████║
██╔══██║██║   ██║██╔══╝  ██║╚██╗██║██║  ██║██╔══██║
██║  ██║╚██████╔╝███████╗██║ ╚████║██████╔╝██║  ██║
╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚═╝  ╚═══╝╚═════╝ ╚═╝  ╚═╝`

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Natural-language notes and events",
		Long: banner + `

Agenda turns plain sentences into notes and scheduled events.

Each request is classified by majority vote, its fields are extracted,
and the change lands in a relational store with a semantic index kept
in step beside it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose && quiet {
				return errors.New("--verbose and --quiet are mutually exclusive")
			}
			_ = godotenv.Load()

			zcfg := zap.NewProductionConfig()
			switch {
			case verbose:
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			case quiet:
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
			default:
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			}
			var err error
			logger, err = zcfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print results")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table or json")

	cmd.AddCommand(
		NewAskCmd(),
		NewListCmd(),
		NewSearchCmd(),
		NewExportCmd(),
		NewReindexCmd(),
		NewReconcileCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)
	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// openApp loads configuration and wires the app for one command
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a, err := newApp(cmd.Context(), cfg, cmdLogger())
	if err != nil {
		return nil, fmt.Errorf("initializing agenda: %w", err)
	}
	return a, nil
}

func cmdLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
