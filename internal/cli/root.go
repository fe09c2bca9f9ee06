// Package cli implements the pitchside command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/pitchside/internal/adapters/repository"
	service "github.com/okian/pitchside/internal/app"
	"github.com/okian/pitchside/internal/config"
	"github.com/okian/pitchside/pkg/logger"
)

// app carries the flags and state shared by every subcommand.
type app struct {
	configPath string
	dbPath     string
	logLevel   string

	cfg *config.Config
	log logger.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "pitchside",
		Short: "Match-video annotation reconciliation",
		Long: "Plan analysis windows over classified match segments, reconcile the " +
			"annotator's overlapping detections into one event timeline and derive " +
			"formations and tactical patterns from it.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file (default $"+config.EnvFile+")")
	flags.StringVar(&a.dbPath, "db", "", "path to SQLite database (default storage.dsn)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(a.serveCmd())
	root.AddCommand(a.planCmd())
	root.AddCommand(a.analyzeCmd())
	root.AddCommand(a.showCmd())
	root.AddCommand(a.versionsCmd())
	root.AddCommand(a.synthCmd())
	root.AddCommand(a.loadtestCmd())
	return root
}

// Execute runs the root command until SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration, applies flag overrides and initializes logging.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	path := a.configPath
	if path == "" {
		path = os.Getenv(config.EnvFile)
	}
	cfg, err := config.LoadFile(cmd.Context(), path)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		cfg.Storage.DSN = a.dbPath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	if err := logger.InitWriter(cmd.ErrOrStderr(), cfg.LogJSON); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	a.cfg = cfg
	a.log = logger.Get()
	return nil
}

// service builds the pipeline, attaching the store when a DSN is configured.
// The returned func closes the store.
func (a *app) service(ctx context.Context, opts ...service.Option) (*service.Service, func(), error) {
	opts = append([]service.Option{
		service.WithLogger(a.log),
		service.WithConfig(*a.cfg),
	}, opts...)

	closeStore := func() {}
	if dsn := a.cfg.Storage.DSN; dsn != "" {
		st, err := repository.Open(ctx, dsn, repository.WithLogger(a.log))
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, service.WithStore(st))
		closeStore = func() {
			if err := st.Close(); err != nil {
				a.log.Warn(ctx, "close store failed", logger.Error(err))
			}
		}
	}

	svc, err := service.New(opts...)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return svc, closeStore, nil
}

// readInput reads a file argument; "-" reads standard input.
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
