package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warp/loyalty-engine/api"
	"github.com/warp/loyalty-engine/config"
	"github.com/warp/loyalty-engine/logging"
	"github.com/warp/loyalty-engine/loyalty"
	"github.com/warp/loyalty-engine/store/sqlite"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	DBPath     string // overrides db.path when set
}

// NewRootCommand creates the root command for the loyalty engine CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "loyalty",
		Short:         "Pharmacy loyalty campaign engine",
		Long:          "Records counter purchases against loyalty campaigns and reports client progress.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite database path, overrides db.path")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewNormalizeCommand())
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

// runtime is the wiring shared by commands that touch the store.
type runtime struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *sqlite.Store
	clock   loyalty.Clock
	handler *api.Handler
}

func (opts *RootOptions) open() (*runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.DBPath != "" {
		cfg.DB.Path = opts.DBPath
	}

	log, err := logging.New(cfg.App.Env, cfg.App.Name, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clock := loyalty.SystemClock{Location: loc}

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	h := api.NewHandler(api.SQLiteBackend(store), clock, log)
	h.Recorder.CurrencySymbol = cfg.Loyalty.CurrencySymbol

	return &runtime{cfg: cfg, log: log, store: store, clock: clock, handler: h}, nil
}

func (rt *runtime) Close() {
	rt.store.Close()
	rt.log.Sync()
}
