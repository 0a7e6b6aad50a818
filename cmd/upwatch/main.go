package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ankityadav/upwatch/internal/checker"
	"github.com/ankityadav/upwatch/internal/config"
	"github.com/ankityadav/upwatch/internal/logger"
	"github.com/ankityadav/upwatch/internal/notifier"
	"github.com/ankityadav/upwatch/internal/probe"
	"github.com/ankityadav/upwatch/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:           "upwatch",
	Short:         "HTTP uptime monitor with incidents and on-call",
	Long:          "A terminal-based uptime monitor that tracks incidents, downtime and who is on call",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default ~/.config/upwatch/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every command shares: configuration, logging and storage.
type app struct {
	cfg      *config.File
	log      *logger.Logger
	db       *storage.Database
	notifier *notifier.Notifier
}

func loadApp() (*app, error) {
	path := configPath
	if path == "" {
		p, err := config.GetConfigFilePath()
		if err != nil {
			return nil, fmt.Errorf("failed to locate config file: %w", err)
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.OutputPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		if dbPath, err = config.GetDatabasePath(); err != nil {
			return nil, fmt.Errorf("failed to get database path: %w", err)
		}
	}

	db, err := storage.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		notifier: notifier.New(cfg.Notifications, log),
	}, nil
}

func (a *app) engine() *checker.Engine {
	e := checker.New(a.db, probe.New(a.log), a.notifier, a.log)
	e.SetIncidentLookback(a.cfg.History.IncidentLookback)
	return e
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("failed to close database", "error", err)
	}
	_ = a.log.Sync()
}

// withApp adapts a command body that needs the shared app.
func withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func parseID(arg string) (uint, error) {
	var id uint
	if _, err := fmt.Sscanf(arg, "%d", &id); err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
