package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	bm "github.com/charmbracelet/wish/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ankityadav/upwatch/internal/checker"
	"github.com/ankityadav/upwatch/internal/tray"
	"github.com/ankityadav/upwatch/internal/tui"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start monitoring with the TUI (headless when not on a terminal)",
	RunE:  withApp(runStart),
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the monitoring service in the background (no TUI)",
	RunE:  withApp(runDaemon),
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the real-time dashboard with response time graphs",
	RunE:  withApp(runDashboard),
}

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Monitor from the system tray",
	RunE:  withApp(runTray),
}

var serveSSHCmd = &cobra.Command{
	Use:   "serve-ssh",
	Short: "Monitor and serve the dashboard over SSH",
	RunE:  withApp(runServeSSH),
}

var sshAddress string

func init() {
	rootCmd.AddCommand(startCmd, daemonCmd, dashboardCmd, trayCmd, serveSSHCmd)

	serveSSHCmd.Flags().StringVar(&sshAddress, "address", "", "Listen address (overrides ssh.address in config)")
}

// startEngine schedules every enabled target. The returned stop func cancels
// all timers and in-flight checks.
func startEngine(ctx context.Context, a *app) (*checker.Engine, func(), error) {
	e := a.engine()
	if err := e.StartAll(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start checker: %w", err)
	}
	return e, e.StopAll, nil
}

func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func runStart(cmd *cobra.Command, a *app, args []string) error {
	if !isTerminal() {
		return runDaemon(cmd, a, args)
	}

	ctx, cancel := signalContext()
	defer cancel()

	engine, stop, err := startEngine(ctx, a)
	if err != nil {
		return err
	}
	defer stop()

	p := tea.NewProgram(tui.New(a.db, engine), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func runDaemon(cmd *cobra.Command, a *app, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	_, stop, err := startEngine(ctx, a)
	if err != nil {
		return err
	}

	a.log.Info("Monitoring service started in daemon mode")
	<-ctx.Done()

	a.log.Info("Shutting down...")
	stop()
	return nil
}

func runDashboard(cmd *cobra.Command, a *app, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	_, stop, err := startEngine(ctx, a)
	if err != nil {
		return err
	}
	defer stop()

	p := tea.NewProgram(tui.NewDashboard(a.db), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("dashboard error: %w", err)
	}
	return nil
}

func runTray(cmd *cobra.Command, a *app, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	engine, stop, err := startEngine(ctx, a)
	if err != nil {
		return err
	}
	defer stop()

	tray.New(a.db, engine, a.log).Run()
	return nil
}

func runServeSSH(cmd *cobra.Command, a *app, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	_, stop, err := startEngine(ctx, a)
	if err != nil {
		return err
	}
	defer stop()

	addr := sshAddress
	if addr == "" {
		addr = a.cfg.SSH.Address
	}
	authKeysPath := a.cfg.SSH.AuthorizedKeys

	s, err := wish.NewServer(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(a.cfg.SSH.HostKeyPath),
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			data, err := os.ReadFile(authKeysPath)
			if err != nil {
				return false
			}
			return isKeyAllowed(data, key)
		}),
		wish.WithMiddleware(
			bm.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				return tui.NewDashboard(a.db), []tea.ProgramOption{tea.WithAltScreen()}
			}),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create ssh server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()
	a.log.Info("Serving dashboard over SSH", "address", addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			return fmt.Errorf("ssh server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("Shutting down...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return s.Shutdown(shutdownCtx)
}

// isKeyAllowed reports whether key appears in an authorized_keys file.
func isKeyAllowed(authFileData []byte, incomingKey ssh.PublicKey) bool {
	for len(authFileData) > 0 {
		allowedKey, _, _, rest, err := ssh.ParseAuthorizedKey(authFileData)
		if err != nil {
			return false
		}
		if ssh.KeysEqual(allowedKey, incomingKey) {
			return true
		}
		authFileData = rest
	}
	return false
}
