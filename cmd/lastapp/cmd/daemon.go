package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/actionsum/lastapp/internal/config"
	"github.com/actionsum/lastapp/internal/daemon"
	"github.com/actionsum/lastapp/internal/database"
	"github.com/actionsum/lastapp/internal/logger"
	"github.com/actionsum/lastapp/internal/metrics"
	"github.com/actionsum/lastapp/internal/service"
	"github.com/actionsum/lastapp/internal/web"
	"github.com/actionsum/lastapp/pkg/detector"
)

var webPort int

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, dm, err := prepareDaemon()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return runDaemon(ctx, cfg, dm)
		},
	}

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := prepareDaemon()
			if err != nil {
				return err
			}

			args := []string{os.Args[0], "serve"}
			if configPath != "" {
				args = append(args, "--config", configPath)
			}
			if logLevel != "" {
				args = append(args, "--log-level", logLevel)
			}
			if webPort > 0 {
				args = append(args, "--port", fmt.Sprint(webPort))
			}

			pid, err := daemon.Spawn(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon started successfully (PID: %d)\n", pid)
			fmt.Fprintf(out, "API: %s\n", cfg.APIAddress())
			fmt.Fprintf(out, "Logs: %s\n", cfg.Daemon.LogFile)
			return nil
		},
	}

	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop the background daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			dm := daemon.New(cfg.Daemon.PIDFile)
			running, pid, err := dm.IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stopping daemon (PID: %d)...\n", pid)
			if err := dm.Stop(); err != nil {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped successfully")
			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	for _, c := range []*cobra.Command{serveCmd, startCmd} {
		c.Flags().IntVarP(&webPort, "port", "p", 0, "override the API port")
	}
	rootCmd.AddCommand(serveCmd, startCmd, stopCmd)
}

func prepareDaemon() (*config.Config, *daemon.Daemon, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if webPort > 0 {
		if err := cfg.SetWebPort(webPort); err != nil {
			return nil, nil, err
		}
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running && pid != os.Getpid() {
		return nil, nil, fmt.Errorf("daemon is already running (PID: %d)", pid)
	}
	return cfg, dm, nil
}

func runDaemon(ctx context.Context, cfg *config.Config, dm *daemon.Daemon) error {
	if daemon.IsChild() && cfg.Daemon.LogFile != "" {
		logFile, err := os.OpenFile(cfg.Daemon.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			logger.RedirectTo(logFile)
			defer logFile.Close()
		}
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		return err
	}

	sess, err := detector.Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to inspect session: %w", err)
	}
	defer sess.Close()

	logger.InfoKV(ctx, "session inspected",
		"display_server", sess.DisplayServer,
		"compositor", sess.Compositor,
		"protocol", sess.Protocol,
		"watch_mode", sess.WatchMode)

	if err := dm.WritePID(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer dm.RemovePID()

	repo := database.NewRepository(db)
	m := metrics.New()

	deps := service.Deps{
		Probe:         sess.Probe,
		Activator:     sess.Requester,
		Protocol:      string(sess.Protocol),
		DisplayServer: sess.DisplayServer,
		Repo:          repo,
		Metrics:       m,
	}
	if sess.Feed != nil {
		deps.Feed = sess.Feed
	}
	svc := service.NewService(cfg, deps)

	webServer := web.NewServer(cfg, &web.Handler{Backend: svc, Store: repo, Metrics: m.Handler()}, 0)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svcDone := make(chan error, 1)
	go func() {
		svcDone <- svc.Start(ctx)
	}()

	// triggers are only accepted once the loop can answer them
	select {
	case <-svc.Ready():
	case err := <-svcDone:
		return fmt.Errorf("service failed to start: %w", err)
	}

	webErr := make(chan error, 1)
	go func() {
		if err := webServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			webErr <- fmt.Errorf("web server: %w", err)
			cancel()
		}
	}()

	logger.Infof(ctx, "lastapp daemon started, API at %s", cfg.APIAddress())
	logger.Debugf(ctx, "%s", cfg.String())

	var svcErr error
	select {
	case <-ctx.Done():
		svcErr = <-svcDone
	case svcErr = <-svcDone:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := webServer.Shutdown(shutdownCtx); err != nil {
		logger.WarnKV(ctx, "error shutting down web server", "error", err)
	}

	select {
	case err := <-webErr:
		return err
	default:
	}
	if svcErr != nil && !errors.Is(svcErr, context.Canceled) {
		return svcErr
	}
	logger.Info(ctx, "daemon stopped successfully")
	return nil
}
