package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/hazz-dev/easycheck/internal/alert"
	"github.com/hazz-dev/easycheck/internal/checker"
	"github.com/hazz-dev/easycheck/internal/config"
	"github.com/hazz-dev/easycheck/internal/logger"
	"github.com/hazz-dev/easycheck/internal/metrics"
	"github.com/hazz-dev/easycheck/internal/override"
	"github.com/hazz-dev/easycheck/internal/scheduler"
	"github.com/hazz-dev/easycheck/internal/server"
	"github.com/hazz-dev/easycheck/internal/state"
	"github.com/hazz-dev/easycheck/internal/version"
)

const shutdownTimeout = 10 * time.Second

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var flags *config.Flags
	root := &cobra.Command{
		Use:          "easycheck",
		Short:        "Liveness endpoint backed by periodic HTTP and TCP checks",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile, flags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML config file")
	flags = config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(versionCmd())
	root.AddCommand(checkCmd(flags))

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "easycheck %s\n", version.String())
		},
	}
}

func runServe(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)
	log.Info("starting easycheck",
		"version", version.Version,
		"bind", cfg.Bind,
		"interval", cfg.RevalidationInterval.Duration,
	)

	// 1. Build checkers and scheduler
	checkers, err := checker.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("building checks: %w", err)
	}
	for _, c := range checkers {
		log.Info("check configured", "check", c.Name())
	}
	exec := scheduler.NewExecutor(checkers, log)
	if exec.Len() == 0 {
		log.Warn("no checks configured, status depends on marker files only")
	}

	holder := state.New()
	sched, err := scheduler.New(exec, holder, cfg.RevalidationInterval.Duration, log)
	if err != nil {
		return err
	}

	// 2. Optional metrics and alerting
	var m *metrics.Metrics
	if cfg.Metrics.Bind != "" {
		m = metrics.New()
	}
	var alerter *alert.Alerter
	if cfg.Alerts.WebhookURL != "" {
		alerter = alert.New(cfg.Alerts.WebhookURL, cfg.Alerts.Cooldown.Duration, log)
	}
	sched.SetOnCycle(func(c scheduler.Cycle) {
		if m != nil {
			m.ObserveCycle(c.Results, c.Snapshot, c.Elapsed)
		}
		if alerter != nil {
			alerter.Notify(c.Previous, c.Snapshot)
		}
	})

	// 3. Health endpoint
	resolver := override.New(cfg.MaintenanceFile, cfg.ForceSuccessFile, holder, override.WithLogger(log))
	var opts []server.Option
	if m != nil {
		opts = append(opts, server.WithRecorder(m))
	}
	api := server.New(resolver, log, opts...)

	servers := []*http.Server{{
		Addr:              cfg.Bind,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}}
	if m != nil {
		r := chi.NewRouter()
		r.Handle("/metrics", m.Handler())
		servers = append(servers, &http.Server{
			Addr:              cfg.Metrics.Bind,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	// Bind before starting anything so address errors fail startup.
	listeners := make([]net.Listener, 0, len(servers))
	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return fmt.Errorf("listening on %s: %w", srv.Addr, err)
		}
		listeners = append(listeners, ln)
	}

	// 4. Signal context for graceful shutdown
	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	sched.Start(ctx)

	serverErr := make(chan error, len(servers))
	for i, srv := range servers {
		i, srv := i, srv // per-iteration copies (go 1.21 loop semantics)
		go func() {
			log.Info("listening", "address", listeners[i].Addr().String())
			if err := srv.Serve(listeners[i]); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		runErr = fmt.Errorf("HTTP server: %w", err)
		stop()
	}

	// 5. Graceful shutdown
	sched.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown", "address", srv.Addr, "error", err)
		}
	}
	if alerter != nil {
		alerter.Wait()
	}

	log.Info("shutdown complete")
	return runErr
}
