package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/knsuzuki/shopmail/internal/api"
	"github.com/knsuzuki/shopmail/internal/build"
	"github.com/knsuzuki/shopmail/internal/config"
	"github.com/knsuzuki/shopmail/internal/scheduler"
	"github.com/knsuzuki/shopmail/internal/server"
)

// NewServeCmd returns the "serve" subcommand that starts the HTTP server.
func NewServeCmd(cfg *config.AppConfig) *cobra.Command {
	var port int
	var reload time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mail API server",
		Long: `Start the shopmail HTTP server. The storefront posts mail requests to
/api/mail/{kind}; Prometheus metrics are served at /metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// CLI flags override env config.
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("template-reload") {
				cfg.TemplateReload = reload
			}

			serverURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
			logFile := filepath.Join(cfg.LogDir(), "system.log")
			printBanner(build.Version, serverURL, logFile)

			if err := runServe(cmd.Context(), cfg); err != nil {
				fmt.Fprintf(os.Stderr, "An error occurred. Please check the logs at: %s\n", logFile)
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", cfg.Port, "HTTP server port (overrides PORT env var)")
	cmd.Flags().DurationVar(&reload, "template-reload", cfg.TemplateReload,
		"Re-read mail templates at this interval, 0 to disable (overrides SHOPMAIL_TEMPLATE_RELOAD)")

	return cmd
}

func runServe(parent context.Context, cfg *config.AppConfig) error {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if cfg.TemplateReload > 0 {
		sched, err := scheduler.New(a.logger)
		if err != nil {
			a.logger.Error("scheduler setup failed", "error", err)
			return err
		}
		if err := sched.Add(scheduler.TemplateReloadJob(a.renderer, cfg.TemplateReload, a.logger)); err != nil {
			a.logger.Error("scheduling template reload failed", "error", err)
			return err
		}
		sched.Start()
		defer func() {
			if err := sched.Stop(); err != nil {
				a.logger.Warn("scheduler shutdown failed", "error", err)
			}
		}()
	}

	verifier := api.NewTokenVerifier(cfg.JWTSecret)
	if verifier == nil {
		a.logger.Warn("SHOPMAIL_JWT_SECRET is not set; mail API is unauthenticated")
	}
	apiSrv := api.New(a.mailSvc, verifier, a.logger)
	srv := server.New(apiSrv, server.Options{
		Port:        cfg.Port,
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     a.telemetry.MetricsHandler(),
	}, a.logger)

	a.logger.Info("server ready",
		slog.String("url", fmt.Sprintf("http://localhost:%d", cfg.Port)),
		slog.String("data_dir", cfg.DataDir),
		slog.String("commit", build.CommitSHA),
		slog.String("build_date", build.BuildDate),
	)
	if err := srv.Run(ctx); err != nil {
		a.logger.Error("server stopped", "error", err)
		return err
	}
	return nil
}

// printBanner writes the startup banner to stdout. It is the only output
// visible in the terminal during normal operation; all structured logs go
// to the log file instead.
func printBanner(version, serverURL, logFile string) {
	fmt.Print(`
     _                                 _ _
 ___| |__   ___  _ __  _ __ ___   __ _(_) |
/ __| '_ \ / _ \| '_ \| '_ ` + "`" + ` _ \ / _` + "`" + ` | | |
\__ \ | | | (_) | |_) | | | | | | (_| | | |
|___/_| |_|\___/| .__/|_| |_| |_|\__,_|_|_|
                |_|

`)
	fmt.Printf("shopmail %s running.\n", version)
	fmt.Printf("API: %s/api/mail\n", serverURL)
	fmt.Printf("Logs: %s\n\n", logFile)
}
