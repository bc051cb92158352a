package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"newsroom/internal/config"
	"newsroom/internal/logger"
	"newsroom/internal/schedule"
	"newsroom/internal/server"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the serve command for starting the HTTP server
func NewServeCmd() *cobra.Command {
	var (
		port      int
		host      string
		scheduler bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the newsroom HTTP API.

The server provides:
  • Newsletter generation for a user
  • Delivery history per user
  • A protected trigger for due schedules
  • Health check and status endpoints

With --scheduler the process also runs due schedules every schedule.interval.

Examples:
  # Start server on default port 8080
  newsroom serve

  # Start on a custom port with the scheduler enabled
  newsroom serve --port 3000 --scheduler`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host, scheduler)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")
	cmd.Flags().BoolVar(&scheduler, "scheduler", false, "Run due schedules in the background")

	return cmd
}

func runServe(ctx context.Context, port int, host string, scheduler bool) error {
	log := logger.Get()
	cfg := config.Get()

	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	db, err := openDatabase(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("Database connection successful", "driver", db.Driver())

	p, err := newPipeline(ctx, cfg, db)
	if err != nil {
		return err
	}

	var runner *schedule.Runner
	if deliverer, err := newDeliverer(cfg); err != nil {
		log.Warn("Delivery transport unavailable, schedule runs disabled", "error", err)
	} else {
		runner = schedule.NewRunner(db, p, deliverer).
			WithPassTimeout(config.Duration(cfg.Schedule.PassTimeout, schedule.DefaultPassTimeout))
	}

	var srv *server.Server
	if runner != nil {
		srv = server.New(db, p, runner, serverCfg)
	} else {
		srv = server.New(db, p, nil, serverCfg)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if scheduler && runner != nil {
		interval := config.Duration(cfg.Schedule.Interval, 10*time.Minute)
		go func() {
			if err := runner.Start(runCtx, interval); err != nil {
				log.Error("Scheduler stopped", "error", err)
			}
		}()
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())
		cancel()

		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		log.Info("Server stopped successfully")
	}

	return nil
}
