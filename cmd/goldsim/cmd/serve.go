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

	"github.com/rustyeddy/goldsim/api"
	"github.com/rustyeddy/goldsim/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the simulator behind the HTTP API",
	Long: `Start a session and serve it over HTTP.

The price ticks on the configured interval while the session is active.
Clients can watch it on the /api/stream websocket.

Examples:
  goldsim serve
  goldsim serve --addr :9090 --inactive
  goldsim serve -c goldsim.yaml`,
	RunE: runServe,
}

var (
	serveAddr     string
	serveInactive bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address; overrides the config")
	serveCmd.Flags().BoolVar(&serveInactive, "inactive", false, "start with the session deactivated")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	log := newLogger(cfg)

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	sess, err := newSession(cfg, scheduler.NewCron("price-tick", log), j, log)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !serveInactive {
		if err := sess.Activate(); err != nil {
			return fmt.Errorf("activate session: %w", err)
		}
	}
	defer sess.Deactivate()

	srv := api.New(api.Config{
		Addr:       cfg.Server.Addr,
		CORSOrigin: cfg.Server.CORSOrigin,
		Session:    sess,
		Log:        log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
