package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tgienger/teamboard/internal/rest"
)

var (
	serveAddr     string
	purgeInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().DurationVar(&purgeInterval, "purge-interval", time.Hour, "how often expired sessions are removed; 0 disables")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.HTTP.Addr = serveAddr
	}

	deps := rest.NewDeps(cfg, database, log)
	server, err := rest.NewServer(cfg.HTTP, deps)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if purgeInterval > 0 {
		go purgeSessions(ctx, deps, purgeInterval)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	color.Green("teamboard listening on %s", cfg.HTTP.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func purgeSessions(ctx context.Context, deps rest.Deps, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := deps.Auth.PurgeExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("failed to purge expired sessions")
				continue
			}
			if n > 0 {
				log.WithField("count", n).Info("expired sessions purged")
			}
		}
	}
}
