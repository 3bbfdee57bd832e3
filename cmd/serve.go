package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zenprocess/open-lovable-cf/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API used by the builder UI.

The server owns at most one active sandbox. Apply requests stream progress
as server-sent events (POST /api/apply-ai-code-stream) or over a websocket
(GET /api/apply-ai-code-ws). By default only requests addressed to
localhost are accepted.

On SIGINT or SIGTERM the server stops accepting requests, waits for
running reconciliations to finish and destroys the active sandbox.`,
	RunE: runServe,
}

var (
	serveListen      string
	serveGracePeriod time.Duration
	serveKeep        bool
)

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Address to listen on (overrides server.listen)")
	serveCmd.Flags().DurationVar(&serveGracePeriod, "grace-period", 30*time.Second, "How long to wait for running requests on shutdown")
	serveCmd.Flags().BoolVar(&serveKeep, "keep", false, "Keep the active sandbox running on exit")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	if serveListen != "" {
		a.Config.Server.Listen = serveListen
	}

	srv, err := a.Server()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logInfo("Listening on http://%s", a.Config.Server.Listen)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logging.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serveGracePeriod)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		if !serveKeep {
			if cerr := a.Close(shutdownCtx); cerr != nil {
				logWarning("Failed to destroy sandbox: %v", cerr)
			}
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logSuccess("Server stopped")
	return nil
}
