package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/policyscope/policyscope/internal/api"
	"github.com/policyscope/policyscope/internal/orchestrator"
	"github.com/policyscope/policyscope/internal/settings"
	"github.com/policyscope/policyscope/internal/store"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis service for browser clients",
	Long: `Serve runs the HTTP service that backs browser-side clients. Clients
post tab events (navigations, activations, removals, discovered policy
links) and poll for analyses and badge state.

Settings changes in the config file are picked up live: changing the API
key invalidates cached analyses, and toggling auto-analysis on or off
takes effect immediately.

Example:
  policyscope serve
  policyscope serve --addr :9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: :8477)")
	serveCmd.Flags().BoolVar(&noRobots, "no-robots", false, "skip robots.txt checks")
	serveCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (default: gpt-4o-mini)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	set := settings.New(viper.GetViper())
	if set.Credential() == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			set.Set(settings.KeyAPIKey, key)
		}
	}
	set.Watch()

	st := store.New(cfg.Cache)
	orch := orchestrator.NewDefault(cfg, st, set, nil, orchestrator.LogSink{})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(orch),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
