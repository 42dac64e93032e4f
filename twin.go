package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"weather-contract-tester/internal/config"
	"weather-contract-tester/internal/logger"
	"weather-contract-tester/internal/twin"
)

type twinOptions struct {
	addr   string
	keys   []string
	envVar string
	delay  time.Duration
	level  string
}

func newTwinCmd() *cobra.Command {
	opts := &twinOptions{}
	cmd := &cobra.Command{
		Use:   "twin",
		Short: "Serve a local stand-in for the weather service",
		Long: `twin serves the current weather and forecast endpoints under ` + twin.BasePath + `
with deterministic bodies for a fixed set of cities. Point environment.base_url
(or run --base-url) at it to exercise the suite offline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveTwin(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.addr, "addr", ":8089", "listen address")
	flags.StringSliceVar(&opts.keys, "key", nil, "accepted API key (repeatable; default from --env-var)")
	flags.StringVar(&opts.envVar, "env-var", config.Default().Environment.Auth.EnvVar, "environment variable holding the accepted API key")
	flags.DurationVar(&opts.delay, "delay", 0, "delay added before every response")
	flags.StringVar(&opts.level, "log-level", "info", "log level")
	return cmd
}

func serveTwin(ctx context.Context, opts *twinOptions) error {
	_ = godotenv.Load()

	keys := opts.keys
	if len(keys) == 0 {
		if k := strings.TrimSpace(os.Getenv(opts.envVar)); k != "" {
			keys = []string{k}
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: pass --key or set %s", config.ErrMissingCredential, opts.envVar)
	}

	log, err := logger.NewLogger(config.LogConfig{Level: opts.level})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	srv := &http.Server{
		Addr:         opts.addr,
		Handler:      twin.NewRouter(twin.Config{APIKeys: keys, Delay: opts.delay}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second + opts.delay,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(twin.Describe(opts.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("twin server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down twin")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
