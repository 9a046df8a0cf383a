// Command assistant runs the Jarvis AI sidecar HTTP service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/assistant"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/config"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/logging"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/news"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/vision"
)

const shutdownGrace = 10 * time.Second

func main() {
	loadDotenv()

	cfg := config.DefaultAssistant()

	rootCmd := &cobra.Command{
		Use:   "assistant",
		Short: "Euphorie AI assistant service",
		Long:  "Serves the Jarvis chat responder, vision analysis forwarding, and the news feed proxy.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
		SilenceUsage: true,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&cfg.Host, "host", cfg.Host, "listen host")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	flags.StringVar(&cfg.VisionBackendURL, "vision-backend-url", cfg.VisionBackendURL, "vision analysis backend URL")
	flags.StringVar(&cfg.NewsFeedURL, "news-feed-url", cfg.NewsFeedURL, "upstream news feed URL (empty disables the endpoint)")
	flags.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Assistant) error {
	if err := logging.Initialize(cfg.Verbose, "euphorie-assistant"); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		return err
	}

	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	svc := assistant.NewService(
		vision.NewClient(cfg.VisionBackendURL),
		news.NewClient(cfg.NewsFeedURL),
	)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: svc.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info(ctx, "assistant listening", zap.String("addr", cfg.Addr()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-quit:
		logging.Info(ctx, "shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "server forced to shut down", zap.Error(err))
	}

	logging.Info(ctx, "assistant exited")
	return nil
}

func loadDotenv() {
	for _, path := range []string{".env", "../../../.env", "../../.env"} {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}
