// Command realtime runs the room coordination WebSocket server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/config"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/health"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/logging"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/ratelimit"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/session"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/tracing"
)

const shutdownGrace = 10 * time.Second

func main() {
	loadDotenv()

	cfg := config.DefaultRealtime()

	rootCmd := &cobra.Command{
		Use:   "realtime",
		Short: "Euphorie realtime room coordination server",
		Long:  "Serves multi-user 3D room sessions over WebSocket: chat, presence, environment state, and screen-share signaling.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
		SilenceUsage: true,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&cfg.Host, "host", cfg.Host, "listen host")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	flags.IntVar(&cfg.MaxConnections, "max-connections", cfg.MaxConnections, "maximum concurrent WebSocket connections")
	flags.IntVar(&cfg.MaxRooms, "max-rooms", cfg.MaxRooms, "maximum live rooms")
	flags.IntVar(&cfg.MaxUsersPerRoom, "max-users-per-room", cfg.MaxUsersPerRoom, "maximum users per room")
	flags.IntVar(&cfg.RateLimitMessagesPerSecond, "rate-limit-messages-per-second", cfg.RateLimitMessagesPerSecond, "per-connection message rate limit")
	flags.IntVar(&cfg.RateLimitBurst, "rate-limit-burst", cfg.RateLimitBurst, "per-connection burst allowance")
	flags.IntVar(&cfg.MaxMessagesPerRoom, "max-messages-per-room", cfg.MaxMessagesPerRoom, "history cap per room")
	flags.IntVar(&cfg.MaxRoomsInCache, "max-rooms-in-cache", cfg.MaxRoomsInCache, "history cache room cap")
	flags.IntVar(&cfg.MessageTTLHours, "message-ttl-hours", cfg.MessageTTLHours, "history message TTL in hours")
	flags.IntVar(&cfg.MaxScreenSharesPerRoom, "max-screen-shares-per-room", cfg.MaxScreenSharesPerRoom, "concurrent screen shares per room (only 1 is supported)")
	flags.IntVar(&cfg.ScreenShareTimeoutSeconds, "screen-share-timeout-seconds", cfg.ScreenShareTimeoutSeconds, "screen share session timeout in seconds")
	flags.IntVar(&cfg.MaxViewersPerShare, "max-viewers-per-share", cfg.MaxViewersPerShare, "viewer cap per screen share")
	flags.BoolVar(&cfg.EnableScreenShareRecording, "enable-screen-share-recording", cfg.EnableScreenShareRecording, "record screen share sessions")
	flags.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable debug logging")
	flags.StringVar(&cfg.CORSOrigin, "cors-origin", cfg.CORSOrigin, "allowed WebSocket origin (empty allows all)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Realtime) error {
	if err := logging.Initialize(cfg.Verbose, "euphorie-realtime"); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		return err
	}

	if collectorAddr := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); collectorAddr != "" {
		tp, err := tracing.InitTracer(ctx, "euphorie-realtime", collectorAddr)
		if err != nil {
			logging.Warn(ctx, "tracing disabled", zap.Error(err))
		} else {
			defer func() { _ = tp.Shutdown(context.Background()) }()
		}
	}

	coordinator := session.NewCoordinator(cfg)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	go coordinator.Run(runCtx)

	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("euphorie-realtime"))

	if cfg.CORSOrigin != "" {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = []string{cfg.CORSOrigin}
		router.Use(cors.New(corsConfig))
	}

	// Per-IP admission limit on upgrade attempts; per-connection message
	// limiting happens inside the coordinator.
	upgradeLimiter, err := ratelimit.NewHTTPMiddleware("120-M")
	if err != nil {
		return fmt.Errorf("build upgrade limiter: %w", err)
	}

	router.GET("/ws", upgradeLimiter, coordinator.ServeWS)
	router.GET("/", upgradeLimiter, coordinator.ServeWS)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	healthHandler := health.NewHandler()
	healthHandler.Register("connections", func(context.Context) error {
		if coordinator.Hub().Len() >= cfg.MaxConnections {
			return fmt.Errorf("connection limit reached (%d)", cfg.MaxConnections)
		}
		return nil
	})
	router.GET("/healthz", healthHandler.Liveness)
	router.GET("/readyz", healthHandler.Readiness)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info(ctx, "realtime server listening", zap.String("addr", cfg.Addr()))
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

	cancelRun()
	coordinator.Shutdown(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "server forced to shut down", zap.Error(err))
	}

	logging.Info(ctx, "server exited")
	return nil
}

// loadDotenv probes the usual locations so the binary works from the repo
// root and from cmd/v1/realtime alike.
func loadDotenv() {
	for _, path := range []string{".env", "../../../.env", "../../.env"} {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}
