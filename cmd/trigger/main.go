package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"siteops/internal/config"
	"siteops/internal/httpserver"
	"siteops/internal/trigger"
	"siteops/pkg/logger"
	"siteops/pkg/mq"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	log := logger.NewLogger()
	defer func() { _ = log.Sync() }()

	code := trigger.ExitOK
	cmd := newRootCmd(log, &code)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return trigger.ExitFailure
	}
	return code
}

func newRootCmd(log *zap.Logger, code *int) *cobra.Command {
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Run the scheduled site procedures",
		Long: "Calls publish_scheduled_events and then archive_past_events on the\n" +
			"hosted backend. A failed procedure is logged and does not stop the next.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				log.Error("Failed to load config", zap.Error(err))
				*code = trigger.ExitFailure
				return nil
			}
			// 缺少配置时不做任何网络调用
			if err := cfg.Backend.Validate(); err != nil {
				log.Error(trigger.MsgMissingConfig, zap.Error(err))
				*code = trigger.ExitFailure
				return nil
			}
			if !cmd.Flags().Changed("every") {
				every = cfg.Trigger.Interval
			}

			var opts []trigger.Option
			checks := map[string]httpserver.ReadinessCheck{}
			if cfg.MQ.URL != "" {
				publisher, err := mq.NewPublisher(cfg.MQ.URL)
				if err != nil {
					log.Warn("MQ unavailable, outcome events disabled", zap.Error(err))
				} else {
					defer publisher.Close()
					opts = append(opts, trigger.WithPublisher(publisher))
					checks["mq"] = func(context.Context) error {
						if !publisher.IsConnected() {
							return errMQClosed
						}
						return nil
					}
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			factory := trigger.DefaultBackendFactory(log)
			if every <= 0 {
				*code = trigger.Execute(ctx, cfg, factory, log, opts...)
				return nil
			}
			*code = watch(ctx, cfg, factory, every, log, opts, checks)
			return nil
		},
	}

	cmd.Flags().DurationVar(&every, "every", 0,
		"keep running and trigger on this interval (0 runs once)")
	return cmd
}

var errMQClosed = errors.New("mq connection closed")

// watch runs the procedures on a ticker and serves health and metrics
// until ctx is canceled
func watch(
	ctx context.Context, cfg *config.Config, factory trigger.BackendFactory,
	every time.Duration, log *zap.Logger, opts []trigger.Option,
	checks map[string]httpserver.ReadinessCheck,
) int {
	backend, err := factory(ctx, cfg)
	if err != nil {
		log.Error("Error running scheduled tasks", zap.Error(err))
		return trigger.ExitFailure
	}
	defer backend.Close()

	// HTTP Server (for health checks)
	engine := gin.New()
	engine.Use(gin.Recovery())
	httpserver.RegisterHealth(engine, checks)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	srv := &http.Server{
		Addr:              ":" + cfg.Trigger.HealthPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("Starting scheduled trigger", zap.Duration("every", every))
	trigger.NewRunner(backend, log, opts...).RunEvery(ctx, every)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	log.Info("Scheduled trigger shutdown complete")
	return trigger.ExitOK
}
