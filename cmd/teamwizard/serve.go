package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/vendapay/teamwizard/client"
	"github.com/vendapay/teamwizard/internal/config"
	"github.com/vendapay/teamwizard/internal/teamform"
	"github.com/vendapay/teamwizard/pkg/health"
	"github.com/vendapay/teamwizard/pkg/logging"
	"github.com/vendapay/teamwizard/pkg/metrics"
	"github.com/vendapay/teamwizard/pkg/router"
	"github.com/vendapay/teamwizard/pkg/shutdown"
	"github.com/vendapay/teamwizard/pkg/wizard"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the wizard as a LiveView page",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("codec", "phoenix", "WebSocket codec: phoenix, json or msgpack")
	serveCmd.Flags().Bool("dev-mode", false, "disable WebSocket origin checks")
	serveCmd.Flags().Bool("log-json", false, "log as JSON")
}

// newHandler wires the LiveView page, assets, health and metrics endpoints.
func newHandler(cfg *config.Config, logger logging.Logger) (*router.Router, error) {
	steps, err := cfg.Steps()
	if err != nil {
		return nil, err
	}
	codec, err := cfg.WireCodec()
	if err != nil {
		return nil, err
	}
	m, err := metrics.New("teamwizard")
	if err != nil {
		return nil, err
	}
	sender := teamform.DeliveryChain(teamform.LogSender{Logger: logger}, cfg.RetryConfig(), cfg.BreakerConfig(), logger)
	factory, err := teamform.Factory(
		teamform.WithSteps(steps),
		teamform.WithLogger(logger),
		teamform.WithSender(sender),
		teamform.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	coreCfg := cfg.Core()
	opts := []router.Option{
		router.WithConfig(coreCfg),
		router.WithCodec(codec),
		router.WithLogger(logger),
		router.WithMetrics(m),
	}
	if l := cfg.EventLimiter(); l != nil {
		opts = append(opts, router.WithEventLimiter(l))
	}
	r := router.New(opts...)
	r.Use(logging.RequestLogger(logger))
	r.Use(router.Recovery(logger))
	if coreCfg.Security.SecureHeaders {
		r.Use(router.SecureHeaders())
	}

	hc := health.NewChecker(version)
	hc.Register("steps", time.Second, health.StepsCheck(func() wizard.Steps { return steps }))
	hc.Register("live", time.Second, health.SocketManagerCheck(r.SocketManager(), coreCfg.MaxConnections))

	r.Handle("/_live/", http.StripPrefix("/_live/", client.Handler()))
	r.Handle("/healthz", hc.ReadinessHandler())
	r.Handle("/livez", hc.LivenessHandler())
	if cfg.Metrics {
		r.Handle("/metrics", m.Handler())
	}
	r.Live("/{$}", factory)
	return r, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	r, err := newHandler(cfg, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sh := shutdown.NewHandler(&shutdown.Config{
		Timeout: cfg.ShutdownTimeout,
		Logger:  logger,
	})
	sh.Register(shutdown.HTTPServerHook("http", srv.Shutdown))
	sh.RegisterFunc("live", shutdown.PriorityLive, r.Shutdown)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			logging.String("addr", ln.Addr().String()),
			logging.String("codec", cfg.Codec),
			logging.String("version", version),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			cancel()
		}
	}()

	shutdownErr := sh.Wait(ctx)
	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	default:
	}
	return shutdownErr
}
