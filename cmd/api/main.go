package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/my-mailer/internal/config"
	"github.com/noah-isme/my-mailer/internal/contact"
	"github.com/noah-isme/my-mailer/internal/health"
	"github.com/noah-isme/my-mailer/internal/notify"
	"github.com/noah-isme/my-mailer/internal/obs"
	"github.com/noah-isme/my-mailer/internal/store"
)

// @title        My Mailer API
// @version      0.1.0
// @description  Contact form API with email notifications
// @BasePath     /
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(obs.LogConfig{
		Format: cfg.Obs.LogFormat,
		Level:  cfg.Obs.LogLevel,
		File:   cfg.Obs.LogFile,
	}).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, obs.TracingConfig{
		Enabled:       cfg.Obs.TracingEnabled,
		ServiceName:   health.ServiceName,
		Endpoint:      cfg.Obs.OTLPEndpoint,
		SamplingRatio: cfg.Obs.SamplingRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
		cfg.Obs.TracingEnabled = false
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	var httpMetrics *obs.HTTPMetrics
	if cfg.Obs.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, nil, nil)
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	submissions, err := store.New(initCtx, cfg.Storage)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("initialise storage")
	}

	sender := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		Timeout:  cfg.Mail.Timeout,
	})
	notifier := notify.New(notify.Config{
		Username:   cfg.Mail.Username,
		Password:   cfg.Mail.Password,
		Recipient:  cfg.Mail.Recipient,
		SenderName: cfg.Mail.SenderName,
	}, sender, logger)

	contactService := contact.NewService(submissions, notifier, contact.WithLogger(logger))

	rc := routerConfig{
		Logger:          logger,
		Contact:         contactService,
		Health:          health.Handler{Checker: health.Dependencies{Storage: submissions, Mail: notifier.Configured}},
		Metrics:         httpMetrics,
		Tracing:         cfg.Obs.TracingEnabled,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		BodyLimit:       cfg.BodyLimitBytes,
		SecurityHeaders: cfg.SecurityHeadersEnabled,
		Pprof:           cfg.Debug,
		PprofUser:       cfg.PprofUser,
		PprofPass:       cfg.PprofPass,
	}
	if cfg.Obs.MetricsEnabled {
		rc.MetricsHandler = promhttp.Handler()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           newRouter(rc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logBanner(logger, cfg, notifier.Configured())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Msg("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func logBanner(logger zerolog.Logger, cfg *config.Config, mailEnabled bool) {
	base := "http://localhost" + cfg.HTTPAddr()
	logger.Info().
		Str("addr", cfg.HTTPAddr()).
		Str("swagger", base+"/apidocs").
		Str("contact", base+"/api/contact").
		Str("hello", base+"/api/hello").
		Str("health", base+"/api/health").
		Str("storage", cfg.Storage.Backend).
		Bool("debug", cfg.Debug).
		Msg("my-mailer starting")
	if mailEnabled {
		logger.Info().Str("recipient", cfg.Mail.Recipient).Msg("email: ENABLED")
	} else {
		logger.Warn().Msg("email: DISABLED, set EMAIL_USERNAME and EMAIL_PASSWORD to enable notifications")
	}
}
