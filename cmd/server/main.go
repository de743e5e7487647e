// Package main initializes and starts the GridCaptcha server, setting up
// configuration, logging, the answer store, the optional replay guard,
// services, handlers, and TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/GridCaptcha/internal/config"
	"github.com/atinyakov/GridCaptcha/internal/db"
	"github.com/atinyakov/GridCaptcha/internal/logger"
	"github.com/atinyakov/GridCaptcha/internal/replay"
	"github.com/atinyakov/GridCaptcha/internal/repository"
	"github.com/atinyakov/GridCaptcha/internal/server/handler/http"
	"github.com/atinyakov/GridCaptcha/internal/service"
	"github.com/atinyakov/GridCaptcha/internal/token"
	"github.com/atinyakov/GridCaptcha/internal/widget"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection and schema.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Single-use tokens are enabled only when Redis is configured.
	var guard replay.Guard
	if options.RedisAddr != "" {
		rdb, err := replay.Connect(ctx, options.RedisAddr, options.RedisPassword, options.RedisDB)
		if err != nil {
			zapLogger.Fatal("cannot connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		guard = replay.NewRedisGuard(rdb)
		zapLogger.Info("single-use verification tokens enabled", zap.String("redis", options.RedisAddr))
	}

	if options.OperatorSecret == "" {
		zapLogger.Warn("operator secret is empty; bearer tokens are disabled, only client certificates authenticate operators")
	}

	// Token codec is shared by minting and validation.
	var secret []byte
	if options.TokenSecret != "" {
		secret = []byte(options.TokenSecret)
	}
	codec := token.NewCodec(secret)

	// Initialize repositories and business-logic services.
	captchaRepo := repository.NewPostgresCaptchaRepository(postgresDB)
	captchaService := service.NewCaptchaService(captchaRepo)
	verifyService := service.NewVerifyService(captchaRepo, token.NewMinter(codec, nil))
	validationService := service.NewValidationService(
		token.NewVerifier(codec, options.TokenMaxAge.Duration, nil),
		guard,
	)

	renderer, err := widget.New(options.BaseURL)
	if err != nil {
		zapLogger.Fatal("cannot load widget script", zap.Error(err))
	}

	// Create HTTP handlers.
	captchaHandler := &http.CaptchaHandler{CaptchaService: captchaService, Logger: zapLogger}
	widgetHandler := &http.WidgetHandler{
		Captchas:  captchaService,
		Verifier:  verifyService,
		Validator: validationService,
		Renderer:  renderer,
		Logger:    zapLogger,
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(captchaHandler, widgetHandler, http.Health(postgresDB), http.RouterConfig{
		OperatorSecret: []byte(options.OperatorSecret),
		CORSOrigins:    options.CORSOrigins,
	}, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if options.TLSEnabled() {
		tlsConfig, err := serverTLS(options)
		if err != nil {
			zapLogger.Fatal("failed to configure TLS", zap.Error(err))
		}
		server.TLSConfig = tlsConfig
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	if server.TLSConfig != nil {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
		err = server.ListenAndServeTLS("", "")
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}

// serverTLS loads the server key pair and, when configured, the CA used to
// verify operator client certificates.
func serverTLS(options *config.Options) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(options.TLSCert, options.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("load server TLS cert/key: %w", err)
	}
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if options.TLSClientCA == "" {
		return tlsConfig, nil
	}

	caCert, err := os.ReadFile(options.TLSClientCA)
	if err != nil {
		return nil, fmt.Errorf("read CA cert: %w", err)
	}
	caCertPool := x509.NewCertPool()
	if ok := caCertPool.AppendCertsFromPEM(caCert); !ok {
		return nil, errors.New("failed to append CA cert to pool")
	}
	// Widget visitors present no certificate; operators may.
	tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
	tlsConfig.ClientCAs = caCertPool
	return tlsConfig, nil
}
