// Package main initializes and starts the contacts API server,
// setting up configuration, logging, database connections, repositories,
// services, handlers, mail delivery and avatar storage.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/GophContacts/internal/avatar"
	"github.com/atinyakov/GophContacts/internal/config"
	"github.com/atinyakov/GophContacts/internal/db"
	"github.com/atinyakov/GophContacts/internal/logger"
	"github.com/atinyakov/GophContacts/internal/mail"
	"github.com/atinyakov/GophContacts/internal/repository"
	"github.com/atinyakov/GophContacts/internal/security"
	"github.com/atinyakov/GophContacts/internal/server/handler/http"
	"github.com/atinyakov/GophContacts/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line, file and environment configuration.
	options, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection and migrate the schema.
	postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Remove accounts that never confirmed their email.
	if options.CleanupInterval > 0 {
		db.StartUnconfirmedCleaner(ctx, postgresDB,
			options.CleanupInterval,
			options.UnconfirmedRetention,
			zapLogger,
		)
	}

	// Initialize repositories.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	contactRepo := repository.NewPostgresContactRepository(postgresDB)

	// Token signing and password hashing.
	tokens, err := security.NewTokenService(options.SecretKey, options.Algorithm, security.TTLs{
		Access:            options.AccessTokenTTL,
		Refresh:           options.RefreshTokenTTL,
		EmailVerification: options.EmailTokenTTL,
	})
	if err != nil {
		zapLogger.Fatal("cannot init token service", zap.Error(err))
	}
	hasher := security.NewPasswordHasher(options.BcryptCost)

	// Verification mail goes through Postmark when configured, the log otherwise.
	var sender mail.Sender = mail.LogSender{Log: zapLogger}
	if options.MailEnabled() {
		pm, err := mail.NewPostmarkSender(options.PostmarkServerToken, options.PostmarkAccountToken, options.MailFrom)
		if err != nil {
			zapLogger.Fatal("cannot init mail sender", zap.Error(err))
		}
		sender = pm
	} else {
		zapLogger.Warn("postmark is not configured, verification mail will only be logged")
	}
	dispatcher := mail.NewDispatcher(sender, options.BaseURL, zapLogger)
	dispatcher.Start()

	// Avatar uploads are disabled without a bucket.
	var avatars service.AvatarStore
	if options.AvatarsEnabled() {
		store, err := avatar.NewS3Store(ctx, avatar.Config{
			Bucket:    options.S3Bucket,
			Region:    options.S3Region,
			AccessKey: options.S3AccessKey,
			SecretKey: options.S3SecretKey,
			Endpoint:  options.S3Endpoint,
			PublicURL: options.S3PublicURL,
		})
		if err != nil {
			zapLogger.Fatal("cannot init avatar storage", zap.Error(err))
		}
		avatars = store
	}

	// Initialize business-logic services.
	authService := service.NewAuthService(userRepo, hasher, tokens, dispatcher, zapLogger)
	userService := service.NewUserService(userRepo, avatars, zapLogger)
	contactService := service.NewContactService(contactRepo)

	// Build the router with middleware and routes.
	router := http.NewRouter(http.Handlers{
		Auth:     &http.AuthHandler{AuthService: authService, Log: zapLogger},
		Users:    &http.UserHandler{UserService: userService, Log: zapLogger},
		Contacts: &http.ContactHandler{ContactService: contactService, Log: zapLogger},
		Health:   &http.HealthHandler{DB: postgresDB, Log: zapLogger},
	}, authService, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if options.TLSEnabled() {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Addr))
			errCh <- server.ListenAndServeTLS(options.TLSCertFile, options.TLSKeyFile)
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Error("server failed", zap.Error(err))
		}
		stop()
	case <-ctx.Done():
		zapLogger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}

	// In-flight requests may still queue mail until Shutdown returns.
	dispatcher.Close()
}
