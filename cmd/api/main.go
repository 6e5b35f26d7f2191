package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-accounts-nosql/internal/application/account"
	"github.com/go-accounts-nosql/internal/config"
	"github.com/go-accounts-nosql/internal/infrastructure/dynamo"
	"github.com/go-accounts-nosql/internal/infrastructure/httpnotify"
	jwtinfra "github.com/go-accounts-nosql/internal/infrastructure/jwt"
	"github.com/go-accounts-nosql/internal/infrastructure/metrics"
	"github.com/go-accounts-nosql/internal/infrastructure/smtp"
	"github.com/go-accounts-nosql/internal/infrastructure/sns"
	"github.com/go-accounts-nosql/internal/pkg/logging"
	"github.com/go-accounts-nosql/internal/pkg/password"
	transporthttp "github.com/go-accounts-nosql/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(logging.New(cfg.LogFormat, cfg.LogLevel, nil))
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	if err := run(cfg); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("dynamodb client: %w", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	// JWT provider is optional; without keys login returns no bearer token.
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		slog.Warn("JWT provider not available", "err", err)
	}

	notifier, err := newNotifier(ctx, cfg)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}

	recorder := metrics.New()
	accounts := account.NewService(account.ServiceDeps{
		AccountRepo:       dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts, cfg.DynamoTables.AccountEmails),
		CodeStore:         dynamo.NewCodeStore(dynamoClient, cfg.DynamoTables.VerificationCodes, cfg.CodeLength, cfg.CodeReplacePrior),
		Notifier:          notifier,
		Hasher:            password.NewHasher(cfg.BcryptCost),
		Metrics:           recorder,
		VerifyCodeTTL:     cfg.VerifyCodeTTL,
		ResetCodeTTL:      cfg.ResetCodeTTL,
		NotifyFailureMode: cfg.NotifyFailureMode,
		NotifyTimeout:     cfg.NotifyTimeout,
	})

	router, stopRouter := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Accounts:    accounts,
		JWTProvider: jwtProvider,
		Metrics:     recorder,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "notification_channel", cfg.NotificationChannel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		stopRouter()
		return err
	case <-quit:
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	stopRouter()
	if err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// newNotifier picks the code delivery channel named by NOTIFICATION_CHANNEL.
func newNotifier(ctx context.Context, cfg *config.Config) (account.Notifier, error) {
	switch cfg.NotificationChannel {
	case config.ChannelHTTP:
		return httpnotify.New(cfg.NotificationSenderURL, &http.Client{}), nil
	case config.ChannelSNS:
		return sns.NewPublisher(ctx, cfg)
	case config.ChannelSMTP:
		return smtp.NewMailer(cfg), nil
	default:
		return nil, fmt.Errorf("unknown notification channel %q", cfg.NotificationChannel)
	}
}
