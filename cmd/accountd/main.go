// Command accountd serves the account and session API over HTTP. All
// configuration comes from the environment; the only hard requirements are
// ACCOUNTD_TOKEN_SECRET and a reachable Redis.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/commutelife/accountd"
	"github.com/commutelife/accountd/database"
	"github.com/commutelife/accountd/gateway"
	"github.com/commutelife/accountd/httpapi"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("exit", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	secret := os.Getenv("ACCOUNTD_TOKEN_SECRET")
	if secret == "" {
		return errors.New("ACCOUNTD_TOKEN_SECRET is required")
	}

	db, err := database.Open(getenv("ACCOUNTD_DB_PATH", "accountd.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     getenv("ACCOUNTD_REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("ACCOUNTD_REDIS_PASSWORD"),
		DB:       0,
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return err
	}

	builder := accountd.New().
		WithTokenSecret([]byte(secret)).
		WithDB(db).
		WithRedis(rdb)

	// Unconfigured gateways fall back to log-only delivery inside Build.
	if key := os.Getenv("ACCOUNTD_SMS_API_KEY"); key != "" {
		builder.WithSMSSender(gateway.NewSMSClient(
			key,
			getenv("ACCOUNTD_SMS_SIGN_NAME", "accountd"),
			getenv("ACCOUNTD_SMS_BASE_URL", "https://sms.example.com"),
		))
	}
	if tok := os.Getenv("ACCOUNTD_MAIL_SERVER_TOKEN"); tok != "" {
		builder.WithMailSender(gateway.NewMailClient(
			tok,
			getenv("ACCOUNTD_MAIL_FROM", "no-reply@example.com"),
			getenv("ACCOUNTD_MAIL_BASE_URL", "https://api.postmarkapp.com"),
		))
	}
	if os.Getenv("ACCOUNTD_AUDIT_LOG") == "1" {
		builder.WithAuditSink(accountd.NewAuditJSONWriterSink(os.Stdout))
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine.StartSessionSweeper(ctx)

	addr := getenv("ACCOUNTD_LISTEN_ADDR", ":8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewServer(engine, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
