package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"identityd/internal/auth"
	"identityd/internal/config"
	"identityd/internal/database"
	"identityd/internal/email"
	"identityd/internal/logging"
	redisx "identityd/internal/redis"
	"identityd/internal/server"
	"identityd/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logOutput := io.Writer(os.Stdout)
	if cfg.LogFile != "" {
		fileWriter, err := logging.NewRotatingFileWriter(cfg.LogFile, 10<<20, 5)
		if err != nil {
			slog.Error("log setup error", "error", err)
			os.Exit(1)
		}
		defer fileWriter.Close()
		logOutput = io.MultiWriter(os.Stdout, fileWriter)
	}
	log := slog.New(slog.NewJSONHandler(logOutput, nil))
	slog.SetDefault(log)

	db, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Error("database error", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := redisx.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis error", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	st := postgres.New(db)
	sessions := &auth.SessionStore{Redis: redisClient}
	limiter := auth.NewRateLimiter(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow)
	ledger := auth.NewLedger(st)
	totpSvc := auth.NewTOTPService(cfg.TOTPIssuer, uint(cfg.TOTPSkewSteps))
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	bearer := auth.NewTokenManager(cfg.JWTSecret)

	queue := email.NewQueue(st, email.NewSMTPSender(cfg.Email), email.QueueConfig{
		From:         cfg.Email.From,
		PollInterval: cfg.Queue.PollInterval,
		BatchSize:    cfg.Queue.BatchSize,
		MaxAttempts:  cfg.Queue.MaxAttempts,
		RetryDelay:   cfg.Queue.RetryDelay,
	}, log)

	svc := auth.NewService(st, sessions, limiter, ledger, totpSvc, hasher, bearer, queue, auth.ServiceConfig{
		BaseURL:                  cfg.BaseURL,
		RequireEmailVerification: cfg.RequireEmailVerification,
		SessionTTL:               cfg.SessionTTL,
		VerificationTokenTTL:     cfg.VerificationTokenTTL,
		ResetTokenTTL:            cfg.ResetTokenTTL,
		ChallengeTokenTTL:        cfg.ChallengeTokenTTL,
		ResendCooldown:           cfg.ResendCooldown,
		BackupCodeCount:          cfg.BackupCodeCount,
	}, log)

	api := server.NewServer(cfg, svc, sessions, bearer, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go queue.Run(ctx)
	go ledger.RunSweeper(ctx, cfg.TokenSweepInterval, cfg.TokenRetention, log)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
