package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"chore-tracker/internal/bot"
	"chore-tracker/internal/config"
	"chore-tracker/internal/repository"
	"chore-tracker/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	subtaskRepo := repository.NewSubtaskRepository(db)

	taskSvc := service.NewTaskService(taskRepo)
	completeSvc := service.NewCompletionService(taskRepo, completionRepo)
	statsSvc := service.NewStatsService(taskRepo, completionRepo)
	subtaskSvc := service.NewSubtaskService(taskRepo, subtaskRepo)
	digestSvc := service.NewDigestService(taskRepo)

	tracker, err := bot.New(cfg.TelegramToken, logger, userRepo, taskSvc, completeSvc, statsSvc, subtaskSvc, digestSvc)
	if err != nil {
		logger.Fatal("create bot", zap.Error(err))
	}

	scheduler := service.NewSchedulerService(time.Local)
	digestJob := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := tracker.SendDailyDigests(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("send digests", zap.Error(err))
		}
	}

	switch {
	case cfg.DigestTime != "":
		if _, err := scheduler.ScheduleDaily(cfg.DigestTime, digestJob); err != nil {
			logger.Fatal("schedule digests", zap.Error(err))
		}
		logger.Info("digest scheduled", zap.String("at", cfg.DigestTime))
	case cfg.DigestInterval > 0:
		if _, err := scheduler.ScheduleInterval(cfg.DigestInterval, digestJob); err != nil {
			logger.Fatal("schedule digests", zap.Error(err))
		}
		logger.Info("digest scheduled", zap.Duration("every", cfg.DigestInterval))
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("chore tracker started")
	if err := tracker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("bot stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}
