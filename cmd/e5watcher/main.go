// Package main запускает наблюдатель подписки E5: однократную проверку
// либо веб-панель с периодическими проверками.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/e5watcher/internal/config"
	"github.com/mmeshcher/e5watcher/internal/graph"
	"github.com/mmeshcher/e5watcher/internal/handler"
	"github.com/mmeshcher/e5watcher/internal/mailer"
	"github.com/mmeshcher/e5watcher/internal/repository"
	"github.com/mmeshcher/e5watcher/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	if err := cfg.Validate(); err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		sugar.Fatalw("invalid timezone", "timezone", cfg.Timezone, "error", err.Error())
	}

	fetcher := graph.NewClient(graph.Config{
		TenantID:     cfg.TenantID,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Location:     loc,
	})

	smtpMailer := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	snapshots := repository.NewSnapshotStore(cfg.SnapshotFile)
	ledgers := repository.NewLedgerStore(cfg.LedgerFile)
	recipients := repository.NewRecipientSource(cfg.RecipientsFile)

	svc := service.NewService(fetcher, smtpMailer, snapshots, ledgers, recipients, service.DefaultPolicies(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.Serve {
		if _, err := svc.Run(ctx); err != nil {
			sugar.Fatalw("check failed", "error", err.Error())
		}
		return
	}

	h := handler.NewHandler(snapshots, service.DefaultPolicies().Severity, logger)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.SetupRouter(),
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фонового процесса периодических проверок
	g.Go(func() error {
		svc.StartPeriodicChecks(ctx, cfg.CheckInterval)
		return nil
	})

	// Запуск HTTP-сервера веб-панели
	g.Go(func() error {
		sugar.Infow("starting e5watcher server", "addr", cfg.RunAddress, "interval", cfg.CheckInterval.String())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
