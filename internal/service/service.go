// Package service реализует бизнес-логику наблюдателя подписки E5:
// последовательность одного запуска и рассылку уведомлений.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/e5watcher/internal/mailer"
	"github.com/mmeshcher/e5watcher/internal/model"
	"github.com/mmeshcher/e5watcher/internal/policy"
	"github.com/mmeshcher/e5watcher/internal/repository"
)

// Fetcher описывает контракт получения снимка состояния подписки.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) (*model.Snapshot, error)
}

// Mailer описывает контракт доставки одного письма.
type Mailer interface {
	Send(ctx context.Context, rcpt model.Recipient, msg mailer.Message) error
}

// SnapshotStore описывает контракт хранения снимков.
type SnapshotStore interface {
	LoadPrevious() (*model.Snapshot, error)
	Save(snap *model.Snapshot) error
}

// LedgerStore описывает контракт хранения журнала уведомлений.
type LedgerStore interface {
	Load() (model.Ledger, error)
	Save(l model.Ledger) error
}

// RecipientSource описывает контракт загрузки списка получателей.
type RecipientSource interface {
	LoadAll() ([]model.Recipient, error)
}

// Policies объединяет конфигурацию всех правил принятия решений.
type Policies struct {
	Severity policy.SeverityConfig
	Notify   policy.NotifyConfig
	Renewal  policy.RenewalConfig
}

// DefaultPolicies возвращает конфигурацию правил по умолчанию.
func DefaultPolicies() Policies {
	return Policies{
		Severity: policy.DefaultSeverityConfig(),
		Notify:   policy.DefaultNotifyConfig(),
		Renewal:  policy.DefaultRenewalConfig(),
	}
}

// Stage описывает этап выполнения одного запуска.
type Stage string

const (
	StageInit       Stage = "init"
	StageFetched    Stage = "fetched"
	StageClassified Stage = "classified"
	StageDispatched Stage = "dispatched"
	StagePersisted  Stage = "persisted"
	StageDone       Stage = "done"
	StageAborted    Stage = "aborted"
)

// RunReport содержит итог одного запуска проверки.
type RunReport struct {
	Stage         Stage
	Snapshot      *model.Snapshot
	Severity      model.SeverityTier
	SeverityLabel string
	Renewed       bool
	RenewalNote   string
	Notify        bool
	Reason        model.ReasonTag
	Sent          int
	Skipped       int
	Failed        int

	LedgerSaveErr   error
	SnapshotSaveErr error

	Elapsed time.Duration
}

// Outcome описывает исход отправки одному получателю.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// DispatchResult содержит исход отправки одному получателю по одной причине.
type DispatchResult struct {
	Recipient string
	Reason    model.ReasonTag
	Outcome   Outcome
	Err       error
}

// Service содержит бизнес-логику наблюдателя подписки E5.
type Service struct {
	fetcher    Fetcher
	mailer     Mailer
	snapshots  SnapshotStore
	ledgers    LedgerStore
	recipients RecipientSource
	policies   Policies
	logger     *zap.Logger
}

// NewService создаёт сервис с указанными коллабораторами и правилами.
func NewService(fetcher Fetcher, m Mailer, snapshots SnapshotStore, ledgers LedgerStore, recipients RecipientSource, policies Policies, logger *zap.Logger) *Service {
	return &Service{
		fetcher:    fetcher,
		mailer:     m,
		snapshots:  snapshots,
		ledgers:    ledgers,
		recipients: recipients,
		policies:   policies,
		logger:     logger,
	}
}

// Run выполняет один запуск проверки: снимок, классификация, рассылка,
// сохранение состояния. Ошибка возвращается только при прерывании до
// рассылки; ошибки сохранения попадают в отчёт, так как повторная отправка
// хуже потерянного файла, но лучше потерянного уведомления.
func (s *Service) Run(ctx context.Context) (*RunReport, error) {
	start := time.Now()
	report := &RunReport{Stage: StageInit}

	recipients, err := s.recipients.LoadAll()
	if err != nil {
		report.Stage = StageAborted
		return report, fmt.Errorf("load recipients: %w", err)
	}

	ledger, err := s.ledgers.Load()
	if err != nil {
		// повреждённый журнал не должен блокировать отправку
		s.logger.Warn("ledger load failed, starting empty", zap.Error(err))
	}

	prev, err := s.snapshots.LoadPrevious()
	if err != nil && !errors.Is(err, repository.ErrNoPreviousSnapshot) {
		s.logger.Warn("previous snapshot unavailable", zap.Error(err))
	}

	snap, err := s.fetcher.FetchSnapshot(ctx)
	if err != nil {
		report.Stage = StageAborted
		return report, fmt.Errorf("fetch snapshot: %w", err)
	}
	report.Stage = StageFetched
	report.Snapshot = snap

	report.Renewed, report.RenewalNote = policy.DetectRenewal(s.policies.Renewal, prev, snap)
	report.Notify, report.Reason = policy.Decide(s.policies.Notify, snap)

	var daysLeft *int
	if d, ok := snap.DaysLeft(); ok {
		daysLeft = &d
	}
	report.Severity, report.SeverityLabel = policy.Classify(s.policies.Severity, daysLeft)
	report.Stage = StageClassified

	date := snap.CheckTime.Format(model.LedgerDateLayout)

	// Сначала уведомление о продлении, затем периодическое: порядок фиксирован.
	var reasons []model.ReasonTag
	if report.Renewed {
		reasons = append(reasons, model.ReasonRenewal)
	}
	if report.Notify {
		reasons = append(reasons, report.Reason)
	}

	for _, reason := range reasons {
		for _, res := range s.dispatch(ctx, ledger, recipients, reason, snap, report.SeverityLabel, date) {
			switch res.Outcome {
			case OutcomeSent:
				report.Sent++
			case OutcomeSkipped:
				report.Skipped++
			case OutcomeFailed:
				report.Failed++
			}
		}
	}
	report.Stage = StageDispatched

	if report.Sent > 0 {
		if err := s.ledgers.Save(ledger); err != nil {
			report.LedgerSaveErr = err
			s.logger.Error("ledger save failed", zap.Error(err))
		}
	}
	if err := s.snapshots.Save(snap); err != nil {
		report.SnapshotSaveErr = err
		s.logger.Error("snapshot save failed", zap.Error(err))
	}
	report.Stage = StagePersisted

	report.Elapsed = time.Since(start)
	report.Stage = StageDone

	s.logger.Info("check finished",
		zap.String("sku", snap.SkuName),
		zap.String("status", string(snap.Status)),
		zap.String("severity", report.Severity.String()),
		zap.Bool("renewed", report.Renewed),
		zap.Int("sent", report.Sent),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", report.Elapsed),
	)

	return report, nil
}

// dispatch рассылает уведомление с одной причиной всем получателям.
// Отказ доставки одному получателю не прерывает обход: журнал для него
// не отмечается, и следующий запуск повторит попытку.
func (s *Service) dispatch(ctx context.Context, ledger model.Ledger, recipients []model.Recipient, reason model.ReasonTag, snap *model.Snapshot, severityLabel, date string) []DispatchResult {
	results := make([]DispatchResult, 0, len(recipients))

	for _, rcpt := range recipients {
		res := DispatchResult{Recipient: rcpt.DeliveryEmail, Reason: reason}

		if !ledger.IsEligible(rcpt.DeliveryEmail, date, reason) {
			res.Outcome = OutcomeSkipped
			results = append(results, res)
			continue
		}

		msg, err := mailer.Render(reason, rcpt, snap, severityLabel)
		if err != nil {
			res.Outcome = OutcomeFailed
			res.Err = err
			s.logger.Warn("render failed", zap.String("recipient", rcpt.DeliveryEmail), zap.Error(err))
			results = append(results, res)
			continue
		}

		if err := s.mailer.Send(ctx, rcpt, msg); err != nil {
			res.Outcome = OutcomeFailed
			res.Err = err
			s.logger.Warn("send failed",
				zap.String("recipient", rcpt.DeliveryEmail),
				zap.String("reason", string(reason)),
				zap.Error(err),
			)
			results = append(results, res)
			continue
		}

		ledger.RecordSent(rcpt.DeliveryEmail, date, reason)
		res.Outcome = OutcomeSent
		results = append(results, res)
	}

	return results
}

// StartPeriodicChecks запускает фоновый процесс периодических проверок.
func (s *Service) StartPeriodicChecks(ctx context.Context, interval time.Duration) {
	go func() {
		s.runPeriodic(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runPeriodic(ctx)
			}
		}
	}()
}

func (s *Service) runPeriodic(ctx context.Context) {
	if _, err := s.Run(ctx); err != nil {
		s.logger.Error("periodic check failed", zap.Error(err))
	}
}
