package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/engineer-market-backend/internal/logger"
	"github.com/ignatzorin/engineer-market-backend/internal/models"
	"github.com/ignatzorin/engineer-market-backend/internal/repository"
)

// Размер пачки заявок за один проход чистки.
const sweepBatchSize = 500

// SweepRepository — подмножество хранилища, нужное фоновой чистке.
type SweepRepository interface {
	SelectStale(ctx context.Context, cutoff time.Time, limit int) ([]models.ServiceRequest, error)
	CancelWithOffers(ctx context.Context, requestID uuid.UUID, from []models.RequestStatus, offerStatus models.OfferStatus) (*models.ServiceRequest, []uuid.UUID, error)
	ResetOfferUpdateCounters(ctx context.Context) (int64, error)
}

// SweepReport — итог одного прохода чистки.
type SweepReport struct {
	Cancelled int
	Skipped   int
	Failed    int
}

// SweepService отменяет заявки, по которым за отведённый срок никто не был
// назначен, и периодически обнуляет счётчики правок предложений.
type SweepService struct {
	repo          SweepRepository
	notifier      Notifier
	ttl           time.Duration
	interval      time.Duration
	resetInterval time.Duration
	now           func() time.Time
	log           *logrus.Entry
}

func NewSweepService(repo SweepRepository, notifier Notifier, ttl, interval, resetInterval time.Duration) *SweepService {
	return &SweepService{
		repo:          repo,
		notifier:      notifier,
		ttl:           ttl,
		interval:      interval,
		resetInterval: resetInterval,
		now:           time.Now,
		log:           logger.WithComponent("sweep"),
	}
}

// Run запускает периодическую чистку и работает до отмены контекста.
// Первый проход выполняется сразу, без ожидания тикера.
func (s *SweepService) Run(ctx context.Context) {
	sweepTicker := time.NewTicker(s.interval)
	defer sweepTicker.Stop()
	resetTicker := time.NewTicker(s.resetInterval)
	defer resetTicker.Stop()

	s.sweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("фоновая чистка остановлена")
			return
		case <-sweepTicker.C:
			s.sweepOnce(ctx)
		case <-resetTicker.C:
			if n, err := s.repo.ResetOfferUpdateCounters(ctx); err != nil {
				s.log.WithError(err).Error("не удалось сбросить счётчики правок")
			} else {
				s.log.WithField("offers", n).Info("счётчики правок предложений сброшены")
			}
		}
	}
}

func (s *SweepService) sweepOnce(ctx context.Context) {
	report, err := s.SweepExpired(ctx)
	if err != nil {
		s.log.WithError(err).Error("проход чистки не выполнен")
		return
	}
	s.log.WithFields(logrus.Fields{
		"cancelled": report.Cancelled,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	}).Info("проход чистки завершён")
}

// SweepExpired отменяет просроченные заявки поштучно: сбой на одной заявке
// не прерывает проход. Заявка, успевшая уйти из торгов между выборкой и
// отменой, считается пропущенной, а не ошибкой.
func (s *SweepService) SweepExpired(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	cutoff := s.now().Add(-s.ttl)
	stale, err := s.repo.SelectStale(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return report, err
	}

	for _, req := range stale {
		updated, engineerIDs, err := s.repo.CancelWithOffers(ctx, req.ID,
			[]models.RequestStatus{models.RequestStatusOpen, models.RequestStatusOffersCollecting},
			models.OfferStatusExpired)
		if err != nil {
			if errors.Is(err, repository.ErrStatusConflict) || errors.Is(err, repository.ErrRequestNotFound) {
				report.Skipped++
				continue
			}
			report.Failed++
			s.log.WithError(err).WithField("request_id", req.ID).Error("не удалось отменить просроченную заявку")
			continue
		}

		report.Cancelled++

		if s.notifier != nil {
			notifyAsync(s.notifier, updated.CustomerID, EventRequestCancelled, updated)
			for _, engineerID := range engineerIDs {
				notifyAsync(s.notifier, engineerID, EventRequestCancelled, updated)
			}
		}
	}

	return report, nil
}
