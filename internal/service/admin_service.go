package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/engineer-market-backend/internal/logger"
	"github.com/ignatzorin/engineer-market-backend/internal/models"
	"github.com/ignatzorin/engineer-market-backend/internal/pkg/apperror"
	"github.com/ignatzorin/engineer-market-backend/internal/repository"
	"github.com/ignatzorin/engineer-market-backend/internal/validation"
)

// AdminService — операции оператора поддержки над заявками: просмотр,
// ручные переводы статусов, отмена и принудительное назначение инженера.
// Каждое вмешательство фиксируется заметкой в журнале заявки.
type AdminService struct {
	repo     RequestRepository
	notifier Notifier
	now      func() time.Time
}

func NewAdminService(repo RequestRepository, notifier Notifier) *AdminService {
	return &AdminService{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *AdminService) notify(userID uuid.UUID, event string, payload interface{}) {
	if s.notifier == nil {
		return
	}
	notifyAsync(s.notifier, userID, event, payload)
}

// ListRequests возвращает страницу заявок с фильтром по статусу.
func (s *AdminService) ListRequests(ctx context.Context, params repository.AdminListParams) ([]models.ServiceRequest, int, error) {
	if params.Status != "" && !params.Status.IsValid() {
		return nil, 0, apperror.New(apperror.ErrCodeValidation, "неизвестный статус заявки")
	}

	requests, total, err := s.repo.ListAdmin(ctx, params)
	if err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заявки")
	}
	return requests, total, nil
}

// GetRequestDetail возвращает заявку со всеми предложениями.
func (s *AdminService) GetRequestDetail(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, []models.EngineerOffer, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return nil, nil, apperror.ErrRequestNotFound
		}
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заявку")
	}

	offers, err := s.repo.ListOffersByRequest(ctx, requestID)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложения")
	}

	return req, offers, nil
}

// UpdateStatus переводит заявку в указанный статус вручную. Допускаются
// только переходы жизненного цикла; отмена идёт отдельной операцией,
// чтобы каскад по предложениям не зависел от формы запроса.
func (s *AdminService) UpdateStatus(ctx context.Context, adminID, requestID uuid.UUID, to models.RequestStatus, note string) (*models.ServiceRequest, error) {
	if !to.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус заявки")
	}
	if to == models.RequestStatusCancelled {
		return s.CancelRequest(ctx, adminID, requestID, note)
	}

	// assigned и rated несут обязательные данные: снимок принятого
	// предложения и оценку клиента. Голым переводом статуса их не
	// выставить - назначение идёт через AssignEngineer, оценка через
	// клиентский сценарий.
	if to == models.RequestStatusAssigned || to == models.RequestStatusRated {
		return nil, apperror.ErrInvalidStatus
	}

	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заявку")
	}

	if !req.Status.CanTransitionTo(to) {
		return nil, apperror.ErrInvalidStatus
	}

	updated, err := s.repo.UpdateStatusIf(ctx, requestID, []models.RequestStatus{req.Status}, to)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperror.ErrInvalidStatus
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось изменить статус")
	}

	s.appendNote(ctx, adminID, requestID, "перевод статуса в "+string(to)+noteSuffix(note))
	s.notify(updated.CustomerID, EventAdminStatusUpdated, updated)

	return updated, nil
}

// CancelRequest отменяет заявку оператором до принятия предложения.
// Живые предложения отклоняются, участники получают уведомления.
func (s *AdminService) CancelRequest(ctx context.Context, adminID, requestID uuid.UUID, reason string) (*models.ServiceRequest, error) {
	reason = validation.SanitizeString(reason)

	updated, engineerIDs, err := s.repo.CancelWithOffers(ctx, requestID,
		[]models.RequestStatus{
			models.RequestStatusOpen,
			models.RequestStatusOffersCollecting,
		},
		models.OfferStatusRejected)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRequestNotFound):
			return nil, apperror.ErrRequestNotFound
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, apperror.ErrCannotCancel
		default:
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось отменить заявку")
		}
	}

	s.appendNote(ctx, adminID, requestID, "отмена заявки оператором"+noteSuffix(reason))

	s.notify(updated.CustomerID, EventAdminCancelled, updated)
	for _, engineerID := range engineerIDs {
		s.notify(engineerID, EventAdminCancelled, updated)
	}

	return updated, nil
}

// AssignEngineer принудительно закрепляет заявку за инженером. Назначить
// можно только инженера с живым предложением по этой заявке: снимок
// условий берётся из него, остальные предложения отклоняются.
func (s *AdminService) AssignEngineer(ctx context.Context, adminID, requestID, engineerID uuid.UUID) (*models.ServiceRequest, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заявку")
	}

	if !req.Status.AcceptsOffers() {
		return nil, apperror.ErrInvalidStatus
	}

	offers, err := s.repo.ListOffersByRequest(ctx, requestID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложения")
	}

	var offerID uuid.UUID
	found := false
	for _, offer := range offers {
		if offer.EngineerID == engineerID && offer.Status.IsLive() {
			offerID = offer.ID
			found = true
			break
		}
	}
	if !found {
		return nil, apperror.ErrOfferNotFound
	}

	updated, offer, err := s.repo.AcceptOffer(ctx, requestID, offerID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRequestNotFound):
			return nil, apperror.ErrRequestNotFound
		case errors.Is(err, repository.ErrOfferNotFound):
			return nil, apperror.ErrOfferNotFound
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, apperror.ErrInvalidStatus
		default:
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось назначить инженера")
		}
	}

	s.appendNote(ctx, adminID, requestID, "назначение инженера "+engineerID.String()+" оператором")

	s.notify(offer.EngineerID, EventAdminAssigned, updated)
	s.notify(updated.CustomerID, EventAdminAssigned, updated)

	return updated, nil
}

// appendNote дописывает заметку в журнал заявки. Сбой журнала не роняет
// уже выполненную операцию, только пишется в лог.
func (s *AdminService) appendNote(ctx context.Context, adminID, requestID uuid.UUID, text string) {
	note := models.AdminNote{
		AdminID:   adminID,
		Note:      text,
		CreatedAt: s.now(),
	}
	if err := s.repo.AppendAdminNote(ctx, requestID, note); err != nil {
		logger.WithComponent("admin_service").WithError(err).
			WithField("request_id", requestID).
			Warn("не удалось сохранить заметку оператора")
	}
}

func noteSuffix(note string) string {
	if note == "" {
		return ""
	}
	return ": " + note
}
