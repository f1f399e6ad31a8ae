package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/engineer-market-backend/internal/geo"
	"github.com/ignatzorin/engineer-market-backend/internal/goroutine"
	"github.com/ignatzorin/engineer-market-backend/internal/logger"
	"github.com/ignatzorin/engineer-market-backend/internal/models"
	"github.com/ignatzorin/engineer-market-backend/internal/pkg/apperror"
	"github.com/ignatzorin/engineer-market-backend/internal/repository"
	"github.com/ignatzorin/engineer-market-backend/internal/validation"
)

// Ключи событий уведомлений.
const (
	EventRequestOpened    = "REQUEST_OPENED"
	EventRequestCancelled = "REQUEST_CANCELLED"
	EventNewOffer         = "NEW_OFFER"
	EventOfferAccepted    = "OFFER_ACCEPTED"
	EventServiceStarted   = "SERVICE_STARTED"
	EventServiceCompleted = "SERVICE_COMPLETED"
	EventServiceRated     = "SERVICE_RATED"

	// Административные варианты.
	EventAdminStatusUpdated = "REQUEST_STATUS_UPDATED_BY_ADMIN"
	EventAdminCancelled     = "REQUEST_CANCELLED_BY_ADMIN"
	EventAdminAssigned      = "ENGINEER_ASSIGNED_BY_ADMIN"
)

// Максимальный размер страницы выдачи nearby.
const nearbyPageSize = 100

// Notifier — порт отправки уведомлений. Ядро не знает о канале доставки
// и политике повторов, отправка fire-and-forget.
type Notifier interface {
	Notify(userID uuid.UUID, event string, payload interface{}) error
}

// AddressResolver — порт внешнего сервиса адресов, используется только
// при создании заявки.
type AddressResolver interface {
	Resolve(ctx context.Context, customerID, addressID uuid.UUID) (*models.GeoPoint, error)
}

// RequestRepository описывает взаимодействие сервиса с хранилищем заявок и предложений.
type RequestRepository interface {
	Create(ctx context.Context, req *models.ServiceRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.ServiceRequest, error)
	ListAdmin(ctx context.Context, params repository.AdminListParams) ([]models.ServiceRequest, int, error)
	Nearby(ctx context.Context, lat, lng, radiusKm float64, excludeCustomerID uuid.UUID, limit int) ([]models.ServiceRequest, error)
	SubmitOffer(ctx context.Context, offer *models.EngineerOffer) (*models.EngineerOffer, error)
	GetOfferByID(ctx context.Context, id uuid.UUID) (*models.EngineerOffer, error)
	ListOffersByRequest(ctx context.Context, requestID uuid.UUID) ([]models.EngineerOffer, error)
	ListOffersByEngineer(ctx context.Context, engineerID uuid.UUID) ([]models.EngineerOffer, error)
	UpdateOfferTerms(ctx context.Context, offerID uuid.UUID, amount *float64, note *string) (*models.EngineerOffer, error)
	AcceptOffer(ctx context.Context, requestID, offerID uuid.UUID) (*models.ServiceRequest, *models.EngineerOffer, error)
	UpdateStatusIf(ctx context.Context, requestID uuid.UUID, from []models.RequestStatus, to models.RequestStatus) (*models.ServiceRequest, error)
	CancelWithOffers(ctx context.Context, requestID uuid.UUID, from []models.RequestStatus, offerStatus models.OfferStatus) (*models.ServiceRequest, []uuid.UUID, error)
	SetRating(ctx context.Context, requestID uuid.UUID, score int, comment *string, ratedAt time.Time) (*models.ServiceRequest, error)
	AppendAdminNote(ctx context.Context, requestID uuid.UUID, note models.AdminNote) error
}

// RequestService содержит бизнес-логику торгов по заявкам: создание,
// предложения инженеров, акцепт одного победителя, выполнение и оценку.
type RequestService struct {
	repo     RequestRepository
	resolver AddressResolver
	notifier Notifier
	now      func() time.Time
}

// NewRequestService создаёт новый сервис заявок.
func NewRequestService(repo RequestRepository, resolver AddressResolver, notifier Notifier) *RequestService {
	return &RequestService{
		repo:     repo,
		resolver: resolver,
		notifier: notifier,
		now:      time.Now,
	}
}

// notify отправляет уведомление в фоне: доставка не должна блокировать
// и не должна ронять операцию.
func (s *RequestService) notify(userID uuid.UUID, event string, payload interface{}) {
	if s.notifier == nil {
		return
	}
	notifyAsync(s.notifier, userID, event, payload)
}

func notifyAsync(notifier Notifier, userID uuid.UUID, event string, payload interface{}) {
	goroutine.SafeGo(func() {
		if err := notifier.Notify(userID, event, payload); err != nil && logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"event":   event,
				"user_id": userID,
			}).WithError(err).Warn("не удалось отправить уведомление")
		}
	})
}

// CreateRequestInput — параметры создания заявки.
type CreateRequestInput struct {
	AddressID   uuid.UUID
	Title       string
	ServiceType string
	Description string
	ImageURLs   []string
	ScheduledAt *time.Time
}

// CreateRequest создаёт заявку клиента: координаты берутся из внешнего
// сервиса адресов, стартовый статус open.
func (s *RequestService) CreateRequest(ctx context.Context, customerID uuid.UUID, input CreateRequestInput) (*models.ServiceRequest, error) {
	input.Title = validation.SanitizeString(input.Title)
	input.ServiceType = validation.SanitizeString(input.ServiceType)
	input.Description = validation.SanitizeString(input.Description)

	if err := validation.ValidateLength("заголовок", input.Title, validation.MinTitleLength, validation.MaxTitleLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("тип услуги", input.ServiceType, 1, validation.MaxServiceTypeLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("описание", input.Description, 0, validation.MaxDescriptionLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateImageURLs(input.ImageURLs); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	point, err := s.resolver.Resolve(ctx, customerID, input.AddressID)
	if err != nil {
		return nil, err
	}

	req := &models.ServiceRequest{
		CustomerID:  customerID,
		Title:       input.Title,
		ServiceType: input.ServiceType,
		Description: input.Description,
		ImageURLs:   input.ImageURLs,
		ScheduledAt: input.ScheduledAt,
		Lat:         point.Lat,
		Lng:         point.Lng,
		Status:      models.RequestStatusOpen,
	}

	if err := s.repo.Create(ctx, req); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать заявку")
	}

	s.notify(customerID, EventRequestOpened, req)

	return req, nil
}

// MyRequests возвращает заявки клиента.
func (s *RequestService) MyRequests(ctx context.Context, customerID uuid.UUID) ([]models.ServiceRequest, error) {
	requests, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заявки")
	}
	return requests, nil
}

// GetRequest возвращает заявку с предложениями. Доступ имеют владелец
// и назначенный инженер; предложения видит только владелец.
func (s *RequestService) GetRequest(ctx context.Context, userID, requestID uuid.UUID) (*models.ServiceRequest, []models.EngineerOffer, error) {
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}

	if !req.IsOwnedBy(userID) && !req.IsAssignedTo(userID) {
		return nil, nil, apperror.ErrRequestNotFound
	}

	var offers []models.EngineerOffer
	if req.IsOwnedBy(userID) {
		offers, err = s.repo.ListOffersByRequest(ctx, requestID)
		if err != nil {
			return nil, nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложения")
		}
	}

	return req, offers, nil
}

// NearbyRequests возвращает открытые для торгов заявки рядом с инженером,
// отсортированные по возрастанию расстояния. Собственные заявки инженера
// и уже закреплённые не попадают в выдачу.
func (s *RequestService) NearbyRequests(ctx context.Context, engineerID uuid.UUID, lat, lng, radiusKm float64) ([]models.ServiceRequest, error) {
	if err := validation.ValidateCoordinates(lat, lng); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateRadius(radiusKm); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	requests, err := s.repo.Nearby(ctx, lat, lng, radiusKm, engineerID, nearbyPageSize)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось выполнить поиск заявок")
	}
	return requests, nil
}

// SubmitOfferInput — параметры подачи предложения.
type SubmitOfferInput struct {
	Amount   float64
	Currency string
	Note     *string
	Lat      float64
	Lng      float64
}

// SubmitOffer подаёт или обновляет предложение инженера. Повторная подача
// по той же заявке не создаёт дубликат: существующее предложение
// обновляется, счётчик правок растёт. Первое предложение переводит заявку
// из open в offers_collecting.
func (s *RequestService) SubmitOffer(ctx context.Context, engineerID, requestID uuid.UUID, input SubmitOfferInput) (*models.EngineerOffer, error) {
	if err := validation.ValidateAmount(input.Amount); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateCurrency(input.Currency); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateCoordinates(input.Lat, input.Lng); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if input.Note != nil {
		trimmed := validation.SanitizeString(*input.Note)
		input.Note = &trimmed
		if err := validation.ValidateLength("комментарий", trimmed, 0, validation.MaxNoteLength); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}

	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if req.CustomerID == engineerID {
		return nil, apperror.ErrSelfNotAllowed
	}
	if !req.Status.AcceptsOffers() {
		return nil, apperror.ErrInvalidStatus
	}

	// Расстояние фиксируется на момент подачи и при правках не пересчитывается.
	offer := &models.EngineerOffer{
		RequestID:  requestID,
		EngineerID: engineerID,
		Amount:     input.Amount,
		Currency:   input.Currency,
		Note:       input.Note,
		DistanceKm: geo.DistanceKm(input.Lat, input.Lng, req.Lat, req.Lng),
		Status:     models.OfferStatusOffered,
	}

	saved, err := s.repo.SubmitOffer(ctx, offer)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRequestNotFound):
			return nil, apperror.ErrRequestNotFound
		case errors.Is(err, repository.ErrStatusConflict):
			// Заявка ушла из торгов между проверкой и записью.
			return nil, apperror.ErrInvalidStatus
		default:
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить предложение")
		}
	}

	s.notify(req.CustomerID, EventNewOffer, saved)

	return saved, nil
}

// UpdateOfferInput — частичное изменение предложения.
type UpdateOfferInput struct {
	Amount *float64
	Note   *string
}

// UpdateOffer изменяет сумму и/или комментарий живого предложения.
func (s *RequestService) UpdateOffer(ctx context.Context, engineerID, offerID uuid.UUID, input UpdateOfferInput) (*models.EngineerOffer, error) {
	offer, err := s.repo.GetOfferByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return nil, apperror.ErrOfferNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложение")
	}

	// Чужое предложение неотличимо от несуществующего.
	if offer.EngineerID != engineerID {
		return nil, apperror.ErrOfferNotFound
	}
	if !offer.Status.IsLive() {
		return nil, apperror.ErrCannotUpdate
	}

	if input.Amount != nil {
		if err := validation.ValidateAmount(*input.Amount); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}
	if input.Note != nil {
		trimmed := validation.SanitizeString(*input.Note)
		input.Note = &trimmed
		if err := validation.ValidateLength("комментарий", trimmed, 0, validation.MaxNoteLength); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}
	if input.Amount == nil && input.Note == nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "нечего изменять")
	}

	updated, err := s.repo.UpdateOfferTerms(ctx, offerID, input.Amount, input.Note)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperror.ErrCannotUpdate
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить предложение")
	}

	return updated, nil
}

// AcceptOffer принимает предложение от имени клиента. Операция атомарна:
// заявка закрепляется за инженером со снимком условий, остальные живые
// предложения отклоняются. Из двух одновременных акцептов выигрывает
// ровно один, второй получает INVALID_STATUS.
func (s *RequestService) AcceptOffer(ctx context.Context, customerID, requestID, offerID uuid.UUID) (*models.ServiceRequest, error) {
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !req.IsOwnedBy(customerID) {
		return nil, apperror.ErrRequestNotFound
	}
	if !req.Status.AcceptsOffers() {
		return nil, apperror.ErrInvalidStatus
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
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось принять предложение")
		}
	}

	s.notify(offer.EngineerID, EventOfferAccepted, updated)

	return updated, nil
}

// StartService отмечает начало работ назначенным инженером.
func (s *RequestService) StartService(ctx context.Context, engineerID, requestID uuid.UUID) (*models.ServiceRequest, error) {
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !req.IsAssignedTo(engineerID) {
		return nil, apperror.ErrNotAssigned
	}
	if req.Status != models.RequestStatusAssigned {
		return nil, apperror.ErrInvalidStatus
	}

	updated, err := s.repo.UpdateStatusIf(ctx, requestID, []models.RequestStatus{models.RequestStatusAssigned}, models.RequestStatusInProgress)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperror.ErrInvalidStatus
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось начать работу")
	}

	s.notify(updated.CustomerID, EventServiceStarted, updated)

	return updated, nil
}

// CompleteService отмечает завершение работ назначенным инженером.
func (s *RequestService) CompleteService(ctx context.Context, engineerID, requestID uuid.UUID) (*models.ServiceRequest, error) {
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !req.IsAssignedTo(engineerID) {
		return nil, apperror.ErrNotAssigned
	}
	if req.Status != models.RequestStatusInProgress {
		return nil, apperror.ErrInvalidStatus
	}

	updated, err := s.repo.UpdateStatusIf(ctx, requestID, []models.RequestStatus{models.RequestStatusInProgress}, models.RequestStatusCompleted)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperror.ErrInvalidStatus
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось завершить работу")
	}

	s.notify(updated.CustomerID, EventServiceCompleted, updated)

	return updated, nil
}

// CancelRequest отменяет заявку клиентом, пока не принято ни одно
// предложение. Все живые предложения отклоняются той же транзакцией.
func (s *RequestService) CancelRequest(ctx context.Context, customerID, requestID uuid.UUID) (*models.ServiceRequest, error) {
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !req.IsOwnedBy(customerID) {
		return nil, apperror.ErrRequestNotFound
	}
	if !req.Status.AcceptsOffers() {
		return nil, apperror.ErrCannotCancel
	}

	updated, engineerIDs, err := s.repo.CancelWithOffers(ctx, requestID,
		[]models.RequestStatus{models.RequestStatusOpen, models.RequestStatusOffersCollecting},
		models.OfferStatusRejected)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperror.ErrCannotCancel
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось отменить заявку")
	}

	for _, engineerID := range engineerIDs {
		s.notify(engineerID, EventRequestCancelled, updated)
	}

	return updated, nil
}

// RateRequest сохраняет оценку выполненной работы и закрывает заявку.
func (s *RequestService) RateRequest(ctx context.Context, customerID, requestID uuid.UUID, score int, comment *string) (*models.ServiceRequest, error) {
	if err := validation.ValidateScore(score); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if comment != nil {
		trimmed := validation.SanitizeString(*comment)
		comment = &trimmed
		if err := validation.ValidateLength("комментарий", trimmed, 0, validation.MaxNoteLength); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}

	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !req.IsOwnedBy(customerID) {
		return nil, apperror.ErrRequestNotFound
	}
	if req.Status != models.RequestStatusCompleted {
		return nil, apperror.ErrNotCompleted
	}

	updated, err := s.repo.SetRating(ctx, requestID, score, comment, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperror.ErrNotCompleted
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить оценку")
	}

	if updated.EngineerID != nil {
		s.notify(*updated.EngineerID, EventServiceRated, updated)
	}

	return updated, nil
}

// MyOffers возвращает предложения инженера.
func (s *RequestService) MyOffers(ctx context.Context, engineerID uuid.UUID) ([]models.EngineerOffer, error) {
	offers, err := s.repo.ListOffersByEngineer(ctx, engineerID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложения")
	}
	return offers, nil
}

func (s *RequestService) getRequest(ctx context.Context, requestID uuid.UUID) (*models.ServiceRequest, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заявку")
	}
	return req, nil
}
