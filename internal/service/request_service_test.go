package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/engineer-market-backend/internal/models"
	"github.com/ignatzorin/engineer-market-backend/internal/pkg/apperror"
	"github.com/ignatzorin/engineer-market-backend/internal/repository"
)

// Координаты центра Саны для тестовых заявок.
const (
	testLat = 15.3694
	testLng = 44.1910
)

type mockRequestRepo struct {
	mock.Mock
}

func (m *mockRequestRepo) Create(ctx context.Context, req *models.ServiceRequest) error {
	args := m.Called(ctx, req)
	if args.Error(0) == nil {
		req.ID = uuid.New()
		req.CreatedAt = time.Now()
		req.UpdatedAt = req.CreatedAt
	}
	return args.Error(0)
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServiceRequest), args.Error(1)
}

func (m *mockRequestRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.ServiceRequest, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).([]models.ServiceRequest), args.Error(1)
}

func (m *mockRequestRepo) ListAdmin(ctx context.Context, params repository.AdminListParams) ([]models.ServiceRequest, int, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]models.ServiceRequest), args.Int(1), args.Error(2)
}

func (m *mockRequestRepo) Nearby(ctx context.Context, lat, lng, radiusKm float64, excludeCustomerID uuid.UUID, limit int) ([]models.ServiceRequest, error) {
	args := m.Called(ctx, lat, lng, radiusKm, excludeCustomerID, limit)
	return args.Get(0).([]models.ServiceRequest), args.Error(1)
}

func (m *mockRequestRepo) SubmitOffer(ctx context.Context, offer *models.EngineerOffer) (*models.EngineerOffer, error) {
	args := m.Called(ctx, offer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EngineerOffer), args.Error(1)
}

func (m *mockRequestRepo) GetOfferByID(ctx context.Context, id uuid.UUID) (*models.EngineerOffer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EngineerOffer), args.Error(1)
}

func (m *mockRequestRepo) ListOffersByRequest(ctx context.Context, requestID uuid.UUID) ([]models.EngineerOffer, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).([]models.EngineerOffer), args.Error(1)
}

func (m *mockRequestRepo) ListOffersByEngineer(ctx context.Context, engineerID uuid.UUID) ([]models.EngineerOffer, error) {
	args := m.Called(ctx, engineerID)
	return args.Get(0).([]models.EngineerOffer), args.Error(1)
}

func (m *mockRequestRepo) UpdateOfferTerms(ctx context.Context, offerID uuid.UUID, amount *float64, note *string) (*models.EngineerOffer, error) {
	args := m.Called(ctx, offerID, amount, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EngineerOffer), args.Error(1)
}

func (m *mockRequestRepo) AcceptOffer(ctx context.Context, requestID, offerID uuid.UUID) (*models.ServiceRequest, *models.EngineerOffer, error) {
	args := m.Called(ctx, requestID, offerID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.ServiceRequest), args.Get(1).(*models.EngineerOffer), args.Error(2)
}

func (m *mockRequestRepo) UpdateStatusIf(ctx context.Context, requestID uuid.UUID, from []models.RequestStatus, to models.RequestStatus) (*models.ServiceRequest, error) {
	args := m.Called(ctx, requestID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServiceRequest), args.Error(1)
}

func (m *mockRequestRepo) CancelWithOffers(ctx context.Context, requestID uuid.UUID, from []models.RequestStatus, offerStatus models.OfferStatus) (*models.ServiceRequest, []uuid.UUID, error) {
	args := m.Called(ctx, requestID, from, offerStatus)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.ServiceRequest), args.Get(1).([]uuid.UUID), args.Error(2)
}

func (m *mockRequestRepo) SetRating(ctx context.Context, requestID uuid.UUID, score int, comment *string, ratedAt time.Time) (*models.ServiceRequest, error) {
	args := m.Called(ctx, requestID, score, comment, ratedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServiceRequest), args.Error(1)
}

func (m *mockRequestRepo) AppendAdminNote(ctx context.Context, requestID uuid.UUID, note models.AdminNote) error {
	args := m.Called(ctx, requestID, note)
	return args.Error(0)
}

// fakeNotifier собирает отправленные уведомления, доставка асинхронная.
type fakeNotifier struct {
	mu     sync.Mutex
	events []string
	ch     chan string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan string, 16)}
}

func (f *fakeNotifier) Notify(userID uuid.UUID, event string, payload interface{}) error {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
	f.ch <- event
	return nil
}

func (f *fakeNotifier) waitEvent(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-f.ch:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("не дождались события %s", want)
	}
}

type fakeResolver struct {
	point *models.GeoPoint
	err   error
}

func (f *fakeResolver) Resolve(ctx context.Context, customerID, addressID uuid.UUID) (*models.GeoPoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.point, nil
}

func openRequest(customerID uuid.UUID) *models.ServiceRequest {
	return &models.ServiceRequest{
		ID:         uuid.New(),
		CustomerID: customerID,
		Title:      "Замена проводки",
		Lat:        testLat,
		Lng:        testLng,
		Status:     models.RequestStatusOpen,
	}
}

func TestRequestService_CreateRequest_Success(t *testing.T) {
	repo := new(mockRequestRepo)
	resolver := &fakeResolver{point: &models.GeoPoint{Lat: testLat, Lng: testLng}}
	notifier := newFakeNotifier()
	svc := NewRequestService(repo, resolver, notifier)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*models.ServiceRequest")).Return(nil)

	customerID := uuid.New()
	req, err := svc.CreateRequest(ctx, customerID, CreateRequestInput{
		AddressID:   uuid.New(),
		Title:       "  Замена проводки  ",
		ServiceType: "электрика",
		Description: "Двухкомнатная квартира",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.RequestStatusOpen, req.Status)
	assert.Equal(t, customerID, req.CustomerID)
	assert.Equal(t, "Замена проводки", req.Title)
	assert.Equal(t, testLat, req.Lat)
	assert.Equal(t, testLng, req.Lng)
	notifier.waitEvent(t, EventRequestOpened)
}

func TestRequestService_CreateRequest_AddressNotFound(t *testing.T) {
	repo := new(mockRequestRepo)
	resolver := &fakeResolver{err: apperror.ErrAddressNotFound}
	svc := NewRequestService(repo, resolver, nil)

	_, err := svc.CreateRequest(context.Background(), uuid.New(), CreateRequestInput{
		AddressID:   uuid.New(),
		Title:       "Замена проводки",
		ServiceType: "электрика",
	})

	assert.True(t, apperror.IsNotFound(err))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRequestService_CreateRequest_ShortTitle(t *testing.T) {
	repo := new(mockRequestRepo)
	resolver := &fakeResolver{point: &models.GeoPoint{Lat: testLat, Lng: testLng}}
	svc := NewRequestService(repo, resolver, nil)

	_, err := svc.CreateRequest(context.Background(), uuid.New(), CreateRequestInput{
		AddressID:   uuid.New(),
		Title:       "ab",
		ServiceType: "электрика",
	})

	assert.True(t, apperror.IsValidation(err))
}

func TestRequestService_SubmitOffer_Success(t *testing.T) {
	repo := new(mockRequestRepo)
	notifier := newFakeNotifier()
	svc := NewRequestService(repo, nil, notifier)
	ctx := context.Background()

	customerID := uuid.New()
	engineerID := uuid.New()
	req := openRequest(customerID)

	repo.On("GetByID", ctx, req.ID).Return(req, nil)
	repo.On("SubmitOffer", ctx, mock.AnythingOfType("*models.EngineerOffer")).
		Run(func(args mock.Arguments) {
			offer := args.Get(1).(*models.EngineerOffer)
			// Расстояние считается сервисом до записи.
			assert.InDelta(t, 0.11, offer.DistanceKm, 0.05)
		}).
		Return(&models.EngineerOffer{
			ID:           uuid.New(),
			RequestID:    req.ID,
			EngineerID:   engineerID,
			Amount:       500000,
			Currency:     "YER",
			Status:       models.OfferStatusOffered,
			UpdatesCount: 1,
		}, nil)

	offer, err := svc.SubmitOffer(ctx, engineerID, req.ID, SubmitOfferInput{
		Amount:   500000,
		Currency: "YER",
		Lat:      15.3704,
		Lng:      44.1910,
	})

	assert.NoError(t, err)
	assert.Equal(t, models.OfferStatusOffered, offer.Status)
	assert.Equal(t, 1, offer.UpdatesCount)
	notifier.waitEvent(t, EventNewOffer)
}

func TestRequestService_SubmitOffer_OwnRequest(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	customerID := uuid.New()
	req := openRequest(customerID)
	repo.On("GetByID", ctx, req.ID).Return(req, nil)

	_, err := svc.SubmitOffer(ctx, customerID, req.ID, SubmitOfferInput{
		Amount: 1000, Currency: "YER", Lat: testLat, Lng: testLng,
	})

	assert.Equal(t, apperror.ErrCodeSelfNotAllowed, apperror.Code(err))
	repo.AssertNotCalled(t, "SubmitOffer", mock.Anything, mock.Anything)
}

func TestRequestService_SubmitOffer_ClosedForBidding(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	req := openRequest(uuid.New())
	req.Status = models.RequestStatusAssigned
	repo.On("GetByID", ctx, req.ID).Return(req, nil)

	_, err := svc.SubmitOffer(ctx, uuid.New(), req.ID, SubmitOfferInput{
		Amount: 1000, Currency: "YER", Lat: testLat, Lng: testLng,
	})

	assert.Equal(t, apperror.ErrCodeInvalidStatus, apperror.Code(err))
}

func TestRequestService_SubmitOffer_LostRace(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	req := openRequest(uuid.New())
	repo.On("GetByID", ctx, req.ID).Return(req, nil)
	repo.On("SubmitOffer", ctx, mock.AnythingOfType("*models.EngineerOffer")).
		Return(nil, repository.ErrStatusConflict)

	_, err := svc.SubmitOffer(ctx, uuid.New(), req.ID, SubmitOfferInput{
		Amount: 1000, Currency: "YER", Lat: testLat, Lng: testLng,
	})

	assert.Equal(t, apperror.ErrCodeInvalidStatus, apperror.Code(err))
}

func TestRequestService_UpdateOffer_NotOwner(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	offer := &models.EngineerOffer{
		ID:         uuid.New(),
		EngineerID: uuid.New(),
		Status:     models.OfferStatusOffered,
	}
	repo.On("GetOfferByID", ctx, offer.ID).Return(offer, nil)

	amount := 2000.0
	_, err := svc.UpdateOffer(ctx, uuid.New(), offer.ID, UpdateOfferInput{Amount: &amount})

	// Чужое предложение выглядит как несуществующее.
	assert.Equal(t, apperror.ErrCodeOfferNotFound, apperror.Code(err))
}

func TestRequestService_UpdateOffer_AlreadyAccepted(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	engineerID := uuid.New()
	offer := &models.EngineerOffer{
		ID:         uuid.New(),
		EngineerID: engineerID,
		Status:     models.OfferStatusAccepted,
	}
	repo.On("GetOfferByID", ctx, offer.ID).Return(offer, nil)

	amount := 2000.0
	_, err := svc.UpdateOffer(ctx, engineerID, offer.ID, UpdateOfferInput{Amount: &amount})

	assert.Equal(t, apperror.ErrCodeCannotUpdate, apperror.Code(err))
}

func TestRequestService_UpdateOffer_Success(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	engineerID := uuid.New()
	offer := &models.EngineerOffer{
		ID:           uuid.New(),
		EngineerID:   engineerID,
		Amount:       500000,
		Status:       models.OfferStatusOffered,
		UpdatesCount: 1,
	}
	repo.On("GetOfferByID", ctx, offer.ID).Return(offer, nil)

	amount := 480000.0
	repo.On("UpdateOfferTerms", ctx, offer.ID, &amount, (*string)(nil)).
		Return(&models.EngineerOffer{
			ID:           offer.ID,
			EngineerID:   engineerID,
			Amount:       amount,
			Status:       models.OfferStatusOffered,
			UpdatesCount: 2,
		}, nil)

	updated, err := svc.UpdateOffer(ctx, engineerID, offer.ID, UpdateOfferInput{Amount: &amount})

	assert.NoError(t, err)
	assert.Equal(t, amount, updated.Amount)
	assert.Equal(t, 2, updated.UpdatesCount)
}

func TestRequestService_AcceptOffer_Success(t *testing.T) {
	repo := new(mockRequestRepo)
	notifier := newFakeNotifier()
	svc := NewRequestService(repo, nil, notifier)
	ctx := context.Background()

	customerID := uuid.New()
	engineerID := uuid.New()
	req := openRequest(customerID)
	req.Status = models.RequestStatusOffersCollecting

	offerID := uuid.New()
	amount := 480000.0
	assigned := *req
	assigned.Status = models.RequestStatusAssigned
	assigned.EngineerID = &engineerID
	assigned.AcceptedOfferID = &offerID
	assigned.AcceptedAmount = &amount

	repo.On("GetByID", ctx, req.ID).Return(req, nil)
	repo.On("AcceptOffer", ctx, req.ID, offerID).Return(&assigned, &models.EngineerOffer{
		ID:         offerID,
		RequestID:  req.ID,
		EngineerID: engineerID,
		Amount:     amount,
		Status:     models.OfferStatusAccepted,
	}, nil)

	updated, err := svc.AcceptOffer(ctx, customerID, req.ID, offerID)

	assert.NoError(t, err)
	assert.Equal(t, models.RequestStatusAssigned, updated.Status)
	assert.Equal(t, engineerID, *updated.EngineerID)
	assert.Equal(t, amount, *updated.AcceptedAmount)
	notifier.waitEvent(t, EventOfferAccepted)
}

func TestRequestService_AcceptOffer_NotOwner(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	req := openRequest(uuid.New())
	req.Status = models.RequestStatusOffersCollecting
	repo.On("GetByID", ctx, req.ID).Return(req, nil)

	_, err := svc.AcceptOffer(ctx, uuid.New(), req.ID, uuid.New())

	assert.True(t, apperror.IsNotFound(err))
	repo.AssertNotCalled(t, "AcceptOffer", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestService_AcceptOffer_SecondAccept(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	customerID := uuid.New()
	engineerID := uuid.New()
	req := openRequest(customerID)
	req.Status = models.RequestStatusAssigned
	req.EngineerID = &engineerID
	repo.On("GetByID", ctx, req.ID).Return(req, nil)

	_, err := svc.AcceptOffer(ctx, customerID, req.ID, uuid.New())

	assert.Equal(t, apperror.ErrCodeInvalidStatus, apperror.Code(err))
}

func TestRequestService_AcceptOffer_LostRace(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	customerID := uuid.New()
	req := openRequest(customerID)
	req.Status = models.RequestStatusOffersCollecting
	offerID := uuid.New()

	repo.On("GetByID", ctx, req.ID).Return(req, nil)
	repo.On("AcceptOffer", ctx, req.ID, offerID).Return(nil, nil, repository.ErrStatusConflict)

	_, err := svc.AcceptOffer(ctx, customerID, req.ID, offerID)

	assert.Equal(t, apperror.ErrCodeInvalidStatus, apperror.Code(err))
}

func TestRequestService_AcceptOffer_RequestGone(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	customerID := uuid.New()
	req := openRequest(customerID)
	offerID := uuid.New()

	// Заявка исчезла между чтением и акцептом внутри транзакции.
	repo.On("GetByID", ctx, req.ID).Return(req, nil)
	repo.On("AcceptOffer", ctx, req.ID, offerID).
		Return(nil, nil, repository.ErrRequestNotFound)

	_, err := svc.AcceptOffer(ctx, customerID, req.ID, offerID)

	assert.True(t, apperror.IsNotFound(err))
}

func TestRequestService_StartService_NotAssignedEngineer(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	engineerID := uuid.New()
	req := openRequest(uuid.New())
	req.Status = models.RequestStatusAssigned
	req.EngineerID = &engineerID
	repo.On("GetByID", ctx, req.ID).Return(req, nil)

	_, err := svc.StartService(ctx, uuid.New(), req.ID)

	assert.Equal(t, apperror.ErrCodeNotAssigned, apperror.Code(err))
}

func TestRequestService_StartService_Success(t *testing.T) {
	repo := new(mockRequestRepo)
	notifier := newFakeNotifier()
	svc := NewRequestService(repo, nil, notifier)
	ctx := context.Background()

	engineerID := uuid.New()
	req := openRequest(uuid.New())
	req.Status = models.RequestStatusAssigned
	req.EngineerID = &engineerID

	started := *req
	started.Status = models.RequestStatusInProgress

	repo.On("GetByID", ctx, req.ID).Return(req, nil)
	repo.On("UpdateStatusIf", ctx, req.ID,
		[]models.RequestStatus{models.RequestStatusAssigned}, models.RequestStatusInProgress).
		Return(&started, nil)

	updated, err := svc.StartService(ctx, engineerID, req.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.RequestStatusInProgress, updated.Status)
	notifier.waitEvent(t, EventServiceStarted)
}

func TestRequestService_CompleteService_WrongStatus(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	engineerID := uuid.New()
	req := openRequest(uuid.New())
	req.Status = models.RequestStatusAssigned
	req.EngineerID = &engineerID
	repo.On("GetByID", ctx, req.ID).Return(req, nil)

	_, err := svc.CompleteService(ctx, engineerID, req.ID)

	assert.Equal(t, apperror.ErrCodeInvalidStatus, apperror.Code(err))
}

func TestRequestService_CancelRequest_AfterAssignment(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	customerID := uuid.New()
	engineerID := uuid.New()
	req := openRequest(customerID)
	req.Status = models.RequestStatusAssigned
	req.EngineerID = &engineerID
	repo.On("GetByID", ctx, req.ID).Return(req, nil)

	_, err := svc.CancelRequest(ctx, customerID, req.ID)

	assert.Equal(t, apperror.ErrCodeCannotCancel, apperror.Code(err))
}

func TestRequestService_CancelRequest_Success(t *testing.T) {
	repo := new(mockRequestRepo)
	notifier := newFakeNotifier()
	svc := NewRequestService(repo, nil, notifier)
	ctx := context.Background()

	customerID := uuid.New()
	engineerID := uuid.New()
	req := openRequest(customerID)
	req.Status = models.RequestStatusOffersCollecting

	cancelled := *req
	cancelled.Status = models.RequestStatusCancelled

	repo.On("GetByID", ctx, req.ID).Return(req, nil)
	repo.On("CancelWithOffers", ctx, req.ID,
		[]models.RequestStatus{models.RequestStatusOpen, models.RequestStatusOffersCollecting},
		models.OfferStatusRejected).
		Return(&cancelled, []uuid.UUID{engineerID}, nil)

	updated, err := svc.CancelRequest(ctx, customerID, req.ID)

	assert.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, updated.Status)
	notifier.waitEvent(t, EventRequestCancelled)
}

func TestRequestService_RateRequest_NotCompleted(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	customerID := uuid.New()
	req := openRequest(customerID)
	req.Status = models.RequestStatusInProgress
	repo.On("GetByID", ctx, req.ID).Return(req, nil)

	_, err := svc.RateRequest(ctx, customerID, req.ID, 5, nil)

	assert.Equal(t, apperror.ErrCodeNotCompleted, apperror.Code(err))
}

func TestRequestService_RateRequest_InvalidScore(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)

	_, err := svc.RateRequest(context.Background(), uuid.New(), uuid.New(), 6, nil)

	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestRequestService_RateRequest_Success(t *testing.T) {
	repo := new(mockRequestRepo)
	notifier := newFakeNotifier()
	svc := NewRequestService(repo, nil, notifier)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	customerID := uuid.New()
	engineerID := uuid.New()
	req := openRequest(customerID)
	req.Status = models.RequestStatusCompleted
	req.EngineerID = &engineerID

	score := 5
	rated := *req
	rated.Status = models.RequestStatusRated
	rated.RatingScore = &score

	comment := "Быстро и аккуратно"
	repo.On("GetByID", ctx, req.ID).Return(req, nil)
	repo.On("SetRating", ctx, req.ID, 5, &comment, svc.now()).Return(&rated, nil)

	updated, err := svc.RateRequest(ctx, customerID, req.ID, 5, &comment)

	assert.NoError(t, err)
	assert.Equal(t, models.RequestStatusRated, updated.Status)
	assert.Equal(t, 5, *updated.RatingScore)
	notifier.waitEvent(t, EventServiceRated)
}

func TestRequestService_NearbyRequests_BadRadius(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)

	_, err := svc.NearbyRequests(context.Background(), uuid.New(), testLat, testLng, -1)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.NearbyRequests(context.Background(), uuid.New(), testLat, testLng, 1000)
	assert.True(t, apperror.IsValidation(err))
}

func TestRequestService_NearbyRequests_Success(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	engineerID := uuid.New()
	distance := 1.5
	results := []models.ServiceRequest{
		{ID: uuid.New(), Status: models.RequestStatusOpen, DistanceKm: &distance},
	}
	repo.On("Nearby", ctx, testLat, testLng, 10.0, engineerID, nearbyPageSize).Return(results, nil)

	found, err := svc.NearbyRequests(ctx, engineerID, testLat, testLng, 10.0)

	assert.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, 1.5, *found[0].DistanceKm)
}

func TestRequestService_GetRequest_HidesOffersFromEngineer(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	customerID := uuid.New()
	engineerID := uuid.New()
	req := openRequest(customerID)
	req.Status = models.RequestStatusAssigned
	req.EngineerID = &engineerID
	repo.On("GetByID", ctx, req.ID).Return(req, nil)

	got, offers, err := svc.GetRequest(ctx, engineerID, req.ID)

	assert.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
	assert.Nil(t, offers)
	repo.AssertNotCalled(t, "ListOffersByRequest", mock.Anything, mock.Anything)
}

func TestRequestService_GetRequest_Stranger(t *testing.T) {
	repo := new(mockRequestRepo)
	svc := NewRequestService(repo, nil, nil)
	ctx := context.Background()

	req := openRequest(uuid.New())
	repo.On("GetByID", ctx, req.ID).Return(req, nil)

	_, _, err := svc.GetRequest(ctx, uuid.New(), req.ID)

	assert.True(t, apperror.IsNotFound(err))
}
