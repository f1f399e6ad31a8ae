package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/engineer-market-backend/internal/dto"
	"github.com/ignatzorin/engineer-market-backend/internal/http/handlers/common"
	"github.com/ignatzorin/engineer-market-backend/internal/service"
)

// RequestHandler обслуживает маршруты клиента: публикация заявки, акцепт
// предложения, отмена и оценка выполненной работы.
type RequestHandler struct {
	requests *service.RequestService
}

// NewRequestHandler создаёт новый хэндлер.
func NewRequestHandler(requests *service.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// CreateRequest обрабатывает POST /requests.
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateServiceRequestRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	addressID, err := req.ParseAddressID()
	if err != nil {
		common.RespondBadRequest(c, "address_id должен быть валидным UUID")
		return
	}

	scheduledAt, err := req.ParseScheduledAt()
	if err != nil {
		common.RespondBadRequest(c, "scheduled_at должен быть в формате RFC3339")
		return
	}

	created, err := h.requests.CreateRequest(c.Request.Context(), userID, service.CreateRequestInput{
		AddressID:   addressID,
		Title:       req.Title,
		ServiceType: req.ServiceType,
		Description: req.Description,
		ImageURLs:   req.ImageURLs,
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// MyRequests обрабатывает GET /requests/my.
func (h *RequestHandler) MyRequests(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requests, err := h.requests.MyRequests(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

// GetRequest обрабатывает GET /requests/:id.
func (h *RequestHandler) GetRequest(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	req, offers, err := h.requests.GetRequest(c.Request.Context(), userID, requestID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RequestDetailResponse{ServiceRequest: req, Offers: offers})
}

// AcceptOffer обрабатывает POST /requests/:id/offers/:offerId/accept.
func (h *RequestHandler) AcceptOffer(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	offerID, err := common.ParseUUIDParam(c, "offerId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	updated, err := h.requests.AcceptOffer(c.Request.Context(), userID, requestID, offerID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// CancelRequest обрабатывает POST /requests/:id/cancel.
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	updated, err := h.requests.CancelRequest(c.Request.Context(), userID, requestID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// RateRequest обрабатывает POST /requests/:id/rate.
func (h *RequestHandler) RateRequest(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RateServiceRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	updated, err := h.requests.RateRequest(c.Request.Context(), userID, requestID, req.Score, req.Comment)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}
