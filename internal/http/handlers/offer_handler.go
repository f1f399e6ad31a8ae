package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/engineer-market-backend/internal/dto"
	"github.com/ignatzorin/engineer-market-backend/internal/http/handlers/common"
	"github.com/ignatzorin/engineer-market-backend/internal/service"
)

// Радиус поиска по умолчанию, км.
const defaultNearbyRadiusKm = 10

// OfferHandler обслуживает маршруты инженера: поиск заявок рядом, подача
// и правка предложений, отметки о ходе работ.
type OfferHandler struct {
	requests *service.RequestService
}

// NewOfferHandler создаёт новый хэндлер.
func NewOfferHandler(requests *service.RequestService) *OfferHandler {
	return &OfferHandler{requests: requests}
}

// NearbyRequests обрабатывает GET /requests/nearby?lat=..&lng=..&radius_km=..
func (h *OfferHandler) NearbyRequests(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	lat, ok := common.ParseFloatQuery(c, "lat")
	if !ok {
		common.RespondBadRequest(c, "параметр lat обязателен")
		return
	}
	lng, ok := common.ParseFloatQuery(c, "lng")
	if !ok {
		common.RespondBadRequest(c, "параметр lng обязателен")
		return
	}
	radiusKm, ok := common.ParseFloatQuery(c, "radius_km")
	if !ok {
		radiusKm = defaultNearbyRadiusKm
	}

	requests, err := h.requests.NearbyRequests(c.Request.Context(), userID, lat, lng, radiusKm)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

// SubmitOffer обрабатывает POST /requests/:id/offers.
func (h *OfferHandler) SubmitOffer(c *gin.Context) {
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

	var req dto.SubmitOfferRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	offer, err := h.requests.SubmitOffer(c.Request.Context(), userID, requestID, service.SubmitOfferInput{
		Amount:   req.Amount,
		Currency: req.Currency,
		Note:     req.Note,
		Lat:      *req.Lat,
		Lng:      *req.Lng,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, offer)
}

// UpdateOffer обрабатывает PATCH /offers/:id.
func (h *OfferHandler) UpdateOffer(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	offerID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.UpdateOfferRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	offer, err := h.requests.UpdateOffer(c.Request.Context(), userID, offerID, service.UpdateOfferInput{
		Amount: req.Amount,
		Note:   req.Note,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, offer)
}

// MyOffers обрабатывает GET /offers/my.
func (h *OfferHandler) MyOffers(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	offers, err := h.requests.MyOffers(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, offers)
}

// StartService обрабатывает POST /requests/:id/start.
func (h *OfferHandler) StartService(c *gin.Context) {
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

	updated, err := h.requests.StartService(c.Request.Context(), userID, requestID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// CompleteService обрабатывает POST /requests/:id/complete.
func (h *OfferHandler) CompleteService(c *gin.Context) {
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

	updated, err := h.requests.CompleteService(c.Request.Context(), userID, requestID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}
