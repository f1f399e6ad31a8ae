package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/engineer-market-backend/internal/dto"
	"github.com/ignatzorin/engineer-market-backend/internal/http/handlers/common"
	"github.com/ignatzorin/engineer-market-backend/internal/models"
	"github.com/ignatzorin/engineer-market-backend/internal/repository"
	"github.com/ignatzorin/engineer-market-backend/internal/service"
)

// AdminHandler обслуживает маршруты оператора поддержки.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler создаёт новый хэндлер.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListRequests обрабатывает GET /admin/requests?status=..&limit=..&offset=..
func (h *AdminHandler) ListRequests(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	params := repository.AdminListParams{
		Status: models.RequestStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}

	requests, total, err := h.admin.ListRequests(c.Request.Context(), params)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RequestListResponse{
		Requests: requests,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// GetRequest обрабатывает GET /admin/requests/:id.
func (h *AdminHandler) GetRequest(c *gin.Context) {
	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	req, offers, err := h.admin.GetRequestDetail(c.Request.Context(), requestID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RequestDetailResponse{ServiceRequest: req, Offers: offers})
}

// UpdateStatus обрабатывает PUT /admin/requests/:id/status.
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.AdminUpdateStatusRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	updated, err := h.admin.UpdateStatus(c.Request.Context(), adminID, requestID, models.RequestStatus(req.Status), req.Note)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// CancelRequest обрабатывает POST /admin/requests/:id/cancel.
func (h *AdminHandler) CancelRequest(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.AdminCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Причина необязательна, пустое тело допустимо.
		req.Reason = ""
	}

	updated, err := h.admin.CancelRequest(c.Request.Context(), adminID, requestID, req.Reason)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// AssignEngineer обрабатывает POST /admin/requests/:id/assign.
func (h *AdminHandler) AssignEngineer(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.AdminAssignEngineerRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	engineerID, err := req.ParseEngineerID()
	if err != nil {
		common.RespondBadRequest(c, "engineer_id должен быть валидным UUID")
		return
	}

	updated, err := h.admin.AssignEngineer(c.Request.Context(), adminID, requestID, engineerID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}
