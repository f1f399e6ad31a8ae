package dto

import (
	"github.com/ignatzorin/engineer-market-backend/internal/models"
)

// ErrorResponse is the standard error envelope
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse is the standard success envelope
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// RequestDetailResponse represents a service request with its offers.
// Offers are present only for the request owner and operators.
type RequestDetailResponse struct {
	*models.ServiceRequest
	Offers []models.EngineerOffer `json:"offers,omitempty"`
}

// RequestListResponse represents a paged list of service requests
type RequestListResponse struct {
	Requests []models.ServiceRequest `json:"requests"`
	Total    int                     `json:"total"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
}
