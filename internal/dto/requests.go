package dto

import (
	"time"

	"github.com/google/uuid"
)

// CreateServiceRequestRequest represents the request to publish a service request
type CreateServiceRequestRequest struct {
	AddressID   string   `json:"address_id" binding:"required"`
	Title       string   `json:"title" binding:"required"`
	ServiceType string   `json:"service_type" binding:"required"`
	Description string   `json:"description"`
	ImageURLs   []string `json:"image_urls"`
	ScheduledAt *string  `json:"scheduled_at"`
}

// ParseAddressID parses the address_id field into a UUID
func (r *CreateServiceRequestRequest) ParseAddressID() (uuid.UUID, error) {
	return uuid.Parse(r.AddressID)
}

// ParseScheduledAt parses the optional scheduled_at field (RFC3339)
func (r *CreateServiceRequestRequest) ParseScheduledAt() (*time.Time, error) {
	if r.ScheduledAt == nil || *r.ScheduledAt == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *r.ScheduledAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SubmitOfferRequest represents an engineer's offer on a service request
type SubmitOfferRequest struct {
	Amount   float64  `json:"amount" binding:"required"`
	Currency string   `json:"currency" binding:"required"`
	Note     *string  `json:"note"`
	Lat      *float64 `json:"lat" binding:"required"`
	Lng      *float64 `json:"lng" binding:"required"`
}

// UpdateOfferRequest represents a partial update of a live offer
type UpdateOfferRequest struct {
	Amount *float64 `json:"amount"`
	Note   *string  `json:"note"`
}

// RateServiceRequest represents the customer rating of a completed service
type RateServiceRequest struct {
	Score   int     `json:"score" binding:"required"`
	Comment *string `json:"comment"`
}

// AdminUpdateStatusRequest represents a manual status transition by an operator
type AdminUpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// AdminCancelRequest represents a cancellation by an operator
type AdminCancelRequest struct {
	Reason string `json:"reason"`
}

// AdminAssignEngineerRequest represents a forced engineer assignment
type AdminAssignEngineerRequest struct {
	EngineerID string `json:"engineer_id" binding:"required"`
}

// ParseEngineerID parses the engineer_id field into a UUID
func (r *AdminAssignEngineerRequest) ParseEngineerID() (uuid.UUID, error) {
	return uuid.Parse(r.EngineerID)
}
