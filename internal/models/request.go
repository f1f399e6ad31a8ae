package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// RequestStatus — статус заявки на выездную услугу.
type RequestStatus string

const (
	RequestStatusOpen             RequestStatus = "open"
	RequestStatusOffersCollecting RequestStatus = "offers_collecting"
	RequestStatusAssigned         RequestStatus = "assigned"
	RequestStatusInProgress       RequestStatus = "in_progress"
	RequestStatusCompleted        RequestStatus = "completed"
	RequestStatusRated            RequestStatus = "rated"
	RequestStatusCancelled        RequestStatus = "cancelled"
)

// IsValid проверяет, что статус входит в закрытый список.
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusOpen, RequestStatusOffersCollecting, RequestStatusAssigned,
		RequestStatusInProgress, RequestStatusCompleted, RequestStatusRated, RequestStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo проверяет допустимость перехода между статусами заявки.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	transitions := map[RequestStatus][]RequestStatus{
		RequestStatusOpen:             {RequestStatusOffersCollecting, RequestStatusAssigned, RequestStatusCancelled},
		RequestStatusOffersCollecting: {RequestStatusAssigned, RequestStatusCancelled},
		RequestStatusAssigned:         {RequestStatusInProgress},
		RequestStatusInProgress:       {RequestStatusCompleted},
		RequestStatusCompleted:        {RequestStatusRated},
		RequestStatusRated:            {},
		RequestStatusCancelled:        {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == next {
			return true
		}
	}
	return false
}

// AcceptsOffers сообщает, принимает ли заявка новые предложения инженеров.
func (s RequestStatus) AcceptsOffers() bool {
	return s == RequestStatusOpen || s == RequestStatusOffersCollecting
}

// IsTerminal сообщает, что заявка достигла конечного состояния.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusRated || s == RequestStatusCancelled
}

// AdminNote — запись административного вмешательства в заявку.
type AdminNote struct {
	AdminID   uuid.UUID `json:"admin_id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// AdminNotes хранится в колонке jsonb и только дополняется.
type AdminNotes []AdminNote

// Value сериализует заметки для записи в jsonb.
func (n AdminNotes) Value() (driver.Value, error) {
	if n == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(n)
}

// Scan читает заметки из jsonb.
func (n *AdminNotes) Scan(src interface{}) error {
	if src == nil {
		*n = AdminNotes{}
		return nil
	}

	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("models: неожиданный тип admin_notes %T", src)
	}
	return json.Unmarshal(raw, n)
}

// ServiceRequest описывает заявку клиента на выездную услугу инженера.
type ServiceRequest struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	CustomerID  uuid.UUID      `db:"customer_id" json:"customer_id"`
	EngineerID  *uuid.UUID     `db:"engineer_id" json:"engineer_id,omitempty"`
	Title       string         `db:"title" json:"title"`
	ServiceType string         `db:"service_type" json:"service_type"`
	Description string         `db:"description" json:"description"`
	ImageURLs   pq.StringArray `db:"image_urls" json:"image_urls,omitempty"`
	ScheduledAt *time.Time     `db:"scheduled_at" json:"scheduled_at,omitempty"`
	Lat         float64        `db:"lat" json:"lat"`
	Lng         float64        `db:"lng" json:"lng"`
	Status      RequestStatus  `db:"status" json:"status"`

	// Снимок принятого предложения: заполняется ровно один раз при акцепте.
	AcceptedOfferID *uuid.UUID `db:"accepted_offer_id" json:"accepted_offer_id,omitempty"`
	AcceptedAmount  *float64   `db:"accepted_amount" json:"accepted_amount,omitempty"`
	AcceptedNote    *string    `db:"accepted_note" json:"accepted_note,omitempty"`

	RatingScore   *int       `db:"rating_score" json:"rating_score,omitempty"`
	RatingComment *string    `db:"rating_comment" json:"rating_comment,omitempty"`
	RatedAt       *time.Time `db:"rated_at" json:"rated_at,omitempty"`

	AdminNotes AdminNotes `db:"admin_notes" json:"admin_notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Расстояние до инженера, вычисляется только в выдаче nearby.
	DistanceKm *float64 `db:"distance_km" json:"distance_km,omitempty"`
}

// IsOwnedBy проверяет принадлежность заявки клиенту.
func (r *ServiceRequest) IsOwnedBy(customerID uuid.UUID) bool {
	return r.CustomerID == customerID
}

// IsAssignedTo проверяет, что заявка закреплена за инженером.
func (r *ServiceRequest) IsAssignedTo(engineerID uuid.UUID) bool {
	return r.EngineerID != nil && *r.EngineerID == engineerID
}
