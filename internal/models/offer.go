package models

import (
	"time"

	"github.com/google/uuid"
)

// OfferStatus — статус предложения инженера.
type OfferStatus string

const (
	OfferStatusOffered  OfferStatus = "offered"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusRejected OfferStatus = "rejected"
	OfferStatusExpired  OfferStatus = "expired"

	// Зарезервированные статусы: ни одна операция ядра их не порождает,
	// но они присутствуют в таксономии и могут приходить из старых данных.
	OfferStatusCancelled OfferStatus = "cancelled"
	OfferStatusOutbid    OfferStatus = "outbid"
)

// IsValid проверяет, что статус входит в закрытый список.
func (s OfferStatus) IsValid() bool {
	switch s {
	case OfferStatusOffered, OfferStatusAccepted, OfferStatusRejected,
		OfferStatusExpired, OfferStatusCancelled, OfferStatusOutbid:
		return true
	}
	return false
}

// IsLive сообщает, участвует ли предложение в торгах.
func (s OfferStatus) IsLive() bool {
	return s == OfferStatusOffered
}

// EngineerOffer — предложение инженера по конкретной заявке.
// Пара (request_id, engineer_id) уникальна: у инженера не может быть
// двух живых предложений по одной заявке.
type EngineerOffer struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	RequestID  uuid.UUID   `db:"request_id" json:"request_id"`
	EngineerID uuid.UUID   `db:"engineer_id" json:"engineer_id"`
	Amount     float64     `db:"amount" json:"amount"`
	Currency   string      `db:"currency" json:"currency"`
	Note       *string     `db:"note" json:"note,omitempty"`
	DistanceKm float64     `db:"distance_km" json:"distance_km"`
	Status     OfferStatus `db:"status" json:"status"`

	// Счётчик правок: растёт при каждом повторном submit и update.
	UpdatesCount int `db:"updates_count" json:"updates_count"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
