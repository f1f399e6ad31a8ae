package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/engineer-market-backend/internal/models"
)

// Ошибки уровня репозитория.
var (
	ErrRequestNotFound = errors.New("service request not found")
	ErrOfferNotFound   = errors.New("engineer offer not found")

	// ErrStatusConflict возвращается, когда условное обновление не прошло:
	// заявка уже переведена в другой статус параллельной операцией.
	ErrStatusConflict = errors.New("request status changed concurrently")
)

const requestColumns = `
	id, customer_id, engineer_id, title, service_type, description, image_urls,
	scheduled_at, lat, lng, status, accepted_offer_id, accepted_amount, accepted_note,
	rating_score, rating_comment, rated_at, admin_notes, created_at, updated_at
`

const offerColumns = `
	id, request_id, engineer_id, amount, currency, note, distance_km,
	status, updates_count, created_at, updated_at
`

// RequestRepository отвечает за работу с заявками и предложениями инженеров.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository создаёт новый экземпляр.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create сохраняет новую заявку.
func (r *RequestRepository) Create(ctx context.Context, req *models.ServiceRequest) error {
	query := `
		INSERT INTO service_requests (customer_id, title, service_type, description, image_urls, scheduled_at, lat, lng, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		req.CustomerID,
		req.Title,
		req.ServiceType,
		req.Description,
		pq.Array([]string(req.ImageURLs)),
		req.ScheduledAt,
		req.Lat,
		req.Lng,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return fmt.Errorf("request repository: create %w", err)
	}

	return nil
}

// GetByID возвращает заявку по идентификатору.
func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE id = $1`
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("request repository: get by id %w", err)
	}
	return &req, nil
}

// ListByCustomer возвращает заявки клиента, новые первыми.
func (r *RequestRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.ServiceRequest, error) {
	var requests []models.ServiceRequest
	query := `
		SELECT ` + requestColumns + `
		FROM service_requests
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &requests, query, customerID); err != nil {
		return nil, fmt.Errorf("request repository: list by customer %w", err)
	}
	return requests, nil
}

// AdminListParams содержит параметры административной выборки заявок.
type AdminListParams struct {
	Status models.RequestStatus
	Limit  int
	Offset int
}

// ListAdmin возвращает страницу заявок для оператора с общим количеством.
func (r *RequestRepository) ListAdmin(ctx context.Context, params AdminListParams) ([]models.ServiceRequest, int, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	where := ``
	args := []interface{}{}
	argIndex := 1
	if params.Status != "" {
		where = fmt.Sprintf(`WHERE status = $%d`, argIndex)
		args = append(args, params.Status)
		argIndex++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM service_requests ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("request repository: admin count %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM service_requests
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, requestColumns, where, argIndex, argIndex+1)
	args = append(args, params.Limit, params.Offset)

	var requests []models.ServiceRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("request repository: admin list %w", err)
	}

	return requests, total, nil
}

// Nearby возвращает открытые для торгов заявки в радиусе radiusKm от точки,
// ближние первыми. Заявки самого инженера и уже закреплённые исключаются.
// Сначала грубый отбор по geo-индексу (earth_box), затем точная проверка радиуса.
func (r *RequestRepository) Nearby(ctx context.Context, lat, lng, radiusKm float64, excludeCustomerID uuid.UUID, limit int) ([]models.ServiceRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	query := `
		SELECT ` + requestColumns + `,
		       ROUND((earth_distance(ll_to_earth($1, $2), ll_to_earth(lat, lng)) / 1000.0)::numeric, 2)::float8 AS distance_km
		FROM service_requests
		WHERE status IN ('open', 'offers_collecting')
		  AND engineer_id IS NULL
		  AND customer_id <> $3
		  AND earth_box(ll_to_earth($1, $2), $4 * 1000.0) @> ll_to_earth(lat, lng)
		  AND earth_distance(ll_to_earth($1, $2), ll_to_earth(lat, lng)) <= $4 * 1000.0
		ORDER BY distance_km
		LIMIT $5
	`

	var requests []models.ServiceRequest
	if err := r.db.SelectContext(ctx, &requests, query, lat, lng, excludeCustomerID, radiusKm, limit); err != nil {
		return nil, fmt.Errorf("request repository: nearby %w", err)
	}
	return requests, nil
}

// SubmitOffer сохраняет предложение инженера в одной транзакции:
// блокирует строку заявки, проверяет что торги ещё идут, upsert-ит
// предложение по ключу (request_id, engineer_id) и переводит заявку
// из open в offers_collecting при первом предложении.
func (r *RequestRepository) SubmitOffer(ctx context.Context, offer *models.EngineerOffer) (*models.EngineerOffer, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("request repository: begin tx %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// FOR UPDATE сериализует submit против параллельного accept/cancel той же заявки.
	var status models.RequestStatus
	err = tx.GetContext(ctx, &status, `SELECT status FROM service_requests WHERE id = $1 FOR UPDATE`, offer.RequestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrRequestNotFound
			return nil, err
		}
		return nil, fmt.Errorf("request repository: lock request %w", err)
	}

	if !status.AcceptsOffers() {
		err = ErrStatusConflict
		return nil, err
	}

	// Уникальный ключ превращает повторный submit в обновление существующей
	// строки, счётчик правок растёт.
	var saved models.EngineerOffer
	upsert := `
		INSERT INTO engineer_offers (request_id, engineer_id, amount, currency, note, distance_km, status, updates_count)
		VALUES ($1, $2, $3, $4, $5, $6, 'offered', 1)
		ON CONFLICT ON CONSTRAINT engineer_offers_request_engineer_key DO UPDATE
		SET amount        = EXCLUDED.amount,
		    currency      = EXCLUDED.currency,
		    note          = EXCLUDED.note,
		    distance_km   = EXCLUDED.distance_km,
		    status        = 'offered',
		    updates_count = engineer_offers.updates_count + 1,
		    updated_at    = NOW()
		RETURNING ` + offerColumns + `
	`
	if err = tx.QueryRowxContext(ctx, upsert,
		offer.RequestID, offer.EngineerID, offer.Amount, offer.Currency, offer.Note, offer.DistanceKm,
	).StructScan(&saved); err != nil {
		return nil, fmt.Errorf("request repository: upsert offer %w", err)
	}

	if status == models.RequestStatusOpen {
		if _, err = tx.ExecContext(ctx, `
			UPDATE service_requests
			SET status = 'offers_collecting', updated_at = NOW()
			WHERE id = $1 AND status = 'open'
		`, offer.RequestID); err != nil {
			return nil, fmt.Errorf("request repository: collecting flip %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("request repository: commit submit offer %w", err)
	}

	return &saved, nil
}

// GetOfferByID возвращает предложение по идентификатору.
func (r *RequestRepository) GetOfferByID(ctx context.Context, id uuid.UUID) (*models.EngineerOffer, error) {
	var offer models.EngineerOffer
	query := `SELECT ` + offerColumns + ` FROM engineer_offers WHERE id = $1`
	if err := r.db.GetContext(ctx, &offer, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("request repository: get offer %w", err)
	}
	return &offer, nil
}

// ListOffersByRequest возвращает все предложения по заявке.
func (r *RequestRepository) ListOffersByRequest(ctx context.Context, requestID uuid.UUID) ([]models.EngineerOffer, error) {
	var offers []models.EngineerOffer
	query := `
		SELECT ` + offerColumns + `
		FROM engineer_offers
		WHERE request_id = $1
		ORDER BY amount, created_at
	`
	if err := r.db.SelectContext(ctx, &offers, query, requestID); err != nil {
		return nil, fmt.Errorf("request repository: list offers by request %w", err)
	}
	return offers, nil
}

// ListOffersByEngineer возвращает предложения инженера, новые первыми.
func (r *RequestRepository) ListOffersByEngineer(ctx context.Context, engineerID uuid.UUID) ([]models.EngineerOffer, error) {
	var offers []models.EngineerOffer
	query := `
		SELECT ` + offerColumns + `
		FROM engineer_offers
		WHERE engineer_id = $1
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &offers, query, engineerID); err != nil {
		return nil, fmt.Errorf("request repository: list offers by engineer %w", err)
	}
	return offers, nil
}

// UpdateOfferTerms частично обновляет сумму и комментарий предложения.
// Обновление условное: проходит только пока предложение живое, иначе
// правка проиграла гонку с акцептом и возвращается ErrStatusConflict.
func (r *RequestRepository) UpdateOfferTerms(ctx context.Context, offerID uuid.UUID, amount *float64, note *string) (*models.EngineerOffer, error) {
	query := `
		UPDATE engineer_offers
		SET amount        = COALESCE($2, amount),
		    note          = COALESCE($3, note),
		    updates_count = updates_count + 1,
		    updated_at    = NOW()
		WHERE id = $1 AND status = 'offered'
		RETURNING ` + offerColumns + `
	`

	var offer models.EngineerOffer
	if err := r.db.QueryRowxContext(ctx, query, offerID, amount, note).StructScan(&offer); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("request repository: update offer terms %w", err)
	}
	return &offer, nil
}

// AcceptOffer применяет акцепт как одну атомарную транзакцию:
// заявка переходит в assigned со снимком предложения, победившее
// предложение становится accepted, остальные живые - rejected.
// Если заявка уже ушла из open/offers_collecting, возвращается
// ErrStatusConflict: из двух одновременных акцептов выигрывает один.
func (r *RequestRepository) AcceptOffer(ctx context.Context, requestID, offerID uuid.UUID) (*models.ServiceRequest, *models.EngineerOffer, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("request repository: begin tx %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Порядок блокировок: сначала заявка, потом предложение - тот же,
	// что в SubmitOffer, иначе встречные submit и accept взаимоблокируются.
	var reqStatus models.RequestStatus
	err = tx.GetContext(ctx, &reqStatus, `
		SELECT status FROM service_requests WHERE id = $1 FOR UPDATE
	`, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrRequestNotFound
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("request repository: lock request %w", err)
	}
	if !reqStatus.AcceptsOffers() {
		err = ErrStatusConflict
		return nil, nil, err
	}

	var offer models.EngineerOffer
	err = tx.GetContext(ctx, &offer, `
		SELECT `+offerColumns+`
		FROM engineer_offers
		WHERE id = $1 AND request_id = $2 AND status = 'offered'
		FOR UPDATE
	`, offerID, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrOfferNotFound
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("request repository: lock offer %w", err)
	}

	// Compare-and-set по статусу: второй параллельный акцепт получит 0 строк.
	var req models.ServiceRequest
	err = tx.QueryRowxContext(ctx, `
		UPDATE service_requests
		SET status            = 'assigned',
		    engineer_id       = $2,
		    accepted_offer_id = $3,
		    accepted_amount   = $4,
		    accepted_note     = $5,
		    updated_at        = NOW()
		WHERE id = $1
		  AND status IN ('open', 'offers_collecting')
		  AND engineer_id IS NULL
		RETURNING `+requestColumns+`
	`, requestID, offer.EngineerID, offer.ID, offer.Amount, offer.Note).StructScan(&req)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrStatusConflict
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("request repository: assign request %w", err)
	}

	if err = tx.QueryRowxContext(ctx, `
		UPDATE engineer_offers
		SET status = 'accepted', updated_at = NOW()
		WHERE id = $1
		RETURNING `+offerColumns+`
	`, offer.ID).StructScan(&offer); err != nil {
		return nil, nil, fmt.Errorf("request repository: accept offer %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE engineer_offers
		SET status = 'rejected', updated_at = NOW()
		WHERE request_id = $1 AND id <> $2 AND status = 'offered'
	`, requestID, offer.ID); err != nil {
		return nil, nil, fmt.Errorf("request repository: reject siblings %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("request repository: commit accept %w", err)
	}

	return &req, &offer, nil
}

// UpdateStatusIf выполняет условный переход статуса заявки (start/complete).
// Возвращает ErrStatusConflict, если заявка уже не в ожидаемом исходном статусе.
func (r *RequestRepository) UpdateStatusIf(ctx context.Context, requestID uuid.UUID, from []models.RequestStatus, to models.RequestStatus) (*models.ServiceRequest, error) {
	fromList := make([]string, len(from))
	for i, s := range from {
		fromList[i] = string(s)
	}

	query := `
		UPDATE service_requests
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
		RETURNING ` + requestColumns + `
	`

	var req models.ServiceRequest
	if err := r.db.QueryRowxContext(ctx, query, requestID, to, pq.Array(fromList)).StructScan(&req); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("request repository: update status %w", err)
	}
	return &req, nil
}

// CancelWithOffers отменяет заявку и каскадно закрывает живые предложения
// одной транзакцией. offerStatus задаёт судьбу предложений: rejected при
// отмене клиентом или оператором, expired при чистке по TTL.
// Возвращает идентификаторы инженеров, чьи предложения были закрыты.
func (r *RequestRepository) CancelWithOffers(ctx context.Context, requestID uuid.UUID, from []models.RequestStatus, offerStatus models.OfferStatus) (*models.ServiceRequest, []uuid.UUID, error) {
	fromList := make([]string, len(from))
	for i, s := range from {
		fromList[i] = string(s)
	}

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("request repository: begin tx %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var req models.ServiceRequest
	err = tx.QueryRowxContext(ctx, `
		UPDATE service_requests
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = ANY($2) AND accepted_offer_id IS NULL
		RETURNING `+requestColumns+`
	`, requestID, pq.Array(fromList)).StructScan(&req)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrStatusConflict
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("request repository: cancel request %w", err)
	}

	var engineerIDs []uuid.UUID
	rows, err := tx.QueryxContext(ctx, `
		UPDATE engineer_offers
		SET status = $2, updated_at = NOW()
		WHERE request_id = $1 AND status = 'offered'
		RETURNING engineer_id
	`, requestID, offerStatus)
	if err != nil {
		return nil, nil, fmt.Errorf("request repository: cascade offers %w", err)
	}
	for rows.Next() {
		var engineerID uuid.UUID
		if err = rows.Scan(&engineerID); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("request repository: scan cascaded offer %w", err)
		}
		engineerIDs = append(engineerIDs, engineerID)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("request repository: cascade offers rows %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("request repository: commit cancel %w", err)
	}

	return &req, engineerIDs, nil
}

// SetRating сохраняет оценку и переводит заявку в rated.
// Условие по статусу гарантирует, что оценка ставится ровно один раз.
func (r *RequestRepository) SetRating(ctx context.Context, requestID uuid.UUID, score int, comment *string, ratedAt time.Time) (*models.ServiceRequest, error) {
	query := `
		UPDATE service_requests
		SET status = 'rated',
		    rating_score = $2,
		    rating_comment = $3,
		    rated_at = $4,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'completed'
		RETURNING ` + requestColumns + `
	`

	var req models.ServiceRequest
	if err := r.db.QueryRowxContext(ctx, query, requestID, score, comment, ratedAt).StructScan(&req); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("request repository: set rating %w", err)
	}
	return &req, nil
}

// AppendAdminNote дописывает запись в append-only журнал вмешательств.
func (r *RequestRepository) AppendAdminNote(ctx context.Context, requestID uuid.UUID, note models.AdminNote) error {
	raw, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("request repository: marshal admin note %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE service_requests
		SET admin_notes = admin_notes || $2::jsonb, updated_at = NOW()
		WHERE id = $1
	`, requestID, raw)
	if err != nil {
		return fmt.Errorf("request repository: append admin note %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("request repository: append admin note rows %w", err)
	}
	if affected == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// SelectStale возвращает заявки без принятого предложения, застрявшие в
// open/offers_collecting дольше cutoff. Используется чистильщиком.
func (r *RequestRepository) SelectStale(ctx context.Context, cutoff time.Time, limit int) ([]models.ServiceRequest, error) {
	if limit <= 0 {
		limit = 500
	}

	var requests []models.ServiceRequest
	query := `
		SELECT ` + requestColumns + `
		FROM service_requests
		WHERE status IN ('open', 'offers_collecting')
		  AND accepted_offer_id IS NULL
		  AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &requests, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("request repository: select stale %w", err)
	}
	return requests, nil
}

// ResetOfferUpdateCounters обнуляет антиспам-счётчики правок у живых
// предложений. Вызывается чистильщиком раз в месяц.
func (r *RequestRepository) ResetOfferUpdateCounters(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE engineer_offers
		SET updates_count = 0
		WHERE status = 'offered' AND updates_count > 0
	`)
	if err != nil {
		return 0, fmt.Errorf("request repository: reset counters %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("request repository: reset counters rows %w", err)
	}
	return affected, nil
}

// IsUniqueViolation определяет нарушение уникального ограничения Postgres.
// Оставлено для вызывающего кода, который хочет повторить запись при гонке.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
