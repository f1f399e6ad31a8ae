package address

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/engineer-market-backend/internal/models"
	"github.com/ignatzorin/engineer-market-backend/internal/pkg/apperror"
)

// Client — HTTP адаптер внешнего сервиса адресов. Ядро обращается к нему
// один раз, при создании заявки, чтобы получить координаты сохранённого
// адреса клиента.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент сервиса адресов.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type resolveResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Resolve возвращает координаты адреса клиента. Если адрес не существует
// или принадлежит другому пользователю, сервис отвечает 404 и метод
// возвращает apperror.ErrAddressNotFound.
func (c *Client) Resolve(ctx context.Context, customerID, addressID uuid.UUID) (*models.GeoPoint, error) {
	url := fmt.Sprintf("%s/internal/customers/%s/addresses/%s", c.baseURL, customerID, addressID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("address client: build request %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("address client: do request %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// продолжаем
	case http.StatusNotFound:
		return nil, apperror.ErrAddressNotFound
	default:
		return nil, fmt.Errorf("address client: неожиданный статус %d", resp.StatusCode)
	}

	var body resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("address client: decode response %w", err)
	}

	return &models.GeoPoint{Lat: body.Lat, Lng: body.Lng}, nil
}
