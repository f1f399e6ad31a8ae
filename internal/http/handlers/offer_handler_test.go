package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/engineer-market-backend/internal/dto"
	"github.com/ignatzorin/engineer-market-backend/internal/http/handlers/common"
)

func bindOfferBody(t *testing.T, body string) (*dto.SubmitOfferRequest, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/requests/1/offers", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req dto.SubmitOfferRequest
	err := common.BindAndValidate(c, &req)
	return &req, err
}

func TestSubmitOfferRequest_ZeroCoordinates(t *testing.T) {
	// Точка на экваторе или нулевом меридиане - легитимные координаты.
	req, err := bindOfferBody(t, `{"amount": 1500, "currency": "RUB", "lat": 0, "lng": 0}`)

	assert.NoError(t, err)
	assert.Equal(t, 0.0, *req.Lat)
	assert.Equal(t, 0.0, *req.Lng)
}

func TestSubmitOfferRequest_MissingCoordinates(t *testing.T) {
	_, err := bindOfferBody(t, `{"amount": 1500, "currency": "RUB"}`)

	assert.Error(t, err)
}
