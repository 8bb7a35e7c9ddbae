package rest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cristianortiz/gridshare/internal/price/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPriceService struct {
	mock.Mock
}

func (m *MockPriceService) QueryPrice(ctx context.Context, stateID string) (decimal.Decimal, error) {
	args := m.Called(ctx, stateID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPriceService) RefreshPrice(ctx context.Context, stateID string) (decimal.Decimal, error) {
	args := m.Called(ctx, stateID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func get(t *testing.T, app *fiber.App, target string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestQueryPrice(t *testing.T) {
	svc := &MockPriceService{}
	app := fiber.New()
	NewPriceHandler(svc).RegisterRoutes(app)

	svc.On("QueryPrice", mock.Anything, "AB").Return(decimal.RequireFromString("0.0984"), nil).Once()
	svc.On("QueryPrice", mock.Anything, "").Return(decimal.Zero, nil).Once()
	svc.On("QueryPrice", mock.Anything, "CA").Return(decimal.Zero, domain.ErrSourceNotConfigured).Once()
	svc.On("QueryPrice", mock.Anything, "NY").Return(decimal.Zero, domain.ErrUpstreamUnavailable).Once()

	code, body := get(t, app, "/queryprice/AB")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0.0984", body)

	code, body = get(t, app, "/queryprice")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0", body)

	code, _ = get(t, app, "/queryprice/CA")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = get(t, app, "/queryprice/NY")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	svc.AssertExpectations(t)
}
