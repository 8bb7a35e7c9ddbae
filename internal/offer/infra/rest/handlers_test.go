package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/cristianortiz/gridshare/internal/offer/application"
	"github.com/cristianortiz/gridshare/internal/offer/domain"
	"github.com/cristianortiz/gridshare/internal/offer/infra/repository/memory"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const edmonton = "1 Main St, Edmonton, Alberta, Canada"

type fixedDistances struct {
	err error
}

func (f fixedDistances) Distances(ctx context.Context, origin string, destinations []string) ([]domain.Distance, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Distance, len(destinations))
	for i := range destinations {
		out[i] = domain.Distance{Status: "OK", Meters: int64(1000 * (len(destinations) - i))}
	}
	return out, nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.OfferEvent) {}

// brokenRepo simulates a store that cannot be reached
type brokenRepo struct {
	domain.OfferRepository
}

func (brokenRepo) Create(context.Context, *domain.Offer) error {
	return errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
}

func newApp(repo domain.OfferRepository, distances domain.DistanceCalculator) *fiber.App {
	now := func() time.Time { return time.Unix(1679183555, 0) }
	svc := application.NewOfferService(
		application.NewCreateOfferUseCase(repo, noopPublisher{}, now),
		application.NewUpdateOfferUseCase(repo, noopPublisher{}, now),
		application.NewSearchOffersUseCase(repo, distances, time.Second),
		application.NewQueryUserOffersUseCase(repo),
	)
	app := fiber.New()
	NewOfferHandler(svc).RegisterRoutes(app)
	return app
}

func do(t *testing.T, app *fiber.App, method, target string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func storeOffer(t *testing.T, app *fiber.App, id, seller string) {
	t.Helper()
	code, body := do(t, app, http.MethodPost, "/storeoffer", fiber.Map{
		"offerID": id, "sellerAccount": seller, "amount": 100, "price": 0.30,
		"location": edmonton, "submitTime": 1679183000, "status": "Listing",
	})
	require.Equal(t, http.StatusCreated, code, string(body))
}

func TestStoreOffer(t *testing.T) {
	app := newApp(memory.NewOfferRepository(), fixedDistances{})

	code, body := do(t, app, http.MethodPost, "/storeoffer", fiber.Map{
		"offerID": "O1", "sellerAccount": "S", "amount": 100, "price": 0.30, "location": edmonton,
	})
	require.Equal(t, http.StatusCreated, code)
	var offer application.OfferDTO
	require.NoError(t, json.Unmarshal(body, &offer))
	assert.Equal(t, "Listing", offer.Status)
	assert.Equal(t, "Edmonton", offer.City)

	code, _ = do(t, app, http.MethodPost, "/storeoffer", fiber.Map{
		"offerID": "O1", "sellerAccount": "S", "amount": 100, "price": 0.30, "location": edmonton,
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, app, http.MethodPost, "/storeoffer", fiber.Map{
		"offerID": "O2", "sellerAccount": "S", "amount": 0, "price": 0.30, "location": edmonton,
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, http.MethodPost, "/storeoffer", fiber.Map{
		"offerID": "O3", "sellerAccount": "S", "amount": 1, "price": 0.30, "location": "Edmonton",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, http.MethodPost, "/storeoffer", fiber.Map{
		"offerID": "O4", "sellerAccount": "S", "amount": 1, "price": 0.30, "location": edmonton, "status": "Pending",
	})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestStoreOfferStoreUnreachable(t *testing.T) {
	app := newApp(brokenRepo{}, fixedDistances{})
	code, body := do(t, app, http.MethodPost, "/storeoffer", fiber.Map{
		"offerID": "O1", "sellerAccount": "S", "amount": 100, "price": 0.30, "location": edmonton,
	})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.NotContains(t, string(body), "5432")
}

func TestLifecycleStatusCodes(t *testing.T) {
	app := newApp(memory.NewOfferRepository(), fixedDistances{})
	storeOffer(t, app, "O1", "S")

	code, _ := do(t, app, http.MethodPost, "/acceptoffer", fiber.Map{"offerID": "nope", "userAccount": "B"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, app, http.MethodPost, "/acceptoffer", fiber.Map{"offerID": "O1", "userAccount": "S"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do(t, app, http.MethodPost, "/acceptoffer", fiber.Map{"offerID": "O1"})
	assert.Equal(t, http.StatusBadRequest, code)

	// legacy field name
	code, body := do(t, app, http.MethodPost, "/acceptoffer", fiber.Map{"offerID": "O1", "buyerAccount": "B", "amount": 60})
	require.Equal(t, http.StatusCreated, code, string(body))
	var offer application.OfferDTO
	require.NoError(t, json.Unmarshal(body, &offer))
	assert.Equal(t, "Pending", offer.Status)
	assert.Equal(t, "B", offer.BuyerAccount)
	assert.Equal(t, 60.0, offer.Amount)

	code, _ = do(t, app, http.MethodPost, "/acceptoffer", fiber.Map{"offerID": "O1", "userAccount": "C"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, http.MethodPost, "/canceloffer", fiber.Map{"offerID": "O1", "userAccount": "B"})
	assert.Equal(t, http.StatusCreated, code)

	code, _ = do(t, app, http.MethodPost, "/completeoffer", fiber.Map{"offerID": "O1", "userAccount": "S"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, app, http.MethodPost, "/deleteoffer", fiber.Map{"offerID": "O1", "userAccount": "S"})
	require.Equal(t, http.StatusCreated, code)
	require.NoError(t, json.Unmarshal(body, &offer))
	assert.Equal(t, "O1", offer.OfferID)

	code, _ = do(t, app, http.MethodPost, "/expireoffer", fiber.Map{"offerID": "O1", "userAccount": "S"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCompleteAndExpireRoutes(t *testing.T) {
	app := newApp(memory.NewOfferRepository(), fixedDistances{})
	storeOffer(t, app, "O1", "S")
	storeOffer(t, app, "O2", "S")

	code, _ := do(t, app, http.MethodPost, "/acceptoffer", fiber.Map{"offerID": "O1", "userAccount": "B"})
	require.Equal(t, http.StatusCreated, code)
	code, body := do(t, app, http.MethodPost, "/completeoffer", fiber.Map{"offerID": "O1", "userAccount": "B", "price": 0.28, "updateTime": 1679190000})
	require.Equal(t, http.StatusCreated, code)
	var offer application.OfferDTO
	require.NoError(t, json.Unmarshal(body, &offer))
	assert.Equal(t, "Complete", offer.Status)
	assert.Equal(t, 0.28, offer.Price)
	assert.Equal(t, int64(1679190000), offer.UpdateTime)

	code, _ = do(t, app, http.MethodPost, "/acceptoffer", fiber.Map{"offerID": "O2", "userAccount": "B"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = do(t, app, http.MethodPost, "/expireoffer", fiber.Map{"offerID": "O2", "userAccount": "B"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = do(t, app, http.MethodPost, "/expireoffer", fiber.Map{"offerID": "O2", "userAccount": "S"})
	assert.Equal(t, http.StatusCreated, code)
}

func searchPath(parts ...string) string {
	p := "/searchoffers"
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func TestSearchOffers(t *testing.T) {
	app := newApp(memory.NewOfferRepository(), fixedDistances{})
	storeOffer(t, app, "O1", "S")
	storeOffer(t, app, "O2", "T")

	code, body := do(t, app, http.MethodGet, searchPath("B", "200 Jasper Ave, Edmonton, Alberta, Canada", "50", "0.35"), nil)
	require.Equal(t, http.StatusOK, code, string(body))
	var offers []application.OfferDTO
	require.NoError(t, json.Unmarshal(body, &offers))
	require.Len(t, offers, 2)
	assert.Equal(t, "O1", offers[0].OfferID)
	require.NotNil(t, offers[0].Distance)
	assert.Equal(t, int64(2000), offers[0].Distance.Meters)

	code, body = do(t, app, http.MethodGet, searchPath("B", "200 Jasper Ave, Edmonton, Alberta, Canada")+"?rank=distance", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &offers))
	assert.Equal(t, "O2", offers[0].OfferID)

	code, body = do(t, app, http.MethodGet, searchPath("B", "200 Jasper Ave, Edmonton, Alberta, Canada", "50", "0.20"), nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(body))

	code, _ = do(t, app, http.MethodGet, searchPath("B", "Edmonton"), nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, http.MethodGet, searchPath("B", "200 Jasper Ave, Edmonton, Alberta, Canada", "lots"), nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSearchOffersUpstreamDown(t *testing.T) {
	app := newApp(memory.NewOfferRepository(), fixedDistances{err: errors.New("timeout")})
	storeOffer(t, app, "O1", "S")

	code, _ := do(t, app, http.MethodGet, searchPath("B", "200 Jasper Ave, Edmonton, Alberta, Canada"), nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestSearchOffersRejectsPipeInLocation(t *testing.T) {
	app := newApp(memory.NewOfferRepository(), fixedDistances{})
	storeOffer(t, app, "O1", "S")

	code, _ := do(t, app, http.MethodPost, "/storeoffer", fiber.Map{
		"offerID": "O2", "sellerAccount": "S", "amount": 100, "price": 0.30,
		"location": "1 A St|2 B St, Edmonton, Alberta, Canada",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, http.MethodGet, searchPath("B", "200 Jasper Ave|1 A St, Edmonton, Alberta, Canada"), nil)
	assert.Equal(t, http.StatusBadRequest, code)

	// listings in the city are still searchable
	code, body := do(t, app, http.MethodGet, searchPath("B", "200 Jasper Ave, Edmonton, Alberta, Canada"), nil)
	require.Equal(t, http.StatusOK, code, string(body))
	var offers []application.OfferDTO
	require.NoError(t, json.Unmarshal(body, &offers))
	require.Len(t, offers, 1)
	assert.Equal(t, "O1", offers[0].OfferID)
}

func TestSearchOffersRejectsNonFiniteAndNegativeBounds(t *testing.T) {
	app := newApp(memory.NewOfferRepository(), fixedDistances{})
	storeOffer(t, app, "O1", "S")
	buyer := "200 Jasper Ave, Edmonton, Alberta, Canada"

	for _, target := range []string{
		searchPath("B", buyer, "NaN", "NaN"),
		searchPath("B", buyer, "50", "NaN"),
		searchPath("B", buyer, "Inf"),
		searchPath("B", buyer, "-5"),
		searchPath("B", buyer, "50", "-0.1"),
		"/queryhistoricaloffers/B?amount=NaN",
		"/queryinprocessoffers/S?price=NaN",
	} {
		code, body := do(t, app, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, code, "%s: %s", target, body)
	}
}

func TestQueryUserOffers(t *testing.T) {
	app := newApp(memory.NewOfferRepository(), fixedDistances{})
	storeOffer(t, app, "O1", "S")
	storeOffer(t, app, "O2", "S")
	code, _ := do(t, app, http.MethodPost, "/acceptoffer", fiber.Map{"offerID": "O1", "userAccount": "B"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = do(t, app, http.MethodPost, "/completeoffer", fiber.Map{"offerID": "O1", "userAccount": "B"})
	require.Equal(t, http.StatusCreated, code)

	var offers []application.OfferDTO
	code, body := do(t, app, http.MethodGet, "/queryhistoricaloffers/S", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &offers))
	assert.Len(t, offers, 2)

	code, body = do(t, app, http.MethodGet, "/queryinprocessoffers/S", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &offers))
	require.Len(t, offers, 1)
	assert.Equal(t, "O2", offers[0].OfferID)

	code, body = do(t, app, http.MethodGet, "/queryhistoricaloffers/B?location=EDMONTON&price=0.3", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &offers))
	require.Len(t, offers, 1)
	assert.Equal(t, "O1", offers[0].OfferID)

	code, _ = do(t, app, http.MethodGet, "/queryhistoricaloffers/B?submitTime=soon", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
