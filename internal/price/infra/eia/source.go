// Package eia reads US residential retail prices from the EIA v2 API.
package eia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/cristianortiz/gridshare/internal/price/domain"
	"github.com/cristianortiz/gridshare/internal/shared/httpclient"
	"github.com/cristianortiz/gridshare/internal/shared/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

var centsPerDollar = decimal.NewFromInt(100)

type retailSalesResponse struct {
	Response struct {
		Data []struct {
			Period  string              `json:"period"`
			StateID string              `json:"stateid"`
			Price   decimal.NullDecimal `json:"price"`
		} `json:"data"`
	} `json:"response"`
}

// Source returns USD $/kWh from the latest monthly residential figure.
type Source struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
}

func NewSource(client *httpclient.Client, baseURL, apiKey string) *Source {
	return &Source{client: client, baseURL: baseURL, apiKey: apiKey}
}

func (s *Source) Price(ctx context.Context, jurisdiction string) (decimal.Decimal, error) {
	if s.apiKey == "" {
		return decimal.Zero, fmt.Errorf("%w: EIA_API_KEY is not set", domain.ErrSourceNotConfigured)
	}

	params := url.Values{}
	params.Set("api_key", s.apiKey)
	params.Set("data[]", "price")
	params.Set("frequency", "monthly")
	params.Set("facets[sectorid][]", "RES")
	params.Set("facets[stateid][]", jurisdiction)
	params.Set("sort[0][column]", "period")
	params.Set("sort[0][direction]", "desc")

	body, err := s.client.Get(ctx, s.baseURL, params)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: eia: %v", domain.ErrUpstreamUnavailable, err)
	}

	var resp retailSalesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("%w: eia: %v", domain.ErrMalformedReport, err)
	}
	// unknown jurisdictions come back with no rows
	if len(resp.Response.Data) == 0 || !resp.Response.Data[0].Price.Valid {
		log.Warn("No EIA price for jurisdiction", zap.String("stateID", jurisdiction))
		return decimal.Zero, nil
	}
	latest := resp.Response.Data[0]
	log.Debug("EIA price resolved", zap.String("stateID", jurisdiction), zap.String("period", latest.Period))
	return latest.Price.Decimal.Div(centsPerDollar), nil
}
