// Package distance resolves travel distances through the Google Distance
// Matrix JSON API.
package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cristianortiz/gridshare/internal/offer/domain"
	"github.com/cristianortiz/gridshare/internal/shared/httpclient"
	"github.com/cristianortiz/gridshare/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

var ErrNotConfigured = errors.New("distance: api key not configured")

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []matrixElement `json:"elements"`
	} `json:"rows"`
}

type matrixElement struct {
	Status   string     `json:"status"`
	Distance *textValue `json:"distance"`
	Duration *textValue `json:"duration"`
}

type textValue struct {
	Text  string `json:"text"`
	Value int64  `json:"value"`
}

// MatrixCalculator implements domain.DistanceCalculator with a single
// origin row request.
type MatrixCalculator struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
}

func NewMatrixCalculator(client *httpclient.Client, baseURL, apiKey string) *MatrixCalculator {
	return &MatrixCalculator{client: client, baseURL: baseURL, apiKey: apiKey}
}

func (m *MatrixCalculator) Distances(ctx context.Context, origin string, destinations []string) ([]domain.Distance, error) {
	if m.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if len(destinations) == 0 {
		return []domain.Distance{}, nil
	}

	params := url.Values{}
	params.Set("origins", origin)
	params.Set("destinations", strings.Join(destinations, "|"))
	params.Set("key", m.apiKey)

	body, err := m.client.Get(ctx, m.baseURL, params)
	if err != nil {
		return nil, err
	}

	var resp matrixResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("distance: decode response: %w", err)
	}
	if resp.Status != "" && resp.Status != "OK" {
		return nil, fmt.Errorf("distance: upstream status %s: %s", resp.Status, resp.ErrorMessage)
	}
	if len(resp.Rows) == 0 {
		return nil, errors.New("distance: response has no rows")
	}

	elements := resp.Rows[0].Elements
	out := make([]domain.Distance, 0, len(elements))
	for _, el := range elements {
		d := domain.Distance{Status: el.Status}
		if el.Distance != nil {
			d.Text, d.Meters = el.Distance.Text, el.Distance.Value
		}
		if el.Duration != nil {
			d.DurationText, d.DurationSeconds = el.Duration.Text, el.Duration.Value
		}
		out = append(out, d)
	}
	log.Debug("Distance matrix resolved", zap.Int("destinations", len(destinations)), zap.Int("elements", len(out)))
	return out, nil
}
