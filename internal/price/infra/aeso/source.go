// Package aeso reads the Alberta pool price from the AESO system marginal
// price report.
package aeso

import (
	"context"
	"fmt"
	"regexp"

	"github.com/cristianortiz/gridshare/internal/price/domain"
	"github.com/cristianortiz/gridshare/internal/shared/httpclient"
	"github.com/cristianortiz/gridshare/internal/shared/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

var (
	numberPattern = regexp.MustCompile(`\d+(\.\d+)`)

	// regulated price cap in $/MWh
	maxPrice  = decimal.NewFromInt(1000)
	kWhPerMWh = decimal.NewFromInt(1000)
)

// Source returns CAD $/kWh. The report lists hourly rows newest first; the
// second number is the latest 30-day rolling average. While the current
// hour is not settled that cell holds a value above the cap and the
// previous hour's average (fourth number) is used instead.
type Source struct {
	client *httpclient.Client
	url    string
}

func NewSource(client *httpclient.Client, reportURL string) *Source {
	return &Source{client: client, url: reportURL}
}

func (s *Source) Price(ctx context.Context, jurisdiction string) (decimal.Decimal, error) {
	body, err := s.client.Get(ctx, s.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: aeso: %v", domain.ErrUpstreamUnavailable, err)
	}
	price, err := parseReport(body)
	if err != nil {
		log.Error("AESO report could not be parsed", zap.Int("bytes", len(body)), zap.Error(err))
		return decimal.Zero, err
	}
	return price, nil
}

func parseReport(body []byte) (decimal.Decimal, error) {
	numbers := numberPattern.FindAll(body, 4)
	if len(numbers) < 2 {
		return decimal.Zero, fmt.Errorf("%w: found %d prices", domain.ErrMalformedReport, len(numbers))
	}
	price, err := decimal.NewFromString(string(numbers[1]))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrMalformedReport, err)
	}
	if price.GreaterThan(maxPrice) {
		if len(numbers) < 4 {
			return decimal.Zero, fmt.Errorf("%w: no previous hour average", domain.ErrMalformedReport)
		}
		if price, err = decimal.NewFromString(string(numbers[3])); err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrMalformedReport, err)
		}
	}
	return price.Div(kWhPerMWh), nil
}
