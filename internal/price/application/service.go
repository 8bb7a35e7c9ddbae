package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cristianortiz/gridshare/internal/price/domain"
	"github.com/cristianortiz/gridshare/internal/shared/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

type PriceService interface {
	QueryPrice(ctx context.Context, stateID string) (decimal.Decimal, error)
	RefreshPrice(ctx context.Context, stateID string) (decimal.Decimal, error)
}

type priceService struct {
	caSource domain.PriceSource
	usSource domain.PriceSource
	cache    domain.PriceCache
	ttl      time.Duration
}

func NewPriceService(caSource, usSource domain.PriceSource, cache domain.PriceCache, ttl time.Duration) PriceService {
	return &priceService{caSource: caSource, usSource: usSource, cache: cache, ttl: ttl}
}

// QueryPrice answers from the cache when it can. An empty stateID is 0
// without touching any source.
func (s *priceService) QueryPrice(ctx context.Context, stateID string) (decimal.Decimal, error) {
	stateID = strings.ToUpper(strings.TrimSpace(stateID))
	if stateID == "" {
		return decimal.Zero, nil
	}
	price, ok, err := s.cache.Get(ctx, stateID)
	if err != nil {
		// a broken cache only costs an upstream call
		log.Warn("Price cache read failed", zap.String("stateID", stateID), zap.Error(err))
	} else if ok {
		return price, nil
	}
	return s.RefreshPrice(ctx, stateID)
}

// RefreshPrice always asks the source and stores the answer.
func (s *priceService) RefreshPrice(ctx context.Context, stateID string) (decimal.Decimal, error) {
	stateID = strings.ToUpper(strings.TrimSpace(stateID))
	if stateID == "" {
		return decimal.Zero, nil
	}
	source := s.usSource
	if stateID == domain.JurisdictionAlberta {
		source = s.caSource
	}

	price, err := source.Price(ctx, stateID)
	if err != nil {
		log.Error("Price lookup failed", zap.String("stateID", stateID), zap.Error(err))
		if errors.Is(err, domain.ErrSourceNotConfigured) || errors.Is(err, domain.ErrUpstreamUnavailable) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("%w: %s: %v", domain.ErrUpstreamUnavailable, stateID, err)
	}
	if err := s.cache.Set(ctx, stateID, price, s.ttl); err != nil {
		log.Warn("Price cache write failed", zap.String("stateID", stateID), zap.Error(err))
	}
	log.Debug("Price refreshed", zap.String("stateID", stateID), zap.String("price", price.String()))
	return price, nil
}
