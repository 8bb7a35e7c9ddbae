package application

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cristianortiz/gridshare/internal/offer/domain"
	"github.com/cristianortiz/gridshare/internal/shared/metrics"
	"go.uber.org/zap"
)

const distanceStatusOK = "OK"

// SearchOffersDTO is a buyer looking for listings near Location. Nil
// bounds mean no constraint.
type SearchOffersDTO struct {
	BuyerAccount   string
	Location       string
	MinAmount      *float64
	MaxPrice       *float64
	RankByDistance bool
}

// SearchOffersUseCase resolves a buyer search into listings of the buyer's
// city annotated with the distance from the buyer.
type SearchOffersUseCase struct {
	offerRepo       domain.OfferRepository
	distances       domain.DistanceCalculator
	distanceTimeout time.Duration
}

func NewSearchOffersUseCase(offerRepo domain.OfferRepository, distances domain.DistanceCalculator, distanceTimeout time.Duration) *SearchOffersUseCase {
	return &SearchOffersUseCase{offerRepo: offerRepo, distances: distances, distanceTimeout: distanceTimeout}
}

// candidate pairs an offer with the destination sent for it, so the i-th
// distance can only ever land on the offer it was computed for.
type candidate struct {
	offer       *domain.Offer
	destination string
}

func (uc *SearchOffersUseCase) Execute(ctx context.Context, query SearchOffersDTO) (result []*OfferDTO, err error) {
	defer func() {
		metrics.OfferSearches.WithLabelValues("listing", resultLabel(err)).Inc()
		if err == nil {
			metrics.SearchResults.Observe(float64(len(result)))
		}
	}()

	if query.BuyerAccount == "" {
		return nil, domain.ErrMissingAccount
	}
	city, err := domain.DeriveCity(query.Location)
	if err != nil {
		return nil, err
	}
	minAmount, err := searchBound("amount", query.MinAmount, 0)
	if err != nil {
		return nil, err
	}
	maxPrice, err := searchBound("price", query.MaxPrice, math.Inf(1))
	if err != nil {
		return nil, err
	}

	listings, err := uc.offerRepo.Find(ctx, domain.OfferFilter{Status: domain.StatusListing, City: city})
	if err != nil {
		log.Error("SearchOffersUseCase: failed to query listings", zap.String("city", city), zap.Error(err))
		return nil, fmt.Errorf("search offers in %s: %w", city, err)
	}

	candidates := make([]candidate, 0, len(listings))
	for _, o := range listings {
		if o.SellerAccount == query.BuyerAccount || o.Price > maxPrice || o.Amount < minAmount {
			continue
		}
		candidates = append(candidates, candidate{offer: o, destination: o.Location})
	}
	if len(candidates) == 0 {
		return []*OfferDTO{}, nil
	}

	destinations := make([]string, len(candidates))
	for i, c := range candidates {
		destinations[i] = c.destination
	}

	dctx, cancel := context.WithTimeout(ctx, uc.distanceTimeout)
	defer cancel()
	distances, err := uc.distances.Distances(dctx, query.Location, destinations)
	if err != nil {
		log.Warn("SearchOffersUseCase: distance lookup failed",
			zap.String("city", city),
			zap.Int("destinations", len(destinations)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: distance lookup: %v", domain.ErrUpstreamUnavailable, err)
	}
	if len(distances) != len(candidates) {
		log.Error("SearchOffersUseCase: distance count mismatch",
			zap.Int("destinations", len(candidates)),
			zap.Int("distances", len(distances)),
		)
		return nil, fmt.Errorf("%w: distance lookup returned %d results for %d destinations",
			domain.ErrUpstreamUnavailable, len(distances), len(candidates))
	}

	result = make([]*OfferDTO, len(candidates))
	for i, c := range candidates {
		dto := NewOfferDTO(c.offer)
		dto.Distance = newDistanceDTO(distances[i])
		result[i] = dto
	}
	if query.RankByDistance {
		rankByDistance(result)
	}

	log.Debug("Listing search resolved",
		zap.String("buyer", query.BuyerAccount),
		zap.String("city", city),
		zap.Int("listings", len(listings)),
		zap.Int("results", len(result)),
	)
	return result, nil
}

// searchBound returns fallback for a missing bound. NaN would disable the
// comparison it feeds, so it is rejected with negative values.
func searchBound(name string, v *float64, fallback float64) (float64, error) {
	if v == nil {
		return fallback, nil
	}
	if math.IsNaN(*v) || *v < 0 {
		return 0, fmt.Errorf("%w: %s bound must be a non-negative number", domain.ErrValidation, name)
	}
	return *v, nil
}

// rankByDistance orders annotated offers nearest first; offers whose
// distance could not be resolved go last. Each offer moves with its own
// distance.
func rankByDistance(offers []*OfferDTO) {
	sort.SliceStable(offers, func(i, j int) bool {
		a, b := offers[i].Distance, offers[j].Distance
		aOK, bOK := a.Status == distanceStatusOK, b.Status == distanceStatusOK
		if aOK != bOK {
			return aOK
		}
		return a.Meters < b.Meters
	})
}
