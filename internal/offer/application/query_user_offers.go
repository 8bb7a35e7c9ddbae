package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cristianortiz/gridshare/internal/offer/domain"
	"github.com/cristianortiz/gridshare/internal/shared/metrics"
	"go.uber.org/zap"
)

// QueryUserOffersDTO selects the offers an account sold or bought. The
// optional fields narrow the result: numbers by equality, Location by a
// case-insensitive substring.
type QueryUserOffersDTO struct {
	MyAccount  string
	Amount     *float64
	Price      *float64
	Location   string
	SubmitTime *int64
	InProcess  bool // only Listing and Pending offers
}

// QueryUserOffersUseCase serves the historical and in-process views
type QueryUserOffersUseCase struct {
	offerRepo domain.OfferRepository
}

func NewQueryUserOffersUseCase(offerRepo domain.OfferRepository) *QueryUserOffersUseCase {
	return &QueryUserOffersUseCase{offerRepo: offerRepo}
}

func (uc *QueryUserOffersUseCase) Execute(ctx context.Context, query QueryUserOffersDTO) (result []*OfferDTO, err error) {
	kind := "historical"
	if query.InProcess {
		kind = "in_process"
	}
	defer func() {
		metrics.OfferSearches.WithLabelValues(kind, resultLabel(err)).Inc()
	}()

	if query.MyAccount == "" {
		return nil, domain.ErrMissingAccount
	}

	sold, err := uc.offerRepo.Find(ctx, domain.OfferFilter{SellerAccount: query.MyAccount})
	if err != nil {
		log.Error("QueryUserOffersUseCase: failed to query sold offers", zap.String("account", query.MyAccount), zap.Error(err))
		return nil, fmt.Errorf("query offers of %s: %w", query.MyAccount, err)
	}
	bought, err := uc.offerRepo.Find(ctx, domain.OfferFilter{BuyerAccount: query.MyAccount})
	if err != nil {
		log.Error("QueryUserOffersUseCase: failed to query bought offers", zap.String("account", query.MyAccount), zap.Error(err))
		return nil, fmt.Errorf("query offers of %s: %w", query.MyAccount, err)
	}

	seen := make(map[string]bool, len(sold)+len(bought))
	var offers []*domain.Offer
	for _, o := range append(sold, bought...) {
		if seen[o.OfferID] || !query.matches(o) {
			continue
		}
		seen[o.OfferID] = true
		offers = append(offers, o)
	}
	sort.SliceStable(offers, func(i, j int) bool {
		if offers[i].SubmitTime != offers[j].SubmitTime {
			return offers[i].SubmitTime < offers[j].SubmitTime
		}
		return offers[i].OfferID < offers[j].OfferID
	})
	return newOfferDTOs(offers), nil
}

func (q QueryUserOffersDTO) matches(o *domain.Offer) bool {
	if q.InProcess && o.Status.IsTerminal() {
		return false
	}
	if q.Amount != nil && o.Amount != *q.Amount {
		return false
	}
	if q.Price != nil && o.Price != *q.Price {
		return false
	}
	if q.SubmitTime != nil && o.SubmitTime != *q.SubmitTime {
		return false
	}
	if q.Location != "" && !strings.Contains(strings.ToLower(o.Location), strings.ToLower(q.Location)) {
		return false
	}
	return true
}
