package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cristianortiz/gridshare/internal/offer/domain"
)

// OfferRepository keeps offers in process. A single mutex serializes every
// mutation, which gives the at-most-one-winner guarantee per record.
type OfferRepository struct {
	mu     sync.RWMutex
	offers map[string]domain.Offer
}

func NewOfferRepository() *OfferRepository {
	return &OfferRepository{offers: make(map[string]domain.Offer)}
}

func (r *OfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.offers[offer.OfferID]; ok {
		return domain.ErrOfferAlreadyExists
	}
	r.offers[offer.OfferID] = *offer
	return nil
}

func (r *OfferRepository) GetByID(ctx context.Context, offerID string) (*domain.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.offers[offerID]
	if !ok {
		return nil, domain.ErrOfferNotFound
	}
	return &o, nil
}

func (r *OfferRepository) Find(ctx context.Context, filter domain.OfferFilter) ([]*domain.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	offers := make([]*domain.Offer, 0)
	for _, o := range r.offers {
		if filter.Matches(&o) {
			o := o
			offers = append(offers, &o)
		}
	}
	// same ordering as the SQL stores
	sort.Slice(offers, func(i, j int) bool {
		if offers[i].SubmitTime != offers[j].SubmitTime {
			return offers[i].SubmitTime < offers[j].SubmitTime
		}
		return offers[i].OfferID < offers[j].OfferID
	})
	return offers, nil
}

func (r *OfferRepository) Update(ctx context.Context, offerID string, fn domain.MutateFunc) (*domain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[offerID]
	if !ok {
		return nil, domain.ErrOfferNotFound
	}
	if err := fn(&o); err != nil {
		return nil, err
	}
	r.offers[offerID] = o
	return &o, nil
}

func (r *OfferRepository) Delete(ctx context.Context, offerID string, fn domain.MutateFunc) (*domain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[offerID]
	if !ok {
		return nil, domain.ErrOfferNotFound
	}
	if err := fn(&o); err != nil {
		return nil, err
	}
	delete(r.offers, offerID)
	return &o, nil
}
