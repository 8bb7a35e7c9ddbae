package application

import (
	"context"

	"github.com/cristianortiz/gridshare/internal/offer/domain"
)

// OfferService defines application interface layer of offer module,
// exposes uses cases to external layer, aka infra
type OfferService interface {
	CreateOffer(ctx context.Context, cmd CreateOfferDTO) (*OfferDTO, error)
	AcceptOffer(ctx context.Context, cmd UpdateOfferDTO) (*OfferDTO, error)
	CompleteOffer(ctx context.Context, cmd UpdateOfferDTO) (*OfferDTO, error)
	CancelOffer(ctx context.Context, cmd UpdateOfferDTO) (*OfferDTO, error)
	ExpireOffer(ctx context.Context, cmd UpdateOfferDTO) (*OfferDTO, error)
	DeleteOffer(ctx context.Context, cmd UpdateOfferDTO) (*OfferDTO, error)
	SearchListingOffers(ctx context.Context, query SearchOffersDTO) ([]*OfferDTO, error)
	QueryHistoricalOffers(ctx context.Context, query QueryUserOffersDTO) ([]*OfferDTO, error)
	QueryInProcessOffers(ctx context.Context, query QueryUserOffersDTO) ([]*OfferDTO, error)
}

// concret implementation of OfferService
type offerService struct {
	createUC *CreateOfferUseCase
	updateUC *UpdateOfferUseCase
	searchUC *SearchOffersUseCase
	queryUC  *QueryUserOffersUseCase
}

func NewOfferService(createUC *CreateOfferUseCase, updateUC *UpdateOfferUseCase, searchUC *SearchOffersUseCase, queryUC *QueryUserOffersUseCase) OfferService {
	return &offerService{
		createUC: createUC,
		updateUC: updateUC,
		searchUC: searchUC,
		queryUC:  queryUC,
	}
}

func (s *offerService) CreateOffer(ctx context.Context, cmd CreateOfferDTO) (*OfferDTO, error) {
	return s.createUC.Execute(ctx, cmd)
}

func (s *offerService) AcceptOffer(ctx context.Context, cmd UpdateOfferDTO) (*OfferDTO, error) {
	return s.updateUC.Execute(ctx, domain.ActionAccept, cmd)
}

func (s *offerService) CompleteOffer(ctx context.Context, cmd UpdateOfferDTO) (*OfferDTO, error) {
	return s.updateUC.Execute(ctx, domain.ActionComplete, cmd)
}

func (s *offerService) CancelOffer(ctx context.Context, cmd UpdateOfferDTO) (*OfferDTO, error) {
	return s.updateUC.Execute(ctx, domain.ActionCancel, cmd)
}

func (s *offerService) ExpireOffer(ctx context.Context, cmd UpdateOfferDTO) (*OfferDTO, error) {
	return s.updateUC.Execute(ctx, domain.ActionExpire, cmd)
}

func (s *offerService) DeleteOffer(ctx context.Context, cmd UpdateOfferDTO) (*OfferDTO, error) {
	return s.updateUC.Execute(ctx, domain.ActionDelete, cmd)
}

func (s *offerService) SearchListingOffers(ctx context.Context, query SearchOffersDTO) ([]*OfferDTO, error) {
	return s.searchUC.Execute(ctx, query)
}

func (s *offerService) QueryHistoricalOffers(ctx context.Context, query QueryUserOffersDTO) ([]*OfferDTO, error) {
	query.InProcess = false
	return s.queryUC.Execute(ctx, query)
}

func (s *offerService) QueryInProcessOffers(ctx context.Context, query QueryUserOffersDTO) ([]*OfferDTO, error) {
	query.InProcess = true
	return s.queryUC.Execute(ctx, query)
}
