package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/gridshare/internal/offer/domain"
	"github.com/cristianortiz/gridshare/internal/shared/logger"
	"github.com/cristianortiz/gridshare/internal/shared/metrics"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// CreateOfferDTO is the seller input for a new listing. Status, when
// given, must be Listing.
type CreateOfferDTO struct {
	OfferID       string
	SellerAccount string
	Amount        float64
	Price         float64
	Location      string
	SubmitTime    int64
	Status        string
}

// CreateOfferUseCase lists a new offer
type CreateOfferUseCase struct {
	offerRepo domain.OfferRepository
	publisher domain.EventPublisher
	now       func() time.Time
}

func NewCreateOfferUseCase(offerRepo domain.OfferRepository, publisher domain.EventPublisher, now func() time.Time) *CreateOfferUseCase {
	return &CreateOfferUseCase{offerRepo: offerRepo, publisher: publisher, now: now}
}

func (uc *CreateOfferUseCase) Execute(ctx context.Context, cmd CreateOfferDTO) (offer *OfferDTO, err error) {
	defer func() {
		metrics.OfferTransitions.WithLabelValues("create", resultLabel(err)).Inc()
	}()

	if cmd.Status != "" && domain.OfferStatus(cmd.Status) != domain.StatusListing {
		return nil, fmt.Errorf("%w: new offers must be %s", domain.ErrValidation, domain.StatusListing)
	}
	submitTime := cmd.SubmitTime
	if submitTime == 0 {
		submitTime = uc.now().Unix()
	}

	o, err := domain.NewOffer(cmd.OfferID, cmd.SellerAccount, cmd.Amount, cmd.Price, cmd.Location, submitTime)
	if err != nil {
		log.Warn("CreateOfferUseCase: invalid offer",
			zap.String("offerID", cmd.OfferID),
			zap.String("location", cmd.Location),
			zap.Error(err),
		)
		return nil, err
	}

	if err = uc.offerRepo.Create(ctx, o); err != nil {
		if !errors.Is(err, domain.ErrOfferAlreadyExists) {
			log.Error("CreateOfferUseCase: failed to store offer", zap.String("offerID", o.OfferID), zap.Error(err))
		}
		return nil, fmt.Errorf("create offer %s: %w", o.OfferID, err)
	}

	log.Info("Offer listed",
		zap.String("offerID", o.OfferID),
		zap.String("seller", o.SellerAccount),
		zap.String("city", o.City),
		zap.Float64("amount", o.Amount),
		zap.Float64("price", o.Price),
	)
	uc.publisher.Publish(ctx, domain.OfferEvent{Type: domain.EventOfferCreated, Offer: *o, At: uc.now()})
	return NewOfferDTO(o), nil
}

// resultLabel classifies an error for the transition metrics.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrOfferNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrOfferAlreadyExists):
		return "already_exists"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	}
	return "error"
}
