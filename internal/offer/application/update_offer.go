package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/gridshare/internal/offer/domain"
	"github.com/cristianortiz/gridshare/internal/shared/metrics"
	"go.uber.org/zap"
)

// UpdateOfferDTO is the input shared by accept, complete, cancel, expire
// and delete. Amount and Price are only read by accept and complete; a
// zero UpdateTime means "now".
type UpdateOfferDTO struct {
	OfferID     string
	UserAccount string
	Amount      float64
	Price       float64
	UpdateTime  int64
}

// UpdateOfferUseCase drives an existing offer through one lifecycle
// transition. Each call is a single conditional mutation in the store.
type UpdateOfferUseCase struct {
	offerRepo domain.OfferRepository
	publisher domain.EventPublisher
	now       func() time.Time
}

func NewUpdateOfferUseCase(offerRepo domain.OfferRepository, publisher domain.EventPublisher, now func() time.Time) *UpdateOfferUseCase {
	return &UpdateOfferUseCase{offerRepo: offerRepo, publisher: publisher, now: now}
}

var eventByAction = map[domain.Action]domain.EventType{
	domain.ActionAccept:   domain.EventOfferAccepted,
	domain.ActionComplete: domain.EventOfferCompleted,
	domain.ActionCancel:   domain.EventOfferCancelled,
	domain.ActionExpire:   domain.EventOfferExpired,
	domain.ActionDelete:   domain.EventOfferDeleted,
}

func (uc *UpdateOfferUseCase) Execute(ctx context.Context, action domain.Action, cmd UpdateOfferDTO) (offer *OfferDTO, err error) {
	defer func() {
		metrics.OfferTransitions.WithLabelValues(string(action), resultLabel(err)).Inc()
	}()

	if cmd.OfferID == "" {
		return nil, domain.ErrMissingOfferID
	}
	if cmd.UserAccount == "" {
		return nil, domain.ErrMissingAccount
	}
	eventType, ok := eventByAction[action]
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrValidation, action)
	}

	at := uc.now()
	if cmd.UpdateTime > 0 {
		at = time.Unix(cmd.UpdateTime, 0)
	}

	var o *domain.Offer
	if action == domain.ActionDelete {
		o, err = uc.offerRepo.Delete(ctx, cmd.OfferID, func(o *domain.Offer) error {
			return o.CheckDelete(cmd.UserAccount)
		})
	} else {
		o, err = uc.offerRepo.Update(ctx, cmd.OfferID, transition(action, cmd, at))
	}
	if err != nil {
		if isDomainError(err) {
			log.Warn("UpdateOfferUseCase: transition rejected",
				zap.String("offerID", cmd.OfferID),
				zap.String("action", string(action)),
				zap.String("caller", cmd.UserAccount),
				zap.Error(err),
			)
		} else {
			log.Error("UpdateOfferUseCase: store failure",
				zap.String("offerID", cmd.OfferID),
				zap.String("action", string(action)),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("%s offer %s: %w", action, cmd.OfferID, err)
	}

	uc.publisher.Publish(ctx, domain.OfferEvent{Type: eventType, Offer: *o, At: at})
	return NewOfferDTO(o), nil
}

func transition(action domain.Action, cmd UpdateOfferDTO, at time.Time) domain.MutateFunc {
	return func(o *domain.Offer) error {
		switch action {
		case domain.ActionAccept:
			return o.Accept(cmd.UserAccount, cmd.Amount, at)
		case domain.ActionComplete:
			return o.Complete(cmd.UserAccount, cmd.Amount, cmd.Price, at)
		case domain.ActionCancel:
			return o.Cancel(cmd.UserAccount, at)
		case domain.ActionExpire:
			return o.Expire(cmd.UserAccount, at)
		}
		return domain.ErrInvalidState
	}
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrOfferNotFound) ||
		errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrForbidden) ||
		errors.Is(err, domain.ErrValidation)
}
