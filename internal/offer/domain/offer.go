package domain

import (
	"time"

	"github.com/cristianortiz/gridshare/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// OfferStatus represents the lifecycle state of an offer
type OfferStatus string

const (
	StatusListing  OfferStatus = "Listing"
	StatusPending  OfferStatus = "Pending"
	StatusComplete OfferStatus = "Complete"
)

// IsTerminal reports whether no further transition can leave the status.
func (s OfferStatus) IsTerminal() bool {
	return s == StatusComplete
}

// Offer is an amount of electricity listed for sale at a price and location.
type Offer struct {
	OfferID       string
	SellerAccount string
	BuyerAccount  string // empty while Listing
	Amount        float64
	OfferedAmount float64 // amount listed by the seller, restored when a buyer backs out
	Price         float64
	Location      string
	City          string // derived from Location at creation
	SubmitTime    int64
	AcceptTime    int64 // zero while Listing
	UpdateTime    int64
	Status        OfferStatus
}

// NewOffer validates the seller input and builds a Listing offer with its derived city.
func NewOffer(offerID, sellerAccount string, amount, price float64, location string, submitTime int64) (*Offer, error) {
	if offerID == "" {
		return nil, ErrMissingOfferID
	}
	if sellerAccount == "" {
		return nil, ErrMissingAccount
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	city, err := DeriveCity(location)
	if err != nil {
		return nil, err
	}
	return &Offer{
		OfferID:       offerID,
		SellerAccount: sellerAccount,
		Amount:        amount,
		OfferedAmount: amount,
		Price:         price,
		Location:      location,
		City:          city,
		SubmitTime:    submitTime,
		UpdateTime:    submitTime,
		Status:        StatusListing,
	}, nil
}

// Accept moves a Listing offer to Pending on behalf of a buyer. A positive
// amount revises the quantity being transacted.
func (o *Offer) Accept(caller string, amount float64, at time.Time) error {
	if err := o.Authorize(ActionAccept, caller); err != nil {
		return err
	}
	if err := o.checkAmount(amount); err != nil {
		return err
	}
	if amount > 0 {
		o.Amount = amount
	}
	o.Status = StatusPending
	o.BuyerAccount = caller
	o.AcceptTime = at.Unix()
	o.UpdateTime = at.Unix()
	log.Info("Offer accepted",
		zap.String("offerID", o.OfferID),
		zap.String("buyer", caller),
		zap.Float64("amount", o.Amount),
	)
	return nil
}

// Complete finalizes a Pending offer. Positive amount and price replace the
// agreed values.
func (o *Offer) Complete(caller string, amount, price float64, at time.Time) error {
	if err := o.Authorize(ActionComplete, caller); err != nil {
		return err
	}
	if err := o.checkAmount(amount); err != nil {
		return err
	}
	if price < 0 {
		return ErrInvalidPrice
	}
	if amount > 0 {
		o.Amount = amount
	}
	if price > 0 {
		o.Price = price
	}
	o.Status = StatusComplete
	o.UpdateTime = at.Unix()
	log.Info("Offer completed",
		zap.String("offerID", o.OfferID),
		zap.String("buyer", caller),
		zap.Float64("amount", o.Amount),
		zap.Float64("price", o.Price),
	)
	return nil
}

// Cancel is the buyer backing out of a Pending offer.
func (o *Offer) Cancel(caller string, at time.Time) error {
	if err := o.Authorize(ActionCancel, caller); err != nil {
		return err
	}
	o.relist(at)
	log.Info("Offer cancelled by buyer", zap.String("offerID", o.OfferID), zap.String("buyer", caller))
	return nil
}

// Expire is the seller reclaiming a Pending offer.
func (o *Offer) Expire(caller string, at time.Time) error {
	if err := o.Authorize(ActionExpire, caller); err != nil {
		return err
	}
	o.relist(at)
	log.Info("Offer expired by seller", zap.String("offerID", o.OfferID), zap.String("seller", caller))
	return nil
}

// CheckDelete reports whether caller may remove the offer. The removal
// itself belongs to the repository.
func (o *Offer) CheckDelete(caller string) error {
	return o.Authorize(ActionDelete, caller)
}

// relist returns the offer to exactly the Listing shape the seller created.
func (o *Offer) relist(at time.Time) {
	o.Status = StatusListing
	o.BuyerAccount = ""
	o.AcceptTime = 0
	o.Amount = o.OfferedAmount
	o.UpdateTime = at.Unix()
}

func (o *Offer) checkAmount(amount float64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	if amount > o.OfferedAmount {
		return ErrAmountTooLarge
	}
	return nil
}
