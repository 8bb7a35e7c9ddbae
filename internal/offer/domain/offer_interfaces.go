package domain

import (
	"context"
	"time"
)

// OfferFilter holds equality constraints, zero values are ignored.
type OfferFilter struct {
	Status        OfferStatus
	City          string
	SellerAccount string
	BuyerAccount  string
}

// Matches applies the filter to one offer, for stores filtering in process.
func (f OfferFilter) Matches(o *Offer) bool {
	return (f.Status == "" || o.Status == f.Status) &&
		(f.City == "" || o.City == f.City) &&
		(f.SellerAccount == "" || o.SellerAccount == f.SellerAccount) &&
		(f.BuyerAccount == "" || o.BuyerAccount == f.BuyerAccount)
}

// MutateFunc inspects and changes one offer. Returning an error aborts the
// mutation and leaves the stored record untouched.
type MutateFunc func(o *Offer) error

// OfferRepository is the storage capability the engines depend on. Update
// and Delete evaluate fn and apply the result as one atomic unit against
// the stored record, at most one concurrent caller wins per record.
type OfferRepository interface {
	Create(ctx context.Context, offer *Offer) error
	GetByID(ctx context.Context, offerID string) (*Offer, error)
	Find(ctx context.Context, filter OfferFilter) ([]*Offer, error)
	Update(ctx context.Context, offerID string, fn MutateFunc) (*Offer, error)
	Delete(ctx context.Context, offerID string, fn MutateFunc) (*Offer, error)
}

// Distance is one travel estimate returned by a DistanceCalculator.
type Distance struct {
	Status          string
	Text            string
	Meters          int64
	DurationText    string
	DurationSeconds int64
}

// DistanceCalculator returns exactly one Distance per destination, in the
// order the destinations were given.
type DistanceCalculator interface {
	Distances(ctx context.Context, origin string, destinations []string) ([]Distance, error)
}

// EventType names what happened to an offer.
type EventType string

const (
	EventOfferCreated   EventType = "offer_created"
	EventOfferAccepted  EventType = "offer_accepted"
	EventOfferCompleted EventType = "offer_completed"
	EventOfferCancelled EventType = "offer_cancelled"
	EventOfferExpired   EventType = "offer_expired"
	EventOfferDeleted   EventType = "offer_deleted"
)

// OfferEvent is emitted after a lifecycle change has been stored.
type OfferEvent struct {
	Type  EventType
	Offer Offer
	At    time.Time
}

// EventPublisher fans offer events out to interested parties. Publishing
// is best effort and never fails the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event OfferEvent)
}
