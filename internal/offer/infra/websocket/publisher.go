package websocket

import (
	"context"
	"encoding/json"

	"github.com/cristianortiz/gridshare/internal/offer/domain"
	"go.uber.org/zap"
)

// broadcaster is the part of the shared hub the publisher needs
type broadcaster interface {
	Broadcast(topic string, data []byte)
}

// Publisher pushes offer events to the clients watching the offer's city.
type Publisher struct {
	hub broadcaster
}

func NewPublisher(hub broadcaster) *Publisher {
	return &Publisher{hub: hub}
}

func (p *Publisher) Publish(ctx context.Context, event domain.OfferEvent) {
	data, err := json.Marshal(newOfferEventMessage(event))
	if err != nil {
		log.Error("failed to marshal offer event", zap.String("offerID", event.Offer.OfferID), zap.Error(err))
		return
	}
	p.hub.Broadcast(event.Offer.City, data)
}
