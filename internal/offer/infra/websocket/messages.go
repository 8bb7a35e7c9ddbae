package websocket

import (
	"github.com/cristianortiz/gridshare/internal/offer/application"
	"github.com/cristianortiz/gridshare/internal/offer/domain"
)

// MessageType defines ws type message
type MessageType string

const (
	MessageTypeClientAcceptOffer MessageType = "client_accept_offer" // client msg to accept a listing
	MessageTypeServerOfferEvent  MessageType = "server_offer_event"  // server msg with an offer lifecycle change
	MessageTypeServerError       MessageType = "server_error"        // server msg indicating error
	MessageTypeServerInfo        MessageType = "server_info"         // server msg with general info
)

// BaseMessage is base struct for all the WS messages, includes a Type field for identify the message type
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientAcceptOfferMessage is the DTO for a buyer accepting an offer over ws
type ClientAcceptOfferMessage struct {
	BaseMessage
	Payload struct {
		OfferID     string  `json:"offerID"`
		UserAccount string  `json:"userAccount"`
		Amount      float64 `json:"amount,omitempty"`
	} `json:"payload"`
}

// ServerOfferEventMessage is pushed to every client watching the offer's city
type ServerOfferEventMessage struct {
	BaseMessage
	Payload struct {
		Event string                `json:"event"`
		At    int64                 `json:"at"`
		Offer *application.OfferDTO `json:"offer"`
	} `json:"payload"`
}

type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Error string `json:"error"`
	} `json:"payload"`
}

type ServerInfoMessage struct {
	BaseMessage
	Payload struct {
		Message string `json:"message"`
	} `json:"payload"`
}

func newOfferEventMessage(event domain.OfferEvent) ServerOfferEventMessage {
	msg := ServerOfferEventMessage{BaseMessage: BaseMessage{Type: MessageTypeServerOfferEvent}}
	msg.Payload.Event = string(event.Type)
	msg.Payload.At = event.At.Unix()
	msg.Payload.Offer = application.NewOfferDTO(&event.Offer)
	return msg
}
