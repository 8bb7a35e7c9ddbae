package websocket

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/cristianortiz/gridshare/internal/offer/application"
	"github.com/cristianortiz/gridshare/internal/shared/logger"
	"github.com/cristianortiz/gridshare/internal/shared/websocket"
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// OfferWSHandler handles the ws inbound msgs of the offer module and the
// subscription endpoint clients use to watch a city.
type OfferWSHandler struct {
	offerService application.OfferService
	hub          *websocket.Hub
}

func NewOfferWSHandler(offerService application.OfferService, hub *websocket.Hub) *OfferWSHandler {
	return &OfferWSHandler{
		offerService: offerService,
		hub:          hub,
	}
}

// RegisterRoutes mounts GET /ws/offers/:city
func (h *OfferWSHandler) RegisterRoutes(ctx context.Context, router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws/offers/:city", fiberws.New(func(conn *fiberws.Conn) {
		city, err := url.PathUnescape(conn.Params("city"))
		if err != nil || city == "" {
			_ = conn.Close()
			return
		}
		client := h.hub.NewClient(conn, city)
		client.Greeting = h.infoMessage("watching offers in " + city)
		if !h.hub.RegisterClient(client) {
			return
		}
		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}))
}

// ListenForMessages consumes the hub inbound channel until ctx is done
func (h *OfferWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("OfferWSHandler started listening for inbound messages from hub")
	for {
		select {
		case <-ctx.Done():
			log.Info("OfferWSHandler stopped listening for inbound messages from hub")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

func (h *OfferWSHandler) processMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		h.sendErrorToClient(client, "invalid message format")
		return
	}
	switch baseMsg.Type {
	case MessageTypeClientAcceptOffer:
		h.handleAcceptOffer(ctx, client, data)
	default:
		h.sendErrorToClient(client, "unknown message type")
	}
}

// handleAcceptOffer runs the same accept as POST /acceptoffer. The
// resulting event reaches the city through the publisher.
func (h *OfferWSHandler) handleAcceptOffer(ctx context.Context, client *websocket.Client, data []byte) {
	var msg ClientAcceptOfferMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendErrorToClient(client, "invalid accept message format")
		return
	}
	_, err := h.offerService.AcceptOffer(ctx, application.UpdateOfferDTO{
		OfferID:     msg.Payload.OfferID,
		UserAccount: msg.Payload.UserAccount,
		Amount:      msg.Payload.Amount,
	})
	if err != nil {
		h.sendErrorToClient(client, err.Error())
	}
}

func (h *OfferWSHandler) infoMessage(text string) []byte {
	msg := ServerInfoMessage{BaseMessage: BaseMessage{MessageTypeServerInfo}}
	msg.Payload.Message = text
	return h.marshal(msg)
}

// sendErrorToClient serializes and sends an error msg to a specific client
func (h *OfferWSHandler) sendErrorToClient(client *websocket.Client, errorMessage string) {
	msg := ServerErrorMessage{BaseMessage: BaseMessage{MessageTypeServerError}}
	msg.Payload.Error = errorMessage
	h.send(client, msg)
}

func (h *OfferWSHandler) marshal(msg any) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to marshal ws message", zap.Error(err))
		return nil
	}
	return data
}

// send hands the reply to the hub, which owns the client's Send channel.
func (h *OfferWSHandler) send(client *websocket.Client, msg any) {
	if data := h.marshal(msg); data != nil {
		h.hub.SendTo(client, data)
	}
}
