// Package rest exposes electricity price lookups over HTTP.
package rest

import (
	"errors"

	"github.com/cristianortiz/gridshare/internal/price/application"
	"github.com/cristianortiz/gridshare/internal/price/domain"
	"github.com/gofiber/fiber/v2"
)

type PriceHandler struct {
	priceService application.PriceService
}

func NewPriceHandler(priceService application.PriceService) *PriceHandler {
	return &PriceHandler{priceService: priceService}
}

func (h *PriceHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/queryprice/:stateid?", h.QueryPrice)
}

// GET /queryprice/:stateid? returns a bare number in local currency per kWh
func (h *PriceHandler) QueryPrice(c *fiber.Ctx) error {
	price, err := h.priceService.QueryPrice(c.UserContext(), c.Params("stateid"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSourceNotConfigured):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "price source not configured"})
		case errors.Is(err, domain.ErrUpstreamUnavailable), errors.Is(err, domain.ErrMalformedReport):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "price source unavailable"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
		}
	}
	return c.JSON(price.InexactFloat64())
}
