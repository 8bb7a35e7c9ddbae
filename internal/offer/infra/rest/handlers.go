// Package rest exposes the offer service over HTTP.
package rest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/cristianortiz/gridshare/internal/offer/application"
	"github.com/cristianortiz/gridshare/internal/offer/domain"
	"github.com/cristianortiz/gridshare/internal/shared/logger"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	log      = logger.GetLogger()
	validate = validator.New()
)

type storeOfferRequest struct {
	OfferID       string  `json:"offerID" validate:"required"`
	SellerAccount string  `json:"sellerAccount" validate:"required"`
	Amount        float64 `json:"amount" validate:"gt=0"`
	Price         float64 `json:"price" validate:"gt=0"`
	Location      string  `json:"location" validate:"required"`
	SubmitTime    int64   `json:"submitTime" validate:"gte=0"`
	Status        string  `json:"status" validate:"omitempty,eq=Listing"`
}

// updateOfferRequest is shared by the five lifecycle routes. buyerAccount
// is an older name for userAccount.
type updateOfferRequest struct {
	OfferID      string  `json:"offerID" validate:"required"`
	UserAccount  string  `json:"userAccount" validate:"required_without=BuyerAccount"`
	BuyerAccount string  `json:"buyerAccount"`
	Amount       float64 `json:"amount" validate:"gte=0"`
	Price        float64 `json:"price" validate:"gte=0"`
	UpdateTime   int64   `json:"updateTime" validate:"gte=0"`
}

func (r updateOfferRequest) toDTO() application.UpdateOfferDTO {
	account := r.UserAccount
	if account == "" {
		account = r.BuyerAccount
	}
	return application.UpdateOfferDTO{
		OfferID:     r.OfferID,
		UserAccount: account,
		Amount:      r.Amount,
		Price:       r.Price,
		UpdateTime:  r.UpdateTime,
	}
}

type OfferHandler struct {
	offerService application.OfferService
}

func NewOfferHandler(offerService application.OfferService) *OfferHandler {
	return &OfferHandler{offerService: offerService}
}

func (h *OfferHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/storeoffer", h.StoreOffer)
	router.Get("/searchoffers/:buyerAccount/:location/:amount?/:price?", h.SearchOffers)
	router.Get("/queryhistoricaloffers/:myaccount", h.QueryHistoricalOffers)
	router.Get("/queryinprocessoffers/:myaccount", h.QueryInProcessOffers)
	router.Post("/acceptoffer", h.lifecycle(h.offerService.AcceptOffer))
	router.Post("/completeoffer", h.lifecycle(h.offerService.CompleteOffer))
	router.Post("/canceloffer", h.lifecycle(h.offerService.CancelOffer))
	router.Post("/expireoffer", h.lifecycle(h.offerService.ExpireOffer))
	router.Post("/deleteoffer", h.lifecycle(h.offerService.DeleteOffer))
}

// POST /storeoffer
func (h *OfferHandler) StoreOffer(c *fiber.Ctx) error {
	var req storeOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	offer, err := h.offerService.CreateOffer(c.UserContext(), application.CreateOfferDTO{
		OfferID:       req.OfferID,
		SellerAccount: req.SellerAccount,
		Amount:        req.Amount,
		Price:         req.Price,
		Location:      req.Location,
		SubmitTime:    req.SubmitTime,
		Status:        req.Status,
	})
	if err != nil {
		// anything the store could not classify means it is unreachable
		return offerError(c, err, fiber.StatusServiceUnavailable)
	}
	return c.Status(fiber.StatusCreated).JSON(offer)
}

// GET /searchoffers/:buyerAccount/:location/:amount?/:price?
func (h *OfferHandler) SearchOffers(c *fiber.Ctx) error {
	buyer, err := url.PathUnescape(c.Params("buyerAccount"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid buyer account"})
	}
	location, err := url.PathUnescape(c.Params("location"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid location"})
	}
	query := application.SearchOffersDTO{
		BuyerAccount:   buyer,
		Location:       location,
		RankByDistance: c.Query("rank") == "distance",
	}
	if query.MinAmount, err = optionalFloat(c.Params("amount")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be a number"})
	}
	if query.MaxPrice, err = optionalFloat(c.Params("price")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "price must be a number"})
	}

	offers, err := h.offerService.SearchListingOffers(c.UserContext(), query)
	if err != nil {
		return offerError(c, err, fiber.StatusInternalServerError)
	}
	return c.JSON(offers)
}

// GET /queryhistoricaloffers/:myaccount
func (h *OfferHandler) QueryHistoricalOffers(c *fiber.Ctx) error {
	query, err := parseUserQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	offers, err := h.offerService.QueryHistoricalOffers(c.UserContext(), query)
	if err != nil {
		return offerError(c, err, fiber.StatusInternalServerError)
	}
	return c.JSON(offers)
}

// GET /queryinprocessoffers/:myaccount
func (h *OfferHandler) QueryInProcessOffers(c *fiber.Ctx) error {
	query, err := parseUserQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	offers, err := h.offerService.QueryInProcessOffers(c.UserContext(), query)
	if err != nil {
		return offerError(c, err, fiber.StatusInternalServerError)
	}
	return c.JSON(offers)
}

type lifecycleFunc func(ctx context.Context, cmd application.UpdateOfferDTO) (*application.OfferDTO, error)

// lifecycle serves POST /acceptoffer, /completeoffer, /canceloffer,
// /expireoffer and /deleteoffer.
func (h *OfferHandler) lifecycle(op lifecycleFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req updateOfferRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		offer, err := op(c.UserContext(), req.toDTO())
		if err != nil {
			return offerError(c, err, fiber.StatusInternalServerError)
		}
		return c.Status(fiber.StatusCreated).JSON(offer)
	}
}

func parseUserQuery(c *fiber.Ctx) (application.QueryUserOffersDTO, error) {
	account, err := url.PathUnescape(c.Params("myaccount"))
	if err != nil {
		return application.QueryUserOffersDTO{}, errors.New("invalid account")
	}
	query := application.QueryUserOffersDTO{MyAccount: account, Location: c.Query("location")}
	if query.Amount, err = optionalFloat(c.Query("amount")); err != nil {
		return query, errors.New("amount must be a number")
	}
	if query.Price, err = optionalFloat(c.Query("price")); err != nil {
		return query, errors.New("price must be a number")
	}
	if s := c.Query("submitTime"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return query, errors.New("submitTime must be an integer")
		}
		query.SubmitTime = &v
	}
	return query, nil
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("not a finite number: %q", s)
	}
	return &v, nil
}

// offerError maps domain errors to status codes; fallback is used for
// anything unclassified.
func offerError(c *fiber.Ctx, err error, fallback int) error {
	switch {
	case errors.Is(err, domain.ErrOfferNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrOfferAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Error("offer request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fallback).JSON(fiber.Map{"error": "internal server error"})
	}
}
