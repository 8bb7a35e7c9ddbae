package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOfferNotFound       = errors.New("offer not found")
	ErrOfferAlreadyExists  = errors.New("offer already exists")
	ErrInvalidState        = errors.New("operation is not allowed in the current offer status")
	ErrForbidden           = errors.New("caller is not allowed to perform this operation on the offer")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrValidation          = errors.New("validation error")
)

// Validation failures, all matching errors.Is(err, ErrValidation).
var (
	ErrInvalidLocation = fmt.Errorf("%w: location must look like \"unit street, city, region, country\"", ErrValidation)
	ErrInvalidAmount   = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrAmountTooLarge  = fmt.Errorf("%w: amount exceeds the offered amount", ErrValidation)
	ErrInvalidPrice    = fmt.Errorf("%w: price must be greater than zero", ErrValidation)
	ErrMissingOfferID  = fmt.Errorf("%w: offerID is required", ErrValidation)
	ErrMissingAccount  = fmt.Errorf("%w: account is required", ErrValidation)
)
