package domain

import "errors"

var (
	ErrSourceNotConfigured = errors.New("price source not configured")
	ErrUpstreamUnavailable = errors.New("price upstream unavailable")
	ErrMalformedReport     = errors.New("price report could not be parsed")
)
