package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// JurisdictionAlberta is served by the Alberta pool price report; every
// other jurisdiction code goes to the US retail sales source.
const JurisdictionAlberta = "AB"

// PriceSource returns the current electricity price of a jurisdiction in
// local currency per kWh.
type PriceSource interface {
	Price(ctx context.Context, jurisdiction string) (decimal.Decimal, error)
}

// PriceCache stores recent prices. Get reports ok=false on a miss.
type PriceCache interface {
	Get(ctx context.Context, jurisdiction string) (price decimal.Decimal, ok bool, err error)
	Set(ctx context.Context, jurisdiction string, price decimal.Decimal, ttl time.Duration) error
}
