package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	seller   = "S"
	buyer    = "B"
	stranger = "X"
	edmonton = "1 Main St, Edmonton, Alberta, Canada"
)

var now = time.Unix(1679183555, 0)

func listingOffer(t *testing.T) *Offer {
	t.Helper()
	o, err := NewOffer("O1", seller, 100, 0.30, edmonton, 1679180000)
	require.NoError(t, err)
	return o
}

func pendingOffer(t *testing.T) *Offer {
	t.Helper()
	o := listingOffer(t)
	require.NoError(t, o.Accept(buyer, 60, now))
	return o
}

func completeOffer(t *testing.T) *Offer {
	t.Helper()
	o := pendingOffer(t)
	require.NoError(t, o.Complete(buyer, 0, 0, now))
	return o
}

func assertBuyerInvariant(t *testing.T, o *Offer) {
	t.Helper()
	hasBuyer := o.BuyerAccount != ""
	assert.Equal(t, o.Status == StatusPending || o.Status == StatusComplete, hasBuyer)
	assert.NotEqual(t, o.SellerAccount, o.BuyerAccount)
}

func TestNewOffer(t *testing.T) {
	o := listingOffer(t)
	assert.Equal(t, StatusListing, o.Status)
	assert.Equal(t, "Edmonton", o.City)
	assert.Equal(t, 100.0, o.OfferedAmount)
	assert.Empty(t, o.BuyerAccount)
	assertBuyerInvariant(t, o)
}

func TestNewOfferValidation(t *testing.T) {
	cases := map[string]struct {
		id, seller, location string
		amount, price        float64
		err                  error
	}{
		"missing id":     {"", seller, edmonton, 1, 1, ErrMissingOfferID},
		"missing seller": {"O1", "", edmonton, 1, 1, ErrMissingAccount},
		"zero amount":    {"O1", seller, edmonton, 0, 1, ErrInvalidAmount},
		"negative price": {"O1", seller, edmonton, 1, -1, ErrInvalidPrice},
		"bad location":   {"O1", seller, "Edmonton", 1, 1, ErrInvalidLocation},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewOffer(tc.id, tc.seller, tc.amount, tc.price, tc.location, 0)
			assert.ErrorIs(t, err, tc.err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAccept(t *testing.T) {
	o := pendingOffer(t)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, buyer, o.BuyerAccount)
	assert.Equal(t, 60.0, o.Amount)
	assert.Equal(t, now.Unix(), o.AcceptTime)
	assert.Equal(t, now.Unix(), o.UpdateTime)
	assertBuyerInvariant(t, o)
}

func TestAcceptKeepsAmountWhenNotRevised(t *testing.T) {
	o := listingOffer(t)
	require.NoError(t, o.Accept(buyer, 0, now))
	assert.Equal(t, 100.0, o.Amount)
}

func TestAcceptRejectsAmountAboveOffered(t *testing.T) {
	o := listingOffer(t)
	assert.ErrorIs(t, o.Accept(buyer, 101, now), ErrAmountTooLarge)
	assert.Equal(t, StatusListing, o.Status)
}

func TestAcceptBySellerIsForbidden(t *testing.T) {
	o := listingOffer(t)
	assert.ErrorIs(t, o.Accept(seller, 0, now), ErrForbidden)
	assert.Equal(t, StatusListing, o.Status)
}

func TestAcceptOnNonListingIsInvalidStateForAnyCaller(t *testing.T) {
	for _, build := range []func(*testing.T) *Offer{pendingOffer, completeOffer} {
		for _, caller := range []string{seller, buyer, stranger, ""} {
			o := build(t)
			assert.ErrorIs(t, o.Accept(caller, 0, now), ErrInvalidState, "caller %q status %s", caller, o.Status)
		}
	}
}

func TestComplete(t *testing.T) {
	o := pendingOffer(t)
	require.NoError(t, o.Complete(buyer, 55, 0.28, now.Add(time.Hour)))
	assert.Equal(t, StatusComplete, o.Status)
	assert.Equal(t, 55.0, o.Amount)
	assert.Equal(t, 0.28, o.Price)
	assert.Equal(t, buyer, o.BuyerAccount)
	assert.Equal(t, now.Add(time.Hour).Unix(), o.UpdateTime)
	assertBuyerInvariant(t, o)
	assert.True(t, o.Status.IsTerminal())
}

func TestCompleteRequiresBuyerAndPending(t *testing.T) {
	assert.ErrorIs(t, pendingOffer(t).Complete(seller, 0, 0, now), ErrForbidden)
	assert.ErrorIs(t, pendingOffer(t).Complete(stranger, 0, 0, now), ErrForbidden)
	assert.ErrorIs(t, listingOffer(t).Complete(seller, 0, 0, now), ErrInvalidState)
	assert.ErrorIs(t, completeOffer(t).Complete(buyer, 0, 0, now), ErrInvalidState)
}

func TestCancelAndExpireRestoreListing(t *testing.T) {
	relist := map[string]func(o *Offer) error{
		"cancel": func(o *Offer) error { return o.Cancel(buyer, now) },
		"expire": func(o *Offer) error { return o.Expire(seller, now) },
	}
	for name, fn := range relist {
		t.Run(name, func(t *testing.T) {
			original := listingOffer(t)
			o := pendingOffer(t)
			require.NoError(t, fn(o))

			assert.Equal(t, StatusListing, o.Status)
			assert.Empty(t, o.BuyerAccount)
			assert.Zero(t, o.AcceptTime)
			assert.Equal(t, original.Amount, o.Amount)
			assert.Equal(t, original.Price, o.Price)
			assertBuyerInvariant(t, o)
		})
	}
}

func TestCancelAndExpireActors(t *testing.T) {
	assert.ErrorIs(t, pendingOffer(t).Cancel(seller, now), ErrForbidden)
	assert.ErrorIs(t, pendingOffer(t).Cancel(stranger, now), ErrForbidden)
	assert.ErrorIs(t, pendingOffer(t).Expire(buyer, now), ErrForbidden)
	assert.ErrorIs(t, pendingOffer(t).Expire(stranger, now), ErrForbidden)
	assert.ErrorIs(t, listingOffer(t).Cancel(buyer, now), ErrInvalidState)
	assert.ErrorIs(t, completeOffer(t).Expire(seller, now), ErrInvalidState)
}

func TestCheckDelete(t *testing.T) {
	assert.NoError(t, listingOffer(t).CheckDelete(seller))
	assert.ErrorIs(t, listingOffer(t).CheckDelete(buyer), ErrForbidden)
	assert.ErrorIs(t, pendingOffer(t).CheckDelete(seller), ErrInvalidState)
	assert.ErrorIs(t, completeOffer(t).CheckDelete(seller), ErrInvalidState)
}

func TestRejectedTransitionDoesNotMutate(t *testing.T) {
	o := pendingOffer(t)
	before := *o
	assert.Error(t, o.Cancel(stranger, now.Add(time.Hour)))
	assert.Error(t, o.Complete(buyer, 1000, 0, now.Add(time.Hour)))
	assert.Equal(t, before, *o)
}

func TestHolds(t *testing.T) {
	o := pendingOffer(t)
	assert.True(t, o.Holds(RoleSeller, seller))
	assert.True(t, o.Holds(RoleBuyer, buyer))
	assert.False(t, o.Holds(RoleBuyer, seller))
	assert.False(t, listingOffer(t).Holds(RoleBuyer, ""))
}

func TestOfferFilterMatches(t *testing.T) {
	o := pendingOffer(t)
	assert.True(t, OfferFilter{}.Matches(o))
	assert.True(t, OfferFilter{Status: StatusPending, City: "Edmonton", BuyerAccount: buyer}.Matches(o))
	assert.False(t, OfferFilter{Status: StatusListing}.Matches(o))
	assert.False(t, OfferFilter{SellerAccount: buyer}.Matches(o))
}
