// Package repositorytest holds the behaviour every domain.OfferRepository
// backend must share.
package repositorytest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cristianortiz/gridshare/internal/offer/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises repo produced by newRepo. Each subtest gets a fresh repository.
func Run(t *testing.T, newRepo func(t *testing.T) domain.OfferRepository) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newRepo(t)) })
	t.Run("CreateDuplicate", func(t *testing.T) { testCreateDuplicate(t, newRepo(t)) })
	t.Run("FindByEquality", func(t *testing.T) { testFind(t, newRepo(t)) })
	t.Run("UpdateAppliesMutation", func(t *testing.T) { testUpdate(t, newRepo(t)) })
	t.Run("UpdateRejectedLeavesRecord", func(t *testing.T) { testUpdateRejected(t, newRepo(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newRepo(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newRepo(t)) })
	t.Run("ConcurrentAcceptSingleWinner", func(t *testing.T) { testConcurrentAccept(t, newRepo(t)) })
}

// NewOffer builds a Listing offer for tests.
func NewOffer(t *testing.T, id, seller, location string, submitTime int64) *domain.Offer {
	t.Helper()
	o, err := domain.NewOffer(id, seller, 100, 0.30, location, submitTime)
	require.NoError(t, err)
	return o
}

const (
	edmonton = "1 Main St, Edmonton, Alberta, Canada"
	calgary  = "9 Bow Trail, Calgary, Alberta, Canada"
)

func testCreateAndGet(t *testing.T, repo domain.OfferRepository) {
	ctx := context.Background()
	o := NewOffer(t, "O1", "S", edmonton, 10)
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.GetByID(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, *o, *got)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrOfferNotFound)
}

func testCreateDuplicate(t *testing.T, repo domain.OfferRepository) {
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, NewOffer(t, "O1", "S", edmonton, 10)))
	err := repo.Create(ctx, NewOffer(t, "O1", "T", calgary, 11))
	assert.ErrorIs(t, err, domain.ErrOfferAlreadyExists)

	got, err := repo.GetByID(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, "S", got.SellerAccount)
}

func testFind(t *testing.T, repo domain.OfferRepository) {
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, NewOffer(t, "O2", "S", edmonton, 20)))
	require.NoError(t, repo.Create(ctx, NewOffer(t, "O1", "S", edmonton, 10)))
	require.NoError(t, repo.Create(ctx, NewOffer(t, "O3", "T", calgary, 30)))
	_, err := repo.Update(ctx, "O2", func(o *domain.Offer) error { return o.Accept("B", 0, time.Unix(40, 0)) })
	require.NoError(t, err)

	all, err := repo.Find(ctx, domain.OfferFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"O1", "O2", "O3"}, ids(all))

	listing, err := repo.Find(ctx, domain.OfferFilter{Status: domain.StatusListing, City: "Edmonton"})
	require.NoError(t, err)
	assert.Equal(t, []string{"O1"}, ids(listing))

	bySeller, err := repo.Find(ctx, domain.OfferFilter{SellerAccount: "S"})
	require.NoError(t, err)
	assert.Equal(t, []string{"O1", "O2"}, ids(bySeller))

	byBuyer, err := repo.Find(ctx, domain.OfferFilter{BuyerAccount: "B"})
	require.NoError(t, err)
	require.Len(t, byBuyer, 1)
	assert.Equal(t, "B", byBuyer[0].BuyerAccount)
	assert.Equal(t, int64(40), byBuyer[0].AcceptTime)

	none, err := repo.Find(ctx, domain.OfferFilter{City: "Regina"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testUpdate(t *testing.T, repo domain.OfferRepository) {
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, NewOffer(t, "O1", "S", edmonton, 10)))

	updated, err := repo.Update(ctx, "O1", func(o *domain.Offer) error { return o.Accept("B", 40, time.Unix(50, 0)) })
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, updated.Status)

	stored, err := repo.GetByID(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, *updated, *stored)
	assert.Equal(t, 40.0, stored.Amount)
	assert.Equal(t, 100.0, stored.OfferedAmount)

	relisted, err := repo.Update(ctx, "O1", func(o *domain.Offer) error { return o.Cancel("B", time.Unix(60, 0)) })
	require.NoError(t, err)
	assert.Empty(t, relisted.BuyerAccount)
	assert.Zero(t, relisted.AcceptTime)

	stored, err = repo.GetByID(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusListing, stored.Status)
	assert.Empty(t, stored.BuyerAccount)
	assert.Zero(t, stored.AcceptTime)
	assert.Equal(t, 100.0, stored.Amount)
}

func testUpdateRejected(t *testing.T, repo domain.OfferRepository) {
	ctx := context.Background()
	o := NewOffer(t, "O1", "S", edmonton, 10)
	require.NoError(t, repo.Create(ctx, o))

	_, err := repo.Update(ctx, "O1", func(o *domain.Offer) error {
		o.Price = 99
		return domain.ErrForbidden
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	stored, err := repo.GetByID(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, *o, *stored)
}

func testUpdateMissing(t *testing.T, repo domain.OfferRepository) {
	called := false
	_, err := repo.Update(context.Background(), "missing", func(o *domain.Offer) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrOfferNotFound)
	assert.False(t, called)

	_, err = repo.Delete(context.Background(), "missing", func(o *domain.Offer) error { return nil })
	assert.ErrorIs(t, err, domain.ErrOfferNotFound)
}

func testDelete(t *testing.T, repo domain.OfferRepository) {
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, NewOffer(t, "O1", "S", edmonton, 10)))

	_, err := repo.Delete(ctx, "O1", func(o *domain.Offer) error { return o.CheckDelete("B") })
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = repo.GetByID(ctx, "O1")
	require.NoError(t, err)

	removed, err := repo.Delete(ctx, "O1", func(o *domain.Offer) error { return o.CheckDelete("S") })
	require.NoError(t, err)
	assert.Equal(t, "O1", removed.OfferID)

	_, err = repo.GetByID(ctx, "O1")
	assert.ErrorIs(t, err, domain.ErrOfferNotFound)
}

func testConcurrentAccept(t *testing.T, repo domain.OfferRepository) {
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, NewOffer(t, "O1", "S", edmonton, 10)))

	const buyers = 8
	var wins, invalid atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Update(ctx, "O1", func(o *domain.Offer) error {
				return o.Accept(fmt.Sprintf("B%d", i), 0, time.Unix(50, 0))
			})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrInvalidState):
				invalid.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(buyers-1), invalid.Load())
}

func ids(offers []*domain.Offer) []string {
	out := make([]string, 0, len(offers))
	for _, o := range offers {
		out = append(out, o.OfferID)
	}
	return out
}
