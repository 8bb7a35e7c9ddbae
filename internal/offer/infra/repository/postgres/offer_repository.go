package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cristianortiz/gridshare/internal/offer/domain"
	"github.com/cristianortiz/gridshare/internal/shared/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const uniqueViolation = "23505"

const offerColumns = `offer_id, seller_account, buyer_account, amount, offered_amount, price,
        location, city, submit_time, accept_time, update_time, status`

// OfferRepository implements domain.OfferRepository interface
type OfferRepository struct {
	pool *pgxpool.Pool
}

// NewOfferRepository creates a new instance of OfferRepository
func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

// Create inserts a new offer, a colliding offer_id is reported as ErrOfferAlreadyExists.
func (r *OfferRepository) Create(ctx context.Context, o *domain.Offer) error {
	query := `
        INSERT INTO offers (` + offerColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `
	_, err := r.pool.Exec(ctx, query,
		o.OfferID,
		o.SellerAccount,
		nullString(o.BuyerAccount),
		o.Amount,
		o.OfferedAmount,
		o.Price,
		o.Location,
		o.City,
		o.SubmitTime,
		nullInt(o.AcceptTime),
		o.UpdateTime,
		string(o.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrOfferAlreadyExists
		}
		return err
	}
	return nil
}

func (r *OfferRepository) GetByID(ctx context.Context, offerID string) (*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE offer_id = $1`
	return scanOffer(r.pool.QueryRow(ctx, query, offerID))
}

// Find returns the offers matching every non-empty field of filter.
func (r *OfferRepository) Find(ctx context.Context, filter domain.OfferFilter) ([]*domain.Offer, error) {
	var conditions []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.Status != "" {
		add("status", string(filter.Status))
	}
	if filter.City != "" {
		add("city", filter.City)
	}
	if filter.SellerAccount != "" {
		add("seller_account", filter.SellerAccount)
	}
	if filter.BuyerAccount != "" {
		add("buyer_account", filter.BuyerAccount)
	}

	query := `SELECT ` + offerColumns + ` FROM offers`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY submit_time ASC, offer_id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	offers := make([]*domain.Offer, 0)
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return offers, nil
}

// Update locks the row, lets fn decide the transition and writes it back in the same transaction.
func (r *OfferRepository) Update(ctx context.Context, offerID string, fn domain.MutateFunc) (*domain.Offer, error) {
	var updated *domain.Offer
	err := r.inTx(ctx, offerID, func(tx pgx.Tx) error {
		o, err := lockOffer(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
            UPDATE offers
            SET buyer_account = $2, amount = $3, price = $4, accept_time = $5, update_time = $6, status = $7,
                updated_at = NOW()
            WHERE offer_id = $1`,
			o.OfferID, nullString(o.BuyerAccount), o.Amount, o.Price, nullInt(o.AcceptTime), o.UpdateTime, string(o.Status),
		)
		if err != nil {
			return fmt.Errorf("update offer %s: %w", offerID, err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete locks the row, lets fn veto the removal and deletes it in the same transaction.
func (r *OfferRepository) Delete(ctx context.Context, offerID string, fn domain.MutateFunc) (*domain.Offer, error) {
	var removed *domain.Offer
	err := r.inTx(ctx, offerID, func(tx pgx.Tx) error {
		o, err := lockOffer(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM offers WHERE offer_id = $1`, offerID); err != nil {
			return fmt.Errorf("delete offer %s: %w", offerID, err)
		}
		removed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func lockOffer(ctx context.Context, tx pgx.Tx, offerID string) (*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE offer_id = $1 FOR UPDATE`
	return scanOffer(tx.QueryRow(ctx, query, offerID))
}

func (r *OfferRepository) inTx(ctx context.Context, offerID string, fn func(tx pgx.Tx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Error("OfferRepository: Failed to begin transaction", zap.String("offerID", offerID), zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("OfferRepository: Recovered from panic during transaction",
				zap.String("offerID", offerID),
				zap.Any("panic", p),
			)
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			log.Error("OfferRepository: Failed to commit transaction",
				zap.String("offerID", offerID),
				zap.Error(commitErr),
			)
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	return fn(tx)
}

func scanOffer(row pgx.Row) (*domain.Offer, error) {
	o := &domain.Offer{}
	var buyer *string     // NULL while Listing
	var acceptTime *int64 // NULL while Listing
	var status string
	err := row.Scan(
		&o.OfferID,
		&o.SellerAccount,
		&buyer,
		&o.Amount,
		&o.OfferedAmount,
		&o.Price,
		&o.Location,
		&o.City,
		&o.SubmitTime,
		&acceptTime,
		&o.UpdateTime,
		&status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOfferNotFound
		}
		return nil, err
	}
	if buyer != nil {
		o.BuyerAccount = *buyer
	}
	if acceptTime != nil {
		o.AcceptTime = *acceptTime
	}
	o.Status = domain.OfferStatus(status)
	return o, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
