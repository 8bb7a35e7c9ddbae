package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cristianortiz/gridshare/internal/offer/domain"
	"github.com/cristianortiz/gridshare/internal/shared/logger"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const offerColumns = `offer_id, seller_account, buyer_account, amount, offered_amount, price,
        location, city, submit_time, accept_time, update_time, status`

// OfferRepository implements domain.OfferRepository on an embedded SQLite file.
type OfferRepository struct {
	db *sql.DB
}

// NewOfferRepository expects a database opened with db.OpenSQLite and migrated.
func NewOfferRepository(db *sql.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

func (r *OfferRepository) Create(ctx context.Context, o *domain.Offer) error {
	query := `INSERT INTO offers (` + offerColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, offerArgs(o)...)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
			return domain.ErrOfferAlreadyExists
		}
		return err
	}
	return nil
}

func (r *OfferRepository) GetByID(ctx context.Context, offerID string) (*domain.Offer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM offers WHERE offer_id = ?`, offerID)
	return scanOffer(row)
}

func (r *OfferRepository) Find(ctx context.Context, filter domain.OfferFilter) ([]*domain.Offer, error) {
	where, args := whereClause(filter)
	query := `SELECT ` + offerColumns + ` FROM offers` + where + ` ORDER BY submit_time ASC, offer_id ASC`
	rows, err := r.db.QueryContext(ctx, query, args...)
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

func (r *OfferRepository) Update(ctx context.Context, offerID string, fn domain.MutateFunc) (*domain.Offer, error) {
	var updated *domain.Offer
	err := r.inTx(ctx, offerID, func(tx *sql.Tx) error {
		o, err := scanOffer(tx.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM offers WHERE offer_id = ?`, offerID))
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
            UPDATE offers
            SET buyer_account = ?, amount = ?, price = ?, accept_time = ?, update_time = ?, status = ?,
                updated_at = CURRENT_TIMESTAMP
            WHERE offer_id = ?`,
			nullString(o.BuyerAccount), o.Amount, o.Price, nullInt(o.AcceptTime), o.UpdateTime, string(o.Status), o.OfferID,
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

func (r *OfferRepository) Delete(ctx context.Context, offerID string, fn domain.MutateFunc) (*domain.Offer, error) {
	var removed *domain.Offer
	err := r.inTx(ctx, offerID, func(tx *sql.Tx) error {
		o, err := scanOffer(tx.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM offers WHERE offer_id = ?`, offerID))
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM offers WHERE offer_id = ?`, offerID); err != nil {
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

// inTx runs fn in a transaction, committing on success and rolling back otherwise.
func (r *OfferRepository) inTx(ctx context.Context, offerID string, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			log.Error("sqlite: failed to commit offer mutation", zap.String("offerID", offerID), zap.Error(commitErr))
			err = fmt.Errorf("commit transaction: %w", commitErr)
		}
	}()
	return fn(tx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (*domain.Offer, error) {
	o := &domain.Offer{}
	var buyer sql.NullString
	var acceptTime sql.NullInt64
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
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOfferNotFound
		}
		return nil, err
	}
	o.BuyerAccount = buyer.String
	o.AcceptTime = acceptTime.Int64
	o.Status = domain.OfferStatus(status)
	return o, nil
}

func offerArgs(o *domain.Offer) []any {
	return []any{
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
	}
}

func whereClause(f domain.OfferFilter) (string, []any) {
	var conditions []string
	var args []any
	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.City != "" {
		conditions = append(conditions, "city = ?")
		args = append(args, f.City)
	}
	if f.SellerAccount != "" {
		conditions = append(conditions, "seller_account = ?")
		args = append(args, f.SellerAccount)
	}
	if f.BuyerAccount != "" {
		conditions = append(conditions, "buyer_account = ?")
		args = append(args, f.BuyerAccount)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
