package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists offers.
type Repository interface {
	Create(ctx context.Context, offer Offer) error
	Get(ctx context.Context, id string) (Offer, error)
	List(ctx context.Context, filter Filter) ([]Offer, error)
	// TakeStock removes qty units from a tracked offer. Untracked offers are
	// left alone.
	TakeStock(ctx context.Context, id string, qty int) error
}

// PostgresRepository stores offers in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds an offer repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const offerColumns = `id, seller_id, title, kind, price_unit, price::text, currency, stock, active, created_at`

// Create inserts an offer.
func (r *PostgresRepository) Create(ctx context.Context, o Offer) error {
	id, err := uuid.Parse(o.ID)
	if err != nil {
		return err
	}
	sellerID, err := uuid.Parse(o.SellerID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO offers (id, seller_id, title, kind, price_unit, price, currency, stock, active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10)`,
		id, sellerID, o.Title, string(o.Kind), string(o.PriceUnit), o.Price.String(), o.Currency, o.Stock, o.Active, o.CreatedAt.UTC())
	return err
}

// TakeStock decrements stock in a single guarded UPDATE that never goes
// below zero.
func (r *PostgresRepository) TakeStock(ctx context.Context, id string, qty int) error {
	offerID, err := uuid.Parse(id)
	if err != nil {
		return ErrOfferNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE offers SET stock = stock - $2
        WHERE id = $1 AND (stock IS NULL OR stock >= $2)`, offerID, qty)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrStockExhausted
	}
	return nil
}

// Get fetches one offer.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Offer, error) {
	offerID, err := uuid.Parse(id)
	if err != nil {
		return Offer{}, ErrOfferNotFound
	}
	offer, err := scanOffer(r.db.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, offerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Offer{}, ErrOfferNotFound
	}
	return offer, err
}

// List returns active offers, newest first.
func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Offer, error) {
	rows, err := r.db.Query(ctx, `SELECT `+offerColumns+` FROM offers
        WHERE active AND ($1 = '' OR kind = $1)
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`, string(f.Kind), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func scanOffer(row pgx.Row) (Offer, error) {
	var (
		o         Offer
		id        uuid.UUID
		sellerID  uuid.UUID
		kind      string
		unit      string
		price     string
		createdAt time.Time
	)
	if err := row.Scan(&id, &sellerID, &o.Title, &kind, &unit, &price, &o.Currency, &o.Stock, &o.Active, &createdAt); err != nil {
		return Offer{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Offer{}, err
	}
	o.ID = id.String()
	o.SellerID = sellerID.String()
	o.Kind = Kind(kind)
	o.PriceUnit = PriceUnit(unit)
	o.Price = d
	o.CreatedAt = createdAt.UTC()
	return o, nil
}
