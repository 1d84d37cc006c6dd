package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lakay-market/storefront/internal/payments"
	"github.com/lakay-market/storefront/internal/pricing"
)

// Repository persists orders.
type Repository interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	// Update stores o only if the stored order is still in status expected
	// at payment attempt attempt.
	Update(ctx context.Context, o Order, expected Status, attempt int) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
}

// PostgresRepository implements Repository using PostgreSQL, with line
// items, quote and address kept as JSONB.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed order repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orderColumns = `id, user_id, items, quote, payment_method, payment_status, status, payment_reference,
    redirect_url, shipping_method, shipping_address, points_redeemed, points_earned, attempts, points_attempt,
    fell_back, failure_reason, created_at, updated_at`

// Create inserts a new order.
func (r *PostgresRepository) Create(ctx context.Context, o Order) error {
	orderID, err := uuid.Parse(o.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(o.UserID)
	if err != nil {
		return err
	}
	items, quote, address, err := encode(o)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO orders (`+orderColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		orderID, userID, items, quote, string(o.PaymentMethod), o.PaymentStatus, string(o.Status), o.PaymentReference,
		o.RedirectURL, string(o.ShippingMethod), address, o.PointsRedeemed, o.PointsEarned, o.Attempts, o.PointsAttempt,
		o.FellBack, o.FailureReason, o.CreatedAt.UTC(), o.UpdatedAt.UTC())
	return err
}

// Get fetches an order by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return Order{}, ErrOrderNotFound
	}
	return scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
}

// Update writes the mutable fields of an order guarded by its previous status
// and attempt counter.
func (r *PostgresRepository) Update(ctx context.Context, o Order, expected Status, attempt int) error {
	orderID, err := uuid.Parse(o.ID)
	if err != nil {
		return ErrOrderNotFound
	}
	items, quote, address, err := encode(o)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE orders SET items = $1, quote = $2, payment_method = $3, payment_status = $4,
        status = $5, payment_reference = $6, redirect_url = $7, shipping_address = $8, points_redeemed = $9,
        points_earned = $10, attempts = $11, points_attempt = $12, fell_back = $13, failure_reason = $14,
        updated_at = $15
        WHERE id = $16 AND status = $17 AND attempts = $18`,
		items, quote, string(o.PaymentMethod), o.PaymentStatus, string(o.Status), o.PaymentReference, o.RedirectURL,
		address, o.PointsRedeemed, o.PointsEarned, o.Attempts, o.PointsAttempt, o.FellBack, o.FailureReason,
		o.UpdatedAt.UTC(), orderID, string(expected), attempt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.Get(ctx, o.ID); err != nil {
			return err
		}
		return ErrStaleOrder
	}
	return nil
}

// ListByUser returns a customer's most recent orders.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, uid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func encode(o Order) (items, quote, address []byte, err error) {
	if items, err = json.Marshal(o.Items); err != nil {
		return nil, nil, nil, fmt.Errorf("encode items: %w", err)
	}
	if quote, err = json.Marshal(o.Quote); err != nil {
		return nil, nil, nil, fmt.Errorf("encode quote: %w", err)
	}
	if o.ShippingAddress != nil {
		if address, err = json.Marshal(o.ShippingAddress); err != nil {
			return nil, nil, nil, fmt.Errorf("encode address: %w", err)
		}
	}
	return items, quote, address, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		id, userID               uuid.UUID
		items, quote, address    []byte
		method, status, shipping string
		createdAt, updatedAt     time.Time
		o                        Order
	)
	err := row.Scan(&id, &userID, &items, &quote, &method, &o.PaymentStatus, &status, &o.PaymentReference,
		&o.RedirectURL, &shipping, &address, &o.PointsRedeemed, &o.PointsEarned, &o.Attempts, &o.PointsAttempt,
		&o.FellBack, &o.FailureReason, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return Order{}, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal(quote, &o.Quote); err != nil {
		return Order{}, fmt.Errorf("decode quote: %w", err)
	}
	if len(address) > 0 {
		o.ShippingAddress = &Address{}
		if err := json.Unmarshal(address, o.ShippingAddress); err != nil {
			return Order{}, fmt.Errorf("decode address: %w", err)
		}
	}
	o.ID = id.String()
	o.UserID = userID.String()
	o.PaymentMethod = payments.Method(method)
	o.Status = Status(status)
	o.ShippingMethod = pricing.ShippingMethod(shipping)
	o.CreatedAt = createdAt.UTC()
	o.UpdatedAt = updatedAt.UTC()
	return o, nil
}
