package loyalty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/lakay-market/storefront/internal/ledger"
	"github.com/lakay-market/storefront/internal/metrics"
)

const (
	kindAccrual  = "loyalty_accrual"
	kindLifetime = "loyalty_lifetime"
	kindRedeem   = "loyalty_redeem"
	kindRestore  = "loyalty_restore"
)

// ErrInsufficientPoints is returned when a redemption exceeds the balance.
var ErrInsufficientPoints = errors.New("not enough loyalty points")

// Status summarises a customer's loyalty position.
type Status struct {
	Points       int64           `json:"points"`
	Lifetime     int64           `json:"lifetime_points"`
	Tier         Tier            `json:"tier"`
	Multiplier   decimal.Decimal `json:"multiplier"`
	NextTier     Tier            `json:"next_tier,omitempty"`
	PointsToNext int64           `json:"points_to_next,omitempty"`
}

// Accrual is the outcome of crediting points for an order.
type Accrual struct {
	Points int64 `json:"points"`
	Tier   Tier  `json:"tier"`
	// Duplicate is set when the order was already credited.
	Duplicate bool `json:"-"`
}

// Service keeps loyalty balances on the ledger, in whole points.
type Service struct {
	ledger  ledger.Ledger
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService builds a loyalty service.
func NewService(l ledger.Ledger, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: l, metrics: m, logger: logger}
}

func spendableAccount(userID string) string { return "loyalty:" + userID }
func lifetimeAccount(userID string) string  { return "loyalty-lifetime:" + userID }

func (s *Service) ensure(ctx context.Context, userID string) error {
	if err := s.ledger.EnsureAccount(ctx, spendableAccount(userID)); err != nil {
		return err
	}
	return s.ledger.EnsureAccount(ctx, lifetimeAccount(userID))
}

// Status returns the balance, lifetime points and tier of a customer.
func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return Status{}, err
	}
	points, err := s.ledger.Balance(ctx, spendableAccount(userID))
	if err != nil {
		return Status{}, err
	}
	lifetime, err := s.ledger.Balance(ctx, lifetimeAccount(userID))
	if err != nil {
		return Status{}, err
	}
	tier := TierFor(lifetime)
	st := Status{Points: points, Lifetime: lifetime, Tier: tier, Multiplier: tier.Multiplier()}
	if nt, missing, ok := next(lifetime); ok {
		st.NextTier = nt
		st.PointsToNext = missing
	}
	return st, nil
}

// Accrue credits points for a paid order at the customer's current tier.
// Crediting the same order twice is a no-op.
func (s *Service) Accrue(ctx context.Context, userID, orderID string, eligible decimal.Decimal) (Accrual, error) {
	st, err := s.Status(ctx, userID)
	if err != nil {
		return Accrual{}, err
	}
	points := PointsFor(eligible, st.Tier)
	if points == 0 {
		return Accrual{Tier: st.Tier}, nil
	}

	_, err = s.ledger.Post(ctx, ledger.Posting{
		Account:    spendableAccount(userID),
		Source:     ledger.LoyaltyIssuerAccountCode,
		Kind:       kindAccrual,
		ClientTxID: orderID,
		Amount:     points,
	})
	if errors.Is(err, ledger.ErrDuplicateTransaction) {
		return Accrual{Tier: st.Tier, Duplicate: true}, nil
	}
	if err != nil {
		return Accrual{}, fmt.Errorf("credit points: %w", err)
	}
	if _, err := s.ledger.Post(ctx, ledger.Posting{
		Account:    lifetimeAccount(userID),
		Source:     ledger.LoyaltyIssuerAccountCode,
		Kind:       kindLifetime,
		ClientTxID: orderID,
		Amount:     points,
	}); err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		return Accrual{}, fmt.Errorf("record lifetime points: %w", err)
	}

	s.metrics.PointsAwarded(points)
	tier := TierFor(st.Lifetime + points)
	if tier != st.Tier {
		s.logger.InfoContext(ctx, "loyalty tier reached", slog.String("user_id", userID), slog.String("tier", string(tier)))
	}
	return Accrual{Points: points, Tier: st.Tier}, nil
}

// Redeem reserves points against an order payment attempt. reference must be
// unique per attempt so a restored reservation can be taken again on retry.
func (s *Service) Redeem(ctx context.Context, userID, reference string, points int64) error {
	if points <= 0 {
		return nil
	}
	if err := s.ensure(ctx, userID); err != nil {
		return err
	}
	_, err := s.ledger.Transfer(ctx, spendableAccount(userID), ledger.LoyaltyIssuerAccountCode, kindRedeem, reference, points)
	switch {
	case err == nil, errors.Is(err, ledger.ErrDuplicateTransaction):
		return nil
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return ErrInsufficientPoints
	default:
		return fmt.Errorf("redeem points: %w", err)
	}
}

// Restore gives back points reserved by Redeem under the same reference.
func (s *Service) Restore(ctx context.Context, userID, reference string, points int64) error {
	if points <= 0 {
		return nil
	}
	_, err := s.ledger.Post(ctx, ledger.Posting{
		Account:    spendableAccount(userID),
		Source:     ledger.LoyaltyIssuerAccountCode,
		Kind:       kindRestore,
		ClientTxID: reference,
		Amount:     points,
	})
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		return fmt.Errorf("restore points: %w", err)
	}
	return nil
}
