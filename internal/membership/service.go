package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lakay-market/storefront/internal/identity"
	"github.com/lakay-market/storefront/internal/ledger"
	"github.com/lakay-market/storefront/internal/notification"
	"github.com/lakay-market/storefront/internal/wallet"
)

const kindUnionPlus = "union_plus"

// ErrInsufficientFunds is returned when the wallet cannot cover the fee.
var ErrInsufficientFunds = errors.New("wallet balance does not cover the Union Plus fee")

// Plan is the Union Plus price and length.
type Plan struct {
	Fee    decimal.Decimal
	Period time.Duration
}

// Subscription is the outcome of a purchase.
type Subscription struct {
	Until         time.Time       `json:"until"`
	Fee           decimal.Decimal `json:"fee"`
	TransactionID string          `json:"transaction_id"`
	Duplicate     bool            `json:"duplicate"`
}

// Service sells Union Plus memberships paid from the store-credit wallet.
type Service struct {
	plan     Plan
	users    *identity.Service
	wallets  *wallet.Service
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a membership service.
func NewService(plan Plan, users *identity.Service, wallets *wallet.Service, notifier notification.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{plan: plan, users: users, wallets: wallets, notifier: notifier, logger: logger, now: time.Now}
}

// Subscribe charges the fee and extends the membership by one period. The
// charge is keyed on the period start so each period is paid for once.
func (s *Service) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return Subscription{}, err
	}

	now := s.now().UTC()
	start := now
	if user.HasUnionPlus(now) {
		start = user.UnionPlusUntil.UTC()
	}
	reference := fmt.Sprintf("%s:%s", userID, start.Truncate(24*time.Hour).Format("2006-01-02"))

	res, err := s.wallets.Charge(ctx, userID, ledger.MembershipRevenueAccountCode, kindUnionPlus, reference, s.plan.Fee)
	switch {
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		// Paid earlier; extend only if that attempt stopped before the extension.
		if current, err := s.users.Get(ctx, userID); err == nil && current.UnionPlusUntil != nil && current.UnionPlusUntil.After(start) {
			return Subscription{Until: current.UnionPlusUntil.UTC(), Fee: s.plan.Fee, TransactionID: res.TransactionID, Duplicate: true}, nil
		}
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return Subscription{}, ErrInsufficientFunds
	case err != nil:
		return Subscription{}, err
	}

	until, err := s.users.ExtendUnionPlus(ctx, userID, s.plan.Period)
	if err != nil {
		return Subscription{}, err
	}

	s.logger.Info("union plus purchased",
		slog.String("user_id", userID),
		slog.Time("until", until),
		slog.String("transaction_id", res.TransactionID),
	)
	notification.SendLogged(ctx, s.notifier, s.logger, notification.Message{
		Kind:        notification.KindUnionPlus,
		Destination: user.Phone,
		Body:        fmt.Sprintf("Union Plus active until %s", until.Format("2006-01-02")),
	})
	return Subscription{Until: until, Fee: s.plan.Fee, TransactionID: res.TransactionID}, nil
}
