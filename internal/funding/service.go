package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lakay-market/storefront/internal/gateway"
	"github.com/lakay-market/storefront/internal/identity"
	"github.com/lakay-market/storefront/internal/ledger"
	"github.com/lakay-market/storefront/internal/money"
	"github.com/lakay-market/storefront/internal/notification"
	"github.com/lakay-market/storefront/internal/validation"
	"github.com/lakay-market/storefront/internal/wallet"
)

const kindCardIn = "card_in"

// MaxTopUp is the largest single card top-up accepted.
var MaxTopUp = decimal.NewFromInt(100_000)

// ErrInvalidCard is returned when the card number fails the length or checksum test.
var ErrInvalidCard = errors.New("invalid card number")

// Service coordinates card top-ups of store-credit wallets using the ledger and the card processor.
type Service struct {
	ledger   ledger.Ledger
	wallets  *wallet.Service
	cards    gateway.CardProcessor
	users    *identity.Service
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService prepares a funding service ensuring the card suspense account exists.
func NewService(ctx context.Context, ledgerBackend ledger.Ledger, wallets *wallet.Service, cards gateway.CardProcessor, users *identity.Service, notifier notification.Notifier, logger *slog.Logger) (*Service, error) {
	if wallets == nil {
		return nil, fmt.Errorf("wallet service is required")
	}
	if cards == nil {
		cards = gateway.StaticCardProcessor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := ledgerBackend.EnsureAccount(ctx, ledger.CardSuspenseAccountCode); err != nil {
		return nil, err
	}
	return &Service{ledger: ledgerBackend, wallets: wallets, cards: cards, users: users, notifier: notifier, logger: logger}, nil
}

// CardInInput captures the required data for a card top-up.
type CardInInput struct {
	OwnerID    string
	Amount     decimal.Decimal
	ClientTxID string
	CardNumber string
	Expiry     string
	CVV        string
}

// FundingResult represents the domain outcome of a card operation.
type FundingResult struct {
	TransactionID     string
	Status            string
	WalletBalance     decimal.Decimal
	AcquirerReference string
	CompletedAt       time.Time
}

// CardIn authorizes and records a card top-up into the owner's wallet. The
// funds stay pending settlement against the card suspense account.
func (s *Service) CardIn(ctx context.Context, input CardInInput) (FundingResult, error) {
	if err := validateCardNumber(input.CardNumber); err != nil {
		return FundingResult{}, err
	}
	if !input.Amount.IsPositive() {
		return FundingResult{}, fmt.Errorf("%w: amount must be positive", validation.ErrInvalid)
	}
	if input.Amount.GreaterThan(MaxTopUp) {
		return FundingResult{}, fmt.Errorf("%w: amount must be at most %s", validation.ErrInvalid, MaxTopUp.String())
	}
	minor, err := money.ToMinor(input.Amount)
	if err != nil {
		return FundingResult{}, fmt.Errorf("%w: %v", validation.ErrInvalid, err)
	}
	w, err := s.wallets.GetByOwner(ctx, input.OwnerID)
	if err != nil {
		return FundingResult{}, err
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	} else {
		prior, found, err := s.ledger.Posted(ctx, kindCardIn, input.ClientTxID)
		if err != nil {
			return FundingResult{}, err
		}
		if found {
			return s.replay(ctx, w, prior)
		}
	}

	auth, err := s.cards.Authorize(ctx, gateway.CardCharge{
		Number:    input.CardNumber,
		Expiry:    input.Expiry,
		CVV:       input.CVV,
		Amount:    input.Amount,
		Currency:  w.Currency,
		Reference: input.ClientTxID,
	})
	if err != nil {
		return FundingResult{}, err
	}

	posted, err := s.ledger.Post(ctx, ledger.Posting{
		Account:    w.AccountCode,
		Source:     ledger.CardSuspenseAccountCode,
		Kind:       kindCardIn,
		ClientTxID: input.ClientTxID,
		Amount:     minor,
		Status:     ledger.StatusPendingSettlement,
	})
	result := FundingResult{
		TransactionID:     posted.TransactionID,
		Status:            posted.Status,
		WalletBalance:     money.FromMinor(posted.Balance),
		AcquirerReference: auth.Reference,
		CompletedAt:       time.Now().UTC(),
	}
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			return result, err
		}
		return FundingResult{}, err
	}

	s.logger.InfoContext(ctx, "wallet funded",
		slog.String("wallet_id", w.ID),
		slog.String("amount", input.Amount.StringFixed(2)),
		slog.String("transaction_id", posted.TransactionID),
	)
	if s.users != nil {
		if user, err := s.users.Get(ctx, input.OwnerID); err == nil {
			notification.SendLogged(ctx, s.notifier, s.logger, notification.Message{
				Kind:        notification.KindWalletFunded,
				Destination: user.Phone,
				Body:        fmt.Sprintf("Your wallet was credited %s %s", input.Amount.StringFixed(2), w.Currency),
			})
		}
	}
	return result, nil
}

// replay answers a repeated top-up from the ledger without charging the
// card again.
func (s *Service) replay(ctx context.Context, w wallet.Wallet, prior ledger.PostingResult) (FundingResult, error) {
	balance, err := s.ledger.Balance(ctx, w.AccountCode)
	if err != nil {
		return FundingResult{}, err
	}
	return FundingResult{
		TransactionID: prior.TransactionID,
		Status:        prior.Status,
		WalletBalance: money.FromMinor(balance),
		CompletedAt:   time.Now().UTC(),
	}, ledger.ErrDuplicateTransaction
}

// validateCardNumber checks length and the Luhn checksum.
func validateCardNumber(card string) error {
	digits := strings.ReplaceAll(card, " ", "")
	if len(digits) < 12 || len(digits) > 19 {
		return fmt.Errorf("%w: must be between 12 and 19 digits", ErrInvalidCard)
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		r := digits[i]
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: must be numeric", ErrInvalidCard)
		}
		d := int(r - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	if sum%10 != 0 {
		return fmt.Errorf("%w: checksum mismatch", ErrInvalidCard)
	}
	return nil
}
