package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/lakay-market/storefront/internal/gateway"
	"github.com/lakay-market/storefront/internal/ledger"
	"github.com/lakay-market/storefront/internal/metrics"
)

// Method is a payment method offered at checkout.
type Method string

const (
	MethodCard           Method = "card"
	MethodWallet         Method = "wallet"
	MethodMonCash        Method = "moncash"
	MethodNatCash        Method = "natcash"
	MethodCashOnDelivery Method = "cash_on_delivery"
)

// Status is the state a successful dispatch leaves the payment in.
type Status string

const (
	StatusPaid             Status = "paid"
	StatusAwaitingRedirect Status = "awaiting_redirect"
	StatusDueOnDelivery    Status = "due_on_delivery"
)

const kindOrderPayment = "order_payment"

var (
	// ErrUnsupportedMethod is returned for an unknown payment method.
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	// ErrMethodDisabled is returned when the method's gateway is not configured.
	ErrMethodDisabled = errors.New("payment method is not available")
	// ErrCardRequired is returned for card payments without card details.
	ErrCardRequired = errors.New("card details are required")
	// ErrAmountMismatch is returned when a gateway confirms less than the order total.
	ErrAmountMismatch = errors.New("confirmed amount does not match order total")
)

// Card carries the card details of a card payment.
type Card struct {
	Number string `json:"number" validate:"required,min=12,max=23"`
	Expiry string `json:"expiry" validate:"required"`
	CVV    string `json:"cvv" validate:"required,min=3,max=4,numeric"`
}

// Request asks for an order to be paid.
type Request struct {
	OrderID       string
	UserID        string
	Method        Method
	Amount        decimal.Decimal
	Currency      string
	Card          *Card
	// ReturnURL builds the page a redirect gateway sends the customer back
	// to. It receives the gateway's own method so a fallback returns there.
	ReturnURL     func(Method) string
	AllowFallback bool
}

// Result describes a successful dispatch.
type Result struct {
	// Method is the method that was finally used; it differs from the
	// requested one after a fallback.
	Method      Method
	Status      Status
	Reference   string
	RedirectURL string
	FellBack    bool
}

// WalletCharger debits a customer's store-credit wallet.
type WalletCharger interface {
	Charge(ctx context.Context, ownerID, toAccount, kind, reference string, amount decimal.Decimal) (ledger.TransactionResult, error)
}

// RetryPolicy bounds the exponential backoff around gateway calls.
type RetryPolicy struct {
	MaxRetries int
	Initial    time.Duration
}

// Dispatcher routes a payment to the right collaborator.
type Dispatcher struct {
	cards     gateway.CardProcessor
	wallets   WalletCharger
	redirects map[Method]gateway.RedirectGateway
	retry     RetryPolicy
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewDispatcher builds a dispatcher. Redirect gateways are keyed by their
// Name; a nil gateway leaves that method disabled.
func NewDispatcher(cards gateway.CardProcessor, wallets WalletCharger, redirects []gateway.RedirectGateway, retry RetryPolicy, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	if cards == nil {
		cards = gateway.StaticCardProcessor{}
	}
	if retry.Initial <= 0 {
		retry.Initial = 200 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	byMethod := make(map[Method]gateway.RedirectGateway, len(redirects))
	for _, g := range redirects {
		if g != nil {
			byMethod[Method(g.Name())] = g
		}
	}
	return &Dispatcher{cards: cards, wallets: wallets, redirects: byMethod, retry: retry, metrics: m, logger: logger}
}

// Methods lists the methods that can currently be used.
func (d *Dispatcher) Methods() []Method {
	methods := []Method{MethodCard, MethodWallet}
	for _, m := range []Method{MethodMonCash, MethodNatCash} {
		if _, ok := d.redirects[m]; ok {
			methods = append(methods, m)
		}
	}
	return append(methods, MethodCashOnDelivery)
}

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodCard, MethodWallet, MethodMonCash, MethodNatCash, MethodCashOnDelivery:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
}

// Dispatch pays for an order.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	defer func() { d.metrics.PaymentDuration(string(req.Method), time.Since(start)) }()

	switch req.Method {
	case MethodCard:
		return d.payByCard(ctx, req)
	case MethodWallet:
		return d.payByWallet(ctx, req)
	case MethodMonCash, MethodNatCash:
		return d.payByRedirect(ctx, req)
	case MethodCashOnDelivery:
		return Result{Method: MethodCashOnDelivery, Status: StatusDueOnDelivery, Reference: req.OrderID}, nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedMethod, req.Method)
	}
}

func (d *Dispatcher) payByCard(ctx context.Context, req Request) (Result, error) {
	if req.Card == nil {
		return Result{}, ErrCardRequired
	}
	var auth gateway.Authorization
	err := d.withRetry(ctx, MethodCard, func() error {
		var err error
		auth, err = d.cards.Authorize(ctx, gateway.CardCharge{
			Number:    req.Card.Number,
			Expiry:    req.Card.Expiry,
			CVV:       req.Card.CVV,
			Amount:    req.Amount,
			Currency:  req.Currency,
			Reference: req.OrderID,
		})
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Method: MethodCard, Status: StatusPaid, Reference: auth.Reference}, nil
}

func (d *Dispatcher) payByWallet(ctx context.Context, req Request) (Result, error) {
	if d.wallets == nil {
		return Result{}, ErrMethodDisabled
	}
	res, err := d.wallets.Charge(ctx, req.UserID, ledger.MerchantSettlementAccountCode, kindOrderPayment, req.OrderID, req.Amount)
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		d.metrics.PaymentAttempt(string(MethodWallet), outcome(err))
		return Result{}, err
	}
	d.metrics.PaymentAttempt(string(MethodWallet), "ok")
	return Result{Method: MethodWallet, Status: StatusPaid, Reference: res.TransactionID}, nil
}

func (d *Dispatcher) payByRedirect(ctx context.Context, req Request) (Result, error) {
	primary, ok := d.redirects[req.Method]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrMethodDisabled, req.Method)
	}
	redirect, err := d.createRedirect(ctx, primary, req)
	if err == nil {
		return Result{Method: req.Method, Status: StatusAwaitingRedirect, Reference: redirect.Reference, RedirectURL: redirect.URL}, nil
	}
	if !req.AllowFallback || !errors.Is(err, gateway.ErrUnavailable) {
		return Result{}, err
	}

	alt := alternative(req.Method)
	secondary, ok := d.redirects[alt]
	if !ok {
		return Result{}, err
	}
	d.logger.WarnContext(ctx, "payment gateway unavailable, falling back",
		slog.String("order_id", req.OrderID),
		slog.String("from", string(req.Method)),
		slog.String("to", string(alt)),
		slog.Any("error", err),
	)
	redirect, fbErr := d.createRedirect(ctx, secondary, req)
	if fbErr != nil {
		return Result{}, fmt.Errorf("%w (fallback %s: %v)", err, alt, fbErr)
	}
	return Result{Method: alt, Status: StatusAwaitingRedirect, Reference: redirect.Reference, RedirectURL: redirect.URL, FellBack: true}, nil
}

func (d *Dispatcher) createRedirect(ctx context.Context, g gateway.RedirectGateway, req Request) (gateway.Redirect, error) {
	method := Method(g.Name())
	var returnURL string
	if req.ReturnURL != nil {
		returnURL = req.ReturnURL(method)
	}
	var redirect gateway.Redirect
	err := d.withRetry(ctx, method, func() error {
		var err error
		redirect, err = g.CreatePayment(ctx, gateway.PaymentRequest{
			OrderID:   req.OrderID,
			Amount:    req.Amount,
			Currency:  req.Currency,
			ReturnURL: returnURL,
		})
		return err
	})
	return redirect, err
}

// Confirm verifies a redirect payment after the customer returns and checks
// it covers expected.
func (d *Dispatcher) Confirm(ctx context.Context, method Method, v gateway.Verification, expected decimal.Decimal) (gateway.Confirmation, error) {
	g, ok := d.redirects[method]
	if !ok {
		return gateway.Confirmation{}, fmt.Errorf("%w: %s", ErrMethodDisabled, method)
	}
	var conf gateway.Confirmation
	err := d.withRetry(ctx, method, func() error {
		var err error
		conf, err = g.VerifyPayment(ctx, v)
		return err
	})
	if err != nil {
		return gateway.Confirmation{}, err
	}
	if conf.Amount.LessThan(expected) {
		return gateway.Confirmation{}, fmt.Errorf("%w: got %s want %s", ErrAmountMismatch, conf.Amount.StringFixed(2), expected.StringFixed(2))
	}
	return conf, nil
}

// withRetry retries op with exponential backoff while it fails with
// gateway.ErrUnavailable. Any other error stops immediately.
func (d *Dispatcher) withRetry(ctx context.Context, method Method, op func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = d.retry.Initial
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(d.retry.MaxRetries)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		d.metrics.PaymentAttempt(string(method), outcome(err))
		if err == nil {
			return nil
		}
		if errors.Is(err, gateway.ErrUnavailable) {
			d.logger.WarnContext(ctx, "payment attempt failed",
				slog.String("method", string(method)),
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

func alternative(m Method) Method {
	if m == MethodMonCash {
		return MethodNatCash
	}
	return MethodMonCash
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, gateway.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, gateway.ErrDeclined):
		return "declined"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	default:
		return "error"
	}
}
