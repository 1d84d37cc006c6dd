package checkout

import (
	"context"
	"net/url"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakay-market/storefront/internal/cart"
	"github.com/lakay-market/storefront/internal/catalog"
	"github.com/lakay-market/storefront/internal/config"
	"github.com/lakay-market/storefront/internal/gateway"
	"github.com/lakay-market/storefront/internal/identity"
	"github.com/lakay-market/storefront/internal/ledger"
	"github.com/lakay-market/storefront/internal/logging"
	"github.com/lakay-market/storefront/internal/loyalty"
	"github.com/lakay-market/storefront/internal/metrics"
	"github.com/lakay-market/storefront/internal/notification"
	"github.com/lakay-market/storefront/internal/order"
	"github.com/lakay-market/storefront/internal/payments"
	"github.com/lakay-market/storefront/internal/pricing"
	"github.com/lakay-market/storefront/internal/wallet"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (r *recordingNotifier) Send(_ context.Context, m notification.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	return nil
}

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, m := range r.sent {
		out = append(out, m.Kind)
	}
	return out
}

type fakeMobileMoney struct {
	name      string
	amount    decimal.Decimal
	err       error
	createErr error
	returnURL string
}

func (f *fakeMobileMoney) Name() string { return f.name }

func (f *fakeMobileMoney) CreatePayment(_ context.Context, req gateway.PaymentRequest) (gateway.Redirect, error) {
	f.returnURL = req.ReturnURL
	if f.createErr != nil {
		return gateway.Redirect{}, f.createErr
	}
	return gateway.Redirect{Gateway: f.name, Reference: "tok-" + req.OrderID, URL: "https://" + f.name + ".example/pay?token=tok"}, nil
}

func (f *fakeMobileMoney) VerifyPayment(_ context.Context, v gateway.Verification) (gateway.Confirmation, error) {
	if f.err != nil {
		return gateway.Confirmation{}, f.err
	}
	return gateway.Confirmation{Gateway: f.name, OrderID: v.OrderID, TransactionID: "tx-1", Amount: f.amount}, nil
}

// racingOrders runs race once, just before the first retry claims an
// order, so a competing request wins the claim.
type racingOrders struct {
	order.Repository
	race  func()
	fired bool
}

func (r *racingOrders) Update(ctx context.Context, o order.Order, expected order.Status, attempt int) error {
	if !r.fired && o.Status == order.StatusPendingPayment && expected != order.StatusPendingPayment {
		r.fired = true
		r.race()
	}
	return r.Repository.Update(ctx, o, expected, attempt)
}

// hookedCards runs during authorization, while the order is in flight.
type hookedCards struct {
	during func()
}

func (h hookedCards) Authorize(_ context.Context, c gateway.CardCharge) (gateway.Authorization, error) {
	h.during()
	return gateway.Authorization{Reference: "auth-" + c.Reference, Status: "approved"}, nil
}

type env struct {
	svc      *Service
	ledger   ledger.Ledger
	carts    *cart.Service
	catalog  *catalog.Service
	loyalty  *loyalty.Service
	wallets  *wallet.Service
	notifier *recordingNotifier
	moncash  *fakeMobileMoney
	natcash  *fakeMobileMoney
	user     identity.User
	wallet   wallet.Wallet
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	logger := logging.Discard()
	m := metrics.New()

	led := ledger.NewInMemory()
	require.NoError(t, ledger.EnsureSystemAccounts(ctx, led))

	ids := identity.NewService(identity.NewMemoryRepository())
	user, err := ids.Register(ctx, identity.Registration{Phone: "+50937001122", Password: "secret123", Name: "Rose"})
	require.NoError(t, err)

	wallets := wallet.NewService(wallet.NewMemoryRepository(), led)
	w, err := wallets.Create(ctx, wallet.CreateInput{OwnerID: user.ID})
	require.NoError(t, err)

	cat := catalog.NewService(catalog.NewMemoryRepository(), "HTG")
	carts := cart.NewService(cart.NewMemoryRepository(), cat)
	points := loyalty.NewService(led, m, logger)
	moncash := &fakeMobileMoney{name: gateway.MonCashName}
	natcash := &fakeMobileMoney{name: gateway.NatCashName}
	dispatcher := payments.NewDispatcher(gateway.StaticCardProcessor{}, wallets, []gateway.RedirectGateway{moncash, natcash},
		payments.RetryPolicy{MaxRetries: 1, Initial: time.Millisecond}, m, logger)
	notifier := &recordingNotifier{}

	svc := NewService(Dependencies{
		Carts: carts,
		Pricing: pricing.NewCalculator(config.Pricing{
			Currency:              "HTG",
			TaxRate:               decimal.RequireFromString("0.10"),
			ShippingBaseFee:       decimal.NewFromInt(150),
			ShippingPerItemFee:    decimal.NewFromInt(25),
			FreeShippingThreshold: decimal.NewFromInt(5000),
			ExpressMultiplier:     decimal.NewFromInt(2),
		}),
		Users:         ids,
		Loyalty:       points,
		Payments:      dispatcher,
		Orders:        order.NewMemoryRepository(),
		Stock:         cat,
		Notifier:      notifier,
		Metrics:       m,
		Logger:        logger,
		PublicBaseURL: "https://shop.example",
	})
	return &env{svc: svc, ledger: led, carts: carts, catalog: cat, loyalty: points, wallets: wallets,
		notifier: notifier, moncash: moncash, natcash: natcash, user: user, wallet: w}
}

func (e *env) add(t *testing.T, kind, price string, qty int) catalog.Offer {
	t.Helper()
	return e.addFor(t, kind, price, qty, 0)
}

func (e *env) addFor(t *testing.T, kind, price string, qty, duration int) catalog.Offer {
	t.Helper()
	o, err := e.catalog.Create(context.Background(), catalog.CreateInput{
		SellerID: uuid.NewString(), Title: kind, Kind: kind, Price: price,
	})
	require.NoError(t, err)
	_, err = e.carts.AddItem(context.Background(), e.user.ID, cart.AddItemInput{OfferID: o.ID, Quantity: qty, Duration: duration})
	require.NoError(t, err)
	return o
}

func (e *env) seedPoints(t *testing.T, points int64) {
	t.Helper()
	_, err := e.loyalty.Accrue(context.Background(), e.user.ID, "seed-order", decimal.NewFromInt(points*100))
	require.NoError(t, err)
	require.Equal(t, points, e.points(t))
}

func (e *env) points(t *testing.T) int64 {
	t.Helper()
	st, err := e.loyalty.Status(context.Background(), e.user.ID)
	require.NoError(t, err)
	return st.Points
}

func address() *order.Address {
	return &order.Address{Name: "Rose", Phone: "+50937001122", Line1: "12 Rue Capois", City: "Port-au-Prince"}
}

func goodCard() *payments.Card {
	return &payments.Card{Number: "4111111111111111", Expiry: "12/29", CVV: "123"}
}

func declinedCard() *payments.Card {
	return &payments.Card{Number: "4000000000000002", Expiry: "12/29", CVV: "123"}
}

func TestPlaceOrderByCard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.add(t, "physical", "1000", 2)

	o, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "card", Card: goodCard(), ShippingAddress: address()})
	require.NoError(t, err)

	assert.Equal(t, order.StatusPaid, o.Status)
	assert.Equal(t, payments.MethodCard, o.PaymentMethod)
	assert.True(t, o.Quote.Total.Equal(decimal.NewFromInt(2375)), o.Quote.Total.String())
	assert.Equal(t, int64(20), o.PointsEarned)
	assert.Equal(t, int64(20), e.points(t))

	c, err := e.carts.Get(ctx, e.user.ID)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, []string{notification.KindOrderPaid}, e.notifier.kinds())

	orders, err := e.svc.List(ctx, e.user.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestPlaceOrderValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "card", Card: goodCard()})
	assert.ErrorIs(t, err, cart.ErrEmptyCart)

	e.add(t, "physical", "100", 1)
	_, err = e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "card", Card: goodCard()})
	assert.ErrorIs(t, err, ErrAddressRequired)

	_, err = e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "card", ShippingAddress: address()})
	assert.Error(t, err, "card details are required")

	_, err = e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "bitcoin"})
	assert.Error(t, err)

	o, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "card", Card: goodCard(), ShippingMethod: "pickup"})
	require.NoError(t, err)
	assert.Nil(t, o.ShippingAddress)
	assert.True(t, o.Quote.Shipping.IsZero())
}

func TestCashOnDeliveryOnlyForPhysicalCarts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.add(t, "digital", "300", 1)

	_, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "cash_on_delivery"})
	assert.ErrorIs(t, err, ErrCashOnDeliveryNotAllowed)

	require.NoError(t, e.carts.Clear(ctx, e.user.ID))
	e.add(t, "physical", "6000", 1)
	o, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "cash_on_delivery", ShippingAddress: address()})
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, o.Status)
	assert.Equal(t, string(payments.StatusDueOnDelivery), o.PaymentStatus)
	assert.Equal(t, int64(60), o.PointsEarned)
	assert.Contains(t, e.notifier.kinds(), notification.KindOrderConfirmed)
}

func TestFailedPaymentRestoresPointsAndCanBeRetried(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.loyalty.Accrue(ctx, e.user.ID, "seed-order", decimal.NewFromInt(50_000))
	require.NoError(t, err)
	require.Equal(t, int64(500), e.points(t))

	e.add(t, "digital", "1000", 1)
	o, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "card", Card: declinedCard(), RedeemPoints: 300})
	require.ErrorIs(t, err, ErrPaymentFailed)
	assert.ErrorIs(t, err, gateway.ErrDeclined)
	assert.Equal(t, order.StatusPaymentFailed, o.Status)
	assert.Equal(t, int64(300), o.PointsRedeemed)
	assert.Equal(t, int64(500), e.points(t), "points given back after failure")

	c, _ := e.carts.Get(ctx, e.user.ID)
	assert.False(t, c.IsEmpty(), "cart kept for a failed payment")

	o, err = e.svc.RetryPayment(ctx, e.user.ID, o.ID, PayRequest{PaymentMethod: "card", Card: goodCard()})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, o.Status)
	assert.Equal(t, 2, o.Attempts)
	assert.Equal(t, int64(7), o.PointsEarned)
	assert.Equal(t, int64(207), e.points(t))

	_, err = e.svc.RetryPayment(ctx, e.user.ID, o.ID, PayRequest{PaymentMethod: "card", Card: goodCard()})
	assert.ErrorIs(t, err, ErrNotPayable)
}

func TestWalletPaymentAfterTopUp(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.add(t, "education", "500", 1)

	o, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "wallet"})
	require.ErrorIs(t, err, ErrPaymentFailed)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	ledger.SeedBalance(e.ledger, e.wallet.AccountCode, 100_000)
	o, err = e.svc.RetryPayment(ctx, e.user.ID, o.ID, PayRequest{PaymentMethod: "wallet"})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, o.Status)

	bal, err := e.wallets.Balance(ctx, e.wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000-55_000), bal.Minor)
}

func TestRedirectPaymentLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addFor(t, "travel", "2000", 1, 1)
	_, err := e.carts.UpdateItem(ctx, e.user.ID, e.mustFirstOffer(t), cart.UpdateItemInput{Quantity: 1, Duration: 2})
	require.NoError(t, err)

	o, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "moncash"})
	require.NoError(t, err)
	assert.Equal(t, order.StatusAwaitingPayment, o.Status)
	assert.Equal(t, "https://moncash.example/pay?token=tok", o.RedirectURL)
	assert.Contains(t, e.notifier.kinds(), notification.KindPaymentPending)

	e.moncash.amount = decimal.NewFromInt(100)
	_, err = e.svc.CompleteRedirect(ctx, payments.MethodMonCash, gateway.Verification{OrderID: o.ID})
	require.ErrorIs(t, err, ErrPaymentFailed)
	assert.ErrorIs(t, err, payments.ErrAmountMismatch)

	placed, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "moncash"})
	require.NoError(t, err)
	e.moncash.amount = placed.Quote.Total

	_, err = e.svc.CompleteRedirect(ctx, payments.MethodNatCash, gateway.Verification{OrderID: placed.ID})
	assert.ErrorIs(t, err, ErrMethodMismatch)

	paid, err := e.svc.CompleteRedirect(ctx, payments.MethodMonCash, gateway.Verification{OrderID: placed.ID, TransactionID: "tx-1"})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, paid.Status)
	assert.Equal(t, "tx-1", paid.PaymentReference)
	assert.True(t, paid.Quote.Total.Equal(decimal.NewFromInt(4400)))
	assert.Equal(t, int64(40), paid.PointsEarned)

	again, err := e.svc.CompleteRedirect(ctx, payments.MethodMonCash, gateway.Verification{OrderID: placed.ID})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, again.Status)
	assert.Equal(t, int64(40), e.points(t), "points credited once")
}

func TestRedirectNotYetPaidStaysAwaiting(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.add(t, "digital", "100", 1)
	o, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "moncash"})
	require.NoError(t, err)

	e.moncash.err = gateway.ErrNotPaid
	_, err = e.svc.CompleteRedirect(ctx, payments.MethodMonCash, gateway.Verification{OrderID: o.ID})
	assert.ErrorIs(t, err, gateway.ErrNotPaid)

	stored, err := e.svc.Get(ctx, e.user.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusAwaitingPayment, stored.Status)
}

func TestCancelRestoresPoints(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.loyalty.Accrue(ctx, e.user.ID, "seed-order", decimal.NewFromInt(20_000))
	require.NoError(t, err)
	e.add(t, "digital", "400", 1)

	o, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "moncash", RedeemPoints: 150})
	require.NoError(t, err)
	assert.Equal(t, int64(50), e.points(t))

	_, err = e.svc.Cancel(ctx, uuid.NewString(), o.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	cancelled, err := e.svc.Cancel(ctx, e.user.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)
	assert.Equal(t, int64(200), e.points(t))

	_, err = e.svc.Cancel(ctx, e.user.ID, o.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestQuoteUsesMembershipAndPoints(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.add(t, "physical", "200", 1)

	q, err := e.svc.Quote(ctx, e.user.ID, QuoteRequest{ShippingMethod: "express", RedeemPoints: 50})
	require.NoError(t, err)
	assert.True(t, q.Shipping.Equal(decimal.NewFromInt(300)))
	assert.Zero(t, q.PointsRedeemed, "no points to redeem yet")
}

func TestFallbackOrderCompletesThroughItsReturnURL(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.add(t, "digital", "800", 1)
	e.moncash.createErr = gateway.ErrUnavailable

	o, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "moncash", AllowFallback: true})
	require.NoError(t, err)
	assert.Equal(t, order.StatusAwaitingPayment, o.Status)
	assert.Equal(t, payments.MethodNatCash, o.PaymentMethod)
	assert.True(t, o.FellBack)
	assert.Equal(t, "https://natcash.example/pay?token=tok", o.RedirectURL)

	back, err := url.Parse(e.natcash.returnURL)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/payments/natcash/return", back.Path)
	method := payments.Method(path.Base(path.Dir(back.Path)))
	orderID := back.Query().Get("order_id")
	require.Equal(t, o.ID, orderID)

	e.natcash.amount = o.Quote.Total
	paid, err := e.svc.CompleteRedirect(ctx, method, gateway.Verification{OrderID: orderID, TransactionID: "tx-1"})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, paid.Status)
	assert.Equal(t, payments.MethodNatCash, paid.PaymentMethod)
	assert.Equal(t, paid.PointsEarned, e.points(t))
}

func TestConcurrentRetryKeepsOnePointsReservation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedPoints(t, 500)
	e.add(t, "digital", "1000", 1)

	o, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "card", Card: declinedCard(), RedeemPoints: 300})
	require.ErrorIs(t, err, ErrPaymentFailed)
	require.Equal(t, int64(500), e.points(t))

	var winner order.Order
	var winnerErr error
	e.svc.Orders = &racingOrders{Repository: e.svc.Orders, race: func() {
		winner, winnerErr = e.svc.RetryPayment(ctx, e.user.ID, o.ID, PayRequest{PaymentMethod: "card", Card: goodCard()})
	}}

	_, err = e.svc.RetryPayment(ctx, e.user.ID, o.ID, PayRequest{PaymentMethod: "card", Card: goodCard()})
	assert.ErrorIs(t, err, order.ErrStaleOrder)
	require.NoError(t, winnerErr)
	assert.Equal(t, order.StatusPaid, winner.Status)
	assert.Equal(t, 2, winner.Attempts)

	stored, err := e.svc.Get(ctx, e.user.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, stored.Status)
	assert.Equal(t, int64(300), stored.PointsRedeemed)
	assert.Equal(t, 500-300+winner.PointsEarned, e.points(t), "the losing retry must not hand back the winner's points")
}

func TestInFlightOrderCannotBeRetriedOrCancelled(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedPoints(t, 200)
	e.add(t, "digital", "600", 1)

	var orderID string
	var retryErr, cancelErr error
	e.svc.Payments = payments.NewDispatcher(hookedCards{during: func() {
		orders, err := e.svc.List(ctx, e.user.ID)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		orderID = orders[0].ID
		_, retryErr = e.svc.RetryPayment(ctx, e.user.ID, orderID, PayRequest{PaymentMethod: "card", Card: goodCard()})
		_, cancelErr = e.svc.Cancel(ctx, e.user.ID, orderID)
	}}, e.wallets, nil, payments.RetryPolicy{}, metrics.New(), logging.Discard())

	o, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "card", Card: goodCard(), RedeemPoints: 100})
	require.NoError(t, err)
	assert.Equal(t, orderID, o.ID)
	assert.ErrorIs(t, retryErr, ErrNotPayable)
	assert.ErrorIs(t, cancelErr, ErrNotCancellable)
	assert.Equal(t, order.StatusPaid, o.Status)
	assert.Equal(t, 1, o.Attempts)
	assert.Equal(t, 200-100+o.PointsEarned, e.points(t))
}

func TestRetryFromAwaitingKeepsReservation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedPoints(t, 500)
	e.add(t, "digital", "1000", 1)

	o, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "moncash", RedeemPoints: 300})
	require.NoError(t, err)
	require.Equal(t, order.StatusAwaitingPayment, o.Status)
	require.Equal(t, int64(200), e.points(t))

	require.NoError(t, e.loyalty.Redeem(ctx, e.user.ID, "elsewhere", 150))
	require.Equal(t, int64(50), e.points(t))

	paid, err := e.svc.RetryPayment(ctx, e.user.ID, o.ID, PayRequest{PaymentMethod: "card", Card: goodCard()})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, paid.Status)
	assert.Equal(t, 2, paid.Attempts)
	assert.Equal(t, int64(300), paid.PointsRedeemed)
	assert.Equal(t, 50+paid.PointsEarned, e.points(t), "the held reservation pays for the discount")

	again, err := e.svc.CompleteRedirect(ctx, payments.MethodMonCash, gateway.Verification{OrderID: o.ID})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, again.Status)
	assert.Equal(t, 50+paid.PointsEarned, e.points(t))
}

func TestRetryWithoutEnoughPointsKeepsOrderFailed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedPoints(t, 500)
	e.add(t, "digital", "1000", 1)

	o, err := e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "card", Card: declinedCard(), RedeemPoints: 300})
	require.ErrorIs(t, err, ErrPaymentFailed)
	require.NoError(t, e.loyalty.Redeem(ctx, e.user.ID, "elsewhere", 350))
	require.Equal(t, int64(150), e.points(t))

	_, err = e.svc.RetryPayment(ctx, e.user.ID, o.ID, PayRequest{PaymentMethod: "card", Card: goodCard()})
	require.ErrorIs(t, err, loyalty.ErrInsufficientPoints)

	stored, err := e.svc.Get(ctx, e.user.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaymentFailed, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, int64(150), e.points(t))

	cancelled, err := e.svc.Cancel(ctx, e.user.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)
	assert.Equal(t, int64(150), e.points(t))
}

func TestPaidOrderTakesStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	stock := 1
	offer, err := e.catalog.Create(ctx, catalog.CreateInput{SellerID: uuid.NewString(), Title: "Last radio", Kind: "physical", Price: "700", Stock: &stock})
	require.NoError(t, err)
	_, err = e.carts.AddItem(ctx, e.user.ID, cart.AddItemInput{OfferID: offer.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = e.svc.PlaceOrder(ctx, e.user.ID, Request{PaymentMethod: "card", Card: goodCard(), ShippingMethod: "pickup"})
	require.NoError(t, err)

	left, err := e.catalog.Get(ctx, offer.ID)
	require.NoError(t, err)
	require.NotNil(t, left.Stock)
	assert.Zero(t, *left.Stock)

	_, err = e.carts.AddItem(ctx, e.user.ID, cart.AddItemInput{OfferID: offer.ID, Quantity: 1})
	assert.ErrorIs(t, err, cart.ErrOutOfStock)
}

func (e *env) mustFirstOffer(t *testing.T) string {
	t.Helper()
	c, err := e.carts.Get(context.Background(), e.user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, c.Items)
	return c.Items[0].OfferID
}
