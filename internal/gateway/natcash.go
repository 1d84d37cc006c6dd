package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lakay-market/storefront/internal/config"
)

// NatCash talks to the Natcom NatCash partner payments API. Requests are
// signed with HMAC-SHA256 over "<timestamp>\n<body>".
type NatCash struct {
	cfg    config.NatCash
	client *httpClient
	now    func() time.Time
}

// NewNatCash builds a NatCash client. httpClient may be nil.
func NewNatCash(cfg config.NatCash, rps float64, client *http.Client) *NatCash {
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &NatCash{cfg: cfg, client: newHTTPClient(NatCashName, rps, client), now: time.Now}
}

// Name implements RedirectGateway.
func (n *NatCash) Name() string { return NatCashName }

type natcashCreateResponse struct {
	PaymentID  string `json:"payment_id"`
	PaymentURL string `json:"payment_url"`
}

type natcashPaymentResponse struct {
	OrderID   string          `json:"order_id"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Msisdn    string          `json:"msisdn"`
}

// Sign computes the request signature for a timestamp and body.
func (n *NatCash) Sign(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(n.cfg.Secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("\n"))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (n *NatCash) send(ctx context.Context, method, path string, payload, out any) error {
	req, body, err := jsonRequest(ctx, method, n.cfg.APIURL+path, payload)
	if err != nil {
		return err
	}
	ts := strconv.FormatInt(n.now().Unix(), 10)
	req.Header.Set("X-Partner-Code", n.cfg.PartnerCode)
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", n.Sign(ts, body))
	return n.client.do(ctx, req, out)
}

// CreatePayment opens a NatCash checkout session for the order.
func (n *NatCash) CreatePayment(ctx context.Context, pr PaymentRequest) (Redirect, error) {
	var resp natcashCreateResponse
	err := n.send(ctx, http.MethodPost, "/api/v1/payments", map[string]string{
		"partner_code": n.cfg.PartnerCode,
		"order_id":     pr.OrderID,
		"amount":       pr.Amount.StringFixed(2),
		"currency":     pr.Currency,
		"return_url":   pr.ReturnURL,
	}, &resp)
	if err != nil {
		return Redirect{}, err
	}
	if resp.PaymentURL == "" {
		return Redirect{}, fmt.Errorf("%s: %w: missing payment url", NatCashName, ErrInvalidResponse)
	}
	return Redirect{Gateway: NatCashName, Reference: resp.PaymentID, URL: resp.PaymentURL}, nil
}

// VerifyPayment fetches the payment state of an order.
func (n *NatCash) VerifyPayment(ctx context.Context, v Verification) (Confirmation, error) {
	var resp natcashPaymentResponse
	if err := n.send(ctx, http.MethodGet, "/api/v1/payments/"+url.PathEscape(v.OrderID), nil, &resp); err != nil {
		return Confirmation{}, err
	}
	switch strings.ToUpper(resp.Status) {
	case "SUCCESS":
	case "FAILED", "CANCELLED":
		return Confirmation{}, fmt.Errorf("%s: %w: %s", NatCashName, ErrDeclined, resp.Status)
	default:
		return Confirmation{}, fmt.Errorf("%s: %w: %s", NatCashName, ErrNotPaid, resp.Status)
	}
	if resp.OrderID != v.OrderID {
		return Confirmation{}, fmt.Errorf("%s: %w: order mismatch", NatCashName, ErrInvalidResponse)
	}
	return Confirmation{
		Gateway:       NatCashName,
		OrderID:       resp.OrderID,
		TransactionID: resp.PaymentID,
		Amount:        resp.Amount,
		Payer:         resp.Msisdn,
	}, nil
}
