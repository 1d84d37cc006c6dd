package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lakay-market/storefront/internal/config"
)

// tokenSkew renews the OAuth token slightly before it expires.
const tokenSkew = 30 * time.Second

// MonCash talks to the Digicel MonCash business API.
type MonCash struct {
	cfg    config.MonCash
	client *httpClient
	now    func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewMonCash builds a MonCash client. httpClient may be nil.
func NewMonCash(cfg config.MonCash, rps float64, client *http.Client) *MonCash {
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.RedirectURL = strings.TrimRight(cfg.RedirectURL, "/")
	return &MonCash{cfg: cfg, client: newHTTPClient(MonCashName, rps, client), now: time.Now}
}

// Name implements RedirectGateway.
func (m *MonCash) Name() string { return MonCashName }

type moncashToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type moncashCreateResponse struct {
	Status       int `json:"status"`
	PaymentToken struct {
		Token string `json:"token"`
	} `json:"payment_token"`
}

type moncashPaymentResponse struct {
	Status  int `json:"status"`
	Payment struct {
		Reference     string          `json:"reference"`
		TransactionID string          `json:"transaction_id"`
		Cost          decimal.Decimal `json:"cost"`
		Message       string          `json:"message"`
		Payer         string          `json:"payer"`
	} `json:"payment"`
}

func (m *MonCash) accessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != "" && m.now().Before(m.tokenExpiry) {
		return m.token, nil
	}

	form := url.Values{"scope": {"read,write"}, "grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.APIURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(m.cfg.ClientID, m.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok moncashToken
	if err := m.client.do(ctx, req, &tok); err != nil {
		return "", fmt.Errorf("token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%s: %w: empty access token", MonCashName, ErrInvalidResponse)
	}
	m.token = tok.AccessToken
	m.tokenExpiry = m.now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenSkew)
	return m.token, nil
}

func (m *MonCash) post(ctx context.Context, path string, payload, out any) error {
	token, err := m.accessToken(ctx)
	if err != nil {
		return err
	}
	req, _, err := jsonRequest(ctx, http.MethodPost, m.cfg.APIURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return m.client.do(ctx, req, out)
}

// CreatePayment registers the order with MonCash and returns the hosted page URL.
func (m *MonCash) CreatePayment(ctx context.Context, pr PaymentRequest) (Redirect, error) {
	var resp moncashCreateResponse
	err := m.post(ctx, "/v1/CreatePayment", map[string]any{
		"amount":  pr.Amount.StringFixed(2),
		"orderId": pr.OrderID,
	}, &resp)
	if err != nil {
		return Redirect{}, err
	}
	if resp.PaymentToken.Token == "" {
		return Redirect{}, fmt.Errorf("%s: %w: missing payment token", MonCashName, ErrInvalidResponse)
	}
	return Redirect{
		Gateway:   MonCashName,
		Reference: resp.PaymentToken.Token,
		URL:       m.cfg.RedirectURL + "/Payment/Redirect?token=" + url.QueryEscape(resp.PaymentToken.Token),
	}, nil
}

// VerifyPayment looks the payment up by transaction id, or by order id when
// the return URL carried none.
func (m *MonCash) VerifyPayment(ctx context.Context, v Verification) (Confirmation, error) {
	var (
		resp moncashPaymentResponse
		err  error
	)
	if v.TransactionID != "" {
		err = m.post(ctx, "/v1/RetrieveTransactionPayment", map[string]string{"transactionId": v.TransactionID}, &resp)
	} else {
		err = m.post(ctx, "/v1/RetrieveOrderPayment", map[string]string{"orderId": v.OrderID}, &resp)
	}
	if err != nil {
		return Confirmation{}, err
	}
	if !strings.EqualFold(resp.Payment.Message, "successful") {
		return Confirmation{}, fmt.Errorf("%s: %w: %s", MonCashName, ErrNotPaid, resp.Payment.Message)
	}
	if v.OrderID != "" && resp.Payment.Reference != v.OrderID {
		return Confirmation{}, fmt.Errorf("%s: %w: reference mismatch", MonCashName, ErrInvalidResponse)
	}
	return Confirmation{
		Gateway:       MonCashName,
		OrderID:       resp.Payment.Reference,
		TransactionID: resp.Payment.TransactionID,
		Amount:        resp.Payment.Cost,
		Payer:         resp.Payment.Payer,
	}, nil
}
