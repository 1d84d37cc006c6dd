package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// KindOrderPaid is sent when an order's payment settles.
	KindOrderPaid = "order_paid"
	// KindOrderConfirmed is sent for cash-on-delivery orders.
	KindOrderConfirmed = "order_confirmed"
	// KindPaymentPending is sent when the customer must finish paying on a gateway page.
	KindPaymentPending = "payment_pending"
	// KindWalletFunded is sent after a card top-up.
	KindWalletFunded = "wallet_funded"
	// KindUnionPlus is sent when a Union Plus membership is bought or extended.
	KindUnionPlus = "union_plus"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger. It is used when no
// messaging API is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

// HTTPNotifier posts messages to the messaging REST API.
type HTTPNotifier struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPNotifier builds a notifier for the messaging API at baseURL.
func NewHTTPNotifier(baseURL, token string, client *http.Client) *HTTPNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPNotifier{endpoint: strings.TrimRight(baseURL, "/") + "/messages", token: token, client: client}
}

type outgoing struct {
	To   string `json:"to"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Send delivers one message. Any non-2xx answer is an error.
func (n *HTTPNotifier) Send(ctx context.Context, message Message) error {
	payload, err := json.Marshal(outgoing{To: message.Destination, Kind: message.Kind, Text: message.Body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("send notification: messaging API returned %d", resp.StatusCode)
	}
	return nil
}

// SendLogged delivers message and logs a failure instead of returning it.
// Notifications never fail the operation that triggered them.
func SendLogged(ctx context.Context, n Notifier, logger *slog.Logger, message Message) {
	if n == nil {
		return
	}
	if err := n.Send(ctx, message); err != nil {
		logger.Warn("notification failed", slog.String("kind", message.Kind), slog.Any("error", err))
	}
}
