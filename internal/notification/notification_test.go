package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPNotifierPostsMessage(t *testing.T) {
	var got outgoing
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL+"/", "tok", srv.Client())
	err := n.Send(context.Background(), Message{Kind: KindOrderPaid, Destination: "+50937000000", Body: "Commande payée"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, outgoing{To: "+50937000000", Kind: KindOrderPaid, Text: "Commande payée"}, got)
}

func TestHTTPNotifierRejectsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewHTTPNotifier(srv.URL, "", srv.Client()).Send(context.Background(), Message{Kind: KindWalletFunded})
	assert.Error(t, err)
}

type failing struct{}

func (failing) Send(context.Context, Message) error { return assert.AnError }

func TestSendLoggedSwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	SendLogged(context.Background(), failing{}, logger, Message{Kind: KindPaymentPending})
	assert.Contains(t, buf.String(), "notification failed")

	SendLogged(context.Background(), nil, logger, Message{})
}

func TestLoggerNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLoggerNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))
	require.NoError(t, n.Send(context.Background(), Message{Kind: KindOrderConfirmed, Destination: "u1", Body: "ok"}))
	assert.Contains(t, buf.String(), KindOrderConfirmed)

	var nilNotifier *LoggerNotifier
	assert.NoError(t, nilNotifier.Send(context.Background(), Message{}))
}
