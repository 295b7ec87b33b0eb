package webpush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestGateway_VapidPublicKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/web-push/vapid-public-key", r.URL.Path)
		w.Write([]byte(`{"publicKey": "BNcRd..."}`))
	}))
	defer srv.Close()

	gateway := NewGateway(zaptest.NewLogger(t), srv.URL, http.DefaultTransport)
	key, err := gateway.VapidPublicKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BNcRd...", key)
}

func TestGateway_VapidPublicKeyMissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	gateway := NewGateway(zaptest.NewLogger(t), srv.URL, http.DefaultTransport)
	_, err := gateway.VapidPublicKey(context.Background())
	require.Error(t, err)
}

func TestGateway_Subscribe(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/web-push/subscribe", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	gateway := NewGateway(zaptest.NewLogger(t), srv.URL, http.DefaultTransport)
	err := gateway.Subscribe(context.Background(), &Subscription{
		Endpoint: "https://push.example/abc",
		Keys:     Keys{P256dh: "x", Auth: "y"},
	}, "tok123")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.JSONEq(t,
		`{"subscription":{"endpoint":"https://push.example/abc","keys":{"p256dh":"x","auth":"y"}}}`,
		gotBody)
}

func TestGateway_SendTest(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	gateway := NewGateway(zaptest.NewLogger(t), srv.URL, http.DefaultTransport)
	require.NoError(t, gateway.SendTest(context.Background(), "tok123"))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/web-push/test", gotPath)
	assert.Equal(t, "Bearer tok123", gotAuth)
}

func TestGateway_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	gateway := NewGateway(zaptest.NewLogger(t), srv.URL, http.DefaultTransport)
	err := gateway.SendTest(context.Background(), "stale")
	require.Error(t, err)

	gerr, ok := AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, gerr.Status)
	assert.Contains(t, gerr.Body, "token expired")
}
