package webpush

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/carlmjohnson/requests"
	"go.uber.org/zap"
)

const (
	pathVapidPublicKey = "/web-push/vapid-public-key"
	pathSubscribe      = "/web-push/subscribe"
	pathTest           = "/web-push/test"
)

// Gateway wraps the notification endpoints. Each call maps to one HTTP
// request with no retries; retrying is the caller's decision.
type Gateway struct {
	log       *zap.Logger
	baseURL   string
	transport http.RoundTripper
}

func NewGateway(log *zap.Logger, baseURL string, transport http.RoundTripper) *Gateway {
	return &Gateway{log: log, baseURL: baseURL, transport: transport}
}

func (g *Gateway) VapidPublicKey(ctx context.Context) (string, error) {
	var out struct {
		PublicKey string `json:"publicKey"`
	}
	err := requests.
		URL(g.baseURL + pathVapidPublicKey).
		Transport(g.transport).
		AddValidator(nil).
		Handle(consume(&out)).
		Fetch(ctx)
	if err != nil {
		return "", err
	}
	if out.PublicKey == "" {
		return "", ErrKeyDecode.New("vapid-public-key response missing publicKey")
	}
	return out.PublicKey, nil
}

func (g *Gateway) Subscribe(ctx context.Context, sub *Subscription, token string) error {
	body := map[string]*Subscription{"subscription": sub}
	return requests.
		URL(g.baseURL + pathSubscribe).
		Transport(g.transport).
		Bearer(token).
		BodyJSON(body).
		AddValidator(nil).
		Handle(consume(nil)).
		Fetch(ctx)
}

func (g *Gateway) SendTest(ctx context.Context, token string) error {
	return requests.
		URL(g.baseURL + pathTest).
		Transport(g.transport).
		Bearer(token).
		Post().
		AddValidator(nil).
		Handle(consume(nil)).
		Fetch(ctx)
}

// consume reads the response body, turning non-2xx statuses into
// *GatewayError and optionally unmarshalling the body into out.
func consume(out any) requests.ResponseHandler {
	return func(resp *http.Response) error {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &GatewayError{Status: resp.StatusCode, Body: string(body)}
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return &GatewayError{Status: resp.StatusCode, Body: string(body)}
		}
		return nil
	}
}
