package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/pkg/notifications"
)

// gatewayRequest is the JSON body posted to the gateway.
type gatewayRequest struct {
	Token        string            `json:"token,omitempty"`
	Topic        string            `json:"topic,omitempty"`
	Notification gatewayBody       `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type gatewayBody struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Gateway relays notifications to an HTTP push gateway with one POST per
// send. It never retries; a failed send is reported to the caller.
type Gateway struct {
	endpoint string
	secret   string
	timeout  time.Duration
	client   *http.Client
	breaker  *CircuitBreaker
	logger   *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayHTTPClient replaces the default HTTP client.
func WithGatewayHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) {
		if c != nil {
			g.client = c
		}
	}
}

// WithGatewaySecret signs every request with HMAC-SHA256.
func WithGatewaySecret(secret string) GatewayOption {
	return func(g *Gateway) { g.secret = secret }
}

// WithGatewayTimeout bounds each request.
func WithGatewayTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithGatewayCircuitBreaker guards the gateway with cb. Nil disables it.
func WithGatewayCircuitBreaker(cb *CircuitBreaker) GatewayOption {
	return func(g *Gateway) { g.breaker = cb }
}

// WithGatewayLogger sets the logger.
func WithGatewayLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGateway creates a Gateway posting to endpoint.
func NewGateway(endpoint string, opts ...GatewayOption) (*Gateway, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: gateway url must be http or https", ErrInvalidConfig)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: gateway url has no host", ErrInvalidConfig)
	}

	g := &Gateway{
		endpoint: endpoint,
		timeout:  10 * time.Second,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		breaker: NewCircuitBreaker(0, 0, 0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// NewGatewayFromConfig builds a Gateway from cfg.
func NewGatewayFromConfig(cfg GatewayConfig, opts ...GatewayOption) (*Gateway, error) {
	base := []GatewayOption{
		WithGatewaySecret(cfg.Secret),
		WithGatewayTimeout(cfg.RequestTimeout),
		WithGatewayCircuitBreaker(NewCircuitBreaker(cfg.FailureThreshold, 0, cfg.RecoveryTimeout)),
	}
	return NewGateway(cfg.URL, append(base, opts...)...)
}

// Send posts p for dst to the gateway.
func (g *Gateway) Send(ctx context.Context, dst notifications.Destination, p notifications.Payload) error {
	if err := dst.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(gatewayRequest{
		Token:        dst.Token,
		Topic:        dst.Topic,
		Notification: gatewayBody{Title: p.Title, Body: p.Body},
		Data:         p.Data,
	})
	if err != nil {
		return fmt.Errorf("push: marshal gateway request: %w", err)
	}

	if g.breaker != nil && !g.breaker.Allow() {
		return ErrCircuitOpen
	}

	start := time.Now()
	status, err := g.post(ctx, body)
	if g.breaker != nil {
		// 4xx means the gateway is healthy and refused this one message.
		if err == nil || (status >= 400 && status < 500) {
			g.breaker.RecordSuccess()
		} else {
			g.breaker.RecordFailure()
		}
	}

	g.logger.LogAttrs(ctx, slog.LevelDebug, "gateway request finished",
		logger.Channel(dst.String()),
		slog.Int("status", status),
		logger.Duration(time.Since(start)),
	)
	return err
}

func (g *Gateway) post(ctx context.Context, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("push: build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "pushkit-gateway/1.0")
	if g.secret != "" {
		if err := Sign(req.Header, g.secret, body, time.Now()); err != nil {
			return 0, err
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, fmt.Errorf("%w: %w", notifications.ErrSendTimeout, err)
		}
		return 0, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	detail := strings.ReplaceAll(string(msg), "\n", " ")
	if len(detail) > 200 {
		detail = detail[:200] + "..."
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return resp.StatusCode, fmt.Errorf("%w: status %d: %s", ErrUnregisteredToken, resp.StatusCode, detail)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return resp.StatusCode, fmt.Errorf("%w: status %d: %s", ErrGatewayRejected, resp.StatusCode, detail)
	default:
		return resp.StatusCode, fmt.Errorf("%w: status %d: %s", ErrGatewayUnavailable, resp.StatusCode, detail)
	}
}
