package infra

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// WhatsAppConfig configures the third-party WhatsApp media gateway.
type WhatsAppConfig struct {
	BaseURL     string
	InstanceID  string
	AccessToken string
	CountryCode string  // prefixed to the local phone number, e.g. "91"
	RatePerSec  float64 // outbound request budget
	Burst       int
	Breaker     CircuitBreakerConfig
}

// WhatsAppClient sends invoice links through the gateway's GET /send API.
// Calls are rate limited and pass through a circuit breaker.
type WhatsAppClient struct {
	cfg        WhatsAppConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *CircuitBreaker
}

func NewWhatsAppClient(cfg WhatsAppConfig) *WhatsAppClient {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &WhatsAppClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		breaker:    NewCircuitBreaker(cfg.Breaker),
	}
}

// Configured reports whether gateway credentials are present.
func (c *WhatsAppClient) Configured() bool {
	return c.cfg.BaseURL != "" && c.cfg.InstanceID != "" && c.cfg.AccessToken != ""
}

func (c *WhatsAppClient) BreakerState() CBState { return c.breaker.State() }

// Send delivers a media message. The gateway's response body is not relied
// upon; any non-2xx status is an error.
func (c *WhatsAppClient) Send(ctx context.Context, phone, message, mediaURL, filename string) error {
	if !c.Configured() {
		return fmt.Errorf("whatsapp: gateway not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("whatsapp: rate limit wait: %w", err)
	}
	return c.breaker.Execute(func() error {
		return c.send(ctx, phone, message, mediaURL, filename)
	})
}

func (c *WhatsAppClient) send(ctx context.Context, phone, message, mediaURL, filename string) error {
	q := url.Values{}
	q.Set("number", c.cfg.CountryCode+strings.TrimPrefix(phone, "+"))
	q.Set("type", "media")
	q.Set("message", message)
	q.Set("media_url", mediaURL)
	q.Set("filename", filename)
	q.Set("instance_id", c.cfg.InstanceID)
	q.Set("access_token", c.cfg.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("whatsapp: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: gateway unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp: gateway returned %d", resp.StatusCode)
	}
	return nil
}
