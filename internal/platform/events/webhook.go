package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Endpoint is a registered webhook destination for scheduling events.
type Endpoint struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Secret string   `json:"secret,omitempty"`
	Events []string `json:"events"` // empty = all
}

// SignPayload computes a hex-encoded HMAC-SHA256 of the payload under secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches the payload's HMAC.
func VerifySignature(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(SignPayload(payload, secret)), []byte(signature))
}

// DispatcherOption configures a WebhookDispatcher.
type DispatcherOption func(*WebhookDispatcher)

// WithHTTPClient overrides the delivery HTTP client.
func WithHTTPClient(c *http.Client) DispatcherOption {
	return func(d *WebhookDispatcher) { d.client = c }
}

// WithMaxAttempts sets the number of delivery attempts per endpoint.
func WithMaxAttempts(n int) DispatcherOption {
	return func(d *WebhookDispatcher) { d.maxAttempts = n }
}

// WithRetryDelay sets the pause between delivery attempts.
func WithRetryDelay(delay time.Duration) DispatcherOption {
	return func(d *WebhookDispatcher) { d.retryDelay = delay }
}

// WebhookDispatcher delivers events to registered HTTP endpoints with
// HMAC-SHA256 signing and bounded retries. It implements Publisher; delivery
// runs in the background so the booking path never waits on a subscriber.
type WebhookDispatcher struct {
	mu          sync.RWMutex
	endpoints   map[string]*Endpoint
	client      *http.Client
	maxAttempts int
	retryDelay  time.Duration
	logger      zerolog.Logger
	wg          sync.WaitGroup
}

func NewWebhookDispatcher(logger zerolog.Logger, opts ...DispatcherOption) *WebhookDispatcher {
	d := &WebhookDispatcher{
		endpoints:   make(map[string]*Endpoint),
		client:      &http.Client{Timeout: 10 * time.Second},
		maxAttempts: 3,
		retryDelay:  time.Second,
		logger:      logger,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Register adds an endpoint after validating its URL.
func (d *WebhookDispatcher) Register(ep Endpoint) error {
	if ep.ID == "" {
		return fmt.Errorf("endpoint id is required")
	}
	u, err := url.Parse(ep.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	e := ep
	d.endpoints[ep.ID] = &e
	return nil
}

// Unregister removes an endpoint.
func (d *WebhookDispatcher) Unregister(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.endpoints, id)
}

// Publish fans the event out to every matching endpoint in the background.
func (d *WebhookDispatcher) Publish(_ context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		d.logger.Error().Err(err).Str("event", e.Type).Msg("marshal webhook payload")
		return
	}

	d.mu.RLock()
	var targets []*Endpoint
	for _, ep := range d.endpoints {
		if matchesEvent(ep, e.Type) {
			targets = append(targets, ep)
		}
	}
	d.mu.RUnlock()

	for _, ep := range targets {
		d.wg.Add(1)
		go func(ep *Endpoint) {
			defer d.wg.Done()
			d.deliver(ep, e, payload)
		}(ep)
	}
}

// Wait blocks until in-flight deliveries finish; used on shutdown and in tests.
func (d *WebhookDispatcher) Wait() { d.wg.Wait() }

func (d *WebhookDispatcher) deliver(ep *Endpoint, e Event, payload []byte) {
	signature := SignPayload(payload, ep.Secret)

	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		req, err := http.NewRequest(http.MethodPost, ep.URL, bytes.NewReader(payload))
		if err != nil {
			lastErr = err
			break
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Event-Type", e.Type)
		req.Header.Set("X-Event-ID", e.ID.String())
		req.Header.Set("X-Signature", signature)

		resp, err := d.client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				d.logger.Debug().
					Str("endpoint", ep.ID).
					Str("event", e.Type).
					Int("attempt", attempt).
					Msg("webhook delivered")
				return
			}
			lastErr = fmt.Errorf("endpoint returned %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		if attempt < d.maxAttempts {
			time.Sleep(d.retryDelay)
		}
	}

	d.logger.Error().
		Err(lastErr).
		Str("endpoint", ep.ID).
		Str("event", e.Type).
		Int("attempts", d.maxAttempts).
		Msg("webhook delivery failed")
}

func matchesEvent(ep *Endpoint, eventType string) bool {
	if len(ep.Events) == 0 {
		return true
	}
	for _, t := range ep.Events {
		if t == eventType {
			return true
		}
	}
	return false
}
