// Package webhook delivers domain events to externally configured HTTP
// endpoints. Delivery is a single best-effort POST; failures never reach the
// caller.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmehra2102/restaurant-order-system/pkg/metrics"
)

const (
	DefaultTimeout = 5 * time.Second

	HeaderEvent     = "X-Webhook-Event"
	HeaderTimestamp = "X-Webhook-Timestamp"
)

// Delivery results recorded in metrics.
const (
	resultSkipped = "skipped"
	resultSuccess = "success"
	resultFailure = "failure"
)

type Envelope struct {
	Event     string          `json:"event"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type Dispatcher struct {
	log     *slog.Logger
	client  *http.Client
	urls    map[string]string
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewDispatcher takes the destination URL per event type. Event types without
// a URL are skipped.
func NewDispatcher(log *slog.Logger, urls map[string]string, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		log: log,
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		urls:    urls,
		metrics: m,
		now:     time.Now,
	}
}

// Dispatch posts data to the endpoint configured for eventType. data must
// already be JSON, as stored in the outbox.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType string, data json.RawMessage) {
	url := d.urls[eventType]
	if url == "" {
		d.metrics.WebhookDelivery(eventType, resultSkipped)
		d.log.Debug("no webhook configured", "event", eventType)
		return
	}

	ts := d.now().UTC().Format(time.RFC3339)
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	body, err := json.Marshal(Envelope{Event: eventType, Timestamp: ts, Data: data})
	if err != nil {
		d.fail(eventType, url, err)
		return
	}

	if err := d.post(ctx, url, eventType, ts, body); err != nil {
		d.fail(eventType, url, err)
		return
	}
	d.metrics.WebhookDelivery(eventType, resultSuccess)
	d.log.Info("webhook delivered", "event", eventType, "url", url)
}

func (d *Dispatcher) post(ctx context.Context, url, eventType, ts string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, eventType)
	req.Header.Set(HeaderTimestamp, ts)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) fail(eventType, url string, err error) {
	d.metrics.WebhookDelivery(eventType, resultFailure)
	d.log.Error("webhook delivery failed", "event", eventType, "url", url, "err", err)
}
