package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.OrderTransition("PENDING", "CONFIRMED")
	m.WebhookDelivery("orderCreated", "ok")
	m.OutboxEvent("kafka", "sent")
	m.LiveClients(3)
	m.LiveDropped()
}

func TestCollectorsAreExported(t *testing.T) {
	m := New()
	m.OrderTransition("PENDING", "CONFIRMED")
	m.OrderTransition("PENDING", "CONFIRMED")
	m.WebhookDelivery("orderCreated", "skipped")
	m.LiveClients(2)

	if got := testutil.ToFloat64(m.orderTransitions.WithLabelValues("PENDING", "CONFIRMED")); got != 2 {
		t.Errorf("expected 2 transitions, got %v", got)
	}
	if got := testutil.ToFloat64(m.liveClients); got != 2 {
		t.Errorf("expected 2 live clients, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "restaurant_webhook_deliveries_total") {
		t.Error("expected webhook counter in exposition output")
	}
}
