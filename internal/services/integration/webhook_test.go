package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorgrid/internal/domain"
	"vendorgrid/internal/ports"
)

func TestNotifierDeliversPayload(t *testing.T) {
	received := make(chan webhookPayload, 1)
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var p webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		received <- p
		w.WriteHeader(http.StatusAccepted)
	}))
	defer sink.Close()

	n := NewNotifier(sink.URL, 2*time.Second, nil)
	n.VendorCreated(context.Background(), domain.VendorProfile{ID: "v-1", CompanyName: "Acme Inc."})

	select {
	case p := <-received:
		assert.Equal(t, EventVendorCreated, p.EventType)
		assert.Equal(t, webhookSource, p.Source)
		assert.NotEmpty(t, p.EventID)
		vendor, ok := p.Data["vendor"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "v-1", vendor["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestNotifierEventTypes(t *testing.T) {
	received := make(chan string, 4)
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err == nil {
			received <- p.EventType
		}
	}))
	defer sink.Close()

	n := NewNotifier(sink.URL, 2*time.Second, nil)
	ctx := context.Background()
	n.VendorUpdated(ctx, domain.VendorProfile{ID: "v-1"})
	n.VendorDeleted(ctx, "v-1")
	n.ImportCompleted(ctx, ports.ImportSummary{SuccessCount: 3})

	got := map[string]bool{}
	for i := 0; i < 3; i++ {
		select {
		case e := <-received:
			got[e] = true
		case <-time.After(2 * time.Second):
			t.Fatal("missing webhook deliveries")
		}
	}
	assert.True(t, got[EventVendorUpdated])
	assert.True(t, got[EventVendorDeleted])
	assert.True(t, got[EventVendorImported])
}

func TestNotifierDisabledWithoutURL(t *testing.T) {
	n := NewNotifier("", time.Second, nil)
	// No URL configured: sends are dropped without error.
	n.VendorCreated(context.Background(), domain.VendorProfile{ID: "v-1"})
}

func TestNotifierSurvivesDeadEndpoint(t *testing.T) {
	n := NewNotifier("http://127.0.0.1:1", 200*time.Millisecond, nil)
	n.VendorDeleted(context.Background(), "v-1")
	// Delivery failure is logged, never surfaced.
	time.Sleep(50 * time.Millisecond)
}
