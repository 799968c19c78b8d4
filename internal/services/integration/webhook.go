package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"vendorgrid/internal/domain"
	"vendorgrid/internal/ports"
)

// Webhook event types sent to external systems.
const (
	EventVendorCreated  = "vendor.created"
	EventVendorUpdated  = "vendor.updated"
	EventVendorDeleted  = "vendor.deleted"
	EventVendorImported = "vendor.imported"
)

const webhookSource = "vendorgrid"

// webhookPayload is the uniform envelope every event is delivered in.
type webhookPayload struct {
	EventType string         `json:"eventType"`
	EventID   string         `json:"eventId"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
	Source    string         `json:"source"`
}

// Notifier posts webhook events to a single configured URL. Delivery is
// fire and forget: each send runs in its own goroutine, failures are
// logged and never surfaced to the mutation that triggered them. An
// empty URL disables delivery entirely.
type Notifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewNotifier(url string, timeout time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
		now:    time.Now,
	}
}

func (n *Notifier) VendorCreated(ctx context.Context, p domain.VendorProfile) {
	n.send(ctx, EventVendorCreated, map[string]any{"vendor": p})
}

func (n *Notifier) VendorUpdated(ctx context.Context, p domain.VendorProfile) {
	n.send(ctx, EventVendorUpdated, map[string]any{"vendor": p})
}

func (n *Notifier) VendorDeleted(ctx context.Context, vendorID string) {
	n.send(ctx, EventVendorDeleted, map[string]any{"vendorId": vendorID})
}

func (n *Notifier) ImportCompleted(ctx context.Context, summary ports.ImportSummary) {
	n.send(ctx, EventVendorImported, map[string]any{"import": summary})
}

func (n *Notifier) send(ctx context.Context, eventType string, data map[string]any) {
	if n.url == "" {
		return
	}
	payload := webhookPayload{
		EventType: eventType,
		EventID:   uuid.NewString(),
		Timestamp: n.now().UTC(),
		Data:      data,
		Source:    webhookSource,
	}
	// Detach from the request context so an already-answered mutation
	// cannot cancel its own notification.
	ctx = context.WithoutCancel(ctx)
	go n.post(ctx, payload)
}

func (n *Notifier) post(ctx context.Context, payload webhookPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("webhook marshal failed", slog.String("event", payload.EventType), slog.Any("error", err))
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("webhook request failed", slog.String("event", payload.EventType), slog.Any("error", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed", slog.String("event", payload.EventType), slog.Any("error", err))
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		n.logger.Debug("webhook delivered", slog.String("event", payload.EventType), slog.String("id", payload.EventID))
	default:
		n.logger.Warn("webhook delivery rejected",
			slog.String("event", payload.EventType),
			slog.Int("status", resp.StatusCode),
		)
	}
}
