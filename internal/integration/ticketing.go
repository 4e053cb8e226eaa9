package integration

import (
	"context"
	"fmt"
	"net/http"

	"aftersales/internal/warranty"
	"aftersales/pkg/dates"
)

// Ticketing opens follow-up tickets in the support system when a warranty is
// about to expire, so an agent can reach out about renewal before the cover
// lapses.
type Ticketing struct {
	client     *apiClient
	priority   string
	autoAssign bool
}

func NewTicketing(httpClient *http.Client, apiURL, apiKey, defaultPriority string, autoAssign bool) (*Ticketing, error) {
	client, err := newAPIClient(httpClient, apiURL, apiKey)
	if err != nil {
		return nil, err
	}
	if defaultPriority == "" {
		defaultPriority = "medium"
	}
	return &Ticketing{client: client, priority: defaultPriority, autoAssign: autoAssign}, nil
}

func (t *Ticketing) Name() string { return "ticketing" }

func (t *Ticketing) Push(ctx context.Context, ev warranty.Event) (string, error) {
	if ev.Type != warranty.EventExpiring {
		return "", nil
	}

	payload := map[string]any{
		"warranty_id": ev.WarrantyID.String(),
		"customer_id": ev.Record.UserID,
		"subject":     fmt.Sprintf("Warranty renewal follow-up for product %s", ev.Record.ProductID),
		"description": fmt.Sprintf("Warranty %s (serial %s) expires on %s, in %d days.",
			ev.WarrantyID, ev.Record.SerialNumber, dates.DayBucket(ev.Record.EndDate), ev.DaysBefore),
		"priority":    t.priority,
		"auto_assign": t.autoAssign,
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := t.client.do(ctx, http.MethodPost, "/tickets", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (t *Ticketing) Ping(ctx context.Context) error {
	return t.client.ping(ctx)
}
