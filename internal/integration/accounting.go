package integration

import (
	"context"
	"net/http"

	"aftersales/internal/warranty"
	"aftersales/pkg/dates"
)

// Accounting books an invoice for each registered warranty that carries an
// order reference.
type Accounting struct {
	client *apiClient
}

func NewAccounting(httpClient *http.Client, apiURL, apiKey string) (*Accounting, error) {
	client, err := newAPIClient(httpClient, apiURL, apiKey)
	if err != nil {
		return nil, err
	}
	return &Accounting{client: client}, nil
}

func (a *Accounting) Name() string { return "accounting" }

func (a *Accounting) Push(ctx context.Context, ev warranty.Event) (string, error) {
	if ev.Type != warranty.EventCreated {
		return "", nil
	}
	if ev.Record.OrderID == "" {
		// Registrations without a sale order are not invoiced.
		return "", nil
	}

	payload := map[string]any{
		"warranty_id":    ev.WarrantyID.String(),
		"order_id":       ev.Record.OrderID,
		"customer_id":    ev.Record.UserID,
		"invoice_number": ev.Record.InvoiceNumber,
		"issued_at":      dates.DayBucket(ev.Record.CreatedAt),
		"description":    "Warranty registration for product " + ev.Record.ProductID,
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := a.client.do(ctx, http.MethodPost, "/invoices", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (a *Accounting) Ping(ctx context.Context) error {
	return a.client.ping(ctx)
}
