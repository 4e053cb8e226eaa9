package integration

import (
	"context"
	"net/http"

	"aftersales/internal/warranty"
	"aftersales/pkg/dates"
)

// CRM mirrors warranty records into the customer relationship system. A
// created warranty becomes a new CRM record; status changes update the
// existing one through the stored external id.
type CRM struct {
	client *apiClient
	refs   RefStore
}

func NewCRM(httpClient *http.Client, apiURL, apiKey string, refs RefStore) (*CRM, error) {
	client, err := newAPIClient(httpClient, apiURL, apiKey)
	if err != nil {
		return nil, err
	}
	return &CRM{client: client, refs: refs}, nil
}

func (c *CRM) Name() string { return "crm" }

type crmWarrantyPayload struct {
	WarrantyID string `json:"warranty_id"`
	Customer   struct {
		ID string `json:"id"`
	} `json:"customer"`
	Product struct {
		ID           string `json:"id"`
		SerialNumber string `json:"serial_number"`
	} `json:"product"`
	Warranty struct {
		Type      string `json:"type"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		Status    string `json:"status"`
	} `json:"warranty"`
}

func crmPayload(ev warranty.Event) crmWarrantyPayload {
	var p crmWarrantyPayload
	p.WarrantyID = ev.WarrantyID.String()
	p.Customer.ID = ev.Record.UserID
	p.Product.ID = ev.Record.ProductID
	p.Product.SerialNumber = ev.Record.SerialNumber
	p.Warranty.Type = ev.Record.WarrantyType
	p.Warranty.StartDate = dates.DayBucket(ev.Record.StartDate)
	p.Warranty.EndDate = dates.DayBucket(ev.Record.EndDate)
	p.Warranty.Status = string(ev.Record.Status)
	return p
}

func (c *CRM) Push(ctx context.Context, ev warranty.Event) (string, error) {
	switch ev.Type {
	case warranty.EventCreated:
		var resp struct {
			ID string `json:"id"`
		}
		if err := c.client.do(ctx, http.MethodPost, "/warranties", crmPayload(ev), &resp); err != nil {
			return "", err
		}
		return resp.ID, nil

	case warranty.EventStatusChanged:
		ref, err := c.refs.Get(ctx, c.Name(), ev.WarrantyID)
		if err != nil {
			return "", err
		}
		if ref == "" {
			// Never synced; nothing to update remotely.
			return "", nil
		}
		if err := c.client.do(ctx, http.MethodPut, "/warranties/"+ref, crmPayload(ev), nil); err != nil {
			return "", err
		}
		return ref, nil
	}
	return "", nil
}

func (c *CRM) Ping(ctx context.Context) error {
	return c.client.ping(ctx)
}
