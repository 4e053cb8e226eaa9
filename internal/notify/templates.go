package notify

import (
	"fmt"
	"strings"

	"aftersales/internal/warranty"
	"aftersales/pkg/dates"
)

// Template is a plain-text notification template. Placeholders use the
// {name} form and are substituted literally; no template engine is involved.
type Template struct {
	Subject string
	Body    string
}

// Template keys. Lifecycle event types map 1:1 onto the first three; the
// report and alert templates are used by the reporting service.
const (
	TemplateWarrantyCreated  = "warranty_created"
	TemplateWarrantyExpiring = "warranty_expiring"
	TemplateStatusChanged    = "warranty_status_changed"
	TemplatePeriodicReport   = "periodic_report"
	TemplateSystemAlert      = "system_alert"
)

// DefaultTemplates carries the stock wording for every notification type.
func DefaultTemplates() map[string]Template {
	return map[string]Template{
		TemplateWarrantyCreated: {
			Subject: "Your product warranty is registered",
			Body: "Dear {customer_name},\n\n" +
				"The warranty for product {product_id} with serial number {serial_number} " +
				"has been registered. It is valid until {expiry_date}.\n\n" +
				"Regards,\n{site_name}",
		},
		TemplateWarrantyExpiring: {
			Subject: "Warranty for product {product_id} is about to expire",
			Body: "Dear {customer_name},\n\n" +
				"The warranty for product {product_id} with serial number {serial_number} " +
				"expires in {days_left} days, on {expiry_date}.\n\n" +
				"Please renew it in time.\n\n" +
				"Regards,\n{site_name}",
		},
		TemplateStatusChanged: {
			Subject: "Warranty status changed for product {product_id}",
			Body: "Dear {customer_name},\n\n" +
				"The warranty for product {product_id} with serial number {serial_number} " +
				"changed from {old_status} to {new_status}.\n\n" +
				"Regards,\n{site_name}",
		},
		TemplatePeriodicReport: {
			Subject: "Warranty system report - {date}",
			Body: "Hello,\n\n" +
				"Summary of the warranty system:\n" +
				"- active warranties: {active_warranties}\n" +
				"- expired warranties: {expired_warranties}\n" +
				"- expiring within 30 days: {expiring_warranties}\n\n" +
				"Regards,\n{site_name}",
		},
		TemplateSystemAlert: {
			Subject: "Warranty system alert: {alert_type}",
			Body: "Hello,\n\n" +
				"A system alert was recorded:\n\n" +
				"Type: {alert_type}\n" +
				"Details: {description}\n" +
				"Time: {datetime}\n\n" +
				"Regards,\n{site_name}",
		},
	}
}

// TemplateKeyFor maps a lifecycle event type to its template key.
func TemplateKeyFor(eventType string) (string, bool) {
	switch eventType {
	case warranty.EventCreated:
		return TemplateWarrantyCreated, true
	case warranty.EventExpiring:
		return TemplateWarrantyExpiring, true
	case warranty.EventStatusChanged:
		return TemplateStatusChanged, true
	}
	return "", false
}

// Render substitutes vars into tpl. Unknown placeholders are left as-is so a
// missing variable is visible in the output rather than silently dropped.
func Render(tpl Template, vars map[string]string) Message {
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	replacer := strings.NewReplacer(pairs...)
	return Message{
		Subject: replacer.Replace(tpl.Subject),
		Body:    replacer.Replace(tpl.Body),
	}
}

// EventVars extracts template variables from a lifecycle event snapshot.
func EventVars(ev warranty.Event, customerName, siteName string) map[string]string {
	return map[string]string{
		"customer_name": customerName,
		"product_id":    ev.Record.ProductID,
		"serial_number": ev.Record.SerialNumber,
		"expiry_date":   dates.DayBucket(ev.Record.EndDate),
		"days_left":     fmt.Sprintf("%d", ev.DaysBefore),
		"old_status":    string(ev.PreviousStatus),
		"new_status":    string(ev.NewStatus),
		"site_name":     siteName,
	}
}
