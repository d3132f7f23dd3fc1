package paypalwebhook

import (
	"strings"
)

// Event types the portal records.
const (
	EventCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
	EventCaptureRefunded  = "PAYMENT.CAPTURE.REFUNDED"
)

const statusCompleted = "COMPLETED"

type Event struct {
	ID           string   `json:"id"`
	EventType    string   `json:"event_type"`
	ResourceType string   `json:"resource_type"`
	CreateTime   string   `json:"create_time"`
	Resource     Resource `json:"resource"`
}

// Resource is a capture or a refund, depending on the event type.
type Resource struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Amount     Amount `json:"amount"`
	CustomID   string `json:"custom_id"`
	InvoiceID  string `json:"invoice_id"`
	CreateTime string `json:"create_time"`
	Links      []Link `json:"links"`
}

type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

// CaptureID returns the capture a refund belongs to, read from its "up" link.
func (r Resource) CaptureID() string {
	for _, link := range r.Links {
		if !strings.EqualFold(link.Rel, "up") {
			continue
		}
		href := strings.TrimRight(link.Href, "/")
		if idx := strings.LastIndex(href, "/"); idx >= 0 {
			return href[idx+1:]
		}
		return href
	}
	return ""
}
