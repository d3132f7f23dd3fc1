package squarewebhook

import "github.com/ledgerdesk/portal-backend/pkg/square"

// Event types the portal records.
const (
	EventPaymentCreated = "payment.created"
	EventPaymentUpdated = "payment.updated"
	EventRefundCreated  = "refund.created"
	EventRefundUpdated  = "refund.updated"
)

// StatusCompleted is the terminal success status for payments and refunds.
const StatusCompleted = "COMPLETED"

type Event struct {
	MerchantID string    `json:"merchant_id"`
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	CreatedAt  string    `json:"created_at"`
	Data       EventData `json:"data"`
}

type EventData struct {
	Type   string      `json:"type"`
	ID     string      `json:"id"`
	Object EventObject `json:"object"`
}

type EventObject struct {
	Payment *Payment `json:"payment"`
	Refund  *Refund  `json:"refund"`
}

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Payment struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	AmountMoney   *Money `json:"amount_money"`
	ReferenceID   string `json:"reference_id"`
	ReceiptNumber string `json:"receipt_number"`
	OrderID       string `json:"order_id"`
	UpdatedAt     string `json:"updated_at"`
}

type Refund struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	PaymentID   string `json:"payment_id"`
	AmountMoney *Money `json:"amount_money"`
}

func (p *Payment) toClientPayment() *square.Payment {
	out := &square.Payment{
		ID:            p.ID,
		Status:        p.Status,
		ReferenceID:   p.ReferenceID,
		ReceiptNumber: p.ReceiptNumber,
		OrderID:       p.OrderID,
	}
	if p.AmountMoney != nil {
		out.AmountCents = p.AmountMoney.Amount
		out.Currency = p.AmountMoney.Currency
	}
	return out
}
