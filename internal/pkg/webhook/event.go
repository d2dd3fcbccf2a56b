package webhook

import (
	"encoding/json"
	"strings"
)

// EventClass is the closed set of event families the router dispatches on.
// The dot-namespaced event string is decoded once at the routing boundary
// instead of scattering prefix checks through handler code.
type EventClass int

const (
	EventUnknown EventClass = iota
	EventPayment
	EventRefund
	EventOrderPaid
)

// ClassifyEvent decodes an event-type string into its family and subtype,
// e.g. "payment.captured" -> (EventPayment, "captured"). Unknown and future
// event types classify as EventUnknown with the raw string as subtype.
func ClassifyEvent(eventType string) (EventClass, string) {
	et := strings.TrimSpace(eventType)
	switch {
	case et == "order.paid":
		return EventOrderPaid, "paid"
	case strings.HasPrefix(et, "payment."):
		return EventPayment, strings.TrimPrefix(et, "payment.")
	case strings.HasPrefix(et, "refund."):
		return EventRefund, strings.TrimPrefix(et, "refund.")
	default:
		return EventUnknown, et
	}
}

// PaymentEntity is the payment object inside a payment.* event payload.
type PaymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Amount  int64  `json:"amount"`
}

// RefundEntity is the refund object inside a refund.* event payload. Refunds
// reference the payment, not the order.
type RefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

// OrderEntity is the order object inside an order.paid event payload.
type OrderEntity struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
}

// Envelope is the Razorpay webhook event envelope. Only the entities the
// handlers consume are decoded; the raw payload is persisted separately.
type Envelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity RefundEntity `json:"entity"`
		} `json:"refund"`
		Order struct {
			Entity OrderEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// ParseEnvelope decodes a raw delivery body into the event envelope.
func ParseEnvelope(payload []byte) (*Envelope, error) {
	var ev Envelope
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
