package models

import "time"

const (
	ProviderRazorpay = "razorpay"

	TransactionStatusPending = "pending"
	TransactionStatusSuccess = "success"
	TransactionStatusFailed  = "failed"

	TransactionKindPayment   = "payment"
	TransactionKindRefund    = "refund"
	TransactionKindOrderPaid = "order_paid"
)

// Transaction records one logical provider event applied to an order.
// The (order_id, reference) pair is the idempotency key: duplicate and
// replayed deliveries upsert into the same row, enforced by the unique
// index so concurrent writers cannot create a second one.
type Transaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     string    `gorm:"type:char(36);not null;index:ux_transactions_order_reference,unique,priority:1" json:"order_id"`
	Provider    string    `gorm:"type:varchar(32);not null;default:'razorpay'" json:"provider"`
	Kind        string    `gorm:"type:varchar(20);not null;default:'payment';index" json:"kind"`
	AmountCents int64     `gorm:"not null;default:0" json:"amount_cents"`
	Status      string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PayloadJSON string    `gorm:"type:longtext" json:"payload_json"`
	Reference   string    `gorm:"type:varchar(191);not null;index:ux_transactions_order_reference,unique,priority:2" json:"reference"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
