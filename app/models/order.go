package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

// Order is the ledger entity the webhook pipeline reconciles against.
// It is created by the checkout flow and afterwards mutated exclusively
// by the webhook handlers. Amounts are integer minor units.
type Order struct {
	ID                string    `gorm:"type:char(36);primaryKey" json:"id"`
	CustomerEmail     string    `gorm:"type:varchar(191);index" json:"customer_email"`
	TotalAmountCents  int64     `gorm:"not null;default:0" json:"total_amount_cents"`
	Status            string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RazorpayOrderID   string    `gorm:"type:varchar(191);index" json:"razorpay_order_id"`
	RazorpayPaymentID string    `gorm:"type:varchar(191);index" json:"razorpay_payment_id"`
	RazorpaySignature string    `gorm:"type:varchar(191)" json:"razorpay_signature"`
	NotesJSON         string    `gorm:"type:longtext" json:"notes_json"`
	CreatedAt         time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Transactions []Transaction `gorm:"foreignKey:OrderID" json:"transactions,omitempty"`
}

// BeforeCreate assigns a UUID when the checkout flow did not set one.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// IsPaid reports whether the order has reached the paid state.
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}
