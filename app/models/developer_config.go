package models

import "time"

// DeveloperConfig holds operator-editable secret overrides. A single row is
// kept; values here take precedence over the environment so demo deployments
// can rotate secrets at runtime without a restart.
type DeveloperConfig struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	WebhookSecret     string    `gorm:"type:varchar(255)" json:"webhook_secret"`
	RazorpayKeyID     string    `gorm:"type:varchar(255)" json:"razorpay_key_id"`
	RazorpayKeySecret string    `gorm:"type:varchar(255)" json:"razorpay_key_secret"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
