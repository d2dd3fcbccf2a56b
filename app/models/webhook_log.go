package models

import "time"

// WebhookLog is the append-only audit trail of inbound deliveries. One row
// per HTTP delivery, written before any handler runs, so a failed handler
// can always be replayed from it. Only ReplayCount is ever updated.
type WebhookLog struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Provider        string    `gorm:"type:varchar(50);not null;index" json:"provider"`
	PayloadJSON     string    `gorm:"type:longtext;not null" json:"payload_json"`
	HeadersJSON     string    `gorm:"type:longtext" json:"headers_json"`
	SignatureHeader string    `gorm:"type:varchar(255)" json:"signature_header"`
	Verified        bool      `gorm:"default:false;index" json:"verified"`
	ReceivedAt      time.Time `gorm:"autoCreateTime;index" json:"received_at"`
	ReplayCount     uint      `gorm:"default:0" json:"replay_count"`
}
