package models

import (
	"time"
)

// Payment is one attempt to pay for one build request. Rows are never deleted;
// status may leave PENDING at most once (VERIFIED, EXPIRED and FAILED are terminal).
type Payment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ExternalRef string     `gorm:"size:255;uniqueIndex" json:"external_ref"` // gateway session id or on-chain signature; synthetic req-<uuid> until known
	AmountCents int64      `gorm:"not null" json:"amount_cents"`
	Currency    string     `gorm:"size:3;default:'USD'" json:"currency"`
	Method      string     `gorm:"size:20;not null" json:"method"` // card | token-transfer
	Priority    string     `gorm:"size:20;not null" json:"priority"`
	Status      string     `gorm:"size:20;not null;index" json:"status"`
	Metadata    string     `gorm:"type:text" json:"metadata"` // JSON: request_text, tier
	VerifiedAt  *time.Time `json:"verified_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// PaymentMeta is the JSON carried in Payment.Metadata between submission and verification.
type PaymentMeta struct {
	RequestText string `json:"request_text"`
	Tier        string `json:"tier"`
}
