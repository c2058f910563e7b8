package models

import "time"

// Request is the instruction tied to a verified payment. It exists only after
// the payment reached VERIFIED and is immutable thereafter; one payment owns
// at most one request.
type Request struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PaymentID   uint      `gorm:"not null;uniqueIndex" json:"payment_id"`
	IssueNumber int       `gorm:"index" json:"issue_number"` // downstream work-item id, assigned by the tracker
	IssueURL    string    `gorm:"size:512" json:"issue_url"`
	RequestText string    `gorm:"size:255;not null" json:"request_text"`
	Priority    string    `gorm:"size:20;not null" json:"priority"`
	CreatedAt   time.Time `json:"created_at"`

	Payment Payment `gorm:"foreignKey:PaymentID" json:"-"`
}

func (Request) TableName() string {
	return "requests"
}
