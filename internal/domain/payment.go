package domain

import "time"

// PaymentStatus tracks a recharge order
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentSuccess  PaymentStatus = "success"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// PaymentRecord Model
type PaymentRecord struct {
	ID          uint          `gorm:"primaryKey" json:"id"`                         // Primary key
	UserID      uint          `gorm:"index;not null" json:"user_id"`                // Paying user
	OrderNo     string        `gorm:"size:64;uniqueIndex;not null" json:"order_no"` // Our order number
	AmountCents int64         `gorm:"not null" json:"amount_cents"`                 // Price paid
	Points      int64         `gorm:"not null" json:"points"`                       // Points granted on success
	Method      string        `gorm:"size:20;not null" json:"method"`               // alipay or wechat
	TradeNo     *string       `gorm:"size:64" json:"trade_no,omitempty"`            // Gateway transaction id
	Status      PaymentStatus `gorm:"size:20;index;not null" json:"status"`         // Order state
	CreatedAt   time.Time     `json:"created_at"`                                   // Creation time
	PaidAt      *time.Time    `json:"paid_at,omitempty"`                            // Settlement time
}
