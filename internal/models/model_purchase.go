package models

import (
	"time"

	"github.com/vibestack/billing/pkg/types"
)

// Purchase is one row per single (non-subscription) content purchase.
// Immutable except for refund-driven status transitions. The unique indexes
// on the gateway ids make replayed checkout events no-ops.
type Purchase struct {
	ID        string                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID    string                `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	ContentID string                `gorm:"column:content_id;type:varchar(64);not null" json:"content_id"`
	Provider  types.PaymentProvider `gorm:"column:provider;type:varchar(16);not null" json:"provider"`
	// PaymentIntentID correlates to at most one refund-bearing charge.
	PaymentIntentID   string `gorm:"column:payment_intent_id;type:varchar(128);uniqueIndex" json:"payment_intent_id"`
	CheckoutSessionID string `gorm:"column:checkout_session_id;type:varchar(128);uniqueIndex" json:"checkout_session_id"`
	// Amount is in the gateway's minor currency units (cents).
	Amount     int64                `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Currency   string               `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Status     types.PurchaseStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	RefundedAt *time.Time           `gorm:"column:refunded_at;default:null" json:"refunded_at"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

func (Purchase) TableName() string { return "purchases" }
