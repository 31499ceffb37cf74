package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/vibestack/billing/pkg/types"
)

// Subscription holds the one logical subscription row per user. The row is
// created on first successful subscription checkout and only ever transitions
// afterwards; cancellation sets status=canceled and plan_type=free, it never
// deletes the row.
type Subscription struct {
	ID                   string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID               string                   `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex" json:"user_id"`
	StripeCustomerID     string                   `gorm:"column:stripe_customer_id;type:varchar(128);index" json:"stripe_customer_id"`
	StripeSubscriptionID string                   `gorm:"column:stripe_subscription_id;type:varchar(128);index" json:"stripe_subscription_id"`
	PlanType             types.PlanType           `gorm:"column:plan_type;type:varchar(16);not null" json:"plan_type"`
	Status               types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CurrentPeriodStart   *time.Time               `gorm:"column:current_period_start;default:null" json:"current_period_start"`
	// CurrentPeriodEnd is never left nil by the reconciler: events missing a
	// period end fall back to now + 30 days.
	CurrentPeriodEnd  *time.Time     `gorm:"column:current_period_end;default:null" json:"current_period_end"`
	CancelAtPeriodEnd bool           `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`
	Currency          string         `gorm:"column:currency;type:varchar(8)" json:"currency"`
	Extra             datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

func (s *Subscription) Valid() bool {
	return s != nil &&
		s.Status == types.SubscriptionStatusActive &&
		s.CurrentPeriodEnd != nil &&
		s.CurrentPeriodEnd.After(time.Now())
}
