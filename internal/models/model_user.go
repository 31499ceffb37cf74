package models

import (
	"time"

	"gorm.io/datatypes"
)

// User mirrors the auth provider's account record. Rows are created by the
// auth provider webhook (out of process); the reconciler only ever increments
// PurchaseCredits.
type User struct {
	ID          string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ClerkUserID string `gorm:"column:clerk_user_id;type:varchar(128);not null;uniqueIndex" json:"clerk_user_id"`
	// PurchaseCredits is a monotonically increasing ledger of single-purchase
	// amounts in major currency units. Incremented atomically in SQL, never
	// read-modify-write.
	PurchaseCredits float64        `gorm:"column:purchase_credits;type:numeric(12,2);not null;default:0" json:"purchase_credits"`
	Extra           datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (User) TableName() string { return "users" }
