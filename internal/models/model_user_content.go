package models

import (
	"time"

	"github.com/vibestack/billing/pkg/types"
)

// UserContent is an access grant: the user may read the content item because
// a completed purchase exists. Deleted only when the purchase is fully
// refunded.
type UserContent struct {
	ID         string           `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID     string           `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:unique_user_content,priority:1" json:"user_id"`
	ContentID  string           `gorm:"column:content_id;type:varchar(64);not null;uniqueIndex:unique_user_content,priority:2" json:"content_id"`
	AccessType types.AccessType `gorm:"column:access_type;type:varchar(32);not null" json:"access_type"`
	GrantedAt  time.Time        `gorm:"column:granted_at;not null" json:"granted_at"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (UserContent) TableName() string { return "user_contents" }
