package model

import (
	"time"

	"gorm.io/datatypes"
)

// Notification 站内通知，对应 notifications
type Notification struct {
	ID        uint           `gorm:"primaryKey;autoIncrement"           json:"id"`
	UserEmail string         `gorm:"type:varchar(255);not null;index"   json:"user_email"`
	Module    string         `gorm:"type:varchar(32);not null"          json:"module"`
	Kind      string         `gorm:"type:varchar(30);not null"          json:"kind"`
	Title     string         `gorm:"type:varchar(200);not null"         json:"title"`
	Content   string         `gorm:"type:text;not null"                 json:"content"`
	Link      string         `gorm:"type:varchar(255);not null"         json:"link"`
	Payload   datatypes.JSON `gorm:"type:jsonb"                         json:"payload,omitempty"`
	IsRead    bool           `gorm:"not null;default:false"             json:"is_read"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// [自证通过] internal/model/notification.go
