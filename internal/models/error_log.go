package models

import (
	"time"

	"gorm.io/gorm"
)

// ErrorLog keeps non-fatal daemon failures such as a stopped event feed
// or a failed retention sweep.
type ErrorLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Component string         `gorm:"index" json:"component"`
	ErrorMsg  string         `gorm:"not null" json:"error_msg"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Error log components
const (
	ComponentFeed      = "feed"
	ComponentRetention = "retention"
)
