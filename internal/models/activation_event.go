package models

import (
	"time"

	"gorm.io/gorm"
)

// ActivationEvent is one observed foreground transition
type ActivationEvent struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Timestamp     time.Time      `gorm:"not null;index" json:"timestamp"`
	AppID         string         `gorm:"not null;index" json:"app_id"`
	Kind          string         `gorm:"not null" json:"kind"`           // "activation" or "deactivation"
	DisplayServer string         `gorm:"not null" json:"display_server"` // "x11" or "wayland"
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// SwitchAttempt records the outcome of one switch-to-last-app trigger
type SwitchAttempt struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Target    string         `gorm:"not null;default:''" json:"target"`
	Reason    string         `gorm:"not null;index" json:"reason"`
	Allowed   bool           `gorm:"not null;default:false" json:"allowed"`
	Protocol  string         `gorm:"not null;default:''" json:"protocol"`
	Error     string         `gorm:"not null;default:''" json:"error,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AppCount is the number of observed activations of one application
type AppCount struct {
	AppID       string    `json:"app_id"`
	Activations int64     `json:"activations"`
	LastSeen    time.Time `json:"last_seen"`
	Percentage  float64   `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

// Report summarizes which applications were switched to over a period
type Report struct {
	Period           ReportPeriod `json:"period"`
	Apps             []AppCount   `json:"apps"`
	TotalActivations int64        `json:"total_activations"`
	GeneratedAt      time.Time    `json:"generated_at"`
}
