package models

import (
	"time"
)

// AppConfig is the single settings row. It carries the backend credentials
// the feed and interaction clients authenticate with.
type AppConfig struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AccessToken    string    `gorm:"type:text" json:"-"`
	AccountHandle  string    `gorm:"size:255" json:"account_handle"`
	IsConnected    bool      `gorm:"default:false" json:"is_connected"`
	TokenUpdatedAt time.Time `json:"token_updated_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
