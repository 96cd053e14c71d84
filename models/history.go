package models

import (
	"time"
)

// FeedSnapshot caches the last successfully fetched first page of a feed so
// a relaunch can show content before the first refresh completes.
type FeedSnapshot struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Feed      string    `gorm:"size:50;uniqueIndex;not null" json:"feed"`
	Payload   string    `gorm:"type:text" json:"-"` // JSON array of FeedItem
	FetchedAt time.Time `json:"fetched_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WatchHistory records how often an item has started playing.
type WatchHistory struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID       string    `gorm:"size:64;uniqueIndex;not null" json:"item_id"`
	Feed         string    `gorm:"size:50;index" json:"feed"`
	ViewCount    int       `gorm:"default:0" json:"view_count"`
	LastViewedAt time.Time `gorm:"index" json:"last_viewed_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (WatchHistory) TableName() string {
	return "watch_history"
}
