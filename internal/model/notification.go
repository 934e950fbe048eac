package model

import "time"

// Notification 同一(用户,视频,类型)只保留一条，重复对账不会重复通知
type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_video_type;not null" json:"user_id"`
	VideoID   uint      `gorm:"uniqueIndex:idx_user_video_type;not null" json:"video_id"`
	Type      string    `gorm:"uniqueIndex:idx_user_video_type;size:50;not null" json:"type"`
	Message   string    `gorm:"size:500" json:"message"`
	URL       string    `gorm:"size:500" json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
