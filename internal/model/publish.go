package model

import "time"

// 社交发布任务状态
const (
	PublishStatusCreating  = "CREATING"
	PublishStatusUploading = "UPLOADING"
	PublishStatusPending   = "PENDING"
	PublishStatusPublished = "PUBLISHED"
	PublishStatusFailed    = "FAILED"
)

type PublishTask struct {
	ID          string     `gorm:"primarykey;size:36" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"user_id"`
	VideoID     uint       `gorm:"index;not null" json:"video_id"`
	CreationID  string     `gorm:"size:100;index" json:"creation_id"`
	VideoURL    string     `gorm:"size:500" json:"video_url"`
	Caption     string     `gorm:"type:text" json:"caption"`
	Status      string     `gorm:"size:20;default:CREATING" json:"status"`
	ErrorMsg    string     `gorm:"type:text" json:"error_msg"`
	MediaURL    string     `gorm:"size:500" json:"media_url"`
	RetryCount  int        `gorm:"default:0" json:"retry_count"`
	LastCheckAt *time.Time `json:"last_check_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (PublishTask) TableName() string {
	return "publish_tasks"
}

// SocialToken 每个用户每个平台一条令牌记录
type SocialToken struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	UserID       uint      `gorm:"uniqueIndex:idx_user_platform;not null" json:"user_id"`
	Platform     string    `gorm:"uniqueIndex:idx_user_platform;size:50;not null" json:"platform"`
	AccessToken  string    `gorm:"size:500" json:"-"`
	RefreshToken string    `gorm:"size:500" json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	PageID       string    `gorm:"size:100" json:"page_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (SocialToken) TableName() string {
	return "social_tokens"
}
