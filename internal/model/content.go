package model

import "time"

// VideoContent 每个视频对应一条派生文案记录，脚本和长短文案分字段合并更新，
// 互不阻塞（部分文案生成失败不影响脚本可用）
type VideoContent struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	VideoID           uint      `gorm:"uniqueIndex;not null" json:"video_id"`
	Script            string    `gorm:"type:text" json:"script"`
	ShortCopyPlatform string    `gorm:"size:50" json:"short_copy_platform"`
	ShortCopyContent  string    `gorm:"type:text" json:"short_copy_content"`
	LongCopyPlatform  string    `gorm:"size:50" json:"long_copy_platform"`
	LongCopyContent   string    `gorm:"type:text" json:"long_copy_content"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (VideoContent) TableName() string {
	return "video_contents"
}
