package model

import (
	"time"

	"gorm.io/gorm"
)

type VideoStatus int

const (
	VideoStatusPending VideoStatus = iota
	VideoStatusProcessing
	VideoStatusCompleted
	VideoStatusError
	VideoStatusDraft
)

// 数字人渲染阶段状态
const (
	AvatarStatusPending    = "pending"
	AvatarStatusInProgress = "in_progress"
	AvatarStatusCompleted  = "completed"
	AvatarStatusFailed     = "failed"
)

// 合成渲染阶段状态
const (
	CompositeStatusRendering = "rendering"
	CompositeStatusCompleted = "completed"
	CompositeStatusFailed    = "failed"
)

type Video struct {
	ID     uint `gorm:"primarykey" json:"id"`
	UserID uint `gorm:"index;not null" json:"user_id"`

	// 用户提交的输入字段，创建后不再修改
	Title                string `gorm:"size:200" json:"title"`
	Description          string `gorm:"type:text" json:"description"`
	Topic                string `gorm:"size:200" json:"topic"`
	Tone                 string `gorm:"size:50" json:"tone"`
	Duration             string `gorm:"size:20" json:"duration"`
	CallToAction         string `gorm:"size:200" json:"call_to_action"`
	SpecificCallToAction string `gorm:"size:500" json:"specific_call_to_action"`
	AvatarID             string `gorm:"size:100" json:"avatar_id"`
	VoiceID              string `gorm:"size:100" json:"voice_id"`
	LookID               string `gorm:"size:100" json:"look_id"`
	TemplateID           string `gorm:"size:100" json:"template_id"`

	Status VideoStatus `gorm:"default:0" json:"status"`

	// 数字人渲染阶段结果
	AvatarTaskID       string     `gorm:"size:100;index" json:"avatar_task_id"`
	AvatarStatus       string     `gorm:"size:20" json:"avatar_status"`
	AvatarVideoURL     string     `gorm:"size:500" json:"avatar_video_url"`
	AvatarThumbnailURL string     `gorm:"size:500" json:"avatar_thumbnail_url"`
	AvatarGifURL       string     `gorm:"size:500" json:"avatar_gif_url"`
	AvatarDuration     string     `gorm:"size:20" json:"avatar_duration"`
	AvatarLastRefresh  *time.Time `json:"avatar_last_refresh"`

	// 合成渲染阶段结果
	RenderID          string `gorm:"size:100;index" json:"render_id"`
	CompositeStatus   string `gorm:"size:20" json:"composite_status"`
	CompositeVideoURL string `gorm:"size:500" json:"composite_video_url"`
	CompositeError    string `gorm:"type:text" json:"composite_error"`

	// 成片地址镜像，合成完成后写入
	VideoURL string `gorm:"size:500" json:"video_url"`
	ErrorMsg string `gorm:"type:text" json:"error_msg"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Video) TableName() string {
	return "videos"
}

func (s VideoStatus) String() string {
	switch s {
	case VideoStatusPending:
		return "pending"
	case VideoStatusProcessing:
		return "processing"
	case VideoStatusCompleted:
		return "completed"
	case VideoStatusError:
		return "error"
	case VideoStatusDraft:
		return "draft"
	default:
		return "unknown"
	}
}
