package service

import (
	"context"
	"time"

	"reelforge-backend/internal/model"

	"gorm.io/gorm"
)

// 通知类型
const (
	NotifyTypeVideoReady = "video_ready"
	NotifyTypeVideoError = "video_error"
)

type NotifyService struct {
	db *gorm.DB
}

func NewNotifyService(db *gorm.DB) *NotifyService {
	return &NotifyService{db: db}
}

// Notify 给用户写入一条通知。同一(用户,视频,类型)只生效一次，
// 重复调用返回false且不再写入
func (s *NotifyService) Notify(ctx context.Context, userID, videoID uint, notifyType, message, url string) (bool, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	notice := model.Notification{
		UserID:  userID,
		VideoID: videoID,
		Type:    notifyType,
	}
	result := s.db.WithContext(timeoutCtx).
		Where(&model.Notification{UserID: userID, VideoID: videoID, Type: notifyType}).
		Attrs(model.Notification{Message: message, URL: url}).
		FirstOrCreate(&notice)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// GetUserNotifications 获取用户最近的通知
func (s *NotifyService) GetUserNotifications(ctx context.Context, userID uint, limit int) ([]model.Notification, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var notices []model.Notification
	err := s.db.WithContext(timeoutCtx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notices).Error
	return notices, err
}
