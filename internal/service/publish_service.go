package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"reelforge-backend/internal/config"
	"reelforge-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PublishService 社交平台发布的异步生命周期：
// CREATING → PENDING → PUBLISHED，任何一步都可能落到FAILED。
// 平台调用统一走带令牌刷新和退避重试的封装
type PublishService struct {
	db         *gorm.DB
	cfg        config.PublisherConfig
	queue      *ReconcileQueueService
	httpClient *http.Client
	sleep      func(time.Duration)
}

func NewPublishService(db *gorm.DB, cfg config.PublisherConfig, queue *ReconcileQueueService) *PublishService {
	return &PublishService{
		db:         db,
		cfg:        cfg,
		queue:      queue,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sleep:      time.Sleep,
	}
}

func (s *PublishService) maxAttempts() int {
	if s.cfg.MaxAttempts > 0 {
		return s.cfg.MaxAttempts
	}
	return 3
}

func (s *PublishService) backoffBase() time.Duration {
	if s.cfg.BackoffBaseMs > 0 {
		return time.Duration(s.cfg.BackoffBaseMs) * time.Millisecond
	}
	return time.Second
}

func (s *PublishService) maxPollChecks() int {
	if s.cfg.MaxPollChecks > 0 {
		return s.cfg.MaxPollChecks
	}
	return 30
}

func (s *PublishService) maxPollAge() time.Duration {
	if s.cfg.MaxPollAgeHours > 0 {
		return time.Duration(s.cfg.MaxPollAgeHours) * time.Hour
	}
	return 24 * time.Hour
}

// CreateContainer 发起一次发布：先落库再请求平台创建容器，
// 拿到创建句柄后进入PENDING等待远端处理
func (s *PublishService) CreateContainer(ctx context.Context, userID, videoID uint, caption string) (*model.PublishTask, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var video model.Video
	if err := s.db.WithContext(timeoutCtx).First(&video, videoID).Error; err != nil {
		return nil, err
	}
	if video.UserID != userID {
		return nil, fmt.Errorf("无权发布此视频")
	}
	if video.VideoURL == "" {
		return nil, fmt.Errorf("视频 %d 还没有成片，无法发布", videoID)
	}

	task := &model.PublishTask{
		ID:       uuid.New().String(),
		UserID:   userID,
		VideoID:  videoID,
		VideoURL: video.VideoURL,
		Caption:  caption,
		Status:   model.PublishStatusCreating,
	}
	if err := s.db.WithContext(timeoutCtx).Create(task).Error; err != nil {
		return nil, err
	}

	var out struct {
		CreationID string `json:"creation_id"`
		ID         string `json:"id"`
	}
	err := s.callPlatform(ctx, userID, http.MethodPost, "/containers", map[string]string{
		"video_url": video.VideoURL,
		"caption":   caption,
	}, &out)
	if err != nil {
		s.markFailed(ctx, task.ID, err.Error())
		return nil, err
	}

	creationID := out.CreationID
	if creationID == "" {
		creationID = out.ID
	}
	if creationID == "" {
		err := fmt.Errorf("平台未返回创建句柄")
		s.markFailed(ctx, task.ID, err.Error())
		return nil, err
	}

	if err := s.updateTask(ctx, task.ID, map[string]interface{}{
		"creation_id": creationID,
		"status":      model.PublishStatusPending,
	}); err != nil {
		return nil, err
	}
	task.CreationID = creationID
	task.Status = model.PublishStatusPending

	if s.queue != nil {
		if err := s.queue.SchedulePublish(ctx, task.ID); err != nil {
			log.Printf("发布任务 %s 对账入队失败: %v", task.ID, err)
		}
	}

	log.Printf("发布任务 %s 已创建，创建句柄 %s", task.ID, creationID)
	return task, nil
}

// Reconcile 发布任务对账：轮询远端处理状态，FINISHED后正式发布。
// 轮询受最大次数和最大时限双重约束，超限收敛为FAILED，不会无限轮询
func (s *PublishService) Reconcile(ctx context.Context, taskID string) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}

	// 终态任务不再处理，重复调度是空操作
	if task.Status == model.PublishStatusPublished || task.Status == model.PublishStatusFailed {
		return nil
	}

	if task.RetryCount >= s.maxPollChecks() || time.Since(task.CreatedAt) > s.maxPollAge() {
		return s.markFailed(ctx, taskID, "超过最大轮询次数或时限")
	}

	var status struct {
		Status   string `json:"status"`
		MediaURL string `json:"media_url"`
		Error    string `json:"error"`
	}
	err = s.callPlatform(ctx, task.UserID, http.MethodGet, "/containers/"+task.CreationID+"/status", nil, &status)
	if err != nil {
		// 重试封装已经用尽了退避次数，这里是终态
		return s.markFailed(ctx, taskID, err.Error())
	}

	switch status.Status {
	case "FINISHED":
		return s.publishContainer(ctx, task)
	case "ERROR":
		errMsg := status.Error
		if errMsg == "" {
			errMsg = "平台处理失败"
		}
		return s.markFailed(ctx, taskID, errMsg)
	default:
		// 远端仍在处理，任务转入UPLOADING，记一次检查并重新排队
		now := time.Now()
		if err := s.updateTask(ctx, taskID, map[string]interface{}{
			"status":        model.PublishStatusUploading,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_check_at": &now,
		}); err != nil {
			return err
		}
		if s.queue != nil {
			if err := s.queue.SchedulePublish(ctx, taskID); err != nil {
				log.Printf("发布任务 %s 对账重新入队失败: %v", taskID, err)
			}
		}
		return nil
	}
}

// publishContainer 将处理完成的容器正式发布为动态
func (s *PublishService) publishContainer(ctx context.Context, task *model.PublishTask) error {
	var out struct {
		MediaURL string `json:"media_url"`
		ID       string `json:"id"`
	}
	err := s.callPlatform(ctx, task.UserID, http.MethodPost, "/containers/"+task.CreationID+"/publish", nil, &out)
	if err != nil {
		return s.markFailed(ctx, task.ID, err.Error())
	}

	mediaURL := out.MediaURL
	if mediaURL == "" {
		mediaURL = out.ID
	}

	if err := s.updateTask(ctx, task.ID, map[string]interface{}{
		"status":    model.PublishStatusPublished,
		"media_url": mediaURL,
	}); err != nil {
		return err
	}

	log.Printf("发布任务 %s 已发布: %s", task.ID, mediaURL)
	return nil
}

// callPlatform 平台调用的统一封装。401时只刷新一次令牌再重试原请求，
// 第二次401直接终止；其它失败按基础延时翻倍退避，最多重试到次数上限
func (s *PublishService) callPlatform(ctx context.Context, userID uint, method, path string, body, out interface{}) error {
	token, err := s.getToken(ctx, userID)
	if err != nil {
		return err
	}

	refreshed := false
	attempt := 0
	delay := s.backoffBase()

	for {
		err := s.doRequest(ctx, token, method, path, body, out)
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrUnauthorized) {
			if refreshed {
				return err
			}
			token, err = s.refreshToken(ctx, userID)
			if err != nil {
				return err
			}
			refreshed = true
			// 刷新后的重试不占用普通重试次数
			continue
		}

		attempt++
		if attempt >= s.maxAttempts() {
			return err
		}
		s.sleep(delay)
		delay *= 2
	}
}

func (s *PublishService) doRequest(ctx context.Context, token, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("平台请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return NewUpstreamError("publisher", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// getToken 取用户在当前平台的访问令牌，已过期的先刷新
func (s *PublishService) getToken(ctx context.Context, userID uint) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var token model.SocialToken
	if err := s.db.WithContext(timeoutCtx).
		Where("user_id = ? AND platform = ?", userID, s.cfg.Platform).
		First(&token).Error; err != nil {
		return "", fmt.Errorf("用户 %d 未绑定平台 %s: %v", userID, s.cfg.Platform, err)
	}

	if !token.ExpiresAt.IsZero() && time.Now().After(token.ExpiresAt) {
		return s.refreshToken(ctx, userID)
	}

	return token.AccessToken, nil
}

// refreshToken 用刷新令牌换新的访问令牌并落库
func (s *PublishService) refreshToken(ctx context.Context, userID uint) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var token model.SocialToken
	if err := s.db.WithContext(timeoutCtx).
		Where("user_id = ? AND platform = ?", userID, s.cfg.Platform).
		First(&token).Error; err != nil {
		return "", err
	}

	payload, err := json.Marshal(map[string]string{"refresh_token": token.RefreshToken})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/oauth/refresh", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("令牌刷新请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return "", NewUpstreamError("publisher", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("令牌刷新未返回访问令牌")
	}

	expiresAt := time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	if err := s.db.WithContext(timeoutCtx).Model(&model.SocialToken{}).
		Where("user_id = ? AND platform = ?", userID, s.cfg.Platform).
		Updates(map[string]interface{}{
			"access_token": out.AccessToken,
			"expires_at":   expiresAt,
			"updated_at":   time.Now(),
		}).Error; err != nil {
		return "", err
	}

	log.Printf("用户 %d 平台 %s 令牌已刷新", userID, s.cfg.Platform)
	return out.AccessToken, nil
}

// UpsertToken 保存用户在当前平台的令牌（OAuth授权完成后回写）
func (s *PublishService) UpsertToken(ctx context.Context, userID uint, accessToken, refreshToken string, expiresAt time.Time, pageID string) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	token := model.SocialToken{UserID: userID, Platform: s.cfg.Platform}
	return s.db.WithContext(timeoutCtx).
		Where(&model.SocialToken{UserID: userID, Platform: s.cfg.Platform}).
		Assign(map[string]interface{}{
			"access_token":  accessToken,
			"refresh_token": refreshToken,
			"expires_at":    expiresAt,
			"page_id":       pageID,
		}).
		FirstOrCreate(&token).Error
}

// GetTask 获取发布任务，校验归属
func (s *PublishService) GetTask(ctx context.Context, taskID string, userID uint) (*model.PublishTask, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, fmt.Errorf("无权访问此发布任务")
	}
	return task, nil
}

// ExpireStale 将超龄的未终态发布任务收敛为FAILED，由清理调度器触发
func (s *PublishService) ExpireStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-maxAge)
	result := s.db.WithContext(timeoutCtx).Model(&model.PublishTask{}).
		Where("status NOT IN ? AND created_at < ?",
			[]string{model.PublishStatusPublished, model.PublishStatusFailed}, cutoff).
		Updates(map[string]interface{}{
			"status":     model.PublishStatusFailed,
			"error_msg":  "超过最大轮询次数或时限",
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (s *PublishService) getTask(ctx context.Context, taskID string) (*model.PublishTask, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var task model.PublishTask
	if err := s.db.WithContext(timeoutCtx).Where("id = ?", taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *PublishService) updateTask(ctx context.Context, taskID string, updates map[string]interface{}) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	updates["updated_at"] = time.Now()
	return s.db.WithContext(timeoutCtx).Model(&model.PublishTask{}).
		Where("id = ?", taskID).Updates(updates).Error
}

func (s *PublishService) markFailed(ctx context.Context, taskID, errMsg string) error {
	log.Printf("发布任务 %s 失败: %s", taskID, errMsg)
	return s.updateTask(ctx, taskID, map[string]interface{}{
		"status":    model.PublishStatusFailed,
		"error_msg": errMsg,
	})
}
