package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"reelforge-backend/internal/config"
	"reelforge-backend/internal/model"
	"reelforge-backend/internal/types"

	"gorm.io/gorm"
)

// 文案对应的发布平台
const (
	ShortCopyPlatform = "tiktok"
	LongCopyPlatform  = "youtube"
)

// 数字人渲染的轮询超龄上限，超过后视为失败
const avatarRenderMaxAge = 24 * time.Hour

// ScriptGenerator 脚本与文案生成
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, in ScriptInput) (string, error)
	GenerateShortCopy(ctx context.Context, in ScriptInput, script string) (string, error)
	GenerateLongCopy(ctx context.Context, in ScriptInput, script string) (string, error)
}

// AvatarRenderer 数字人视频渲染，创建后按任务ID轮询
type AvatarRenderer interface {
	CreateRender(ctx context.Context, script, voiceID, avatarID, lookID string) (string, error)
	PollRender(ctx context.Context, taskID string) (*AvatarRenderStatus, error)
}

// CompositeRenderer 成片合成渲染，创建后由webhook回调，轮询兜底
type CompositeRenderer interface {
	CreateRender(ctx context.Context, req CompositeRequest) (string, error)
	PollRender(ctx context.Context, renderID string) (*CompositeRenderStatus, error)
}

// CopyResult 长短文案生成结果，两路各自独立，失败的只收集错误不阻塞另一路
type CopyResult struct {
	ShortCopy string
	LongCopy  string
	Errors    []string
}

// PipelineService 视频生产流水线的编排服务：
// 创建 → 脚本生成 → 文案生成 → 数字人渲染 → 成片合成 → 完成。
// 数字人与合成两个阶段由外部服务异步驱动，通过webhook和轮询对账收敛状态
type PipelineService struct {
	db            *gorm.DB
	scriptGen     ScriptGenerator
	avatar        AvatarRenderer
	compositor    CompositeRenderer
	credits       *CreditService
	notify        *NotifyService
	queue         *ReconcileQueueService
	compositorCfg config.CompositorConfig
}

func NewPipelineService(
	db *gorm.DB,
	scriptGen ScriptGenerator,
	avatar AvatarRenderer,
	compositor CompositeRenderer,
	credits *CreditService,
	notify *NotifyService,
	queue *ReconcileQueueService,
	compositorCfg config.CompositorConfig,
) *PipelineService {
	return &PipelineService{
		db:            db,
		scriptGen:     scriptGen,
		avatar:        avatar,
		compositor:    compositor,
		credits:       credits,
		notify:        notify,
		queue:         queue,
		compositorCfg: compositorCfg,
	}
}

// CreateVideo 创建视频记录。draft允许不完整输入，正式提交要求必填字段齐全
func (s *PipelineService) CreateVideo(ctx context.Context, userID uint, req types.CreateVideoRequest) (*model.Video, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	status := model.VideoStatusPending
	if req.Draft {
		status = model.VideoStatusDraft
	} else {
		if req.Title == "" || req.Topic == "" {
			return nil, fmt.Errorf("标题和主题不能为空")
		}
		if req.AvatarID == "" || req.VoiceID == "" {
			return nil, fmt.Errorf("数字人和声音选择不能为空")
		}
	}

	video := &model.Video{
		UserID:               userID,
		Title:                req.Title,
		Description:          req.Description,
		Topic:                req.Topic,
		Tone:                 req.Tone,
		Duration:             req.Duration,
		CallToAction:         req.CallToAction,
		SpecificCallToAction: req.SpecificCallToAction,
		AvatarID:             req.AvatarID,
		VoiceID:              req.VoiceID,
		LookID:               req.LookID,
		TemplateID:           req.TemplateID,
		Status:               status,
	}

	if err := s.db.WithContext(timeoutCtx).Create(video).Error; err != nil {
		return nil, err
	}

	return video, nil
}

// GenerateScript 生成口播脚本并合并写入派生文案记录。
// 生成失败时不改动记录状态，允许调用方重新发起
func (s *PipelineService) GenerateScript(ctx context.Context, videoID uint) (string, error) {
	video, err := s.GetVideoByID(ctx, videoID)
	if err != nil {
		return "", err
	}

	script, err := s.scriptGen.GenerateScript(ctx, scriptInputFromVideo(video))
	if err != nil {
		log.Printf("视频 %d 脚本生成失败: %v", videoID, err)
		return "", err
	}

	if err := s.mergeContent(ctx, videoID, map[string]interface{}{
		"script": script,
	}); err != nil {
		return "", err
	}

	// 脚本就绪只代表进入处理中，完成状态留给合成阶段
	if video.Status == model.VideoStatusPending || video.Status == model.VideoStatusDraft {
		if err := s.updateVideo(ctx, videoID, map[string]interface{}{
			"status": model.VideoStatusProcessing,
		}); err != nil {
			return "", err
		}
	}

	return script, nil
}

// GenerateCopies 生成长短两路发布文案。两路互相独立，单路失败只收集错误，
// 不会把视频置为error
func (s *PipelineService) GenerateCopies(ctx context.Context, videoID uint) (*CopyResult, error) {
	video, err := s.GetVideoByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	content, err := s.GetContent(ctx, videoID)
	if err != nil || content.Script == "" {
		return nil, fmt.Errorf("视频 %d 还没有脚本，无法生成文案", videoID)
	}

	in := scriptInputFromVideo(video)
	result := &CopyResult{}

	shortCopy, err := s.scriptGen.GenerateShortCopy(ctx, in, content.Script)
	if err != nil {
		log.Printf("视频 %d 短文案生成失败: %v", videoID, err)
		result.Errors = append(result.Errors, fmt.Sprintf("短文案生成失败: %v", err))
	} else {
		result.ShortCopy = shortCopy
		if err := s.mergeContent(ctx, videoID, map[string]interface{}{
			"short_copy_platform": ShortCopyPlatform,
			"short_copy_content":  shortCopy,
		}); err != nil {
			return nil, err
		}
	}

	longCopy, err := s.scriptGen.GenerateLongCopy(ctx, in, content.Script)
	if err != nil {
		log.Printf("视频 %d 长文案生成失败: %v", videoID, err)
		result.Errors = append(result.Errors, fmt.Sprintf("长文案生成失败: %v", err))
	} else {
		result.LongCopy = longCopy
		if err := s.mergeContent(ctx, videoID, map[string]interface{}{
			"long_copy_platform": LongCopyPlatform,
			"long_copy_content":  longCopy,
		}); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// RequestAvatarRender 发起数字人渲染。先扣积分再请求，请求失败立即返还，
// 记录状态保持不变以便重试
func (s *PipelineService) RequestAvatarRender(ctx context.Context, videoID uint) error {
	video, err := s.GetVideoByID(ctx, videoID)
	if err != nil {
		return err
	}

	// 终态成功后不允许重新发起，只能走URL刷新
	if video.AvatarStatus == model.AvatarStatusCompleted {
		return fmt.Errorf("视频 %d 数字人渲染已完成", videoID)
	}

	content, err := s.GetContent(ctx, videoID)
	if err != nil || content.Script == "" {
		return fmt.Errorf("视频 %d 还没有脚本，无法发起渲染", videoID)
	}

	cost := s.credits.RenderCost()
	if err := s.credits.Spend(ctx, video.UserID, cost); err != nil {
		return err
	}

	taskID, err := s.avatar.CreateRender(ctx, content.Script, video.VoiceID, video.AvatarID, video.LookID)
	if err != nil {
		// 渲染没有发起成功，返还已扣积分
		if refundErr := s.credits.Refund(ctx, video.UserID, cost); refundErr != nil {
			log.Printf("视频 %d 积分返还失败: %v", videoID, refundErr)
		}
		return err
	}

	// 失败后重试会走到这里，顺带清掉上一次的错误信息
	if err := s.updateVideo(ctx, videoID, map[string]interface{}{
		"avatar_task_id": taskID,
		"avatar_status":  model.AvatarStatusInProgress,
		"status":         model.VideoStatusProcessing,
		"error_msg":      "",
	}); err != nil {
		return err
	}

	if s.queue != nil {
		if err := s.queue.ScheduleAvatar(ctx, videoID); err != nil {
			log.Printf("视频 %d 数字人对账任务入队失败: %v", videoID, err)
		}
	}

	log.Printf("视频 %d 数字人渲染已发起，任务ID %s", videoID, taskID)
	return nil
}

// ReconcileAvatar 数字人渲染对账。轮询远端状态并收敛到记录里，
// 终态只写一次，重复触发是空操作
func (s *PipelineService) ReconcileAvatar(ctx context.Context, videoID uint) error {
	video, err := s.GetVideoByID(ctx, videoID)
	if err != nil {
		return err
	}

	// 已到终态，任何重放都不再改写
	if video.AvatarStatus == model.AvatarStatusCompleted || video.AvatarStatus == model.AvatarStatusFailed {
		return nil
	}

	if video.AvatarTaskID == "" {
		return fmt.Errorf("视频 %d 尚未发起数字人渲染", videoID)
	}

	status, err := s.avatar.PollRender(ctx, video.AvatarTaskID)
	if err != nil {
		log.Printf("视频 %d 数字人状态查询失败: %v", videoID, err)
		// 查询持续失败的任务同样受时限约束，超龄收敛为失败而不是无限重新排队
		if time.Since(video.UpdatedAt) > avatarRenderMaxAge {
			return s.applyAvatarFailed(ctx, video, "数字人渲染超时")
		}
		if s.queue != nil {
			s.queue.ScheduleAvatar(ctx, videoID)
		}
		return err
	}

	switch status.Status {
	case model.AvatarStatusCompleted:
		return s.applyAvatarCompleted(ctx, video, status)
	case model.AvatarStatusFailed:
		return s.applyAvatarFailed(ctx, video, status.Error)
	default:
		// 仍在渲染。超过时限的任务收敛为失败，否则继续排队
		if time.Since(video.UpdatedAt) > avatarRenderMaxAge {
			return s.applyAvatarFailed(ctx, video, "数字人渲染超时")
		}
		if s.queue != nil {
			if err := s.queue.ScheduleAvatar(ctx, videoID); err != nil {
				log.Printf("视频 %d 数字人对账任务重新入队失败: %v", videoID, err)
			}
		}
		return nil
	}
}

func (s *PipelineService) applyAvatarCompleted(ctx context.Context, video *model.Video, status *AvatarRenderStatus) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// 条件更新保证终态单调：已是终态的记录不会被重放回退
	result := s.db.WithContext(timeoutCtx).Model(&model.Video{}).
		Where("id = ? AND avatar_status NOT IN ?", video.ID,
			[]string{model.AvatarStatusCompleted, model.AvatarStatusFailed}).
		Updates(map[string]interface{}{
			"avatar_status":        model.AvatarStatusCompleted,
			"avatar_video_url":     status.VideoURL,
			"avatar_thumbnail_url": status.ThumbnailURL,
			"avatar_gif_url":       status.GifURL,
			"avatar_duration":      status.Duration,
			"updated_at":           time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return nil
	}

	log.Printf("视频 %d 数字人渲染完成", video.ID)
	return nil
}

func (s *PipelineService) applyAvatarFailed(ctx context.Context, video *model.Video, errMsg string) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if errMsg == "" {
		errMsg = "数字人渲染失败"
	}

	result := s.db.WithContext(timeoutCtx).Model(&model.Video{}).
		Where("id = ? AND avatar_status NOT IN ?", video.ID,
			[]string{model.AvatarStatusCompleted, model.AvatarStatusFailed}).
		Updates(map[string]interface{}{
			"avatar_status": model.AvatarStatusFailed,
			"status":        model.VideoStatusError,
			"error_msg":     errMsg,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return nil
	}

	log.Printf("视频 %d 数字人渲染失败: %s", video.ID, errMsg)
	if _, err := s.notify.Notify(ctx, video.UserID, video.ID, NotifyTypeVideoError, errMsg, ""); err != nil {
		log.Printf("视频 %d 失败通知写入失败: %v", video.ID, err)
	}
	return nil
}

// RefreshAvatarURLs 刷新数字人素材的临时地址。远端URL会过期，
// 这里只原地更新地址和刷新时间，不碰任何状态字段
func (s *PipelineService) RefreshAvatarURLs(ctx context.Context, videoID uint) error {
	video, err := s.GetVideoByID(ctx, videoID)
	if err != nil {
		return err
	}

	if video.AvatarStatus != model.AvatarStatusCompleted || video.AvatarTaskID == "" {
		return fmt.Errorf("视频 %d 数字人渲染未完成，无法刷新地址", videoID)
	}

	status, err := s.avatar.PollRender(ctx, video.AvatarTaskID)
	if err != nil {
		return err
	}
	if status.VideoURL == "" {
		return fmt.Errorf("数字人服务未返回新地址")
	}

	now := time.Now()
	return s.updateVideo(ctx, videoID, map[string]interface{}{
		"avatar_video_url":     status.VideoURL,
		"avatar_thumbnail_url": status.ThumbnailURL,
		"avatar_gif_url":       status.GifURL,
		"avatar_last_refresh":  &now,
	})
}

// RequestComposite 发起成片合成。前置条件是数字人渲染已完成；
// 模板按用户套餐或用户指定选择，字幕从脚本合成
func (s *PipelineService) RequestComposite(ctx context.Context, videoID uint) error {
	video, err := s.GetVideoByID(ctx, videoID)
	if err != nil {
		return err
	}

	if video.AvatarStatus != model.AvatarStatusCompleted {
		return fmt.Errorf("视频 %d 数字人渲染尚未完成，无法发起合成", videoID)
	}
	if video.CompositeStatus == model.CompositeStatusCompleted {
		return fmt.Errorf("视频 %d 已合成完成", videoID)
	}

	var user model.User
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.db.WithContext(timeoutCtx).First(&user, video.UserID).Error; err != nil {
		return err
	}

	content, err := s.GetContent(ctx, videoID)
	if err != nil {
		return err
	}

	cues := BuildCues(content.Script, parseDurationBucket(video.Duration))

	renderID, err := s.compositor.CreateRender(ctx, CompositeRequest{
		TemplateID: s.chooseTemplate(video, user.PlanTier),
		Modifications: map[string]interface{}{
			"video_url": video.AvatarVideoURL,
			"title":     video.Title,
			"subtitles": cues,
		},
		Metadata: strconv.FormatUint(uint64(videoID), 10),
	})
	if err != nil {
		return err
	}

	if err := s.updateVideo(ctx, videoID, map[string]interface{}{
		"render_id":        renderID,
		"composite_status": model.CompositeStatusRendering,
		"status":           model.VideoStatusProcessing,
	}); err != nil {
		return err
	}

	if s.queue != nil {
		if err := s.queue.ScheduleComposite(ctx, videoID); err != nil {
			log.Printf("视频 %d 合成对账任务入队失败: %v", videoID, err)
		}
	}

	log.Printf("视频 %d 成片合成已发起，渲染ID %s", videoID, renderID)
	return nil
}

// HandleCompositorEvent 处理归一化后的合成完成事件。优先用元数据里的视频ID定位，
// 缺失时按渲染ID反查。webhook至少一次投递，重复事件是空操作
func (s *PipelineService) HandleCompositorEvent(ctx context.Context, event *CompositorEvent) error {
	video, err := s.findVideoForEvent(ctx, event)
	if err != nil {
		return err
	}
	return s.applyCompositeResult(ctx, video, event)
}

// ReconcileComposite 合成对账的轮询兜底路径，webhook丢失时由调度任务触发
func (s *PipelineService) ReconcileComposite(ctx context.Context, videoID uint) error {
	video, err := s.GetVideoByID(ctx, videoID)
	if err != nil {
		return err
	}

	if video.CompositeStatus == model.CompositeStatusCompleted || video.CompositeStatus == model.CompositeStatusFailed {
		return nil
	}
	if video.RenderID == "" {
		return fmt.Errorf("视频 %d 尚未发起合成", videoID)
	}

	status, err := s.compositor.PollRender(ctx, video.RenderID)
	if err != nil {
		log.Printf("视频 %d 合成状态查询失败: %v", videoID, err)
		// 查询持续失败的任务同样受时限约束，超龄收敛为失败而不是无限重新排队
		if time.Since(video.UpdatedAt) > avatarRenderMaxAge {
			return s.applyCompositeResult(ctx, video, &CompositorEvent{
				RenderID: video.RenderID,
				Status:   model.CompositeStatusFailed,
				Error:    "成片合成超时",
			})
		}
		if s.queue != nil {
			s.queue.ScheduleComposite(ctx, videoID)
		}
		return err
	}

	if status.Status == model.CompositeStatusRendering {
		if time.Since(video.UpdatedAt) > avatarRenderMaxAge {
			return s.applyCompositeResult(ctx, video, &CompositorEvent{
				RenderID: video.RenderID,
				Status:   model.CompositeStatusFailed,
				Error:    "成片合成超时",
			})
		}
		if s.queue != nil {
			if err := s.queue.ScheduleComposite(ctx, videoID); err != nil {
				log.Printf("视频 %d 合成对账任务重新入队失败: %v", videoID, err)
			}
		}
		return nil
	}

	return s.applyCompositeResult(ctx, video, &CompositorEvent{
		RenderID: video.RenderID,
		Status:   status.Status,
		URL:      status.URL,
		Error:    status.Error,
	})
}

func (s *PipelineService) findVideoForEvent(ctx context.Context, event *CompositorEvent) (*model.Video, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if event.Metadata != "" {
		if id, err := strconv.ParseUint(event.Metadata, 10, 32); err == nil {
			var video model.Video
			if err := s.db.WithContext(timeoutCtx).First(&video, uint(id)).Error; err == nil {
				return &video, nil
			}
		}
	}

	// 元数据缺失或无效，按渲染ID反查
	var video model.Video
	if err := s.db.WithContext(timeoutCtx).Where("render_id = ?", event.RenderID).First(&video).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

// applyCompositeResult 写入合成终态。条件更新保证终态只写一次，
// webhook和轮询并发到达时只有一次生效，通知也只发一次
func (s *PipelineService) applyCompositeResult(ctx context.Context, video *model.Video, event *CompositorEvent) error {
	if video.CompositeStatus == model.CompositeStatusCompleted || video.CompositeStatus == model.CompositeStatusFailed {
		return nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	terminal := []string{model.CompositeStatusCompleted, model.CompositeStatusFailed}

	switch event.Status {
	case model.CompositeStatusCompleted:
		if event.URL == "" {
			return fmt.Errorf("合成完成事件缺少成片地址")
		}

		result := s.db.WithContext(timeoutCtx).Model(&model.Video{}).
			Where("id = ? AND composite_status NOT IN ?", video.ID, terminal).
			Updates(map[string]interface{}{
				"composite_status":    model.CompositeStatusCompleted,
				"composite_video_url": event.URL,
				"video_url":           event.URL,
				"status":              model.VideoStatusCompleted,
				"updated_at":          time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		log.Printf("视频 %d 成片合成完成", video.ID)
		if _, err := s.notify.Notify(ctx, video.UserID, video.ID, NotifyTypeVideoReady, "你的视频已生成完成", event.URL); err != nil {
			log.Printf("视频 %d 完成通知写入失败: %v", video.ID, err)
		}

	case model.CompositeStatusFailed:
		errMsg := event.Error
		if errMsg == "" {
			errMsg = "成片合成失败"
		}

		result := s.db.WithContext(timeoutCtx).Model(&model.Video{}).
			Where("id = ? AND composite_status NOT IN ?", video.ID, terminal).
			Updates(map[string]interface{}{
				"composite_status": model.CompositeStatusFailed,
				"composite_error":  errMsg,
				"status":           model.VideoStatusError,
				"error_msg":        errMsg,
				"updated_at":       time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		log.Printf("视频 %d 成片合成失败: %s", video.ID, errMsg)
		if _, err := s.notify.Notify(ctx, video.UserID, video.ID, NotifyTypeVideoError, errMsg, ""); err != nil {
			log.Printf("视频 %d 失败通知写入失败: %v", video.ID, err)
		}
	}

	return nil
}

// GetVideoByID 根据ID获取视频
func (s *PipelineService) GetVideoByID(ctx context.Context, id uint) (*model.Video, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var video model.Video
	if err := s.db.WithContext(timeoutCtx).First(&video, id).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

// GetUserVideos 获取用户的所有视频
func (s *PipelineService) GetUserVideos(ctx context.Context, userID uint, page, pageSize int) ([]model.Video, int64, error) {
	var videos []model.Video
	var total int64

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := s.db.WithContext(timeoutCtx).Model(&model.Video{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err = s.db.WithContext(timeoutCtx).Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(pageSize).
		Find(&videos).Error

	return videos, total, err
}

// GetContent 获取视频的派生文案记录
func (s *PipelineService) GetContent(ctx context.Context, videoID uint) (*model.VideoContent, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var content model.VideoContent
	if err := s.db.WithContext(timeoutCtx).Where("video_id = ?", videoID).First(&content).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.VideoContent{VideoID: videoID}, nil
		}
		return nil, err
	}
	return &content, nil
}

// DeleteVideo 删除视频并移除还在排队的对账任务
func (s *PipelineService) DeleteVideo(ctx context.Context, id uint) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if s.queue != nil {
		if err := s.queue.RemoveVideoJobs(ctx, id); err != nil {
			log.Printf("移除视频 %d 的对账任务失败: %v", id, err)
		}
	}

	return s.db.WithContext(timeoutCtx).Delete(&model.Video{}, id).Error
}

// PurgeDeletedVideos 物理删除软删超过指定天数的视频及其文案记录
func (s *PipelineService) PurgeDeletedVideos(ctx context.Context, days int) (int64, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -days)

	var videoIDs []uint
	if err := s.db.WithContext(timeoutCtx).Unscoped().Model(&model.Video{}).
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Pluck("id", &videoIDs).Error; err != nil {
		return 0, err
	}
	if len(videoIDs) == 0 {
		return 0, nil
	}

	if err := s.db.WithContext(timeoutCtx).Where("video_id IN ?", videoIDs).
		Delete(&model.VideoContent{}).Error; err != nil {
		return 0, err
	}

	result := s.db.WithContext(timeoutCtx).Unscoped().Delete(&model.Video{}, videoIDs)
	if result.Error != nil {
		return 0, result.Error
	}

	log.Printf("物理清理了 %d 个已删除视频", result.RowsAffected)
	return result.RowsAffected, nil
}

// mergeContent 按视频ID合并更新派生文案记录，不存在时先创建
func (s *PipelineService) mergeContent(ctx context.Context, videoID uint, updates map[string]interface{}) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var content model.VideoContent
	if err := s.db.WithContext(timeoutCtx).
		Where(&model.VideoContent{VideoID: videoID}).
		FirstOrCreate(&content).Error; err != nil {
		return err
	}

	updates["updated_at"] = time.Now()
	return s.db.WithContext(timeoutCtx).Model(&model.VideoContent{}).
		Where("video_id = ?", videoID).Updates(updates).Error
}

func (s *PipelineService) updateVideo(ctx context.Context, id uint, updates map[string]interface{}) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	updates["updated_at"] = time.Now()
	return s.db.WithContext(timeoutCtx).Model(&model.Video{}).
		Where("id = ?", id).Updates(updates).Error
}

// chooseTemplate 合成模板选择：用户指定优先，否则按套餐等级
func (s *PipelineService) chooseTemplate(video *model.Video, planTier string) string {
	if video.TemplateID != "" {
		return video.TemplateID
	}
	switch planTier {
	case model.PlanTierPro:
		if s.compositorCfg.ProTemplate != "" {
			return s.compositorCfg.ProTemplate
		}
	case model.PlanTierBasic:
		if s.compositorCfg.BasicTemplate != "" {
			return s.compositorCfg.BasicTemplate
		}
	}
	return s.compositorCfg.DefaultTemplate
}

func scriptInputFromVideo(v *model.Video) ScriptInput {
	return ScriptInput{
		Title:                v.Title,
		Description:          v.Description,
		Topic:                v.Topic,
		Tone:                 v.Tone,
		Duration:             v.Duration,
		CallToAction:         v.CallToAction,
		SpecificCallToAction: v.SpecificCallToAction,
	}
}

// parseDurationBucket 解析"30s"/"60s"这类时长档位，解析不了返回0，
// 字幕合成会落到估算语速路径
func parseDurationBucket(bucket string) float64 {
	bucket = strings.TrimSpace(strings.ToLower(bucket))
	bucket = strings.TrimSuffix(bucket, "s")
	if bucket == "" {
		return 0
	}
	seconds, err := strconv.Atoi(bucket)
	if err != nil || seconds <= 0 {
		return 0
	}
	return float64(seconds)
}
